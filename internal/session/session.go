// Package session decodes the auth session token issued at login.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed is returned for tokens that cannot be decoded.
var ErrMalformed = errors.New("malformed session token")

// The token wraps a JSON object between a one-byte header and a 20-byte
// trailing signature.
const (
	headerLen  = 1
	trailerLen = 20
)

// Session is the decoded auth session.
type Session struct {
	Token      string
	UserID     string
	IP         string
	CreatedAt  time.Time
	ClientType int
}

// Parse decodes token.
func Parse(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) <= headerLen+trailerLen {
		return nil, fmt.Errorf("%w: too short", ErrMalformed)
	}

	var body struct {
		UserID     string `json:"2"`
		IP         string `json:"4"`
		Created    int64  `json:"5"`
		ClientType int    `json:"6"`
	}
	if err := json.Unmarshal(raw[headerLen:len(raw)-trailerLen], &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if body.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrMalformed)
	}

	return &Session{
		Token:      token,
		UserID:     body.UserID,
		IP:         body.IP,
		CreatedAt:  time.Unix(body.Created, 0),
		ClientType: body.ClientType,
	}, nil
}

// SID is the value of the NDCAUTH header.
func (s *Session) SID() string {
	return "sid=" + s.Token
}
