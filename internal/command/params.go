package command

import (
	"fmt"
	"strings"
)

// Param describes one positional argument of a command.
type Param struct {
	Name     string
	Optional bool
	Variadic bool
	// Choices restricts the argument to a fixed set. Strings render quoted.
	Choices []any
}

// Required declares a required positional argument.
func Required(name string) Param { return Param{Name: name} }

// Optional declares an optional positional argument.
func Optional(name string) Param { return Param{Name: name, Optional: true} }

// Rest declares a trailing variadic argument. It accepts zero or more values
// unless required is set.
func Rest(name string, required bool) Param {
	return Param{Name: name, Variadic: true, Optional: !required}
}

// OneOf declares an argument restricted to the given choices.
func OneOf(name string, optional bool, choices ...any) Param {
	return Param{Name: name, Optional: optional, Choices: choices}
}

// String renders the param the way it appears in help text.
func (p Param) String() string {
	label := p.Name
	if len(p.Choices) > 0 {
		parts := make([]string, len(p.Choices))
		for i, c := range p.Choices {
			if s, ok := c.(string); ok {
				parts[i] = `"` + s + `"`
			} else {
				parts[i] = fmt.Sprint(c)
			}
		}
		label = strings.Join(parts, "|")
	}
	if p.Variadic {
		label += "..."
	}
	if p.Optional {
		return "[" + label + "]"
	}
	return "<" + label + ">"
}

func (p Param) accepts(arg string) bool {
	if len(p.Choices) == 0 {
		return true
	}
	for _, c := range p.Choices {
		if fmt.Sprint(c) == arg {
			return true
		}
	}
	return false
}

// Signature renders params separated by spaces.
func Signature(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// checkArgs validates args against params. A nil params slice disables the
// check.
func checkArgs(params []Param, args []string) error {
	if params == nil {
		return nil
	}

	required := 0
	variadic := false
	for _, p := range params {
		if p.Variadic {
			variadic = true
		}
		if !p.Optional {
			required++
		}
	}
	if len(args) < required {
		return fmt.Errorf("expected at least %d argument(s), got %d", required, len(args))
	}
	if !variadic && len(args) > len(params) {
		return fmt.Errorf("expected at most %d argument(s), got %d", len(params), len(args))
	}

	for i, arg := range args {
		p := params[min(i, len(params)-1)]
		if !p.accepts(arg) {
			return fmt.Errorf("invalid value %q for %s", arg, p.Name)
		}
	}
	return nil
}
