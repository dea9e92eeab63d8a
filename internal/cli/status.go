package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joebot/aminobot/internal/config"
	"github.com/joebot/aminobot/internal/session"
)

// RunStatus displays the current configuration status with styled output.
func RunStatus(cfg *config.Config, cfgPath string) {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s aminobot Status", Logo)))
	fmt.Println()

	fmt.Printf("  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))
	if logPath := cfg.LogFilePath(); logPath != "" {
		fmt.Printf("  %-12s %s  %s\n", "Log file", StatusBadge(fileExists(logPath)), DimStyle.Render(logPath))
	}
	fmt.Printf("  %-12s %s\n", "Prefix", cfg.Bot.Prefix)
	fmt.Printf("  %-12s %s\n", "On error", cfg.Bot.HandlerErrors)
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Credentials"))
	fmt.Printf("    %s  %-10s %s\n", StatusBadge(cfg.Auth.DeviceID != ""), "Device", cfg.Auth.DeviceID)
	fmt.Printf("    %s  %-10s %s\n", StatusBadge(cfg.Auth.Key != ""), "Key", Mask(cfg.Auth.Key))

	sess, err := session.Parse(cfg.Auth.Session)
	switch {
	case cfg.Auth.Session == "":
		fmt.Printf("    %s  %-10s %s\n", StatusBadge(false), "Session", DimStyle.Render("(not set)"))
	case err != nil:
		fmt.Printf("    %s  %-10s %s\n", StatusBadge(false), "Session", ErrStyle.Render(err.Error()))
	default:
		fmt.Printf("    %s  %-10s user %s %s\n", StatusBadge(true), "Session", sess.UserID,
			DimStyle.Render("(issued "+sess.CreatedAt.Format(time.DateTime)+")"))
	}
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Socket"))
	fmt.Printf("    %-12s %s\n", "URL", cfg.Socket.URL)
	fmt.Printf("    %-12s %s\n", "Reconnect", time.Duration(cfg.Socket.ReconnectIntervalSeconds)*time.Second)
	fmt.Printf("    %-12s %s\n", "Retry", time.Duration(cfg.Socket.RetryBackoffMs)*time.Millisecond)
	fmt.Println()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
