package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/joebot/aminobot/internal/bot"
	"github.com/joebot/aminobot/internal/bus"
	"github.com/joebot/aminobot/internal/cli"
	"github.com/joebot/aminobot/internal/config"
	"github.com/joebot/aminobot/internal/lock"
	"github.com/joebot/aminobot/internal/logging"
)

type Options struct {
	Config string `long:"config" short:"c" description:"Path to config.json (default ~/.aminobot/config.json)"`
	Debug  bool   `long:"debug" description:"Enable debug logging"`
}

var opts Options

func (o *Options) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return config.ConfigPath()
}

type runCommand struct {
	EnvFile []string `long:"env-file" description:"Load environment variables from a .env file (repeatable)"`
}

type statusCommand struct{}

type onboardCommand struct{}

type versionCommand struct{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Amino chat bot"

	parser.AddCommand("run", "Connect and serve commands",
		"Connects to the realtime socket and dispatches commands and events until interrupted.", &runCommand{})
	parser.AddCommand("status", "Show configuration", "Shows the loaded configuration and credentials.", &statusCommand{})
	parser.AddCommand("onboard", "Initialize setup", "Creates or upgrades the config file and asks for credentials.", &onboardCommand{})
	parser.AddCommand("version", "Show version", "Prints the version.", &versionCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// --- run command ---

func (c *runCommand) Execute(_ []string) error {
	if err := config.LoadEnv(c.EnvFile...); err != nil {
		return err
	}

	cfgPath := opts.configPath()
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return err
	}
	if !cfg.HasCredentials() {
		fmt.Println()
		fmt.Println(cli.ErrStyle.Render("  Error: No credentials configured"))
		fmt.Println(cli.DimStyle.Render("  Run `aminobot onboard` or set " + config.EnvDeviceID + ", " + config.EnvKey + ", " + config.EnvSession))
		fmt.Println()
		return errors.New("missing credentials")
	}

	closeLog, err := setupLogging(cfg, opts.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	lk, err := lock.New(dataDir, cfg.Auth.DeviceID)
	if err != nil {
		return err
	}
	if err := lk.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			slog.Warn("Failed to release instance lock", "path", lk.Path(), "err", err)
		}
	}()

	b, err := bot.New(cfg, bot.WithDeliverer(logDeliverer))
	if err != nil {
		return err
	}
	if err := registerCommands(b); err != nil {
		return err
	}
	b.OnReady(func(_ context.Context) error {
		slog.Info("Bot ready", "prefix", b.Prefix(), "self", b.SelfID())
		return nil
	})

	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s aminobot", cli.Logo)) + cli.DimStyle.Render(" prefix "+cfg.Bot.Prefix))
	fmt.Println(cli.DimStyle.Render("  Press Ctrl+C to stop"))
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = b.Run(ctx)
	slog.Info("Bot stopped", "state", b.State())
	return err
}

// logDeliverer stands in for the REST client and logs what would be posted.
func logDeliverer(_ context.Context, msg *bus.OutboundMessage) error {
	slog.Info("Outbound message",
		"thread", msg.ThreadID,
		"community", msg.CommunityID,
		"replyTo", msg.ReplyTo,
		"content", msg.Content,
	)
	return nil
}

// setupLogging installs the default slog logger and returns a closer for the
// log file, if any.
func setupLogging(cfg *config.Config, debug bool) (func(), error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	color := cfg.Logging.Color
	closer := func() {}
	if path := cfg.LogFilePath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		color = false
		closer = func() { _ = f.Close() }
	}

	slog.SetDefault(slog.New(logging.NewHandler(w, &logging.Options{Level: level, Color: color})))
	return closer, nil
}

// --- other commands ---

func (c *statusCommand) Execute(_ []string) error {
	_ = config.LoadEnv()
	cfgPath := opts.configPath()
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
		if cfg == nil {
			cfg = config.DefaultConfig()
		}
	}
	cli.RunStatus(cfg, cfgPath)
	return nil
}

func (c *onboardCommand) Execute(_ []string) error {
	return cli.RunOnboard(opts.configPath())
}

func (c *versionCommand) Execute(_ []string) error {
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s aminobot v%s", cli.Logo, cli.Version)))
	return nil
}
