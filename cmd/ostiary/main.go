// ABOUTME: Entry point for the ostiary registration bot
// ABOUTME: Wires the directory session, privilege resolver, workflow, and Matrix front-end

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/ostiary-bot/ostiary/internal/bot"
	"github.com/ostiary-bot/ostiary/internal/config"
	"github.com/ostiary-bot/ostiary/internal/directory"
	"github.com/ostiary-bot/ostiary/internal/privilege"
	"github.com/ostiary-bot/ostiary/internal/workflow"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
    ╭─────────────────────────────────╮
    │                                 │
    │   ┏━┓┏━┓╺┳╸╻┏━┓┏━┓╻ ╻          │
    │   ┃ ┃┗━┓ ┃ ┃┣━┫┣┳┛┗┳┛          │
    │   ┗━┛┗━┛ ╹ ╹╹ ╹╹┗╸ ╹           │
    │                                 │
    │   directory registration bot    │
    │                                 │
    ╰─────────────────────────────────╯
`

// getConfigPath returns the path to the ostiary config file.
// Priority: OSTIARY_CONFIG env var > XDG_CONFIG_HOME/ostiary/config.yaml > ~/.config/ostiary/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("OSTIARY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ostiary", "config.yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Directory:  %s\n", cfg.Directory.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Domains:    %d\n", len(cfg.Domains))
	fmt.Println()

	session := directory.NewSession(
		cfg.Directory.BaseURL,
		cfg.Directory.BindUser,
		cfg.Directory.BindPassword,
		cfg.Directory.RefreshInterval,
		logger,
	)

	// Initial login before anything else touches the backend.
	if err := session.Login(ctx); err != nil {
		return fmt.Errorf("directory login: %w", err)
	}

	client := directory.NewClient(cfg.Directory.BaseURL, cfg.ExternalIDAttributeName(), session, logger)

	b, err := bot.New(cfg.Matrix, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	resolver := privilege.NewResolver(cfg.Domains, cfg.Weight, b, logger)
	registration := workflow.NewRegistration(client, resolver, b, cfg.Domains, cfg.Weight, logger)
	b.Attach(registration, resolver, client)

	// Two long-lived tasks: the session refresh loop and the sync loop.
	// Either one failing tears the whole process down; in particular a
	// re-login failure is fatal rather than retried.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- session.RefreshLoop(runCtx) }()
	go func() { errCh <- b.Run(runCtx) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			cancel()
			return err
		}
	}
	return nil
}
