// cmd/contractwizard/main.go
//
// This is the entry point for the contract wizard CLI.
// Running `contractwizard` with no subcommand opens the TUI; the subcommands
// are scriptable shortcuts for the same backend.
//
// Flow:
// 1. Resolve the project directory and make sure .contractwizard/ exists
// 2. Load config.yaml (plus CONTRACTWIZARD_* overrides) and open the log
// 3. Run the TUI or the requested subcommand

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/contract-wizard/internal/archive"
	"github.com/kingrea/contract-wizard/internal/config"
	"github.com/kingrea/contract-wizard/internal/draft"
	"github.com/kingrea/contract-wizard/internal/eventbridge"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/logging"
	"github.com/kingrea/contract-wizard/internal/tui"
)

const shutdownTimeout = 2 * time.Second

// cli carries the state shared by every command once setup has run.
type cli struct {
	projectDir string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "contractwizard",
		Short: "Draft, review and sign contracts from the terminal",
		Long: `contractwizard walks you through creating a contract in eight steps:
describe what you need, pick a template, fill in the details, approve the
AI-drafted clauses, add recipients and witnesses, review, send and sign.

Drafts are saved locally in .contractwizard/ and can be resumed at any time.
Run without arguments to start the interactive wizard.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runWizard(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.projectDir, "project", "p", "", "directory holding .contractwizard (defaults to the working directory)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "write debug-level diagnostics to the log")
	root.AddCommand(
		c.draftsCmd(),
		c.statusCmd(),
		c.notificationsCmd(),
		c.archiveCmd(),
		c.loginCmd(),
		c.listenCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) setup(*cobra.Command, []string) error {
	dir := c.projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitProjectDir(abs); err != nil {
		return fmt.Errorf("init %s: %w", config.WizardDir, err)
	}
	cfg, err := config.NewConfig(abs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.verbose {
		cfg.Project.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

func (c *cli) client() *gateway.Client {
	return gateway.FromConfig(c.cfg, gateway.WithLogger(c.logger))
}

// friendly logs the raw error and returns the text shown to the user.
func (c *cli) friendly(op string, err error) error {
	c.logger.Warn(op+" failed", zap.Error(err))
	return errors.New(gateway.Describe(err))
}

func (c *cli) shutdown(server *eventbridge.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		c.logger.Warn("webhook bridge shutdown", zap.Error(err))
	}
}

// runWizard wires the stores, the webhook bridge and the backend client into
// the TUI and blocks until the user quits.
func (c *cli) runWizard(ctx context.Context) error {
	drafts, err := draft.Open(c.cfg.DraftsPath())
	if err != nil {
		return err
	}
	defer drafts.Close()

	archiver, err := archive.FromConfig(c.cfg, c.logger)
	if err != nil {
		return err
	}

	router := eventbridge.NewRouter(eventbridge.RouterWithLogger(c.logger))
	opts := []tui.AppOption{
		tui.WithDrafts(drafts),
		tui.WithRouter(router),
		tui.WithArchiver(archiver),
		tui.WithLogger(c.logger),
	}
	if settings := eventbridge.SettingsFromConfig(c.cfg); settings.Enabled {
		server := eventbridge.NewServer(settings,
			eventbridge.WithProcessor(router),
			eventbridge.WithLogger(c.logger),
		)
		if err := server.Start(ctx); err != nil {
			c.logger.Warn("webhook bridge unavailable", zap.Error(err))
		} else {
			defer c.shutdown(server)
			opts = append(opts, tui.WithBridgeAddress(server.WebhookURL()))
		}
	}

	app, err := tui.NewApp(c.cfg, c.client(), opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
