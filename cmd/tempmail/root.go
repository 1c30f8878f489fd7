package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/app"
	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/logger"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider/factory"
	"github.com/nhle/tempmail/internal/session"
	"github.com/nhle/tempmail/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tempmail",
		Short:         "Disposable email in your terminal",
		Long:          "Generates a temporary mailbox, counts down to its expiry and shows incoming mail.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
		RunE: runTUI,
	}

	root.PersistentFlags().String("config", model.DefaultConfigPath(), "Path to the config file")
	root.PersistentFlags().String("provider", "", "Provider for new addresses: mailgw or 1secmail")
	root.PersistentFlags().String("log.level", "", "Log level: debug, info, warn or error")

	root.AddCommand(newServeCmd(), newNewCmd())
	return root
}

// env holds everything a command needs, built from the loaded config.
type env struct {
	cfg        *model.AppConfig
	configPath string
	log        *zap.Logger
	creds      credential.Store
	history    store.Store
	providers  *factory.Registry
	manager    *session.Manager
}

// setup loads config and opens every collaborator. console receives log
// output in addition to the log file; nil keeps the terminal clean.
func setup(cmd *cobra.Command, console io.Writer) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := model.LoadConfig(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	e := &env{cfg: cfg, configPath: path, log: log}

	ring, err := credential.OpenKeyring(model.ConfigDir())
	if err != nil {
		log.Warn("keyring unavailable, passwords kept in memory", zap.Error(err))
		e.creds = credential.NewMemoryStore()
	} else {
		e.creds = ring
	}

	opts := []session.Option{session.WithLogger(log.Named("session"))}
	if cfg.History.Enabled {
		st, err := store.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			log.Warn("history disabled", zap.String("path", cfg.History.Path), zap.Error(err))
		} else {
			e.history = st
			opts = append(opts, session.WithHistory(st))
		}
	}

	e.providers = factory.NewRegistry(cfg.Providers, e.creds, log.Named("provider"))
	p, err := e.providers.Get(cfg.Provider)
	if err != nil {
		e.close()
		return nil, err
	}
	e.manager = session.New(p, session.ConfigFrom(cfg.Session), opts...)

	log.Info("tempmail starting",
		zap.String("command", cmd.Name()),
		zap.String("provider", string(cfg.Provider)),
		zap.Bool("history", e.history != nil),
	)
	return e, nil
}

func (e *env) close() {
	if e.manager != nil {
		e.manager.Stop()
	}
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.log.Warn("closing history", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

func runTUI(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer e.close()

	m := app.New(app.Options{
		Manager:     e.manager,
		Providers:   e.providers,
		Config:      e.cfg,
		ConfigPath:  e.configPath,
		History:     e.history,
		Credentials: e.creds,
		Logger:      e.log.Named("tui"),
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
