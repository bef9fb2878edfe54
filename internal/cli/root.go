// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/api"
	"github.com/caurisai/cauris-tui/internal/config"
	"github.com/caurisai/cauris-tui/internal/logging"
	"github.com/caurisai/cauris-tui/internal/realtime"
	"github.com/caurisai/cauris-tui/internal/session"
	"github.com/caurisai/cauris-tui/internal/storage"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// errNotLoggedIn is returned by commands that need a token.
var errNotLoggedIn = fmt.Errorf("%w: run `cauris login` first", session.ErrAuthMissing)

// app carries what every command needs once the root pre-run has loaded
// the configuration.
type app struct {
	build BuildInfo

	// Flags
	configPath string
	baseURL    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	store  *storage.StateStore
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree.
func NewRootCmd(build BuildInfo) *cobra.Command {
	a := &app{build: build, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cauris",
		Short: "Terminal client for the Cauris AI course assistant",
		Long: `cauris talks to the Cauris AI backend from the terminal.

Run without arguments to open the full-screen chat. The realtime
connection reconnects on its own; answers come from the documents you
indexed with "cauris upload" or "cauris watch".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.cauris/config.toml)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "backend REST root, overrides the config")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging, warnings on stderr")

	root.AddCommand(
		a.tuiCmd(),
		a.chatCmd(),
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.askCmd(),
		a.historyCmd(),
		a.uploadCmd(),
		a.watchCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(build BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(build)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		return 1
	}
	return 0
}

// setup loads the configuration, the logger and the state store.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	var loadWarn error
	if err != nil {
		if cfg == nil {
			return fmt.Errorf("load config: %w", err)
		}
		// Unreadable file, defaults in use
		loadWarn = err
	}
	if a.baseURL != "" {
		cfg.Server.BaseURL = a.baseURL
		cfg.Server.RealtimeURL = ""
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	logFile, err := cfg.LogFile()
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.logger, err = logging.New(logging.Options{Level: level, File: logFile, Stderr: a.verbose})
	if err != nil {
		return err
	}
	if loadWarn != nil {
		a.logger.Warn("config file ignored, using defaults", zap.Error(loadWarn))
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	a.store, err = storage.NewStateStore(dir)
	return err
}

// =============================================================================
// WIRING
// =============================================================================

// client returns a REST client; token may be empty for auth calls.
func (a *app) client(token string) (*api.Client, error) {
	tlsCfg, err := a.cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	c := api.NewClient(a.cfg.Server.BaseURL).
		WithTimeout(a.cfg.RequestTimeout()).
		WithUploadTimeout(a.cfg.UploadTimeout()).
		WithTLSConfig(tlsCfg).
		WithLogger(a.logger)
	if token != "" {
		c = c.WithToken(token)
	}
	return c, nil
}

// authedClient returns a client carrying the stored (or CAURIS_TOKEN) token.
func (a *app) authedClient() (*api.Client, string, error) {
	token, err := a.store.Token()
	if err != nil {
		return nil, "", err
	}
	if token == "" {
		return nil, "", errNotLoggedIn
	}
	c, err := a.client(token)
	return c, token, err
}

// newController wires a session to the realtime endpoint and backend.
func (a *app) newController(backend session.Backend) (*session.Controller, error) {
	endpoint, err := a.cfg.RealtimeEndpoint()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := a.cfg.TLSConfig()
	if err != nil {
		return nil, err
	}

	dialer := realtime.NewWSDialer(endpoint)
	dialer.TLSConfig = tlsCfg
	dialer.Logger = a.logger

	cfg := session.DefaultConfig()
	cfg.ReconnectDelay = a.cfg.ReconnectDelay()
	cfg.HistoryTimeout = a.cfg.HistoryTimeout()
	cfg.DismissDelay = a.cfg.DismissDelay()
	cfg.AcceptedType = a.cfg.Upload.AcceptedType
	cfg.Logger = a.logger
	return session.NewController(cfg, dialer, backend), nil
}

// =============================================================================
// ERRORS
// =============================================================================

// describe turns well-known failures into a one-line hint.
func describe(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, session.ErrAuthMissing):
		return err.Error()
	case errors.Is(err, api.ErrUnauthorized):
		return "the server rejected your credentials; run `cauris login` again"
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	default:
		return err.Error()
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
