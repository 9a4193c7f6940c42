package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/cart"
	"github.com/educloud/educloud-cli/internal/config"
	"github.com/educloud/educloud-cli/internal/session"
	"github.com/educloud/educloud-cli/internal/storage"
)

// App bundles the wired client stack for one command invocation: config,
// local storage, cart, session cache, and the API client. Commands build
// one with openApp and close it when done.
type App struct {
	Config   *config.Config
	Storage  *storage.Store
	Cart     *cart.Store
	Sessions *session.Cache
	API      *api.Client
}

// openApp loads configuration and opens the local state database.
func openApp(opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create state directory", err)
	}
	st, err := storage.Open(cfg.StatePath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open state database", err)
	}

	sessions := session.NewCache(st)
	return &App{
		Config:   cfg,
		Storage:  st,
		Cart:     cart.New(st),
		Sessions: sessions,
		API:      api.New(cfg.Endpoints(), sessions),
	}, nil
}

// Close releases the state database.
func (a *App) Close() {
	if err := a.Storage.Close(); err != nil {
		slog.Error("error closing state database", "error", err)
	}
}

// apiExitError maps an API client error to an exit-coded error. Server
// rejection messages pass through verbatim; connectivity problems keep the
// generic transport message.
func apiExitError(message string, err error) *ExitError {
	if errors.Is(err, api.ErrAuthRequired) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}
