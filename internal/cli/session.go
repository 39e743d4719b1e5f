package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/config"
	"github.com/tvdias/poc-study-designer-sub003/internal/engine"
	"github.com/tvdias/poc-study-designer-sub003/internal/store"
)

// session is what a database-backed command works with.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	composer *engine.Composer
}

// loadConfig reads the config file and applies flag overrides.
// --verbose forces debug logging.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.Database != "" {
		cfg.Database.DSN = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads config, opens the store and builds a composer whose
// logs go to the command's stderr. Callers must close the session.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())

	logger.Debug("opening database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		composer: engine.New(st, engine.WithLogger(logger)),
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}
