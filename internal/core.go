package internal

import (
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata" // calendar.timezone must resolve without host zoneinfo

	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/query"
	"github.com/starford/mdcal/internal/settings"
)

// Core is the document stack every front end shares: settings, store and
// query engine. It holds no background resources.
type Core struct {
	Settings *settings.Store
	Store    *docstore.Store
	Query    *query.Engine
}

// NewCore builds the document stack described by cfg.
func NewCore(cfg *Config, logger *slog.Logger) (*Core, error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar timezone: %w", err)
	}
	cs := settings.New(cfg.Data.Dir)
	store := docstore.New(cs, docstore.WithLogger(logger))
	return &Core{
		Settings: cs,
		Store:    store,
		Query:    query.New(store, loc),
	}, nil
}

// Service returns a docservice.Service over the core. The calendar name and
// logger come from cfg; opts may add a catalog or folder hooks.
func (c *Core) Service(cfg *Config, logger *slog.Logger, opts ...docservice.Option) *docservice.Service {
	base := []docservice.Option{
		docservice.WithLogger(logger),
		docservice.WithCalendarName(cfg.Calendar.Name),
	}
	return docservice.New(c.Store, c.Settings, c.Query, append(base, opts...)...)
}

// NewService loads a plain Service for one-shot use, such as a CLI command.
func NewService(opts ...Option) (*docservice.Service, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := app.logger()
	core, err := NewCore(app.config, logger)
	if err != nil {
		return nil, err
	}
	return core.Service(app.config, logger), nil
}
