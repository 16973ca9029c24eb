package dependency

import (
	"log/slog"

	"go.uber.org/dig"

	"github.com/michaelbrown/mcpskill/internal/config"
	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/server"
	"github.com/michaelbrown/mcpskill/internal/storage"
	"github.com/michaelbrown/mcpskill/internal/storage/sqlite"
	"github.com/michaelbrown/mcpskill/internal/tools"
)

// ServiceContainer holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type ServiceContainer struct {
	store      storage.Store
	dispatcher *dispatch.Dispatcher
	server     *server.Server
}

func (c *ServiceContainer) Store() storage.Store             { return c.store }
func (c *ServiceContainer) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }
func (c *ServiceContainer) Server() *server.Server           { return c.server }

// Close releases the store.
func (c *ServiceContainer) Close() error { return c.store.Close() }

// MCPConfigPath is the server-configuration path given on the command line.
// It is a named type so dig can tell it apart from other strings.
type MCPConfigPath string

// Params is everything the container is built from.
type Params struct {
	Config        *config.Config
	MCPConfigPath MCPConfigPath
	Logger        *slog.Logger
	// Launcher overrides the stdio launcher; nil uses tools.Launcher.
	Launcher dispatch.Launcher
}

// New builds and wires all services from p.
func New(p Params) (*ServiceContainer, error) {
	d := dig.New()

	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Launcher == nil {
		p.Launcher = tools.Launcher{}
	}

	if err := d.Provide(func() *config.Config { return p.Config }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() MCPConfigPath { return p.MCPConfigPath }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() *slog.Logger { return p.Logger }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() dispatch.Launcher { return p.Launcher }); err != nil {
		return nil, err
	}
	if err := d.Provide(newStore); err != nil {
		return nil, err
	}
	if err := d.Provide(newDispatcher); err != nil {
		return nil, err
	}
	if err := d.Provide(server.New); err != nil {
		return nil, err
	}

	var result *ServiceContainer
	err := d.Invoke(func(store storage.Store, disp *dispatch.Dispatcher, srv *server.Server) {
		result = &ServiceContainer{
			store:      store,
			dispatcher: disp,
			server:     srv,
		}
	})
	return result, err
}

func newStore(cfg *config.Config) (storage.Store, error) {
	return sqlite.Open(cfg.Storage.DBPath)
}

func newDispatcher(
	cfg *config.Config,
	path MCPConfigPath,
	launcher dispatch.Launcher,
	store storage.Store,
	logger *slog.Logger,
) *dispatch.Dispatcher {
	opts := append(cfg.DispatchOptions(),
		dispatch.WithLogger(logger),
		dispatch.WithHook(storage.Hook(store, func(err error) {
			logger.Warn("recording call", "err", err)
		})),
	)
	return dispatch.New(cfg.Locator(string(path)), launcher, opts...)
}
