package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/sessions"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tools"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	spotify services.Client
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify services.Client
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, stdioCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective configuration for a command: the --config
// flag wins over the config loaded at startup.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if configPath == "config.toml" {
			return r.config, nil
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// client returns the Spotify client, constructing one from config when the
// startup probe found no credentials.
func (r *Runner) client(config *shared.Config) (services.Client, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}
	return services.NewSpotifyService(config.Credentials.Spotify.Map())
}

// stack is the assembled core: token store, auth gate, and tool dispatcher.
type stack struct {
	client     services.Client
	store      *auth.Store
	gate       *auth.Gate
	registry   *sessions.Registry
	dispatcher *tools.Dispatcher
	db         *sql.DB
}

// Close releases the stack's resources.
func (s *stack) Close() {
	if s.registry != nil {
		s.registry.Shutdown()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// buildStack wires the core from configuration. The track cache is only
// attached when a database path is configured.
func (r *Runner) buildStack(config *shared.Config) (*stack, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := r.client(config)
	if err != nil {
		return nil, err
	}

	store := auth.NewStore(client)
	gate := auth.NewGate(store, client, r.logger)
	registry := sessions.NewRegistry(store, r.logger)

	var cache tools.TrackSaver
	var db *sql.DB
	if config.Database.Path != "" {
		db, err = shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := repositories.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		cache = repositories.NewTrackCache(repositories.NewTrackRepository(db), client.Name())
		r.logger.Info("track cache enabled", "path", config.Database.Path)
	}

	dispatcher := tools.NewDispatcher(gate, client, cache, r.logger)

	return &stack{
		client:     client,
		store:      store,
		gate:       gate,
		registry:   registry,
		dispatcher: dispatcher,
		db:         db,
	}, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
