package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/api"
	"github.com/slok/sprites/internal/config"
	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	// OutputTable prints human readable tables.
	OutputTable = "table"
	// OutputJSON prints JSON.
	OutputJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// ExitError is returned by the commands that end with the exit code of a
// remote process.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("remote process exited with code %d", e.Code) }

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	Output     string
	ConfigPath string
	Token      string
	BaseURL    string
	RateLimit  float64

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("output", "Output format.").Short('o').Default(OutputTable).EnumVar(&c.Output, OutputTable, OutputJSON)
	app.Flag("config", "Path to the client configuration file.").Default(config.DefaultPath()).StringVar(&c.ConfigPath)
	app.Flag("token", "API token, overrides the configuration.").StringVar(&c.Token)
	app.Flag("base-url", "API base URL, overrides the configuration.").StringVar(&c.BaseURL)
	app.Flag("rate-limit", "Maximum API requests per second (0 is unlimited), overrides the configuration.").Float64Var(&c.RateLimit)

	return c
}

// LoadConfig loads the configuration file and environment, the flags override them.
func (c *RootCommand) LoadConfig(ctx context.Context) (config.Config, error) {
	absPath, err := filepath.Abs(c.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("could not resolve config path: %w", err)
	}

	// The loader reads from the root filesystem, fs.FS paths are unrooted.
	cfg, err := config.NewLoader(os.DirFS("/")).Load(ctx, absPath[1:])
	if err != nil {
		return config.Config{}, fmt.Errorf("could not load config: %w", err)
	}

	cfg = config.Merge(cfg, config.Config{Token: c.Token, BaseURL: c.BaseURL, RateLimit: c.RateLimit})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	if cfg.Token == "" {
		return config.Config{}, fmt.Errorf("token is required, use --token, %s_TOKEN or the config file: %w", config.EnvPrefix, model.ErrNotValid)
	}

	return cfg, nil
}

// NewAPIClient returns the API client with the loaded configuration.
func (c *RootCommand) NewAPIClient(ctx context.Context) (*api.Client, error) {
	cfg, err := c.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.ClientConfig{
		BaseURL:   cfg.BaseURL,
		Token:     cfg.Token,
		RateLimit: cfg.RateLimit,
		Logger:    c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create api client: %w", err)
	}

	return client, nil
}

// Printer returns the printer of the selected output format.
func (c *RootCommand) Printer() printer.Printer {
	if c.Output == OutputJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}
