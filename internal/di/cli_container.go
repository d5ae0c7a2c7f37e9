package di

import (
	"flag"
	"os"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/adapters/filter"
	"github.com/mikey/forward-unwrap/internal/adapters/mailbox"
	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/factory"
	"github.com/mikey/forward-unwrap/internal/logging"
	"github.com/mikey/forward-unwrap/internal/ports"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	ConfigFile string

	// Input flags
	InputFile string
	MboxFile  string
	UseIMAP   bool

	// Extraction flags
	SkipMIME bool
	Timeout  time.Duration
	MaxDepth int

	// Output flags
	JSONOutput bool
	Verbose    bool
	JSONLog    bool
}

// ParseFlags parses command line arguments into a CLIFlags struct
func ParseFlags(name string, args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if no source is given)")
	fs.StringVar(&flags.MboxFile, "mbox", "", "Process every message of an mbox file")
	fs.BoolVar(&flags.UseIMAP, "imap", false, "Process recent messages from the configured IMAP mailbox")

	fs.BoolVar(&flags.SkipMIME, "skip-mime", false, "Treat the input as plain text")
	fs.DurationVar(&flags.Timeout, "timeout", 0, "MIME decoding timeout (default from config)")
	fs.IntVar(&flags.MaxDepth, "max-depth", 0, "Maximum unwrap depth (default from config)")

	fs.BoolVar(&flags.JSONOutput, "json", false, "Print results as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		return loadCLIConfig(flags, logger)
	}); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(f *factory.FilterFactory, flags *CLIFlags) (*filter.CliFilter, error) {
		return f.CreateCliFilter(os.Stdout, flags.JSONOutput, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(newMessageSource); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the config file when given and applies flag overrides.
// Without a file the result cache is off.
func loadCLIConfig(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigFile != "" {
		loaded, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", loaded.GetViper().ConfigFileUsed()))
		cfg = loaded
	} else {
		cfg = config.NewFromViper(config.NewEmptyViper())
		cfg.Set("cache.enabled", false)
	}

	if flags.SkipMIME {
		cfg.Set("extract.skip_mime", true)
	}
	if flags.Timeout > 0 {
		cfg.Set("extract.timeout", flags.Timeout.String())
	}
	if flags.MaxDepth > 0 {
		cfg.Set("extract.max_depth", flags.MaxDepth)
	}
	return cfg, nil
}

func newMessageSource(flags *CLIFlags, cfg *config.Config, logger *zap.Logger) (ports.MessageSource, error) {
	switch {
	case flags.MboxFile != "":
		logger.Info("Reading mbox", zap.String("file", flags.MboxFile))
		return mailbox.NewMboxSource(flags.MboxFile, logger)
	case flags.UseIMAP:
		return mailbox.NewIMAPSource(cfg.GetIMAP(), logger)
	case flags.InputFile != "":
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		return mailbox.NewFileSource(flags.InputFile)
	default:
		logger.Info("Reading email from stdin")
		return mailbox.NewReaderSource("stdin", os.Stdin), nil
	}
}
