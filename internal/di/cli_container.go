package di

import (
	"flag"
	"io"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/frontend"
	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/logging"
)

// CLIFlags contains the global command line flags of the CLI application
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides; zero values keep the configured setting
	Threshold   float64
	ModelDir    string
	HistoryType string
	HistoryDir  string
}

// NewFlagSet registers the global flags on a new flag set
func NewFlagSet(name string, flags *CLIFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	fs.Float64Var(&flags.Threshold, "threshold", 0, "Suspicious score threshold (overrides config)")
	fs.StringVar(&flags.ModelDir, "model-dir", "", "Directory holding model artifacts (overrides config)")
	fs.StringVar(&flags.HistoryType, "history-type", "", "Scan history backend: jsonl, memory, sqlite, mysql, redis (overrides config)")
	fs.StringVar(&flags.HistoryDir, "history-dir", "", "Directory for JSONL scan history (overrides config)")

	return fs
}

// ParseFlags parses the global flags in args and returns them with the remaining arguments
func ParseFlags(name string, args []string, output io.Writer) (*CLIFlags, []string, error) {
	flags := &CLIFlags{}
	fs := NewFlagSet(name, flags)
	fs.SetOutput(output)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return flags, fs.Args(), nil
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
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlagOverrides(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register CLI reporter
	if err := container.Provide(func(service *core.AnalysisService, logger *zap.Logger, flags *CLIFlags) *frontend.CLIReporter {
		return frontend.NewCLIReporter(service, logger, os.Stdout, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlagOverrides copies explicitly set flags over the loaded configuration
func applyFlagOverrides(cfg *config.Config, flags *CLIFlags) {
	if flags.Threshold > 0 {
		cfg.Set("analysis.threshold", flags.Threshold)
	}
	if flags.ModelDir != "" {
		cfg.Set("model.dir", flags.ModelDir)
	}
	if flags.HistoryType != "" {
		cfg.Set("history.type", flags.HistoryType)
	}
	if flags.HistoryDir != "" {
		cfg.Set("history.dir", flags.HistoryDir)
	}
}
