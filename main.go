package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kimeltech/mcp-chat/internal/cache"
	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/cli"
	"github.com/kimeltech/mcp-chat/internal/config"
	"github.com/kimeltech/mcp-chat/internal/export"
	"github.com/kimeltech/mcp-chat/internal/filter"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/kimeltech/mcp-chat/internal/utils/httpclient"
	"github.com/kimeltech/mcp-chat/internal/validator"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v3"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const appName = "openrouter-models"

// errValidationFailed signals a completed run where at least one model is not
// callable. The summary has already been printed, so main only sets the exit code.
var errValidationFailed = errors.New("one or more models failed validation")

// parseLogLevel maps a LOG_LEVEL value to a logrus level, falling back to warn
// when it is empty or not a level name
func parseLogLevel(value string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(value))
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so stdout stays parseable with --output json
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parseLogLevel(os.Getenv("LOG_LEVEL")))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := newApp(logger, os.Stdout).Run(ctx, os.Args); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newApp(logger *logrus.Logger, out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:    appName,
		Usage:   "Discover OpenRouter models and validate the local model registry",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Writer:  out,
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "base-url",
				Usage:   "OpenRouter API base URL",
				Sources: ucli.EnvVars("OPENROUTER_BASE_URL"),
			},
			&ucli.StringFlag{
				Name:    "env-file",
				Usage:   "File to read OPENROUTER_API_KEY from when it is not in the environment",
				Sources: ucli.EnvVars("OPENROUTER_ENV_FILE"),
			},
			&ucli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout for catalog requests",
				Sources: ucli.EnvVars("OPENROUTER_HTTP_TIMEOUT"),
			},
			&ucli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   string(cli.OutputText),
				Usage:   "Output format: text, json or yaml",
			},
		},
		Commands: []*ucli.Command{
			discoverCommand(logger, out),
			validateCommand(logger, out),
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					fmt.Fprintf(out, "%s version %s\n", appName, Version)
					fmt.Fprintf(out, "Commit: %s\n", Commit)
					fmt.Fprintf(out, "Built: %s\n", BuildDate)
					return nil
				},
			},
		},
	}
}

func discoverCommand(logger *logrus.Logger, out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "discover",
		Usage: "Filter the OpenRouter catalog and optionally export matches as registry entries",
		Description: `Examples:
   openrouter-models discover --tools
   openrouter-models discover --tools --vision --max-price 2.0 --recent 60
   openrouter-models discover --search claude --tools
   openrouter-models discover --tools --provider anthropic,openai
   openrouter-models discover --tools --export new_models.json`,
		Flags: []ucli.Flag{
			&ucli.BoolFlag{Name: "tools", Usage: "Only models with tool/function calling support"},
			&ucli.BoolFlag{Name: "vision", Usage: "Only models that accept images"},
			&ucli.BoolFlag{Name: "reasoning", Usage: "Only reasoning models"},
			&ucli.FloatFlag{Name: "max-price", Usage: "Maximum input price per 1M tokens (USD)"},
			&ucli.IntFlag{Name: "min-context", Usage: "Minimum context window in tokens"},
			&ucli.StringSliceFlag{Name: "provider", Usage: "Provider(s) to include, e.g. anthropic,openai"},
			&ucli.IntFlag{Name: "recent", Usage: "Show the newest models first (approximate, last N days)"},
			&ucli.StringFlag{Name: "search", Usage: "Search term matched against model ID and name"},
			&ucli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of models to display (0 shows all)"},
			&ucli.StringFlag{Name: "export", Usage: "Write matches to this file as registry entries"},
			&ucli.StringFlag{Name: "merge-into", Usage: "Add matches not yet present to this registry file"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			return runDiscover(ctx, cmd, logger, out)
		},
	}
}

func validateCommand(logger *logrus.Logger, out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "validate",
		Usage: "Check every registry model exists on OpenRouter and answers a probe call",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Registry file to validate (default: config/models.config.json)",
				Sources: ucli.EnvVars("OPENROUTER_MODELS_CONFIG"),
			},
			&ucli.StringFlag{
				Name:    "report",
				Usage:   "Where to write the report when a model fails (default: model_validation_report.json)",
				Sources: ucli.EnvVars("OPENROUTER_VALIDATION_REPORT"),
			},
			&ucli.DurationFlag{
				Name:    "probe-timeout",
				Usage:   "Upper bound for each probe call (default: 60s)",
				Sources: ucli.EnvVars("OPENROUTER_PROBE_TIMEOUT"),
			},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			return runValidate(ctx, cmd, logger, out)
		},
	}
}

// loadSettings reads the environment and applies any flags given on the command line
func loadSettings(cmd *ucli.Command) (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("base-url") {
		settings.BaseURL = strings.TrimRight(strings.TrimSpace(cmd.String("base-url")), "/")
	}
	if cmd.IsSet("env-file") {
		settings.EnvFile = cmd.String("env-file")
	}
	if cmd.IsSet("timeout") {
		settings.HTTPTimeout = cmd.Duration("timeout")
	}
	return settings, nil
}

func runDiscover(ctx context.Context, cmd *ucli.Command, logger *logrus.Logger, out io.Writer) error {
	output, err := cli.ParseOutputFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	printer := cli.NewPrinter(out, output)

	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	apiKey, err := config.ResolveAPIKey(settings.EnvFile)
	if err != nil {
		return err
	}
	printer.Notice("API key found: %s", config.MaskKey(apiKey))

	client, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: settings.BaseURL,
		APIKey:  apiKey,
		Timeout: settings.HTTPTimeout,
	}, cache.NewSnapshot[[]catalog.Model](), logger)
	if err != nil {
		return err
	}
	defer client.Close()

	printer.Notice("Fetching all models from OpenRouter...")
	models, err := client.Fetch(ctx, false)
	if err != nil {
		return err
	}
	printer.Notice("Retrieved %d models (as of %s)\n", len(models), client.FetchedAt().Format(time.Kitchen))

	logger.WithField("criteria", fmt.Sprintf("%+v", criteria)).Debug("Applying filters")
	matched := filter.Apply(models, criteria)

	if err := printer.Models(matched, cmd.Int("limit")); err != nil {
		return err
	}

	if path := cmd.String("export"); path != "" {
		entries := export.Export(matched)
		if err := export.WriteFile(path, entries); err != nil {
			return err
		}
		printer.Notice("\nExported %d models to %s", len(entries), path)
		printer.Notice("   You can review and add these to your models.config.json\n")
	}

	if path := cmd.String("merge-into"); path != "" {
		added, err := mergeIntoRegistry(path, export.Export(matched), logger)
		if err != nil {
			return err
		}
		printer.Notice("Added %d new models to %s (disabled until you enable them)\n", len(added), path)
	}

	printer.Notice("Discovery complete! Found %d matching models.", len(matched))
	return nil
}

// mergeIntoRegistry adds entries to the registry at path, creating it if needed
func mergeIntoRegistry(path string, entries []registry.ModelEntry, logger *logrus.Logger) ([]string, error) {
	f, err := registry.Load(path)
	if errors.Is(err, registry.ErrConfigFileMissing) {
		logger.WithField("path", path).Info("Registry does not exist yet, creating it")
		f = &registry.File{Version: registry.NewVersion("1.0")}
	} else if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if existing, ok := f.Find(e.ID); ok {
			logger.WithFields(logrus.Fields{
				"id":      e.ID,
				"enabled": existing.Enabled,
			}).Debug("Registry already has this entry, keeping it")
		}
	}

	added := f.Merge(entries)
	if len(added) == 0 {
		return nil, nil
	}
	if err := f.Save(path); err != nil {
		return nil, fmt.Errorf("failed to update registry: %w", err)
	}
	return added, nil
}

// criteriaFromFlags builds the filter criteria. --recent must be a positive day count.
func criteriaFromFlags(cmd *ucli.Command) (filter.Criteria, error) {
	c := filter.Criteria{
		Tools:     cmd.Bool("tools"),
		Vision:    cmd.Bool("vision"),
		Reasoning: cmd.Bool("reasoning"),
		Providers: splitList(cmd.StringSlice("provider")),
		Search:    strings.TrimSpace(cmd.String("search")),
	}
	if cmd.IsSet("max-price") {
		v := cmd.Float("max-price")
		c.MaxPrice = &v
	}
	if cmd.IsSet("min-context") {
		v := cmd.Int("min-context")
		c.MinContext = &v
	}
	if cmd.IsSet("recent") {
		v := cmd.Int("recent")
		if v <= 0 {
			return c, fmt.Errorf("--recent must be a positive number of days, got %d", v)
		}
		c.RecentDays = &v
	}
	return c, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func runValidate(ctx context.Context, cmd *ucli.Command, logger *logrus.Logger, out io.Writer) error {
	output, err := cli.ParseOutputFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	printer := cli.NewPrinter(out, output)

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	configPath := settings.ModelsConfig
	if cmd.IsSet("config") {
		configPath = cmd.String("config")
	}
	reportPath := settings.ReportPath
	if cmd.IsSet("report") {
		reportPath = cmd.String("report")
	}
	probeTimeout := settings.ProbeTimeout
	if cmd.IsSet("probe-timeout") {
		probeTimeout = cmd.Duration("probe-timeout")
	}

	apiKey, err := config.ResolveAPIKey(settings.EnvFile)
	if err != nil {
		return err
	}
	printer.Notice("API key found: %s", config.MaskKey(apiKey))

	f, err := registry.Load(configPath)
	if err != nil {
		return err
	}
	printer.RegistryLoaded(configPath, f)

	client, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: settings.BaseURL,
		APIKey:  apiKey,
		Timeout: settings.HTTPTimeout,
	}, cache.NewSnapshot[[]catalog.Model](), logger)
	if err != nil {
		return err
	}
	defer client.Close()
	prober := validator.NewChatProber(settings.BaseURL, apiKey, httpclient.NewHTTPClient(probeTimeout, logger))

	runID := uuid.NewString()
	logger.WithFields(logrus.Fields{
		"run_id": runID,
		"models": len(f.Models),
	}).Info("Starting validation run")

	results, err := validator.New(client, prober, probeTimeout, logger).Run(ctx, f.Models, printer.Result)
	if err != nil {
		return err
	}
	if err := printer.Summary(results); err != nil {
		return err
	}

	if validator.AllPassed(results) {
		return nil
	}

	report := validator.BuildReport(results, time.Now(), runID)
	if err := validator.WriteReport(reportPath, report); err != nil {
		return err
	}
	printer.ReportSaved(reportPath)
	return errValidationFailed
}
