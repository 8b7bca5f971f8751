package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/engine"
	"github.com/DrSkyle/assetpulse/pkg/engine/history"
	"github.com/DrSkyle/assetpulse/pkg/engine/notifier"
	"github.com/DrSkyle/assetpulse/pkg/engine/policy"
	"github.com/DrSkyle/assetpulse/pkg/engine/report"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/engine/swarm"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/DrSkyle/assetpulse/pkg/storage"
	"github.com/DrSkyle/assetpulse/pkg/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type analyzeOptions struct {
	systemType   string
	systemName   string
	domainFile   string
	rules        []string
	llmEndpoint  string
	llmModel     string
	format       string
	output       string
	slackWebhook string
	historyURL   string
	otelEndpoint string
	interactive  bool
	strict       bool
	verbose      bool
}

var analyzeOpts analyzeOptions

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze <telemetry.csv>",
	Short: "Analyze a telemetry CSV and report anomalies",
	Long: `Runs the statistical detection pipeline and every registered finding
source over a telemetry CSV, unifies their findings and scores asset health.

Without --llm-endpoint the built-in perspectives run offline and report
their deterministic fallback findings.

Example:
  assetpulse analyze press.csv --system-type hydraulic_press --system-name press-7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAnalysisConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], analyzeOpts, cfg)
	},
}

func init() {
	f := AnalyzeCmd.Flags()
	f.StringVar(&analyzeOpts.systemType, "system-type", domain.GenericSystemType, "Asset system type (see 'assetpulse domains')")
	f.StringVar(&analyzeOpts.systemName, "system-name", "", "Human-readable asset name")
	f.StringVar(&analyzeOpts.domainFile, "domain-file", "", "YAML file with extra or overriding domain knowledge")
	f.StringSliceVar(&analyzeOpts.rules, "rules", nil, "YAML rule files, each registered as a finding source")
	f.StringVar(&analyzeOpts.llmEndpoint, "llm-endpoint", "", "OpenAI-compatible chat completions URL (key from "+sources.APIKeyEnv+")")
	f.StringVar(&analyzeOpts.llmModel, "llm-model", "gpt-4o-mini", "Model name sent to --llm-endpoint")
	f.StringVar(&analyzeOpts.format, "format", "table", "Output format: table, json, csv or html")
	f.StringVar(&analyzeOpts.output, "output", "", "Write the report to a local path or s3://bucket/key")
	f.StringVar(&analyzeOpts.slackWebhook, "slack-webhook", "", "Slack Webhook URL")
	f.StringVar(&analyzeOpts.historyURL, "history", "", "Health ledger location (local path or s3://bucket/key)")
	f.StringVar(&analyzeOpts.otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint for traces")
	f.BoolVar(&analyzeOpts.interactive, "tui", false, "Browse the result in the interactive terminal UI")
	f.BoolVar(&analyzeOpts.strict, "strict", false, "Exit non-zero when any finding source fails or times out")
	f.BoolVarP(&analyzeOpts.verbose, "verbose", "v", false, "Debug logging on stderr")

	f.Int("batch-size", config.DefaultBatchSize, "Finding sources launched concurrently")
	f.Duration("source-timeout", config.DefaultSourceTimeout, "Timeout of one finding source")
	f.Duration("global-timeout", config.DefaultGlobalTimeout, "Budget for all finding sources")
	f.Duration("cooldown", config.DefaultBatchCooldown, "Pause between source batches")
	f.Int("top-k", config.DefaultTopK, "Unified anomalies to keep")

	for flag, key := range map[string]string{
		"batch-size":     "orchestrator.batch_size",
		"source-timeout": "orchestrator.source_timeout",
		"global-timeout": "orchestrator.global_timeout",
		"cooldown":       "orchestrator.batch_cooldown",
		"top-k":          "unify.top_k",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runAnalyze(ctx context.Context, stdout io.Writer, path string, opts analyzeOptions, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format := opts.format
	if format != "table" {
		if _, err := report.ParseFormat(format); err != nil {
			return err
		}
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := engine.NewLogger(os.Stderr, level)

	ds, err := loadDataset(path)
	if err != nil {
		return err
	}

	domains, err := domain.NewRegistry()
	if err != nil {
		return err
	}
	if opts.domainFile != "" {
		if err := domains.LoadFile(opts.domainFile); err != nil {
			return err
		}
	}

	var completer sources.Completer
	if opts.llmEndpoint != "" {
		completer = sources.NewHTTPCompleter(opts.llmEndpoint, opts.llmModel)
	}
	// Offline sources only serve fallbacks, so there is no rate limit to pace.
	if completer == nil && cfg.Orchestrator.BatchCooldown > 0 {
		logger.Debug("No completer configured, skipping batch cooldown", "cooldown", cfg.Orchestrator.BatchCooldown)
		cfg.Orchestrator.BatchCooldown = 0
	}
	registry := sources.NewCatalogRegistry(completer, logger)
	for _, rulePath := range opts.rules {
		rf, err := policy.LoadRules(rulePath)
		if err != nil {
			return err
		}
		src, err := policy.NewRuleSource(rf)
		if err != nil {
			return fmt.Errorf("rules %s: %w", rulePath, err)
		}
		registry.Register(src)
	}

	engOpts := []engine.Option{
		engine.WithConfig(engine.Config{
			Analysis:     cfg,
			StrictMode:   opts.strict,
			OtelEndpoint: opts.otelEndpoint,
			Logger:       logger,
		}),
		engine.WithDomains(domains),
		engine.WithSources(registry),
	}
	if completer != nil {
		engOpts = append(engOpts, engine.WithEnricher(swarm.CompleterEnricher{Completer: completer}))
	}
	eng, err := engine.New(ctx, engOpts...)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Close(shutdownCtx)
	}()

	res, runErr := eng.Analyze(ctx, engine.Request{
		SystemType: opts.systemType,
		SystemName: opts.systemName,
		Dataset:    ds,
	})
	if runErr != nil && !errors.Is(runErr, engine.ErrPartialResult) {
		return runErr
	}

	var trend *history.Trend
	if opts.historyURL != "" {
		t, err := recordHistory(ctx, opts.historyURL, res)
		if err != nil {
			logger.Warn("Failed to update health history", "error", err)
		} else {
			trend = &t
		}
	}

	if err := emit(ctx, stdout, res, format, opts.output); err != nil {
		return err
	}
	if trend != nil {
		if format == "table" {
			printTrend(stdout, *trend)
		} else {
			for _, a := range trend.Alerts {
				logger.Warn("Health trend alert", "alert", a)
			}
		}
	}

	if opts.slackWebhook != "" {
		if err := notifier.NewSlackClient(opts.slackWebhook, "").SendAnalysisReport(ctx, report.Summarize(res)); err != nil {
			logger.Warn("Failed to send Slack notification", "error", err)
		}
	}

	if opts.interactive {
		if err := tui.Run(res); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}
	return runErr
}

func loadDataset(path string) (*profile.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry: %w", err)
	}
	defer f.Close()
	ds, err := profile.LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse telemetry %s: %w", path, err)
	}
	return ds, nil
}

// emit renders res. Table output always goes to stdout and, with --output,
// is accompanied by a JSON export. Other formats go to --output when set.
func emit(ctx context.Context, stdout io.Writer, res *model.AnalysisResult, format, output string) error {
	if format == "table" {
		printResult(stdout, res)
		if output == "" {
			return nil
		}
		format = string(report.FormatJSON)
	}

	f, _ := report.ParseFormat(format)
	if output == "" {
		return report.Write(stdout, res, f)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, res, f); err != nil {
		return err
	}
	store, key, err := storage.Open(ctx, output)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintln(stdout, special.Render("[SUCCESS]")+" Report written to "+output)
	return nil
}

// recordHistory appends res to the ledger at target and derives the health
// trend over the last ten runs of the same system.
func recordHistory(ctx context.Context, target string, res *model.AnalysisResult) (history.Trend, error) {
	store, key, err := storage.Open(ctx, target)
	if err != nil {
		return history.Trend{}, err
	}
	ledger := history.NewLedger(store, key)
	if err := ledger.Append(ctx, history.SnapshotOf(res)); err != nil {
		return history.Trend{}, err
	}
	snaps, err := ledger.Load(ctx, res.SystemName, 10)
	if err != nil {
		return history.Trend{}, err
	}
	return history.Analyze(snaps), nil
}
