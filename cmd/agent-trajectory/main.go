package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
	"github.com/thinkwright/agent-trajectory/internal/config"
	"github.com/thinkwright/agent-trajectory/internal/loader"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
	"github.com/thinkwright/agent-trajectory/internal/pipeline"
	"github.com/thinkwright/agent-trajectory/internal/provider"
	"github.com/thinkwright/agent-trajectory/internal/report"
)

var version = "dev"

func main() {
	var (
		flagOut         string
		flagModel       string
		flagMode        string
		flagProvider    string
		flagBaseURL     string
		flagAPIKeyEnv   string
		flagConcurrency int
		flagTimeout     time.Duration
		flagConfig      string
		flagEnvFile     string
		flagVerbose     bool
	)

	root := &cobra.Command{
		Use:          "agent-trajectory <input.jsonl>",
		Short:        "Judge whether a conversational agent improves across a timeline of conversations",
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]

			logger, err := newLogger(flagVerbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			raw, err := config.Load(flagConfig, inputPath)
			if err != nil {
				return err
			}
			settings, err := config.Decode(raw)
			if err != nil {
				return err
			}
			applyFlags(cmd, &settings, flagOverrides{
				out: flagOut, model: flagModel, mode: flagMode, provider: flagProvider,
				baseURL: flagBaseURL, apiKeyEnv: flagAPIKeyEnv, concurrency: flagConcurrency,
				timeout: flagTimeout, envFile: flagEnvFile,
			})
			if err := settings.Validate(); err != nil {
				return err
			}
			if err := config.LoadEnv(settings.EnvFile); err != nil {
				return err
			}

			mode, err := analysis.ParseMode(settings.Mode)
			if err != nil {
				return &config.ConfigurationError{Setting: "mode", Reason: err.Error()}
			}

			client, err := provider.NewClient(provider.Config{
				Provider:  settings.Oracle.Provider,
				Model:     settings.Oracle.Model,
				BaseURL:   settings.Oracle.BaseURL,
				APIKeyEnv: settings.Oracle.APIKeyEnv,
				MaxTokens: settings.Oracle.MaxTokens,
			})
			if err != nil {
				return err
			}
			judge := oracle.NewLLMOracle(client,
				oracle.WithModel(settings.Oracle.Model),
				oracle.WithTemperature(settings.Oracle.Temperature),
				oracle.WithMaxTokens(settings.Oracle.MaxTokens),
				oracle.WithLogger(logger),
			)

			logger.Debug("resolved settings",
				zap.String("mode", string(mode)),
				zap.String("provider", settings.Oracle.Provider),
				zap.String("model", settings.Oracle.Model),
				zap.Int("concurrency", settings.Concurrency),
				zap.Duration("timeout", settings.Oracle.Timeout))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			rep, err := pipeline.Run(ctx, pipeline.Options{
				InputPath:   inputPath,
				OutDir:      settings.OutDir,
				Mode:        mode,
				Oracle:      judge,
				Concurrency: settings.Concurrency,
				Timeout:     settings.Oracle.Timeout,
				Logger:      logger,
				Progress: func(done, total int, conversationID string) {
					fmt.Fprintf(os.Stderr, "  [%d/%d] %s\n", done, total, conversationID)
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("Done. Trajectory=%s delta=%s avg=%s\n", rep.Trajectory.Label, report.FormatNumber(rep.TrendDelta), report.FormatNumber(rep.AverageScore))
			return nil
		},
	}
	root.Flags().StringVar(&flagOut, "out", "output", "Output directory for report.json and report.md")
	root.Flags().StringVar(&flagModel, "model", provider.DefaultGeminiModel, "Oracle model identifier")
	root.Flags().StringVar(&flagMode, "mode", "progression", "Evaluation mode: progression, single")
	root.Flags().StringVar(&flagProvider, "provider", provider.DefaultProvider, "LLM provider: gemini, openai, anthropic, openai-compatible")
	root.Flags().StringVar(&flagBaseURL, "base-url", "", "Override the provider endpoint (required for openai-compatible)")
	root.Flags().StringVar(&flagAPIKeyEnv, "api-key-env", "", "Environment variable name for API key")
	root.Flags().IntVar(&flagConcurrency, "concurrency", 1, "Max concurrent oracle calls in single mode")
	root.Flags().DurationVar(&flagTimeout, "timeout", 0, "Time limit for the oracle phase (0 = none)")
	root.Flags().StringVar(&flagConfig, "config", "", "Path to agent-trajectory.yaml config")
	root.Flags().StringVar(&flagEnvFile, "env-file", ".env", "Load API keys from this dotenv file when present")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")

	// ── show command ─────────────────────────────────────────────
	var (
		flagFormat  string
		flagOutput  string
		flagNoPager bool
	)

	showCmd := &cobra.Command{
		Use:   "show <report.json>",
		Short: "Re-render a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			rep, err := report.ParseJSON(data)
			if err != nil {
				return err
			}

			output, err := formatReport(rep, flagFormat)
			if err != nil {
				return err
			}
			return writeOutput(output, flagOutput, flagFormat, flagNoPager)
		},
	}
	showCmd.Flags().StringVar(&flagFormat, "format", "terminal", "Output format: terminal, json, markdown")
	showCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write report to file")
	showCmd.Flags().BoolVar(&flagNoPager, "no-pager", false, "Disable automatic paging")

	root.AddCommand(showCmd)

	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

type flagOverrides struct {
	out, model, mode, provider, baseURL, apiKeyEnv, envFile string
	concurrency                                             int
	timeout                                                 time.Duration
}

// applyFlags copies explicitly set flags over file and default settings.
func applyFlags(cmd *cobra.Command, s *config.Settings, f flagOverrides) {
	changed := cmd.Flags().Changed
	if changed("out") {
		s.OutDir = f.out
	}
	if changed("model") {
		s.Oracle.Model = f.model
	}
	if changed("mode") {
		s.Mode = f.mode
	}
	if changed("provider") {
		s.Oracle.Provider = f.provider
		// A provider switch without a model picks that provider's default.
		if !changed("model") && s.Oracle.Model == provider.DefaultModel(provider.DefaultProvider) {
			s.Oracle.Model = provider.DefaultModel(f.provider)
		}
	}
	if changed("base-url") {
		s.Oracle.BaseURL = f.baseURL
	}
	if changed("api-key-env") {
		s.Oracle.APIKeyEnv = f.apiKeyEnv
	}
	if changed("concurrency") {
		s.Concurrency = f.concurrency
	}
	if changed("timeout") {
		s.Oracle.Timeout = f.timeout
	}
	if changed("env-file") || s.EnvFile == "" {
		s.EnvFile = f.envFile
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg.Build()
}

// exitCode maps a failure to a process exit status and prints a hint for
// the common cases.
func exitCode(err error) int {
	var (
		cfgErr    *config.ConfigurationError
		recordErr *loader.MalformedRecordError
		oracleErr *oracle.FailureError
		boundsErr *analysis.ScoreOutOfBoundsError
	)
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintln(os.Stderr, "Check agent-trajectory.yaml, the command flags, and the API key env var (e.g. GEMINI_API_KEY).")
		return 2
	case errors.As(err, &recordErr):
		fmt.Fprintf(os.Stderr, "Fix line %d of the input log and re-run.\n", recordErr.Line)
		return 3
	case errors.As(err, &oracleErr):
		return 4
	case errors.As(err, &boundsErr):
		return 5
	}
	return 1
}

func formatReport(rep *analysis.Report, format string) (string, error) {
	switch format {
	case "json":
		data, err := report.FormatJSON(rep)
		return string(data), err
	case "markdown":
		return report.FormatMarkdown(rep), nil
	case "terminal":
		return report.FormatTerminal(rep), nil
	}
	return "", fmt.Errorf("unknown format %q (supported: terminal, json, markdown)", format)
}

func writeOutput(output, path, format string, noPager bool) error {
	// Write to file
	if path != "" {
		if err := os.WriteFile(path, []byte(output), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
		return nil
	}

	// Use pager for terminal format when stdout is a TTY
	if format == "terminal" && !noPager && isTerminal() {
		return outputWithPager(output)
	}

	fmt.Print(output)
	return nil
}

// isTerminal returns true if stdout is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// outputWithPager pipes output through $PAGER, or less -R -X.
func outputWithPager(output string) error {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	var args []string
	if pager == "less" {
		args = []string{"-R", "-X"}
	}

	cmd := exec.Command(pager, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		fmt.Print(output)
		return nil
	}

	if err := cmd.Start(); err != nil {
		// Pager not available, fall back to direct output
		fmt.Print(output)
		return nil
	}

	io.WriteString(stdin, output)
	stdin.Close()

	// Ignore pager exit errors (e.g. user quits with 'q')
	cmd.Wait()
	return nil
}
