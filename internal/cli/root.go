package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oscap-tools/hardenplan/internal/observability"
	"github.com/oscap-tools/hardenplan/internal/observability/logging"
	otelobs "github.com/oscap-tools/hardenplan/internal/observability/otel"
	"github.com/oscap-tools/hardenplan/internal/observability/receipt"
	"github.com/oscap-tools/hardenplan/internal/version"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds flushing of buffered spans on exit
const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "hardenplan",
	Short: "Security profile remediation for installation plans",
	Long: `hardenplan: enforce security-profile remediation rules on an installation plan.
Mount options, root password policy and package selection are fixed up in place;
problems that need a human are reported as warnings or fatal errors.`,
	Version:           version.BuildVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupObservability,
}

// global flags
var (
	logFormat string
	logLevel  string
	logOutput string

	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	otelSampleRatio float64

	receiptPath string
	receiptMode string
)

// cleanups run after the command, in reverse order
var cleanups []func()

func Execute() {
	err := rootCmd.Execute()
	runCleanups()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	defaults := logging.DefaultConfig()
	otelDefaults := otelobs.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logFormat, "log-format", defaults.Format, "Log format: text, jsonl or off")
	flags.StringVar(&logLevel, "log-level", defaults.Level, "Log level: debug, info, warn or error")
	flags.StringVar(&logOutput, "log-output", defaults.Output, "Log destination: stderr, stdout or a file path")
	flags.BoolVar(&otelEnabled, "otel", false, "Export traces via OTLP")
	flags.StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default: OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.StringVar(&otelProtocol, "otel-protocol", otelDefaults.Protocol, "OTLP protocol: otlphttp or otlpgrpc")
	flags.BoolVar(&otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64Var(&otelSampleRatio, "otel-sample-ratio", otelDefaults.SampleRatio, "Trace sampling ratio (0..1)")
	flags.StringVar(&receiptPath, "receipt", "", "Write an evidence receipt to this path")
	flags.StringVar(&receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt mode: overwrite or append")

	rootCmd.AddCommand(GetRulesCmd())
	rootCmd.AddCommand(GetEvalCmd())
	rootCmd.AddCommand(GetAuditCmd())
	rootCmd.AddCommand(GetPolicyCmd())
	rootCmd.AddCommand(GetBundleCmd())
	rootCmd.AddCommand(GetKeygenCmd())
	rootCmd.AddCommand(GetVersionCmd())
}

// setupObservability wires op id, logger, tracing and receipts into the
// command context.
func setupObservability(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithOpID(ctx)

	log, err := logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logLevel,
		Output: logOutput,
		OpID:   observability.OpID(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	ctx = logging.WithLogger(ctx, log)
	cleanups = append(cleanups, func() { _ = log.Close() })

	if otelEnabled {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = otelEndpoint
		cfg.Protocol = otelProtocol
		cfg.Insecure = otelInsecure
		cfg.SampleRatio = otelSampleRatio

		h, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		ctx = otelobs.WithHandle(ctx, h)
		cleanups = append(cleanups, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := h.Shutdown(shutdownCtx); err != nil {
				log.Warn("otel", "trace shutdown failed", "error", err.Error())
			}
		})
	}

	if receiptPath != "" {
		w, err := receipt.NewWriter(receiptPath, receiptMode)
		if err != nil {
			return err
		}
		ctx = receipt.WithWriter(ctx, w)
		cleanups = append(cleanups, func() { _ = w.Close() })
	}

	cmd.SetContext(ctx)
	return nil
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// errGateFailed is returned when the gate verdict is fail; the results are
// already printed.
var errGateFailed = errors.New("gate failed")
