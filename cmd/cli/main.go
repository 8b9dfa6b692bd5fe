package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"anomalyexplain/adapters/excel"
	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal/explain"
	"anomalyexplain/internal/report"
	"anomalyexplain/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "anomalyexplain-cli",
		Short: "Explain why scored samples look anomalous against a reference dataset",
	}

	rootCmd.AddCommand(
		newExplainCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type explainOptions struct {
	referencePath string
	samplesPath   string
	format        string
	summary       bool
	workers       int
}

func newExplainCmd() *cobra.Command {
	opts := explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain every sample in a JSON file against a CSV/XLSX reference",
		Long: `Explain each sample against the reference table.

The reference is a CSV or XLSX file with a header row; non-numeric columns are
ignored. Samples are a JSON array of flat objects where "id" and "risk_score"
are lifted out and every other key is a feature.

Example: anomalyexplain-cli explain --reference history.csv --samples flagged.json --format markdown --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.referencePath, "reference", "", "Reference dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.samplesPath, "samples", "", "JSON array of samples")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json|markdown")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Include the feature importance summary")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent workers (default: GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}

func runExplain(out io.Writer, opts explainOptions) error {
	ref, err := excel.NewDataReader(opts.referencePath, excel.DefaultReaderConfig()).ReadReference()
	if err != nil {
		return fmt.Errorf("failed to load reference: %w", err)
	}
	samples, err := excel.ReadSamplesFile(opts.samplesPath)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	return explainAndWrite(out, samples, ref, opts)
}

func newDemoCmd() *cobra.Command {
	var seed int64
	var format string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Explain a few synthetic samples against a generated reference",
		Long: `Generate a 1000-row reference (amount, latency_ms, items) and explain one
normal sample, one extreme outlier and one shifted sample.

Example: anomalyexplain-cli demo --seed 7 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), seed, format)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: json|markdown")

	return cmd
}

func runDemo(out io.Writer, seed int64, format string) error {
	config := testkit.DefaultReferenceConfig()
	config.Seed = seed
	gen := testkit.NewReferenceGenerator(config)

	ref, err := gen.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate reference: %w", err)
	}

	samples := []dataset.Sample{
		gen.Sample("normal", 0.2, nil),
		gen.Sample("extreme-amount", 0.92, map[string]float64{"amount": 5}),
		gen.Sample("shifted", 0.65, map[string]float64{"amount": 2.6, "latency_ms": 2.8, "items": 2.9}),
	}
	return explainAndWrite(out, samples, ref, explainOptions{format: format, summary: true})
}

func explainAndWrite(out io.Writer, samples []dataset.Sample, ref *dataset.Reference, opts explainOptions) error {
	engineOpts := explain.DefaultOptions()
	if opts.workers > 0 {
		engineOpts.Workers = opts.workers
	}
	engine := explain.NewEngine(engineOpts)

	start := time.Now()
	exps := engine.ExplainBatch(samples, ref)
	var summary []explanation.FeatureImportance
	if opts.summary {
		summary = explain.FeatureImportanceSummary(exps)
	}
	fmt.Fprintf(os.Stderr, "Explained %d samples against %d reference rows in %v\n",
		len(exps), ref.NumRows(), time.Since(start).Round(time.Millisecond))

	switch opts.format {
	case "markdown", "md":
		_, err := io.WriteString(out, report.BatchMarkdown(exps, summary))
		return err
	case "json", "":
		payload := map[string]interface{}{"explanations": exps}
		if opts.summary {
			payload["summary"] = summary
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	default:
		return fmt.Errorf("unknown format %q (use json or markdown)", opts.format)
	}
}
