package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"datastory/adapters/ingest"
	"datastory/adapters/render"
	"datastory/app"
	"datastory/domain/chart"
	"datastory/domain/dataset"
	"datastory/domain/stats"
	"datastory/internal/config"
	"datastory/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "datastory",
		Short:         "Turn tabular files into statistics, charts and data stories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInspectCmd(),
		newStatsCmd(),
		newChartsCmd(),
		newAnalyzeCmd(),
		newStoryCmd(),
	)
	return rootCmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Parse a file and show its inferred columns",
		Long: `Parse a CSV, XLSX or JSON file and print one line per column with its
inferred type, distinct values, nulls and a few sample values.

Example: datastory inspect sales.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, _, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			writeColumnTable(cmd.OutOrStdout(), args[0], ds)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Compute per-column statistics",
		Long: `Compute descriptive statistics for every column: numeric summaries for
number columns and top values for text and boolean columns.

Example: datastory stats sales.xlsx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, _, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			st := stats.Compute(ds)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			writeStatsTables(cmd.OutOrStdout(), ds, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func newChartsCmd() *cobra.Command {
	var out string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "charts [file]",
		Short: "Generate chart configurations and render them to HTML",
		Long: `Derive bar, pie and line charts from a file and write them to a
standalone HTML page.

Example: datastory charts sales.csv --out charts.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, _, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			configs := chart.Generate(ds, stats.Compute(ds))
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), configs)
			}
			if len(configs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No charts apply to this dataset")
				return nil
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			if err := render.Page(f, filepath.Base(args[0]), configs); err != nil {
				return fmt.Errorf("failed to render charts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d charts to %s\n", len(configs), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "charts.html", "HTML output path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print chart configurations as JSON instead of rendering")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Ingest a file and run the insight stage",
		Long: `Upload a file into the configured store, compute statistics and charts,
ask the insight provider for findings and print the analysis record as JSON.

Providers are read from the environment (GEMINI_API_KEY, OPENAI_API_KEY,
PROVIDERS_FILE) and records are written to DATABASE_URL.

Example: datastory analyze sales.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runPipeline(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], false, "")
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall time limit for the pipeline")
	return cmd
}

func newStoryCmd() *cobra.Command {
	var timeout time.Duration
	var htmlOut string

	cmd := &cobra.Command{
		Use:   "story [file]",
		Short: "Run the full pipeline and print the generated draft",
		Long: `Upload a file, run the insight stage and the story stage, and print the
draft record as JSON.

Example: datastory story sales.csv --html story.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runPipeline(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], true, htmlOut)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall time limit for the pipeline")
	cmd.Flags().StringVar(&htmlOut, "html", "", "Also write the rendered draft HTML to this path")
	return cmd
}

// runPipeline drives the services against the configured store. Progress goes
// to status and the final record to out.
func runPipeline(ctx context.Context, out, status io.Writer, path string, withStory bool, htmlOut string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Shutdown(shutdownCtx)
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	src, err := c.Ingest.Ingest(ctx, app.Upload{
		Name:     filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(status, "Source %s: %d rows, %d columns\n", src.ID, src.Dataset.RowCount, src.Dataset.ColumnCount)

	analysis, err := c.Analysis.Run(ctx, src.ID)
	if err != nil {
		if analysis != nil {
			return fmt.Errorf("analysis %s failed: %w", analysis.ID, err)
		}
		return err
	}
	fmt.Fprintf(status, "Analysis %s: %d charts, %d key findings\n",
		analysis.ID, len(analysis.Result.Charts), len(analysis.Result.Insights.KeyFindings))
	if !withStory {
		return writeJSON(out, analysis)
	}

	draft, err := c.Stories.Run(ctx, analysis.ID)
	if err != nil {
		if draft != nil {
			return fmt.Errorf("draft %s failed: %w", draft.ID, err)
		}
		return err
	}
	fmt.Fprintf(status, "Draft %s written by %s (%s) after %d attempt(s)\n",
		draft.ID, draft.Provenance.Provider, draft.Provenance.Model, draft.Provenance.Attempts)

	if htmlOut != "" {
		if err := os.WriteFile(htmlOut, []byte(draft.ContentHTML), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", htmlOut, err)
		}
		fmt.Fprintf(status, "HTML written to %s\n", htmlOut)
	}
	return writeJSON(out, draft)
}

func loadDataset(path string) (*dataset.Dataset, ingest.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ingest.ParseUpload(mime.TypeByExtension(filepath.Ext(path)), filepath.Base(path), data)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
