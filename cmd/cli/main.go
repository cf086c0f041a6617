package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gocompare/adapters/table"
	"gocompare/app"
	"gocompare/domain/core"
	"gocompare/internal/config"
	"gocompare/internal/container"
	"gocompare/internal/report"
	"gocompare/ports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "gocompare",
		Short:         "Pick and run the right group comparison test for every metric column",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline decisions at debug level")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newInspectCmd(opts),
		newRunsCmd(opts),
	)
	return rootCmd
}

// loadContainer reads .env and the environment. The CLI logs warnings only
// unless LOG_LEVEL or --verbose says otherwise.
func loadContainer(ctx context.Context, opts *rootOptions) (*container.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logging.Level = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Logging.Format = "console"
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	return container.New(ctx, cfg)
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		groupColumn string
		metrics     []string
		replicate   int
		allowList   []string
		format      string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a delimited text file or xlsx workbook",
		Long: `Analyze every metric column of a table, grouped by one column.

Reads standard input when no file (or "-") is given. Without --metric, every
column except the grouping column is analysed; an empty metric list never
yields an empty report.

Example: gocompare analyze data.csv --group condition --metric value --metric weight`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			c, err := loadContainer(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.Close()

			req := app.AnalysisRequest{
				GroupColumn: groupColumn,
				Metrics:     metrics,
				Replicate:   replicate,
				AllowList:   allowList,
			}

			res, err := runAnalysis(cmd.Context(), c.Analysis, argOrStdin(args), cmd.InOrStdin(), req)
			if err != nil {
				return err
			}

			body := []byte(res.Result)
			if f != report.FormatJSON {
				if body, err = report.Encode(res.Report, f); err != nil {
					return err
				}
			}
			if res.Persisted {
				fmt.Fprintf(cmd.ErrOrStderr(), "run %s saved\n", res.RunID)
			}
			return writeOutput(cmd.OutOrStdout(), output, body)
		},
	}

	cmd.Flags().StringVarP(&groupColumn, "group", "g", "", "Grouping column (required)")
	cmd.Flags().StringArrayVarP(&metrics, "metric", "m", nil, "Metric column to analyze (repeatable; default: every non-grouping column)")
	cmd.Flags().IntVarP(&replicate, "replicate", "r", 1, "Repeat every row this many times; inflates sample size")
	cmd.Flags().StringArrayVar(&allowList, "allow", nil, "Only keep rows whose group value is listed (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runAnalysis(ctx context.Context, svc *app.AnalysisService, path string, stdin io.Reader, req app.AnalysisRequest) (*app.RunResult, error) {
	if table.IsWorkbook(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		tbl, err := svc.Loader().ReadWorkbook(f)
		if err != nil {
			return nil, err
		}
		return svc.RunTable(ctx, tbl, req)
	}

	raw, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	req.Data = raw
	return svc.Run(ctx, req)
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var groupColumn string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show the delimiter, columns and group values of a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.Close()

			raw, err := readInput(argOrStdin(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			ins, err := c.Analysis.Inspect(raw, groupColumn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "delimiter: %q\n", ins.Delimiter)
			fmt.Fprintf(out, "rows:      %d\n", ins.RowCount)
			fmt.Fprintf(out, "columns:   %s\n", strings.Join(ins.Columns, ", "))
			if ins.GroupColumn != "" {
				fmt.Fprintf(out, "groups (%s): %s\n", ins.GroupColumn, strings.Join(ins.GroupValues, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&groupColumn, "group", "g", "", "List the distinct values of this column")
	return cmd
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse stored analysis runs (requires DATABASE_URL)",
	}

	var (
		limit, offset int
		hash          string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.Close()
			if !c.Analysis.HistoryEnabled() {
				return fmt.Errorf("run history is disabled: set DATABASE_URL")
			}

			var runs []*ports.AnalysisRun
			if hash != "" {
				runs, err = c.Analysis.FindRuns(cmd.Context(), core.Hash(strings.ToLower(hash)))
			} else {
				runs, err = c.Analysis.ListRuns(cmd.Context(), limit, offset)
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tGROUP\tMETRICS\tROWS\tHASH")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"),
					run.GroupColumn, strings.Join(run.Metrics, ","), run.RowCount, run.InputHash)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	listCmd.Flags().StringVar(&hash, "hash", "", "Only runs of identical input (the HASH column)")

	getCmd := &cobra.Command{
		Use:   "get [run-id]",
		Short: "Print the stored result of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.Close()

			run, err := c.Analysis.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.Result)
			return nil
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(raw), nil
}

func writeOutput(stdout io.Writer, path string, body []byte) error {
	if path == "" {
		if _, err := stdout.Write(body); err != nil {
			return err
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			_, err := io.WriteString(stdout, "\n")
			return err
		}
		return nil
	}
	return os.WriteFile(path, body, 0o644)
}
