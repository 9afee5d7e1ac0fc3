package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/EIDA/statsboard-sub000/aggregate"
)

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate [file]",
		Short: "Group rows by key and estimate distinct counts",
		Long: `Read rows holding a hex-encoded estimator, union the estimators of rows that
share a key and print the estimated distinct count per key and overall.

The key is built from one or more columns (CSV) or fields (JSON lines), joined
with "|". Without --key every row goes into a single bucket. Reads stdin when no
file is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAggregate,
	}

	flags := cmd.Flags()
	flags.String("input", DefaultInput, "input format: csv or json (JSON lines)")
	flags.StringP("output", "o", DefaultOutput, "output format: table, json or yaml")
	flags.StringSliceP("key", "k", nil, "columns forming the bucket key, e.g. -k month,country")
	flags.String("hll-field", aggregate.DefaultHLLField, "column holding the encoded estimator")
	flags.String("policy", DefaultPolicy, "on a bad row: abort the run, or skip the row and log it")
	flags.IntP("workers", "w", DefaultWorkers, "number of goroutines decoding and unioning rows")

	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	in := io.Reader(cmd.InOrStdin())
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	policy, _ := aggregate.ParsePolicy(cfg.Policy)
	format := aggregate.Format{KeyFields: cfg.KeyFields, HLLField: cfg.HLLField}

	var rr aggregate.RowReader
	if cfg.Input == "json" {
		rr = aggregate.NewJSONReader(in, format)
	} else {
		rr = aggregate.NewCSVReader(in, format)
	}

	agg, err := aggregateRows(cmd.Context(), rr, cfg.Workers,
		aggregate.WithPolicy(policy), aggregate.WithLogger(logger))
	if err != nil {
		return err
	}

	report := Report{
		Buckets: agg.Results(),
		Rows:    agg.Stats().Rows,
		Skipped: agg.Stats().Skipped,
	}
	total, err := agg.Total()
	if err != nil {
		level.Warn(logger).Log("msg", "total unavailable", "err", err)
	} else if total != nil {
		card := total.Cardinality()
		report.Total = &card
	}
	level.Info(logger).Log("msg", "aggregated", "rows", report.Rows, "skipped", report.Skipped, "buckets", len(report.Buckets))

	return writeReport(cmd.OutOrStdout(), cfg.Output, report)
}

// aggregateRows streams rows into one Aggregator, or collects them first and fans out when more
// than one worker is requested.
func aggregateRows(ctx context.Context, rr aggregate.RowReader, workers int, opts ...aggregate.Option) (*aggregate.Aggregator, error) {
	if workers <= 1 {
		agg := aggregate.New(opts...)
		if err := agg.AddRows(rr); err != nil {
			return nil, err
		}
		return agg, nil
	}

	var rows []aggregate.Row
	for {
		r, ok, err := rr.Next()
		if err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
		}
		if !ok {
			break
		}
		rows = append(rows, r)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return aggregate.Parallel(ctx, rows, workers, opts...)
}
