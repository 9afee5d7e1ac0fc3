package commands

import (
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/EIDA/statsboard-sub000/aggregate"
)

const percentageValue = 100

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is what the aggregate command prints. Total is nil when the buckets cannot be combined.
type Report struct {
	Buckets []aggregate.Result `json:"buckets" yaml:"buckets"`
	Total   *uint64            `json:"total" yaml:"total"`
	Rows    int                `json:"rows" yaml:"rows"`
	Skipped int                `json:"skipped" yaml:"skipped"`
}

func writeReport(w io.Writer, format string, report Report) error {
	switch format {
	case "json":
		return writeJSON(w, report)
	case "yaml":
		return writeYAML(w, report)
	default:
		return writeTable(w, report)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", buf)
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeTable(w io.Writer, report Report) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Key", "Rows", "Distinct", "Std. error"})
	for _, b := range report.Buckets {
		tw.AppendRow(table.Row{
			b.Key,
			humanize.Comma(int64(b.Rows)),
			formatCount(b.Cardinality),
			fmt.Sprintf("%.2f%%", b.CardinalityError*percentageValue),
		})
	}
	total := "n/a"
	if report.Total != nil {
		total = formatCount(*report.Total)
	}
	tw.AppendFooter(table.Row{"Total", humanize.Comma(int64(report.Rows)), total, ""})
	tw.Render()

	if report.Skipped > 0 {
		_, err := fmt.Fprintf(w, "%s rows skipped\n", humanize.Comma(int64(report.Skipped)))
		return err
	}
	return nil
}

// formatCount renders a distinct count with thousands separators. math.MaxUint64 is what a
// saturated estimator reports.
func formatCount(n uint64) string {
	if n == math.MaxUint64 {
		return "saturated"
	}
	return humanize.BigComma(new(big.Int).SetUint64(n))
}
