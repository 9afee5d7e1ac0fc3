package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	hll "github.com/EIDA/statsboard-sub000"
)

// Summary describes one decoded estimator.
type Summary struct {
	Log2m            uint    `json:"log2m" yaml:"log2m"`
	RegisterWidth    uint    `json:"regwidth" yaml:"regwidth"`
	Registers        uint64  `json:"registers" yaml:"registers"`
	ZeroRegisters    uint64  `json:"zero_registers" yaml:"zero_registers"`
	Bytes            int     `json:"bytes" yaml:"bytes"`
	Cardinality      uint64  `json:"cardinality" yaml:"cardinality"`
	CardinalityError float64 `json:"error" yaml:"error"`
}

func summarize(h *hll.Hll) Summary {
	s := Summary{
		Log2m:            h.Log2m(),
		RegisterWidth:    h.RegisterWidth(),
		Registers:        h.NumRegisters(),
		Bytes:            h.SizeInBytes(),
		Cardinality:      h.Cardinality(),
		CardinalityError: h.CardinalityError(),
	}
	for _, v := range h.Registers() {
		if v == 0 {
			s.ZeroRegisters++
		}
	}
	return s
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [hex...]",
		Short: "Show the parameters and estimate of encoded estimators",
		Long: `Decode each hex-encoded estimator and print its parameters and estimated
distinct count. With no arguments, estimators are read from stdin, one per line.`,
		RunE: runInspect,
	}
	cmd.Flags().StringP("output", "o", DefaultOutput, "output format: table, json or yaml")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs, err = readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	summaries := make([]Summary, 0, len(inputs))
	for i, in := range inputs {
		h, err := hll.FromHexString(in)
		if err != nil {
			return fmt.Errorf("estimator %d: %w", i+1, err)
		}
		summaries = append(summaries, summarize(h))
	}

	w := cmd.OutOrStdout()
	switch cfg.Output {
	case "json":
		return writeJSON(w, summaries)
	case "yaml":
		return writeYAML(w, summaries)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "log2m", "regwidth", "Registers", "Zero", "Bytes", "Distinct", "Std. error"})
	for i, s := range summaries {
		tw.AppendRow(table.Row{
			i + 1, s.Log2m, s.RegisterWidth,
			humanize.Comma(int64(s.Registers)), humanize.Comma(int64(s.ZeroRegisters)),
			humanize.Bytes(uint64(s.Bytes)),
			formatCount(s.Cardinality),
			fmt.Sprintf("%.2f%%", s.CardinalityError*percentageValue),
		})
	}
	tw.Render()
	return nil
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	// A log2m=24 estimator is 20MB of hex.
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
