package commands

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/murmur3"

	hll "github.com/EIDA/statsboard-sub000"
)

// encoded returns an estimator holding the integers in [from, to), hex encoded.
func encoded(t *testing.T, log2m uint, from, to int) string {
	t.Helper()

	return encodedWidth(t, log2m, 5, from, to)
}

func encodedWidth(t *testing.T, log2m, regwidth uint, from, to int) string {
	t.Helper()

	h, err := hll.New(log2m, regwidth)
	require.NoError(t, err)

	buf := make([]byte, 8)
	for i := from; i < to; i++ {
		binary.LittleEndian.PutUint64(buf, uint64(i))
		h.AddRaw(murmur3.Sum64(buf))
	}
	return h.ToHexString()
}

// execute runs sub under a root carrying the persistent flags of the hllagg binary.
func execute(t *testing.T, sub *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "hllagg", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().String("log-level", DefaultLogLevel, "")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{sub.Name()}, args...))

	err := root.Execute()
	return out.String(), err
}

func statsCSV(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("month,country,hll\n")
	fmt.Fprintf(&b, "2023-01,GR,%s\n", encoded(t, 11, 0, 1000))
	fmt.Fprintf(&b, "2023-01,NL,%s\n", encoded(t, 11, 500, 2000))
	fmt.Fprintf(&b, "2023-02,GR,%s\n", encoded(t, 11, 10000, 10300))
	return b.String()
}

func decodeReport(t *testing.T, out string) Report {
	t.Helper()

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	return report
}

func TestAggregate_ByMonth(t *testing.T) {
	t.Parallel()

	out, err := execute(t, NewAggregateCommand(), statsCSV(t), "-o", "json", "-k", "month")
	require.NoError(t, err)

	report := decodeReport(t, out)
	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "2023-01", report.Buckets[0].Key)
	assert.Equal(t, 2, report.Buckets[0].Rows)
	assert.InDelta(t, 2000, float64(report.Buckets[0].Cardinality), 150)
	assert.Equal(t, "2023-02", report.Buckets[1].Key)
	assert.InDelta(t, 300, float64(report.Buckets[1].Cardinality), 20)
	require.NotNil(t, report.Total)
	assert.InDelta(t, 2300, float64(*report.Total), 150)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 0, report.Skipped)
}

func TestAggregate_NoKeyIsOneBucket(t *testing.T) {
	t.Parallel()

	out, err := execute(t, NewAggregateCommand(), statsCSV(t), "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "rows: 3")
	assert.Equal(t, 1, strings.Count(out, "- key:"))
}

func TestAggregate_ReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, os.WriteFile(path, []byte(statsCSV(t)), 0o600))

	out, err := execute(t, NewAggregateCommand(), "", "-o", "json", "-k", "month,country", path)
	require.NoError(t, err)

	report := decodeReport(t, out)
	require.Len(t, report.Buckets, 3)
	assert.Equal(t, "2023-01|GR", report.Buckets[0].Key)
	assert.Equal(t, "2023-01|NL", report.Buckets[1].Key)
	assert.Equal(t, "2023-02|GR", report.Buckets[2].Key)
}

func TestAggregate_JSONLinesParallel(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "{\"month\": \"2023-0%d\", \"hll\": %q}\n", i%2+1, encoded(t, 10, i*100, i*100+150))
	}

	serial, err := execute(t, NewAggregateCommand(), b.String(), "--input", "json", "-o", "json", "-k", "month")
	require.NoError(t, err)
	parallel, err := execute(t, NewAggregateCommand(), b.String(), "--input", "json", "-o", "json", "-k", "month", "-w", "3")
	require.NoError(t, err)

	assert.Equal(t, decodeReport(t, serial), decodeReport(t, parallel))
}

func TestAggregate_BadRow(t *testing.T) {
	t.Parallel()

	input := statsCSV(t) + "2023-02,FR,zz\n"

	_, err := execute(t, NewAggregateCommand(), input, "-k", "month")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 4")

	out, err := execute(t, NewAggregateCommand(), input, "-o", "json", "-k", "month", "--policy", "skip")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Buckets, 2)
}

func TestAggregate_TableOutput(t *testing.T) {
	t.Parallel()

	out, err := execute(t, NewAggregateCommand(), statsCSV(t), "-k", "month")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-01")
	assert.Contains(t, out, "2023-02")
	assert.Contains(t, out, "TOTAL")
}

func TestAggregate_MixedPrecisionTotal(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("year,hll\n")
	fmt.Fprintf(&b, "2020,%s\n", encoded(t, 10, 0, 5000))
	fmt.Fprintf(&b, "2021,%s\n", encoded(t, 12, 5000, 10000))
	input := b.String()

	out, err := execute(t, NewAggregateCommand(), input, "-o", "json", "-k", "year")
	require.NoError(t, err)

	report := decodeReport(t, out)
	require.Len(t, report.Buckets, 2)
	require.NotNil(t, report.Total)

	y2020, err := hll.FromHexString(encoded(t, 10, 0, 5000))
	require.NoError(t, err)
	y2021, err := hll.FromHexString(encoded(t, 12, 5000, 10000))
	require.NoError(t, err)
	folded, err := y2021.Fold(10)
	require.NoError(t, err)
	require.NoError(t, y2020.Union(folded))
	assert.Equal(t, y2020.Cardinality(), *report.Total)
}

func TestAggregate_TotalUnavailable(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("year,hll\n")
	fmt.Fprintf(&b, "2020,%s\n", encodedWidth(t, 10, 5, 0, 100))
	fmt.Fprintf(&b, "2021,%s\n", encodedWidth(t, 10, 4, 100, 200))
	input := b.String()

	out, err := execute(t, NewAggregateCommand(), input, "-o", "json", "-k", "year")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Len(t, report.Buckets, 2)
	assert.Nil(t, report.Total)

	out, err = execute(t, NewAggregateCommand(), input, "-k", "year")
	require.NoError(t, err)
	assert.Contains(t, out, "n/a")
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{1234567, "1,234,567"},
		{math.MaxInt64 + 1, "9,223,372,036,854,775,808"},
		{math.MaxUint64, "saturated"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCount(tt.n))
	}
}

func TestAggregate_InvalidFlag(t *testing.T) {
	t.Parallel()

	_, err := execute(t, NewAggregateCommand(), statsCSV(t), "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output must be")
}

func TestInspect_Args(t *testing.T) {
	t.Parallel()

	enc := encoded(t, 11, 0, 1000)
	h, err := hll.FromHexString(enc)
	require.NoError(t, err)

	out, err := execute(t, NewInspectCommand(), "", "-o", "json", enc)
	require.NoError(t, err)

	var summaries []Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, uint(11), s.Log2m)
	assert.Equal(t, uint(5), s.RegisterWidth)
	assert.Equal(t, uint64(2048), s.Registers)
	assert.Equal(t, 3+2048*5/8, s.Bytes)
	assert.Equal(t, h.Cardinality(), s.Cardinality)
	assert.Equal(t, h.CardinalityError(), s.CardinalityError)
	assert.Less(t, s.ZeroRegisters, s.Registers)
}

func TestInspect_Stdin(t *testing.T) {
	t.Parallel()

	stdin := encoded(t, 10, 0, 100) + "\n\n" + encoded(t, 12, 0, 100) + "\n"

	out, err := execute(t, NewInspectCommand(), stdin, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "log2m: 10")
	assert.Contains(t, out, "log2m: 12")

	out, err = execute(t, NewInspectCommand(), stdin)
	require.NoError(t, err)
	assert.Contains(t, out, "REGWIDTH")
}

func TestInspect_Saturated(t *testing.T) {
	t.Parallel()

	// log2m=4, regwidth=1, every register set: beyond what the estimator can represent.
	const saturated = "140400ffff"

	out, err := execute(t, NewInspectCommand(), "", saturated)
	require.NoError(t, err)
	assert.Contains(t, out, "saturated")
	assert.NotContains(t, out, "-1")

	out, err = execute(t, NewInspectCommand(), "", "-o", "json", saturated)
	require.NoError(t, err)
	var summaries []Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, uint64(math.MaxUint64), summaries[0].Cardinality)
}

func TestInspect_Invalid(t *testing.T) {
	t.Parallel()

	_, err := execute(t, NewInspectCommand(), "", encoded(t, 10, 0, 10), "1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimator 2")
	assert.ErrorIs(t, err, hll.ErrDecode)
}

func TestFold(t *testing.T) {
	t.Parallel()

	enc := encoded(t, 12, 0, 5000)
	h, err := hll.FromHexString(enc)
	require.NoError(t, err)
	expected, err := h.Fold(9)
	require.NoError(t, err)

	out, err := execute(t, NewFoldCommand(), "", "--log2m", "9", enc)
	require.NoError(t, err)
	assert.Equal(t, expected.ToHexString()+"\n", out)

	folded, err := hll.FromHexString(out)
	require.NoError(t, err)
	assert.Equal(t, uint(9), folded.Log2m())
}

func TestFold_OutOfRange(t *testing.T) {
	t.Parallel()

	_, err := execute(t, NewFoldCommand(), "", "--log2m", "13", encoded(t, 12, 0, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, hll.ErrFoldRange)

	_, err = execute(t, NewFoldCommand(), "")
	require.Error(t, err)
}
