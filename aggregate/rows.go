package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Row is one encoded estimator and the bucket it belongs to.
type Row struct {
	Key    string
	HLL    string
	Record int // 1-based position in the source, for error messages
}

// RowReader yields rows until it returns ok == false.
type RowReader interface {
	Next() (row Row, ok bool, err error)
}

// KeySeparator joins the values of several key fields into one bucket key.
const KeySeparator = "|"

// Format names the fields of a source record that make up a row.
type Format struct {
	// KeyFields are joined with KeySeparator to form the bucket key, e.g. ["year", "country"].
	// An empty list puts every row into the bucket "".
	KeyFields []string
	// HLLField holds the hex-encoded estimator.
	HLLField string
}

// DefaultHLLField is the column name used by the usage statistics webservice.
const DefaultHLLField = "hll"

func (f Format) hllField() string {
	if f.HLLField == "" {
		return DefaultHLLField
	}
	return f.HLLField
}

// SliceReader yields rows from memory.
type SliceReader struct {
	rows []Row
	pos  int
}

func NewSliceReader(rows []Row) *SliceReader {
	return &SliceReader{rows: rows}
}

func (s *SliceReader) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	if r.Record == 0 {
		r.Record = s.pos
	}
	return r, true, nil
}

// CSVReader reads rows from CSV with a header line naming the columns.
type CSVReader struct {
	r       *csv.Reader
	format  Format
	keyIdx  []int
	hllIdx  int
	record  int
	started bool
}

func NewCSVReader(r io.Reader, format Format) *CSVReader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return &CSVReader{r: cr, format: format}
}

func (c *CSVReader) readHeader() error {
	header, err := c.r.Read()
	if err == io.EOF {
		return errors.New("csv: missing header line")
	}
	if err != nil {
		return errors.Wrap(err, "csv header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range c.format.KeyFields {
		i, ok := index[name]
		if !ok {
			return errors.Errorf("csv: key column %q not in header", name)
		}
		c.keyIdx = append(c.keyIdx, i)
	}
	i, ok := index[c.format.hllField()]
	if !ok {
		return errors.Errorf("csv: hll column %q not in header", c.format.hllField())
	}
	c.hllIdx = i
	return nil
}

func (c *CSVReader) Next() (Row, bool, error) {
	if !c.started {
		c.started = true
		if err := c.readHeader(); err != nil {
			return Row{}, false, err
		}
	}

	rec, err := c.r.Read()
	if err == io.EOF {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, errors.Wrap(err, "csv")
	}
	c.record++

	field := func(i int) (string, error) {
		if i >= len(rec) {
			return "", errors.Errorf("csv: record %d has %d fields, need column %d", c.record, len(rec), i+1)
		}
		return rec[i], nil
	}

	parts := make([]string, 0, len(c.keyIdx))
	for _, i := range c.keyIdx {
		v, err := field(i)
		if err != nil {
			return Row{}, false, err
		}
		parts = append(parts, v)
	}
	encoded, err := field(c.hllIdx)
	if err != nil {
		return Row{}, false, err
	}
	return Row{Key: strings.Join(parts, KeySeparator), HLL: encoded, Record: c.record}, true, nil
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReader reads rows from a stream of JSON objects, one per line.
type JSONReader struct {
	dec    *jsoniter.Decoder
	format Format
	record int
}

func NewJSONReader(r io.Reader, format Format) *JSONReader {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &JSONReader{dec: dec, format: format}
}

func (j *JSONReader) Next() (Row, bool, error) {
	if !j.dec.More() {
		return Row{}, false, nil
	}

	obj := map[string]interface{}{}
	if err := j.dec.Decode(&obj); err != nil {
		if err == io.EOF {
			return Row{}, false, nil
		}
		return Row{}, false, errors.Wrapf(err, "json: record %d", j.record+1)
	}
	j.record++

	parts := make([]string, 0, len(j.format.KeyFields))
	for _, name := range j.format.KeyFields {
		v, ok := obj[name]
		if !ok {
			return Row{}, false, errors.Errorf("json: record %d has no field %q", j.record, name)
		}
		parts = append(parts, fmt.Sprint(v))
	}
	encoded, ok := obj[j.format.hllField()].(string)
	if !ok {
		return Row{}, false, errors.Errorf("json: record %d has no string field %q", j.record, j.format.hllField())
	}
	return Row{Key: strings.Join(parts, KeySeparator), HLL: encoded, Record: j.record}, true, nil
}
