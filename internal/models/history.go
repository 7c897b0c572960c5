package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UploadHistory is a stored snapshot of one successful upload's parsed
// tabular content plus metadata. The original file bytes are discarded
// after parsing; only the decoded columns and rows survive.
//
// Field names follow the JSON contract the web client already depends on.
type UploadHistory struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user"`
	FileName      string    `json:"fileName"`
	UploadedAt    time.Time `json:"uploadDate"`
	Columns       []string  `json:"columns"`
	Rows          []Row     `json:"chartData"`
	SelectedXAxis string    `json:"selectedXAxis,omitempty"`
	SelectedYAxis string    `json:"selectedYAxis,omitempty"`
	ChartType     string    `json:"chartType,omitempty"`
}

// ChartConfig is the chart selection a client attaches to a history
// record after the fact. Never set at ingest time.
type ChartConfig struct {
	SelectedXAxis string `json:"selectedXAxis"`
	SelectedYAxis string `json:"selectedYAxis"`
	ChartType     string `json:"chartType"`
}

// Row is an ordered mapping from column label to cell value. Cell values
// keep the string representation the sheet displayed; any numeric
// coercion happens at consumption time (charting), not here.
//
// JSON marshalling preserves key order, which plain Go maps would not.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow returns an empty row.
func NewRow() Row {
	return Row{values: make(map[string]string)}
}

// Set stores value under key. A repeated key overwrites the value but
// keeps the key's original position.
func (r *Row) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column labels in insertion order.
func (r *Row) Keys() []string {
	return r.keys
}

// Len returns the number of cells in the row.
func (r *Row) Len() int {
	return len(r.keys)
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}

	*r = NewRow()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row: expected string key, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		r.Set(key, scalarString(valTok))
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// scalarString renders a decoded JSON scalar as the cell string the row
// stores. Client-supplied rows may carry numbers or booleans.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
