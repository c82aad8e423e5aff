package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(name string) bool {
	return hasExt(name, ".json")
}

// envelopeKeys are tried in order when the payload is an object wrapping the
// record array, as many APIs return.
var envelopeKeys = []string{"data", "records", "items", "results", "rows"}

// Load reads an array of flat JSON objects. Columns come out in the order
// their keys first appear in the file.
func (jsonLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	arr, err := recordArray(data)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(arr, &records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if len(records) == 0 {
		return &dataset.Dataset{Name: name}, nil
	}
	df := dataframe.ReadJSON(bytes.NewReader(arr),
		dataframe.NaNValues([]string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<nil>"}),
	)
	ds, err := dataset.FromDataFrame(name, df)
	if err != nil {
		return nil, err
	}
	order, err := keyOrder(records)
	if err != nil {
		return nil, err
	}
	reorder(ds, order)
	for i, c := range ds.Columns {
		if c.Kind == dataset.Categorical && allDates(c.Strings) {
			ds.Columns[i] = dataset.NewDatetime(c.Name, c.Strings)
		}
	}
	if opt.MaxRows > 0 && ds.Rows() > opt.MaxRows {
		ds = truncate(ds, opt.MaxRows)
	}
	return ds, nil
}

// keyOrder lists object keys in the order they first appear across records.
// gota sorts keys, so the order is recovered from the token stream.
func keyOrder(records []json.RawMessage) ([]string, error) {
	var order []string
	seen := map[string]struct{}{}
	for _, rec := range records {
		dec := json.NewDecoder(bytes.NewReader(rec))
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			continue
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
			key, _ := tok.(string)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				order = append(order, key)
			}
		}
	}
	return order, nil
}

// reorder sorts ds.Columns to follow order. Unlisted columns keep their
// relative position at the end.
func reorder(ds *dataset.Dataset, order []string) {
	pos := make(map[string]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	rank := func(name string) int {
		if p, ok := pos[name]; ok {
			return p
		}
		return len(order)
	}
	sort.SliceStable(ds.Columns, func(i, j int) bool {
		return rank(ds.Columns[i].Name) < rank(ds.Columns[j].Name)
	})
}

func allDates(vals []string) bool {
	seen := false
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := parseTimeMaybe(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func recordArray(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty json document")
	}
	switch data[0] {
	case '[':
		return data, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		for _, k := range envelopeKeys {
			if v, ok := obj[k]; ok {
				if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
					return v, nil
				}
			}
		}
		return nil, fmt.Errorf("json object has no record array under %v", envelopeKeys)
	}
	return nil, errors.New("json must be an array of records")
}

func truncate(ds *dataset.Dataset, n int) *dataset.Dataset {
	out := &dataset.Dataset{Name: ds.Name}
	for _, c := range ds.Columns {
		cp := &dataset.Column{Name: c.Name, Kind: c.Kind}
		if c.Floats != nil {
			cp.Floats = append([]float64(nil), c.Floats[:n]...)
		}
		if c.Strings != nil {
			cp.Strings = append([]string(nil), c.Strings[:n]...)
		}
		out.Columns = append(out.Columns, cp)
	}
	return out
}
