package layer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Kind is the storage type of a feature column.
type Kind string

// Column kinds.
const (
	KindText    Kind = "text"
	KindReal    Kind = "real"
	KindInteger Kind = "integer"
)

// Column is one attribute column of a FeatureTable.
type Column struct {
	Name string
	Kind Kind
}

// Feature is one geometry with values parallel to FeatureTable.Columns.
// Values hold string, float64, int or bool.
type Feature struct {
	Geometry geom.T
	Values   []any
}

// FeatureTable is a format-neutral vector layer ready to be written.
type FeatureTable struct {
	Name       string
	SRID       int
	Geographic bool
	Columns    []Column
	Features   []Feature
}

// Validate checks that every feature matches the column list.
func (t *FeatureTable) Validate() error {
	if t == nil {
		return eris.Wrap(spatial.ErrInvalidInput, "layer: nil feature table")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		key := strings.ToLower(c.Name)
		if c.Name == "" || seen[key] {
			return eris.Wrapf(spatial.ErrInvalidParameter, "layer: column name %q empty or repeated", c.Name)
		}
		seen[key] = true
	}
	for i, f := range t.Features {
		if f.Geometry == nil {
			return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "feature has no geometry")
		}
		if len(f.Values) != len(t.Columns) {
			return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput,
				"%d values for %d columns", len(f.Values), len(t.Columns))
		}
	}
	return nil
}

// builder accumulates entities while a reader walks its source.
type builder struct {
	layer *spatial.Layer
}

func newBuilder(name, idField, valueField string) *builder {
	return &builder{layer: &spatial.Layer{Name: name, IDField: idField, ValueField: valueField}}
}

func (b *builder) add(id string, g geom.T, raw any) error {
	i := len(b.layer.Entities)
	v, err := parseValue(raw)
	if err != nil {
		return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "field %s: %v", b.layer.ValueField, err)
	}
	c, err := centroid(g)
	if err != nil {
		return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "%v", err)
	}
	b.layer.Entities = append(b.layer.Entities, spatial.Entity{
		Index:    i,
		ID:       id,
		Geometry: g,
		Centroid: c,
		Value:    v,
	})
	return nil
}

// parseValue converts an attribute to float64. Empty and non-numeric values
// are rejected.
func parseValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case []byte:
		return parseValue(string(v))
	case string:
		s := strings.TrimSpace(strings.TrimRight(v, "\x00"))
		if s == "" {
			return 0, eris.New("empty value")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, eris.Errorf("non-numeric value %q", s)
		}
		return f, nil
	case nil:
		return 0, eris.New("missing value")
	}
	return 0, eris.Errorf("unsupported value type %T", raw)
}

// formatID renders an identifier attribute as text.
func formatID(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(strings.TrimRight(v, "\x00"))
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return fmt.Sprint(raw)
}
