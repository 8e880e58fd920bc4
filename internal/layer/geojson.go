package layer

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// ReadGeoJSON loads a FeatureCollection. Coordinates are longitude/latitude
// per RFC 7946, so the layer is marked geographic; callers holding projected
// GeoJSON clear the flag. An empty idField falls back to the feature id.
func ReadGeoJSON(r io.Reader, name, idField, valueField string) (*spatial.Layer, error) {
	var fc geojson.FeatureCollection
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "layer: decode GeoJSON")
	}
	return fromFeatureCollection(&fc, name, idField, valueField)
}

func fromFeatureCollection(fc *geojson.FeatureCollection, name, idField, valueField string) (*spatial.Layer, error) {
	b := newBuilder(name, idField, valueField)
	b.layer.Geographic = true
	b.layer.SRID = 4326
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "feature has no geometry")
		}
		id := f.ID
		if idField != "" {
			id = formatID(f.Properties[idField])
		}
		if err := b.add(id, f.Geometry, f.Properties[valueField]); err != nil {
			return nil, err
		}
	}
	return b.layer, nil
}

// DecodeFeatureCollection parses raw GeoJSON into a layer. It is the entry
// point for payloads that arrive already in memory.
func DecodeFeatureCollection(raw []byte, name, idField, valueField string, projected bool) (*spatial.Layer, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "layer: decode GeoJSON")
	}
	l, err := fromFeatureCollection(&fc, name, idField, valueField)
	if err != nil {
		return nil, err
	}
	if projected {
		l.Geographic = false
		l.SRID = 0
	}
	return l, nil
}

// WriteGeoJSON writes t as a FeatureCollection.
func WriteGeoJSON(w io.Writer, t *FeatureTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, len(t.Features))}
	for i, f := range t.Features {
		props := make(map[string]any, len(t.Columns))
		for k, c := range t.Columns {
			props[c.Name] = f.Values[k]
		}
		fc.Features[i] = &geojson.Feature{Geometry: f.Geometry, Properties: props}
	}
	raw, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "layer: encode GeoJSON")
	}
	if _, err := w.Write(raw); err != nil {
		return eris.Wrap(err, "layer: write GeoJSON")
	}
	return nil
}
