package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/spatial-cli/internal/analysis"
)

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode JSON report")
	}
	return nil
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *analysis.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode YAML report")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: close YAML encoder")
	}
	return nil
}
