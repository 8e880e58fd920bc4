package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/layer"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// WriteTable writes t to path, choosing the format from the extension:
// .shp, .gpkg, .geojson or .json.
func WriteTable(ctx context.Context, path string, t *layer.FeatureTable) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return layer.WriteShapefile(path, t)
	case ".gpkg":
		return layer.WriteGeoPackage(ctx, path, t)
	case ".geojson", ".json":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := layer.WriteGeoJSON(f, t); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrapf(f.Close(), "export: close %s", path)
	}
	return eris.Wrapf(spatial.ErrInvalidParameter, "export: unsupported output %q", path)
}

// WriteReport writes r to path, choosing the format from the extension:
// .json, .yaml, .yml, .txt, .html, .xlsx or .csv (local records). The weights
// matrix is only written to workbooks, and only with includeWeights.
func WriteReport(path string, r *analysis.Report, includeWeights bool) error {
	var write func(io.Writer, *analysis.Report) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = WriteJSON
	case ".yaml", ".yml":
		write = WriteYAML
	case ".txt":
		write = WriteReportText
	case ".html", ".htm":
		write = WriteReportHTML
	case ".csv":
		write = WriteLocalCSV
	case ".xlsx":
		write = func(w io.Writer, r *analysis.Report) error { return WriteWorkbook(w, r, includeWeights) }
	default:
		return eris.Wrapf(spatial.ErrInvalidParameter, "export: unsupported report %q", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
