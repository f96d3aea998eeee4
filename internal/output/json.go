package output

import (
	"encoding/json"
	"io"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// JSONFormatter outputs the full result, one object per scan.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, result *types.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
