package display

import (
	"encoding/json"
	"io"

	"github.com/dkralj/hepmeter/pkg/coordinator"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *jsonFormatter) FormatSnapshot(w io.Writer, snapshot *coordinator.Snapshot) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(snapshot)
}
