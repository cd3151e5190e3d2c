package display

import (
	"os"

	"golang.org/x/term"
)

// DetectFormat picks an output format for a file: the table layout on
// an interactive terminal, simple text when output is piped.
func DetectFormat(f *os.File) Format {
	if term.IsTerminal(int(f.Fd())) {
		return FormatTable
	}
	return FormatSimple
}
