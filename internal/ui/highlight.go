package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// HighlightJSON colors a JSON document for a 256-color terminal. On error
// the input is returned unchanged.
func HighlightJSON(src string) string {
	var buf strings.Builder
	if err := quick.Highlight(&buf, src, "json", "terminal256", "monokai"); err != nil {
		return src
	}
	return buf.String()
}
