// internal/writers/registry.go
package writers

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"sort"
)

// sinks maps an output format to its constructor. Start looks formats up
// here instead of switching on them.
var sinks = map[string]func(bw *bufio.Writer) sink{
	FormatCSV:   func(bw *bufio.Writer) sink { return &csvSink{w: csv.NewWriter(bw), bw: bw} },
	FormatJSON:  func(bw *bufio.Writer) sink { return &jsonSink{w: bw} },
	FormatJSONL: func(bw *bufio.Writer) sink { return &jsonlSink{enc: json.NewEncoder(bw), bw: bw} },
}

// registered lists the formats with a sink, sorted.
func registered() []string {
	out := make([]string, 0, len(sinks))
	for f := range sinks {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
