// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

// outer are the packages that wire the domain to users.
var outer = []string{
	"mlst/internal/app", "mlst/internal/server", "mlst/internal/store",
	"mlst/internal/config", "mlst/cmd/",
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	bans := map[string][]string{
		// The alignment core never logs and knows nothing of loci or schemes.
		"mlst/internal/align": append([]string{
			"mlst/internal/engine", "mlst/internal/profiler", "mlst/internal/mlst",
			"github.com/rs/zerolog",
		}, outer...),
		"mlst/internal/engine": append([]string{
			"mlst/internal/profiler", "mlst/internal/writers", "mlst/internal/cache",
			"mlst/internal/scheme", "mlst/internal/bigsdb", "github.com/rs/zerolog",
		}, outer...),
		"mlst/internal/mlst": append([]string{
			"mlst/internal/engine", "mlst/internal/profiler", "mlst/internal/writers",
		}, outer...),
		"mlst/internal/scheme": append([]string{
			"mlst/internal/engine", "mlst/internal/profiler", "mlst/internal/bigsdb",
		}, outer...),
		"mlst/internal/cache": append([]string{
			"mlst/internal/engine", "mlst/internal/profiler", "mlst/internal/bigsdb",
		}, outer...),
		"mlst/internal/profiler": outer,
		"mlst/internal/writers":  append([]string{"mlst/internal/profiler"}, outer...),
		"mlst/pkg/api":           {"mlst/"},
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, "mlst/") {
			continue
		}
		imp := p.ImportPath
		for prefix, forbidden := range bans {
			if imp != prefix && !strings.HasPrefix(imp, prefix+"/") {
				continue
			}
			for _, dep := range p.Imports {
				for _, ban := range forbidden {
					if dep == ban || strings.HasPrefix(dep, strings.TrimSuffix(ban, "/")+"/") {
						violations = append(violations, imp+" → "+dep)
					}
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
