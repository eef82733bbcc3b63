// Package scheme loads MLST profile tables and resolves allele calls to a
// sequence type.
package scheme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mlst/internal/mlst"
)

const (
	colST            = "ST"
	colClonalComplex = "clonal_complex"
)

// metaColumns are non-locus columns seen in published profile tables.
var metaColumns = map[string]bool{
	colST: true, colClonalComplex: true,
	"species": true, "lineage": true, "mlst_clade": true, "CC": true,
}

// Entry is the classification of one allele combination.
type Entry struct {
	SequenceType  string
	ClonalComplex string
}

// Table maps variant tuples, ordered like Loci, to entries. It is read-only
// once built.
type Table struct {
	loci []string
	rows map[string]Entry
}

// Loci returns the canonical locus order of the table.
func (t *Table) Loci() []string { return append([]string(nil), t.loci...) }

// Len is the number of known combinations.
func (t *Table) Len() int { return len(t.rows) }

// Lookup finds the entry for variants given in Loci order.
func (t *Table) Lookup(variants []string) (Entry, bool) {
	e, ok := t.rows[key(variants)]
	return e, ok
}

func key(variants []string) string { return strings.Join(variants, "\x00") }

// ParseTable reads a tab-separated profile table. The header must have a
// column for each of loci and an ST column; clonal_complex is optional and
// other columns are ignored.
func ParseTable(r io.Reader, loci []string) (*Table, error) {
	if len(loci) == 0 {
		return nil, mlst.ErrNoLociConfigured
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	ln := 0
	var header []string
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		header = strings.Split(line, "\t")
		break
	}
	if header == nil {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("profile table: missing header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	stCol, ok := index[colST]
	if !ok {
		return nil, fmt.Errorf("profile table: no %s column", colST)
	}
	ccCol, hasCC := index[colClonalComplex]
	cols := make([]int, len(loci))
	for i, l := range loci {
		c, ok := index[l]
		if !ok {
			return nil, fmt.Errorf("profile table: no column for locus %q", l)
		}
		cols[i] = c
	}

	t := &Table{loci: append([]string(nil), loci...), rows: make(map[string]Entry)}
	variants := make([]string, len(loci))
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if stCol >= len(f) {
			return nil, fmt.Errorf("profile table:%d missing ST", ln)
		}
		for i, c := range cols {
			if c >= len(f) || strings.TrimSpace(f[c]) == "" {
				return nil, fmt.Errorf("profile table:%d missing allele for locus %q", ln, loci[i])
			}
			variants[i] = strings.TrimSpace(f[c])
		}
		e := Entry{SequenceType: strings.TrimSpace(f[stCol]), ClonalComplex: mlst.Unknown}
		if hasCC && ccCol < len(f) {
			if cc := strings.TrimSpace(f[ccCol]); cc != "" {
				e.ClonalComplex = cc
			}
		}
		t.rows[key(variants)] = e
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a profile table from path.
func LoadTable(path string, loci []string) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	t, err := ParseTable(fh, loci)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// HeaderLoci returns the locus columns of a table header, sorted.
func HeaderLoci(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			var loci []string
			for _, h := range strings.Split(line, "\t") {
				h = strings.TrimSpace(h)
				if h != "" && !metaColumns[h] {
					loci = append(loci, h)
				}
			}
			if len(loci) == 0 {
				return nil, mlst.ErrNoLociConfigured
			}
			sort.Strings(loci)
			return loci, nil
		}
		if err == io.EOF {
			return nil, fmt.Errorf("profile table: missing header")
		}
		if err != nil {
			return nil, err
		}
	}
}

// TableLoci is HeaderLoci on a file.
func TableLoci(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return HeaderLoci(fh)
}
