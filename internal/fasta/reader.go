// Package fasta reads nucleotide FASTA, plain or gzipped, from files or stdin.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// Record is one FASTA entry. ID is the first word of the header line,
// Description the whole header without '>'.
type Record struct {
	ID          string
	Description string
	Seq         []byte
}

const maxLine = 64 * 1024 * 1024 // allow very long single-line sequences (64 MiB)

// Scan parses FASTA from r and calls emit once per record. Sequence lines are
// concatenated with surrounding whitespace removed; case is preserved.
// Returning an error from emit stops the scan with that error.
func Scan(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		rec    Record
		seq    = make([]byte, 0, 1<<16)
		inRec  bool
		lineNo int
	)
	flush := func() error {
		if !inRec {
			return nil
		}
		rec.Seq = append([]byte(nil), seq...)
		return emit(rec)
	}

	for sc.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == ';' {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			hdr := bytes.TrimSpace(line[1:])
			rec = Record{ID: headerID(hdr), Description: string(hdr)}
			seq = seq[:0]
			inRec = true
			continue
		}
		if !inRec {
			return fmt.Errorf("fasta: line %d: sequence data before first header", lineNo)
		}
		seq = append(seq, line...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// StreamPath opens path (see Open) and scans it.
func StreamPath(ctx context.Context, path string, emit func(Record) error) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Scan(ctx, rc, emit); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadFile loads every record of path into memory.
func ReadFile(path string) ([]Record, error) {
	var out []Record
	err := StreamPath(context.Background(), path, func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

func headerID(hdr []byte) string {
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}
