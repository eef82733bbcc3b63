package writers

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"mlst/internal/mlst"
	"mlst/pkg/api"
)

// Output formats accepted by Start.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Formats lists the accepted formats.
var Formats = []string{FormatCSV, FormatJSON, FormatJSONL}

// Result summarises a finished writer.
type Result struct {
	Written int
	Failed  []string
	Err     error
}

type sink interface {
	write(mlst.NamedProfile) error
	flush() error
}

// Start launches a writer for format. Send profiles on the returned channel,
// close it, then read the single Result. Failed profiles are never written;
// their names are collected in Result.Failed. After a write error the writer
// keeps draining its input so producers never block.
func Start(out io.Writer, format string, bufSize int) (chan<- mlst.NamedProfile, <-chan Result, error) {
	newSink, ok := sinks[format]
	if !ok {
		return nil, nil, fmt.Errorf("writers: unknown format %q (want one of %v)", format, Formats)
	}
	bw := bufio.NewWriterSize(out, 64<<10)
	s := newSink(bw)
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan mlst.NamedProfile, bufSize)
	done := make(chan Result, 1)
	go func() {
		var res Result
		for p := range in {
			if p.Failed() {
				res.Failed = append(res.Failed, p.Name)
				continue
			}
			if res.Err != nil {
				continue
			}
			if err := s.write(p); err != nil {
				res.Err = err
				continue
			}
			res.Written++
		}
		if res.Err == nil {
			res.Err = s.flush()
		}
		res.Err = dropBrokenPipe(res.Err)
		done <- res
	}()
	return in, done, nil
}

type csvSink struct {
	w    *csv.Writer
	bw   *bufio.Writer
	loci []string
}

func (s *csvSink) write(p mlst.NamedProfile) error {
	if s.loci == nil {
		s.loci = p.Profile.Loci()
		header := append([]string{"id", "st", "clonal-complex"}, s.loci...)
		if err := s.w.Write(header); err != nil {
			return err
		}
	}
	row := []string{p.Name, p.Profile.SequenceType, p.Profile.ClonalComplex}
	for _, l := range s.loci {
		a, ok := p.Profile.Allele(l)
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, AlleleText(a))
	}
	return s.w.Write(row)
}

func (s *csvSink) flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.bw.Flush()
}

type jsonlSink struct {
	enc *json.Encoder
	bw  *bufio.Writer
}

func (s *jsonlSink) write(p mlst.NamedProfile) error { return s.enc.Encode(ToAPIProfile(p)) }
func (s *jsonlSink) flush() error                    { return s.bw.Flush() }

// jsonSink buffers the profiles and writes one indented array on flush.
type jsonSink struct {
	w    *bufio.Writer
	rows []api.ProfileV1
}

func (s *jsonSink) write(p mlst.NamedProfile) error {
	s.rows = append(s.rows, ToAPIProfile(p))
	return nil
}

func (s *jsonSink) flush() error {
	rows := s.rows
	if rows == nil {
		rows = []api.ProfileV1{}
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return s.w.Flush()
}
