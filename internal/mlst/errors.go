package mlst

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLociConfigured means a scheme or cache names no loci at all.
	ErrNoLociConfigured = errors.New("mlst: no loci configured")
	// ErrEmptyLocusCache means a locus has no reference variants cached.
	ErrEmptyLocusCache = errors.New("mlst: locus has no cached variants")
	// ErrMissingLocusAllele is matched by every *MissingLocusAlleleError.
	ErrMissingLocusAllele = errors.New("mlst: missing allele for locus")
	// ErrNoMatches means a typing service found neither exact nor partial matches.
	ErrNoMatches = errors.New("mlst: no allele matches")
)

// MissingLocusAlleleError names the locus the resolver could not fill.
type MissingLocusAlleleError struct {
	Locus string
}

func (e *MissingLocusAlleleError) Error() string {
	return fmt.Sprintf("mlst: missing allele for locus %q", e.Locus)
}

func (e *MissingLocusAlleleError) Is(target error) bool { return target == ErrMissingLocusAllele }
