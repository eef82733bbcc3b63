package bigsdb

import (
	"context"
	"io"
)

// SchemeSource exposes one scheme of one database as a cache source.
type SchemeSource struct {
	Client   *Client
	API      string
	Database string
	Scheme   int
}

func (s SchemeSource) Loci(ctx context.Context) ([]string, error) {
	return s.Client.SchemeLoci(ctx, s.API, s.Database, s.Scheme)
}

func (s SchemeSource) Alleles(ctx context.Context, locus string, w io.Writer) error {
	return s.Client.DownloadAlleles(ctx, s.API, s.Database, locus, w)
}

func (s SchemeSource) Profiles(ctx context.Context, w io.Writer) error {
	return s.Client.DownloadProfiles(ctx, s.API, s.Database, s.Scheme, w)
}
