// Package bigsdb is a client for the BIGSdb REST API used by PubMLST and the
// Institut Pasteur.
package bigsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KnownAPIs are the public BIGSdb deployments searched for databases.
var KnownAPIs = []string{
	"https://bigsdb.pasteur.fr/api",
	"https://rest.pubmlst.org",
}

// DefaultTimeout bounds a whole request, including large downloads.
const DefaultTimeout = 10 * time.Minute

// ErrNoSuchDatabase is returned when no known API serves a database.
var ErrNoSuchDatabase = errors.New("bigsdb: no such database")

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bigsdb: %s: HTTP %d", e.URL, e.Code)
}

// ID is an identifier the API sends either as a string or as a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Client talks to one or more BIGSdb APIs. Database and scheme listings are
// cached per client.
type Client struct {
	HTTP      *http.Client
	KnownAPIs []string

	mu      sync.Mutex
	seqdefs map[string]string
	schemes map[string]map[string]int
}

// New returns a client. A nil httpClient gets DefaultTimeout; no apis means
// KnownAPIs.
func New(httpClient *http.Client, apis ...string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if len(apis) == 0 {
		apis = KnownAPIs
	}
	return &Client{HTTP: httpClient, KnownAPIs: append([]string(nil), apis...)}
}

type databaseGroup struct {
	Name      string `json:"name"`
	Databases []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"databases"`
}

// KnownSeqdefDBs maps every sequence-definition database to the API serving
// it. The result is cached unless force is set.
func (c *Client) KnownSeqdefDBs(ctx context.Context, force bool) (map[string]string, error) {
	c.mu.Lock()
	cached := c.seqdefs
	c.mu.Unlock()
	if cached != nil && !force {
		return cached, nil
	}
	found := make(map[string]string)
	for _, api := range c.KnownAPIs {
		var groups []databaseGroup
		if err := c.getJSON(ctx, api+"/db", &groups); err != nil {
			return nil, err
		}
		for _, g := range groups {
			for _, db := range g.Databases {
				if strings.HasSuffix(db.Name, "seqdef") {
					found[db.Name] = api
				}
			}
		}
	}
	c.mu.Lock()
	c.seqdefs = found
	c.mu.Unlock()
	return found, nil
}

// APIFor returns the API base URL serving db.
func (c *Client) APIFor(ctx context.Context, db string) (string, error) {
	dbs, err := c.KnownSeqdefDBs(ctx, false)
	if err != nil {
		return "", err
	}
	api, ok := dbs[db]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchDatabase, db)
	}
	return api, nil
}

// Schemes maps scheme descriptions of db to scheme ids.
func (c *Client) Schemes(ctx context.Context, db string) (map[string]int, error) {
	c.mu.Lock()
	cached, ok := c.schemes[db]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	api, err := c.APIFor(ctx, db)
	if err != nil {
		return nil, err
	}
	var body struct {
		Schemes []struct {
			Scheme      string `json:"scheme"`
			Description string `json:"description"`
		} `json:"schemes"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/db/%s/schemes", api, db), &body); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(body.Schemes))
	for _, s := range body.Schemes {
		id, err := strconv.Atoi(path.Base(s.Scheme))
		if err != nil {
			return nil, fmt.Errorf("bigsdb: scheme link %q: %w", s.Scheme, err)
		}
		out[s.Description] = id
	}
	c.mu.Lock()
	if c.schemes == nil {
		c.schemes = make(map[string]map[string]int)
	}
	c.schemes[db] = out
	c.mu.Unlock()
	return out, nil
}

// SchemeLoci lists the loci of a scheme, sorted by name.
func (c *Client) SchemeLoci(ctx context.Context, api, db string, scheme int) ([]string, error) {
	var body struct {
		Loci []string `json:"loci"`
	}
	if err := c.getJSON(ctx, schemeURL(api, db, scheme), &body); err != nil {
		return nil, err
	}
	loci := make([]string, 0, len(body.Loci))
	for _, l := range body.Loci {
		loci = append(loci, path.Base(l))
	}
	sort.Strings(loci)
	return loci, nil
}

// DownloadAlleles streams the FASTA catalog of locus into w.
func (c *Client) DownloadAlleles(ctx context.Context, api, db, locus string, w io.Writer) error {
	return c.download(ctx, fmt.Sprintf("%s/db/%s/loci/%s/alleles_fasta", api, db, locus), w)
}

// DownloadProfiles streams the tab-separated profile table of a scheme into w.
func (c *Client) DownloadProfiles(ctx context.Context, api, db string, scheme int, w io.Writer) error {
	return c.download(ctx, schemeURL(api, db, scheme)+"/profiles_csv", w)
}

func schemeURL(api, db string, scheme int) string {
	return fmt.Sprintf("%s/db/%s/schemes/%d", api, db, scheme)
}

func (c *Client) download(ctx context.Context, url string, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("bigsdb: %s: %w", url, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) postJSON(ctx context.Context, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, url, b)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bigsdb: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bigsdb: decode %s: %w", resp.Request.URL, err)
	}
	return nil
}
