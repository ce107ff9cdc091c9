// Package harvest implements the core of the Smithsonian open-access image
// crawl: hash-space partitioning, the per-shard pagination sweep, and the
// extraction of normalized image records from raw API rows.
package harvest

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// ZeroLicenseURL is the CC0 public-domain dedication. It is the only license
// this crawl accepts, and every emitted record carries it.
const ZeroLicenseURL = "https://creativecommons.org/publicdomain/zero/1.0/"

// BaseQuery restricts search results to CC0-licensed image media.
const BaseQuery = "online_media_type:Images AND media_usage:CC0"

// Query describes one search request. Immutable once built.
type Query struct {
	HashPrefix string
	UnitCode   string
	Offset     int
	PageLimit  int
	BaseQuery  string
}

// Params renders the query into the search endpoint's parameter set.
// Clause order matches the upstream API's documented examples: the media
// clauses first, then the hash prefix filter, then the unit code.
func (q Query) Params() url.Values {
	base := q.BaseQuery
	if base == "" {
		base = BaseQuery
	}
	clauses := []string{base}
	if q.HashPrefix != "" {
		clauses = append(clauses, "hash:"+q.HashPrefix+"*")
	}
	if q.UnitCode != "" {
		clauses = append(clauses, "unit_code:"+q.UnitCode)
	}

	params := url.Values{}
	params.Set("q", strings.Join(clauses, " AND "))
	params.Set("rows", strconv.Itoa(q.PageLimit))
	params.Set("start", strconv.Itoa(q.Offset))
	return params
}

// SearchPage is the search endpoint's response envelope. RowCount is the
// API's total for the current filter, authoritative only as of this call.
type SearchPage struct {
	Response struct {
		RowCount int   `json:"rowCount"`
		Rows     []Row `json:"rows"`
	} `json:"response"`
}

// UnitsPage is the terms endpoint's response envelope.
type UnitsPage struct {
	Response struct {
		Terms []string `json:"terms"`
	} `json:"response"`
}

// ImageRecord is one normalized image ready for the store. Creator and Tags
// use their zero values to mean absent; MetaData holds only keys whose
// values were actually present on the source row.
type ImageRecord struct {
	ForeignLandingURL string
	ImageURL          string
	ThumbnailURL      string
	LicenseURL        string
	ForeignID         string
	Title             string
	Creator           string
	MetaData          map[string]string
	Tags              []string
}

// Requester issues one logical API request: pacing and the retry budget are
// internal to the implementation, and an error is returned only after the
// budget is exhausted.
type Requester interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error
}

// ImageStore accumulates records, deduplicating by foreign identifier across
// the whole run. AddItem returns the running total; Commit flushes to
// durable storage and returns the final count.
type ImageStore interface {
	AddItem(ctx context.Context, rec ImageRecord) (int, error)
	Commit(ctx context.Context) (int, error)
}

// BlobSink writes a named artifact and returns its URI. Satisfied by the
// storage providers.
type BlobSink interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
