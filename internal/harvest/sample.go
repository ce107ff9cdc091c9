package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// sampleRowCap marks units whose match count is too large to be a useful
// sample at the probed prefix.
const sampleRowCap = 10000

// samplePrefixes are probed per unit, narrowest filter first ("" means no
// hash clause at all).
var samplePrefixes = []string{"", "a", "aa", "aaa", "aaaa", "aaaaa"}

// SamplerConfig controls the per-unit sampling sweep.
type SamplerConfig struct {
	SearchEndpoint string
	UnitsEndpoint  string
	PageLimit      int
	// DirPrefix is the blob path under which sample pages are written.
	DirPrefix string
}

// Sampler captures one representative search page per unit. The units have
// somewhat different payload shapes, so a page apiece is enough to inspect
// how each one fills the row attributes.
type Sampler struct {
	cfg       SamplerConfig
	requester Requester
	blob      BlobSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewSampler builds a Sampler writing through the given blob sink.
func NewSampler(cfg SamplerConfig, requester Requester, blob BlobSink, logger *zap.Logger) *Sampler {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 1000
	}
	return &Sampler{
		cfg:       cfg,
		requester: requester,
		blob:      blob,
		logger:    logger,
		now:       time.Now,
	}
}

// Run fetches the unit code list and gathers one sample page per unit under
// a timestamped directory. Individual unit failures are non-fatal; an error
// is returned only when the unit list itself cannot be fetched.
func (s *Sampler) Run(ctx context.Context) error {
	params := url.Values{}
	params.Set("rows", strconv.Itoa(s.cfg.PageLimit))
	var units UnitsPage
	if err := s.requester.GetJSON(ctx, s.cfg.UnitsEndpoint, params, &units); err != nil {
		return fmt.Errorf("fetch unit codes: %w", err)
	}
	s.logger.Info("found unit codes", zap.Strings("units", units.Response.Terms))

	dir := fmt.Sprintf("si_samples_%s", s.now().UTC().Format("20060102150405"))
	if s.cfg.DirPrefix != "" {
		dir = path.Join(s.cfg.DirPrefix, dir)
	}
	for _, unit := range units.Response.Terms {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sampling interrupted: %w", err)
		}
		s.gatherUnit(ctx, unit, dir)
	}
	return nil
}

// gatherUnit probes progressively longer hash prefixes until one yields a
// page small enough to keep. No rows at a prefix means no rows at any
// longer one, so the probe stops there.
func (s *Sampler) gatherUnit(ctx context.Context, unit string, dir string) {
	s.logger.Info("gathering sample", zap.String("unit", unit))
	for _, prefix := range samplePrefixes {
		query := Query{
			HashPrefix: prefix,
			UnitCode:   unit,
			Offset:     0,
			PageLimit:  s.cfg.PageLimit,
		}
		var raw json.RawMessage
		if err := s.requester.GetJSON(ctx, s.cfg.SearchEndpoint, query.Params(), &raw); err != nil {
			s.logger.Warn("sample fetch failed",
				zap.String("unit", unit),
				zap.String("hash_prefix", prefix),
				zap.Error(err),
			)
			return
		}

		var page SearchPage
		_ = json.Unmarshal(raw, &page)
		rowCount := page.Response.RowCount
		switch {
		case rowCount == 0:
			s.logger.Info("no rows for unit",
				zap.String("unit", unit),
				zap.String("hash_prefix", prefix),
			)
			return
		case rowCount > sampleRowCap:
			s.logger.Info("too many rows, narrowing prefix",
				zap.String("unit", unit),
				zap.String("hash_prefix", prefix),
				zap.Int("row_count", rowCount),
			)
		default:
			s.saveSample(ctx, unit, dir, raw, rowCount)
			return
		}
	}
}

func (s *Sampler) saveSample(ctx context.Context, unit string, dir string, raw json.RawMessage, rowCount int) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(raw)
	}

	objectPath := path.Join(dir, unit+".json")
	uri, err := s.blob.PutObject(ctx, objectPath, "application/json", &pretty)
	if err != nil {
		s.logger.Error("failed to save sample",
			zap.String("unit", unit),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("saved sample",
		zap.String("unit", unit),
		zap.String("uri", uri),
		zap.Int("row_count", rowCount),
	)
}
