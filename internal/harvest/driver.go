package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openglam/smithsonian-harvester/internal/metrics"
)

// DriverConfig controls the sharded crawl sweep.
type DriverConfig struct {
	SearchEndpoint string
	PrefixLength   int
	PageLimit      int
	// MaxConsecutiveFailures bounds the skip-on-failure path. Failed pages
	// advance the offset without refreshing the shard's row count, so
	// without a cap a persistently failing API would sweep a shard forever.
	MaxConsecutiveFailures int
}

// Driver runs the pagination sweep, one shard at a time, one page at a
// time. Pacing and retries belong to the Requester; the driver never backs
// off on its own.
type Driver struct {
	cfg       DriverConfig
	requester Requester
	extractor *Extractor
	store     ImageStore
	logger    *zap.Logger
}

// NewDriver wires the sweep to its collaborators.
func NewDriver(
	cfg DriverConfig,
	requester Requester,
	extractor *Extractor,
	store ImageStore,
	logger *zap.Logger,
) *Driver {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 1000
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	return &Driver{
		cfg:       cfg,
		requester: requester,
		extractor: extractor,
		store:     store,
		logger:    logger,
	}
}

// Run sweeps every shard of the configured prefix length, then commits the
// store. Returns the committed image total.
func (d *Driver) Run(ctx context.Context) (int, error) {
	for prefix := range Prefixes(d.cfg.PrefixLength) {
		totalRows, err := d.ProcessShard(ctx, prefix)
		if err != nil {
			return 0, err
		}
		d.logger.Info("shard complete",
			zap.String("hash_prefix", prefix),
			zap.Int("total_rows", totalRows),
		)
	}

	total, err := d.store.Commit(ctx)
	if err != nil {
		return 0, fmt.Errorf("commit image store: %w", err)
	}
	d.logger.Info("harvest committed", zap.Int("total_images", total))
	return total, nil
}

// ProcessShard pages through one shard until the offset reaches the most
// recently observed row count. The assumed count starts at 1 so at least
// one request is always issued; each successful page replaces it with the
// fresh value. Fetch failures are logged and skipped — the offset still
// advances — until the consecutive-failure budget trips, which abandons the
// remainder of the shard without failing the run. Returns the final
// observed row count as a coarse audit value.
func (d *Driver) ProcessShard(ctx context.Context, hashPrefix string) (int, error) {
	d.logger.Info("processing shard", zap.String("hash_prefix", hashPrefix))

	offset := 0
	totalRows := 1
	failures := 0
	for offset < totalRows {
		if err := ctx.Err(); err != nil {
			return totalRows, fmt.Errorf("shard %s interrupted: %w", hashPrefix, err)
		}

		query := Query{
			HashPrefix: hashPrefix,
			Offset:     offset,
			PageLimit:  d.cfg.PageLimit,
		}
		var page SearchPage
		if err := d.requester.GetJSON(ctx, d.cfg.SearchEndpoint, query.Params(), &page); err != nil {
			failures++
			d.logger.Warn("page fetch failed, skipping offset",
				zap.String("hash_prefix", hashPrefix),
				zap.Int("offset", offset),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			if failures >= d.cfg.MaxConsecutiveFailures {
				d.logger.Warn("abandoning shard after repeated failures",
					zap.String("hash_prefix", hashPrefix),
					zap.Int("offset", offset),
				)
				metrics.ShardDone("abandoned")
				return totalRows, nil
			}
			offset += d.cfg.PageLimit
			continue
		}
		failures = 0

		d.processRows(ctx, page.Response.Rows)
		totalRows = page.Response.RowCount
		offset += d.cfg.PageLimit
	}

	metrics.ShardDone("completed")
	return totalRows, nil
}

func (d *Driver) processRows(ctx context.Context, rows []Row) {
	for _, row := range rows {
		for _, rec := range d.extractor.Extract(row) {
			runningTotal, err := d.store.AddItem(ctx, rec)
			if err != nil {
				d.logger.Warn("image rejected by store",
					zap.String("foreign_id", rec.ForeignID),
					zap.Error(err),
				)
				continue
			}
			metrics.ImageStored()
			d.logger.Debug("image stored",
				zap.String("foreign_id", rec.ForeignID),
				zap.Int("running_total", runningTotal),
			)
		}
	}
	metrics.RowsProcessed(len(rows))
}
