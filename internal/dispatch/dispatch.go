// Package dispatch implements the Family Dispatcher / Batch Processor
// (spec.md §4.5): it groups a mixed payload into per-family buckets,
// drives each family's Validator -> Deduplicator -> Upserter pipeline
// under a bounded-concurrency fan-out, and aggregates the outcomes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/dedup"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/metricssink"
	"github.com/vitalpipe/ingest/internal/model"
	"github.com/vitalpipe/ingest/internal/planner"
	"github.com/vitalpipe/ingest/internal/upsert"
	"github.com/vitalpipe/ingest/internal/validation"
)

// Upserter is the collaborator the Dispatcher drives per family. Scoped
// to an interface so tests can substitute a fake without a database.
type Upserter interface {
	Upsert(ctx context.Context, family model.Family, records []model.HealthMetric) (model.FamilyOutcome, error)
}

// Dispatcher groups, validates, deduplicates and upserts a mixed
// payload.
type Dispatcher struct {
	upserter Upserter
	cfg      config.Config
	sink     metricssink.Sink
	logger   log.Logger
	families map[model.Family]struct{}
}

// New builds a Dispatcher and registers every known family as a handled
// bucket. RegisterAllFamilyHandlers (called once at startup from
// cmd/vitalpipe, before any Dispatcher is constructed) is the Go-idiomatic
// substitute for a compile-time exhaustive match over model.AllFamilies()
// (spec.md §9): it returns an error, which main treats as fatal, if any
// family is missing its upsert table or planner entry, so an unhandled
// family fails at boot rather than silently dropping records at request
// time.
func New(upserter Upserter, cfg config.Config, sink metricssink.Sink, logger log.Logger) *Dispatcher {
	families := make(map[model.Family]struct{}, len(model.AllFamilies()))
	for _, f := range model.AllFamilies() {
		families[f] = struct{}{}
	}
	return &Dispatcher{upserter: upserter, cfg: cfg, sink: sink, logger: logger, families: families}
}

// RegisterAllFamilyHandlers is called once at process startup. It is the
// single guard against the "unknown family silently dropped" failure
// mode spec.md §9 names as the cause of a prior production data loss: a
// family present in model.AllFamilies() but missing its upsert table or
// its planner param-count entry would otherwise pass startup and only
// fail the first time a request actually exercises it.
func RegisterAllFamilyHandlers() error {
	for _, f := range model.AllFamilies() {
		if _, ok := upsert.Tables[f]; !ok {
			return fmt.Errorf("family %s has no registered upsert table", f)
		}
		if _, ok := planner.ParamsPerRecord[f]; !ok {
			return fmt.Errorf("family %s has no registered planner.ParamsPerRecord entry", f)
		}
	}
	return nil
}

// Process groups payload by family and drives each family's pipeline.
// Families run as bounded-concurrency sibling tasks (default limit =
// number of registered families); chunks within one family remain
// strictly sequential inside the Upserter.
func (d *Dispatcher) Process(ctx context.Context, payload model.Payload) (model.BatchResult, error) {
	buckets, unsupported := groupByFamily(payload, d.families)

	agg := newAggregator()
	for _, f := range unsupported {
		agg.addUnsupported(f)
	}

	limit := d.cfg.Batch.MaxParallelFamilies
	if !d.cfg.Batch.EnableParallel {
		limit = 1
	}
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for family, records := range buckets {
		family, records := family, records
		g.Go(func() error {
			outcome, errs, warnings := d.processFamily(gctx, family, records)
			agg.merge(family, outcome, errs, warnings)
			return nil // per-family failures are collected, never abort siblings
		})
	}

	if err := g.Wait(); err != nil {
		return model.BatchResult{}, err
	}

	return agg.result(), nil
}

func (d *Dispatcher) processFamily(ctx context.Context, family model.Family, records []model.HealthMetric) (model.FamilyOutcome, []model.ErrorEntry, []model.Warning) {
	var errs []model.ErrorEntry
	var warnings []model.Warning

	validationErrs := d.validateRecords(records)

	valid := make([]model.HealthMetric, 0, len(records))
	for i, r := range records {
		if err := validationErrs[i]; err != nil {
			errs = append(errs, model.ErrorEntry{
				Family: family,
				Index:  r.RawIndex(),
				Kind:   "validation",
				Detail: err.Error(),
			})
			continue
		}
		warnings = append(warnings, validation.Warnings(r)...)
		valid = append(valid, r)
	}
	if len(errs) > 0 {
		d.sink.RecordRejected(family, len(errs))
	}
	for range warnings {
		d.sink.RecordWarning(family)
	}

	deduped := valid
	removed := 0
	if d.cfg.Batch.EnableDeduplication {
		dr := dedup.Deduplicate(valid)
		deduped = dr.Unique
		removed = dr.Removed
		d.sink.RecordDeduplicated(family, removed)
	}

	outcome, err := d.upserter.Upsert(ctx, family, deduped)
	outcome.Invalid = len(errs)
	outcome.DuplicatesRemoved = removed
	if err != nil {
		level.Error(d.logger).Log("msg", "family upsert failed", "family", family, "err", err)
		kind := "chunk"
		var paramErr *ingesterrors.ParameterLimitError
		if errors.As(err, &paramErr) {
			kind = "parameter_limit"
		}
		errs = append(errs, model.ErrorEntry{
			Family: family,
			Kind:   kind,
			Detail: err.Error(),
		})
	}
	for _, ce := range outcome.FailedChunks {
		errs = append(errs, model.ErrorEntry{
			Family: family,
			Kind:   "chunk",
			Detail: ce.Detail,
		})
	}

	return outcome, errs, warnings
}

// validateRecords runs per-record validation, switching to the bounded
// blocking-task pool once the bucket crosses cfg.BlockingPoolThreshold so
// a single oversized family never monopolizes the scheduler goroutine
// (spec.md §5).
func (d *Dispatcher) validateRecords(records []model.HealthMetric) []error {
	validate := func(r model.HealthMetric) error {
		return validation.Validate(r, d.cfg.Validation.Bounds)
	}

	threshold := d.cfg.Batch.BlockingPoolThreshold
	if threshold <= 0 || len(records) <= threshold {
		errs := make([]error, len(records))
		for i, r := range records {
			errs[i] = validate(r)
		}
		return errs
	}

	pool := newBlockingPool(d.cfg.Batch.MaxParallelFamilies)
	return pool.validateAll(records, validate)
}

// groupByFamily partitions payload into one bucket per known family.
// Any metric whose Family() isn't in known is surfaced as an
// UnsupportedFamilyError rather than silently dropped (spec.md §4.5).
func groupByFamily(payload model.Payload, known map[model.Family]struct{}) (map[model.Family][]model.HealthMetric, []model.Family) {
	buckets := make(map[model.Family][]model.HealthMetric)
	unsupportedSeen := make(map[model.Family]struct{})
	var unsupported []model.Family

	for _, m := range payload.Metrics {
		family := m.Family()
		if _, ok := known[family]; !ok {
			if _, seen := unsupportedSeen[family]; !seen {
				unsupportedSeen[family] = struct{}{}
				unsupported = append(unsupported, family)
			}
			continue
		}
		buckets[family] = append(buckets[family], m)
	}
	return buckets, unsupported
}

// aggregator collects per-family outcomes under a mutex; errgroup
// already bounds concurrency, this only protects the shared maps/slices
// siblings write into.
type aggregator struct {
	mu  sync.Mutex
	res model.BatchResult
}

func newAggregator() *aggregator {
	return &aggregator{
		res: model.BatchResult{
			DeduplicationStats: make(map[model.Family]int),
			PerFamily:          make(map[model.Family]model.FamilyOutcome),
		},
	}
}

func (a *aggregator) addUnsupported(f model.Family) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.res.UnsupportedFamilies = append(a.res.UnsupportedFamilies, f)
	a.res.Errors = append(a.res.Errors, model.ErrorEntry{
		Family: f,
		Kind:   "unsupported_family",
		Detail: (&ingesterrors.UnsupportedFamilyError{Family: string(f)}).Error(),
	})
}

func (a *aggregator) merge(family model.Family, outcome model.FamilyOutcome, errs []model.ErrorEntry, warnings []model.Warning) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.res.PerFamily[family] = outcome
	a.res.TotalProcessed += outcome.Inserted
	a.res.FailedCount += outcome.Invalid + len(outcome.FailedChunks)
	a.res.DeduplicationStats[family] = outcome.DuplicatesRemoved
	a.res.Errors = append(a.res.Errors, errs...)
	a.res.Warnings = append(a.res.Warnings, warnings...)
}

func (a *aggregator) result() model.BatchResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.res
}
