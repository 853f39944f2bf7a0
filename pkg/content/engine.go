package content

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calvinalkan/sitecontent/pkg/content/frontmatter"
)

// Engine ties the pipeline together: it validates raw content, builds the
// indices, publishes snapshots and serves queries.
//
// At most one [Engine.Rebuild] runs at a time; a concurrent call is rejected
// with [ErrBuildInProgress]. Queries never wait for a build.
type Engine struct {
	registry  *Registry
	validator *Validator
	store     *Store
	query     *Query

	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time
	fmOpts   []frontmatter.Option
	building sync.Mutex
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger. Default: no logging.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records build metrics to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the clock used for build and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFrontMatterOptions configures the front-matter splitter used for
// documents.
func WithFrontMatterOptions(opts ...frontmatter.Option) Option {
	return func(e *Engine) { e.fmOpts = append(e.fmOpts, opts...) }
}

// New returns an Engine for registry. The store starts with an empty
// snapshot covering every declared kind.
func New(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		log:      zap.NewNop(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.validator = NewValidator(registry, e.fmOpts...)
	e.store = NewStore(registry.Kinds(), e.now)
	e.query = NewQuery(e.store)

	return e
}

// Query returns the read API over the current snapshot.
func (e *Engine) Query() *Query { return e.query }

// Registry returns the engine's schema registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Current returns the current snapshot.
func (e *Engine) Current() *Snapshot { return e.store.Current() }

// KindReport counts what happened to the records of one kind.
type KindReport struct {
	Submitted int // raw records received
	Rejected  int // failed validation
	Dropped   int // lost an id or slug conflict
	Accepted  int // indexed
}

// BuildReport describes one [Engine.Rebuild].
type BuildReport struct {
	BuildID   uuid.UUID
	StartedAt time.Time
	Duration  time.Duration

	// Published reports whether a new snapshot became current.
	Published  bool
	SnapshotID uuid.UUID

	Kinds map[Kind]KindReport

	// RecordErrors lists every record-scoped problem, each an [*Error].
	// Validation errors come first, per kind in canonical order, followed
	// by that kind's index errors.
	RecordErrors []error

	// Err is the build-scoped error that prevented publishing, wrapping
	// [ErrPartialPublish] or [ErrBuildInProgress]. Nil when published.
	Err error
}

// OK reports whether the build published without any record errors.
func (r BuildReport) OK() bool {
	return r.Published && len(r.RecordErrors) == 0
}

// Rebuild validates and indexes raw, then publishes the result as the new
// current snapshot.
//
// Record-scoped errors exclude the offending record and are reported; the
// rest of the content still publishes. Build-scoped errors (content for an
// undeclared kind, a concurrent build) abort the publish and the previous
// snapshot stays current.
func (e *Engine) Rebuild(raw map[Kind][]RawRecord) BuildReport {
	report := BuildReport{
		BuildID:   uuid.Must(uuid.NewV7()),
		StartedAt: e.now(),
		Kinds:     make(map[Kind]KindReport),
	}

	log := e.log.With(zap.String("build_id", report.BuildID.String()))

	if !e.building.TryLock() {
		report.Err = fmt.Errorf("rebuild: %w", ErrBuildInProgress)
		log.Warn("rebuild rejected", zap.Error(report.Err))
		e.metrics.observe(&report)

		return report
	}
	defer e.building.Unlock()

	log.Debug("rebuild started", zap.Int("kinds", len(raw)))

	var undeclared []Kind

	for kind := range raw {
		if !e.registry.has(kind) {
			undeclared = append(undeclared, kind)
		}
	}

	slices.Sort(undeclared)

	collections := make(map[Kind]*Collection, len(e.registry.Kinds()))

	for _, kind := range e.registry.Kinds() {
		c, kr, errs := e.buildKind(kind, raw[kind])
		collections[kind] = c
		report.Kinds[kind] = kr
		report.RecordErrors = append(report.RecordErrors, errs...)

		for _, err := range errs {
			log.Debug("record excluded", zap.Error(err))
		}
	}

	for _, kind := range undeclared {
		report.Kinds[kind] = KindReport{Submitted: len(raw[kind]), Rejected: len(raw[kind])}
	}

	if len(undeclared) > 0 {
		report.Err = fmt.Errorf("rebuild: %w: %w: %q", ErrPartialPublish, ErrUnknownKind, undeclared)
	} else {
		snap, err := e.store.Publish(collections)
		if err != nil {
			report.Err = fmt.Errorf("rebuild: %w", err)
		} else {
			report.Published = true
			report.SnapshotID = snap.ID()
		}
	}

	report.Duration = e.now().Sub(report.StartedAt)
	e.metrics.observe(&report)

	if report.Published {
		log.Info("snapshot published",
			zap.String("snapshot_id", report.SnapshotID.String()),
			zap.Int("record_errors", len(report.RecordErrors)),
			zap.Duration("duration", report.Duration),
		)
	} else {
		log.Warn("publish aborted",
			zap.Error(report.Err),
			zap.Int("record_errors", len(report.RecordErrors)),
		)
	}

	return report
}

func (e *Engine) buildKind(kind Kind, raws []RawRecord) (*Collection, KindReport, []error) {
	kr := KindReport{Submitted: len(raws)}

	// Registry kinds always resolve.
	schema, _ := e.registry.Schema(kind)

	var (
		errs  []error
		valid = make([]Document, 0, len(raws))
	)

	for _, raw := range raws {
		var (
			doc     Document
			recErrs []error
		)

		if kind == KindDocument {
			doc, recErrs = e.validator.ValidateDocument(raw)
		} else {
			doc.Record, recErrs = e.validator.Validate(kind, raw)
		}

		if len(recErrs) > 0 {
			kr.Rejected++
			errs = append(errs, recErrs...)

			continue
		}

		valid = append(valid, doc)
	}

	c, indexErrs := Build(schema, valid)

	kr.Dropped = len(valid) - c.Len()
	kr.Accepted = c.Len()
	errs = append(errs, indexErrs...)

	return c, kr, errs
}
