// Package scoring is the underwriting entry point. It runs the normalizer,
// pattern detector, metric extractors, ladders and aggregator for a document
// pair and memoizes each extractor by content hash.
package scoring

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/underwrite/internal/aggregate"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/ledger"
	"github.com/opensource-finance/underwrite/internal/metrics"
	"github.com/opensource-finance/underwrite/internal/patterns"
	"github.com/opensource-finance/underwrite/internal/rules"
)

var tracer = otel.Tracer("underwrite-scoring")

// Scorer computes underwriting scores. It is safe for concurrent use when
// the cache is.
type Scorer struct {
	cache   domain.Cache
	engine  *rules.Engine
	now     func() time.Time
	memoTTL time.Duration
	tracer  trace.Tracer
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the clock that defines the evaluation day.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithMemoTTL bounds the lifetime of memo entries. Zero keeps them forever.
func WithMemoTTL(ttl time.Duration) Option {
	return func(s *Scorer) { s.memoTTL = ttl }
}

// New creates a scorer. A nil cache disables memoization.
func New(cache domain.Cache, engine *rules.Engine, opts ...Option) *Scorer {
	s := &Scorer{
		cache:  cache,
		engine: engine,
		now:    time.Now,
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the ladder engine.
func (s *Scorer) Engine() *rules.Engine {
	return s.engine
}

// asOf is the evaluation instant in UTC. Memo keys take only its day through
// dayKey; time-dependent metrics see the full instant.
func (s *Scorer) asOf() time.Time {
	return s.now().UTC()
}

// docs carries one document pair through a scoring call so that each
// document is hashed and normalized once.
type docs struct {
	prefi *domain.Prefi
	plaid *domain.Plaid

	prefiKey string
	plaidKey string

	once   sync.Once
	ledger *ledger.Ledger
}

func newDocs(prefi *domain.Prefi, plaid *domain.Plaid) *docs {
	if prefi == nil {
		prefi = &domain.Prefi{}
	}
	if plaid == nil {
		plaid = &domain.Plaid{}
	}
	return &docs{
		prefi:    prefi,
		plaid:    plaid,
		prefiKey: contentKey(prefi),
		plaidKey: contentKey(plaid),
	}
}

func (d *docs) normalized() *ledger.Ledger {
	d.once.Do(func() {
		d.ledger = ledger.Normalize(d.plaid)
	})
	return d.ledger
}

// CalculateScores scores one document pair. Identical documents always
// produce an identical result for the same ladders and evaluation day.
func (s *Scorer) CalculateScores(ctx context.Context, prefi *domain.Prefi, plaid *domain.Plaid) *domain.ScoreResult {
	ctx, span := s.tracer.Start(ctx, "scoring.CalculateScores")
	defer span.End()

	start := time.Now()
	d := newDocs(prefi, plaid)
	asOf := s.asOf()

	key := dayKey(contentKey(d.prefiKey, d.plaidKey, s.engine.Fingerprint()), asOf)
	result := memoize(ctx, s, "calculateScores", key, func() *domain.ScoreResult {
		return s.calculate(ctx, d, asOf)
	})

	span.SetAttributes(
		attribute.Int("score.core", result.CoreScore),
		attribute.Int("score.bayesian", result.BayesianScore),
		attribute.Int("score.total", result.TotalScore),
		attribute.Int64("score.duration_ms", time.Since(start).Milliseconds()),
	)
	return result
}

func (s *Scorer) calculate(ctx context.Context, d *docs, asOf time.Time) *domain.ScoreResult {
	heuristic := s.averageMonthlyIncome(ctx, d)

	in := &aggregate.Input{
		Prefi:                  d.prefi,
		CreditScore:            s.creditScore(ctx, d),
		DTI:                    metrics.DTI(d.prefi),
		Delinquency:            s.delinquency(ctx, d, asOf),
		EmploymentYears:        s.employmentYears(ctx, d),
		SelfEmployed:           s.selfEmployed(ctx, d),
		Retired:                s.retired(ctx, d),
		Housing:                s.housing(ctx, d),
		SpendingRatio:          s.spendingRatio(ctx, d),
		WasteCount:             s.wasteCount(ctx, d),
		HeuristicMonthlyIncome: heuristic,
		MonthlyIncome:          metrics.MonthlyIncome(heuristic, d.prefi),
		SimpleMonthlyIncome:    s.simpleMonthlyIncome(ctx, d),
		Patterns:               s.patterns(ctx, d),
	}
	in.SubScores = s.engine.EvaluateAll(ctx, in.Signals())

	return aggregate.Process(in)
}

func (s *Scorer) creditScore(ctx context.Context, d *docs) float64 {
	return memoize(ctx, s, "getCreditScore", d.prefiKey, func() float64 {
		return metrics.CreditScore(d.prefi)
	})
}

func (s *Scorer) delinquency(ctx context.Context, d *docs, asOf time.Time) domain.DelinquencyInfo {
	return memoize(ctx, s, "getDelinquencyInfo", dayKey(d.plaidKey, asOf), func() domain.DelinquencyInfo {
		return metrics.Delinquency(d.normalized(), asOf)
	})
}

func (s *Scorer) patterns(ctx context.Context, d *docs) []domain.RecurringPattern {
	return memoize(ctx, s, "identifyRecurringPatterns", d.plaidKey, func() []domain.RecurringPattern {
		return patterns.IdentifyRecurringPatterns(d.normalized().Income)
	})
}

func (s *Scorer) averageMonthlyIncome(ctx context.Context, d *docs) float64 {
	return memoize(ctx, s, "computeAverageMonthlyIncome", d.plaidKey, func() float64 {
		return metrics.AverageMonthlyIncome(d.normalized())
	})
}

func (s *Scorer) employmentYears(ctx context.Context, d *docs) float64 {
	return memoize(ctx, s, "employmentYears", d.plaidKey, func() float64 {
		return metrics.EmploymentYears(d.normalized())
	})
}

func (s *Scorer) selfEmployed(ctx context.Context, d *docs) bool {
	return memoize(ctx, s, "selfEmployed", d.plaidKey, func() bool {
		return metrics.SelfEmployed(d.normalized())
	})
}

func (s *Scorer) retired(ctx context.Context, d *docs) bool {
	return memoize(ctx, s, "retired", contentKey(d.prefiKey, d.plaidKey), func() bool {
		return metrics.Retired(d.prefi, d.normalized())
	})
}

// wasteCount depends on the plaid document alone: the threshold comes from
// the heuristic income of the same document.
func (s *Scorer) wasteCount(ctx context.Context, d *docs) int {
	return memoize(ctx, s, "wasteCount", d.plaidKey, func() int {
		return metrics.WasteCount(d.normalized(), s.averageMonthlyIncome(ctx, d))
	})
}

func (s *Scorer) simpleMonthlyIncome(ctx context.Context, d *docs) float64 {
	return memoize(ctx, s, "simpleMonthlyIncome", d.plaidKey, func() float64 {
		return metrics.SimpleMonthlyIncome(d.normalized())
	})
}

func (s *Scorer) housing(ctx context.Context, d *docs) domain.HousingStability {
	return memoize(ctx, s, "housingStability", d.plaidKey, func() domain.HousingStability {
		return metrics.Housing(d.normalized())
	})
}

func (s *Scorer) spendingRatio(ctx context.Context, d *docs) float64 {
	return memoize(ctx, s, "spendingRatio", d.plaidKey, func() float64 {
		return metrics.SpendingRatio(d.normalized())
	})
}

// evaluate memoizes one ladder under the loaded ladder set.
func (s *Scorer) evaluate(ctx context.Context, name, ladderID, key string, signals func() domain.Signals) int {
	key = contentKey(key, s.engine.Fingerprint())
	return memoize(ctx, s, name, key, func() int {
		return s.engine.Evaluate(ctx, ladderID, signals()).Score
	})
}
