// Package rules maps raw signals to bounded sub-scores through CEL ladder
// expressions.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/underwrite/internal/domain"
)

// Engine compiles ladders once and evaluates them against signals.
// It always holds a program for every ladder in LadderOrder.
type Engine struct {
	mu          sync.RWMutex
	env         *cel.Env
	compiled    map[string]*CompiledLadder
	fingerprint string
}

// CompiledLadder holds a pre-compiled CEL program.
type CompiledLadder struct {
	Config  *domain.LadderConfig
	Program cel.Program
}

// NewEngine creates an engine loaded with DefaultLadders.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("credit_score", cel.DoubleType),
		cel.Variable("dti", cel.DoubleType),
		cel.Variable("years_since_last_late", cel.DoubleType),
		cel.Variable("has_major_delinquency", cel.BoolType),
		cel.Variable("late_count_last_2y", cel.IntType),
		cel.Variable("multiple_recent_lates", cel.BoolType),
		cel.Variable("one_major_delinquency", cel.BoolType),
		cel.Variable("employment_years", cel.DoubleType),
		cel.Variable("self_employed", cel.BoolType),
		cel.Variable("retired", cel.BoolType),
		cel.Variable("housing_payments", cel.IntType),
		cel.Variable("housing_gaps", cel.IntType),
		cel.Variable("monthly_income", cel.DoubleType),
		cel.Variable("spending_ratio", cel.DoubleType),
		cel.Variable("waste_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}
	if err := e.ReloadLadders(nil); err != nil {
		return nil, err
	}
	return e, nil
}

// ValidateLadder compiles a ladder without changing the loaded set.
func (e *Engine) ValidateLadder(cfg *domain.LadderConfig) error {
	if cfg == nil {
		return fmt.Errorf("ladder config is required")
	}
	if !isKnownLadder(cfg.ID) {
		return fmt.Errorf("unknown ladder %q", cfg.ID)
	}

	_, err := e.compileLadder(cfg)
	return err
}

// ReloadLadders replaces the loaded set with the defaults overlaid by the
// enabled overrides. Nothing changes if any override fails to compile.
func (e *Engine) ReloadLadders(overrides []*domain.LadderConfig) error {
	configs := make(map[string]*domain.LadderConfig, len(LadderOrder))
	for _, cfg := range DefaultLadders() {
		configs[cfg.ID] = cfg
	}
	for _, cfg := range overrides {
		if cfg == nil || !cfg.Enabled {
			continue
		}
		if !isKnownLadder(cfg.ID) {
			return fmt.Errorf("unknown ladder %q", cfg.ID)
		}
		configs[cfg.ID] = cfg
	}

	compiled := make(map[string]*CompiledLadder, len(configs))
	for id, cfg := range configs {
		c, err := e.compileLadder(cfg)
		if err != nil {
			return err
		}
		compiled[id] = c
	}

	e.mu.Lock()
	e.compiled = compiled
	e.fingerprint = fingerprint(compiled)
	e.mu.Unlock()

	return nil
}

// Evaluate runs one ladder. The result is clamped to 1..5; evaluation errors
// fall back to 1.
func (e *Engine) Evaluate(ctx context.Context, ladderID string, s domain.Signals) domain.SubScore {
	e.mu.RLock()
	ladder, ok := e.compiled[ladderID]
	e.mu.RUnlock()

	if !ok {
		slog.WarnContext(ctx, "unknown ladder, using minimum sub-score", "ladder", ladderID)
		return domain.SubScore{LadderID: ladderID, Score: domain.MinSubScore, Fallback: true}
	}

	return evaluateLadder(ctx, ladder, activation(s))
}

// EvaluateAll runs every ladder in LadderOrder.
func (e *Engine) EvaluateAll(ctx context.Context, s domain.Signals) []domain.SubScore {
	e.mu.RLock()
	ladders := make([]*CompiledLadder, len(LadderOrder))
	for i, id := range LadderOrder {
		ladders[i] = e.compiled[id]
	}
	e.mu.RUnlock()

	vars := activation(s)
	results := make([]domain.SubScore, len(ladders))
	for i, ladder := range ladders {
		results[i] = evaluateLadder(ctx, ladder, vars)
	}
	return results
}

func evaluateLadder(ctx context.Context, ladder *CompiledLadder, vars map[string]any) domain.SubScore {
	result := domain.SubScore{
		LadderID: ladder.Config.ID,
		Group:    ladder.Config.Group,
	}

	out, _, err := ladder.Program.Eval(vars)
	if err != nil {
		slog.WarnContext(ctx, "ladder evaluation failed, using minimum sub-score",
			"ladder", ladder.Config.ID,
			"error", err,
		)
		result.Score = domain.MinSubScore
		result.Fallback = true
		return result
	}

	score, ok := toScore(out)
	if !ok {
		slog.WarnContext(ctx, "ladder returned a non-integer, using minimum sub-score",
			"ladder", ladder.Config.ID,
			"type", out.Type().TypeName(),
		)
		result.Score = domain.MinSubScore
		result.Fallback = true
		return result
	}

	result.Score = Clamp(score)
	return result
}

// Clamp bounds a score to MinSubScore..MaxSubScore.
func Clamp(score int64) int {
	switch {
	case score < domain.MinSubScore:
		return domain.MinSubScore
	case score > domain.MaxSubScore:
		return domain.MaxSubScore
	}
	return int(score)
}

func toScore(val ref.Val) (int64, bool) {
	if v, ok := val.(types.Int); ok {
		return int64(v), true
	}
	return 0, false
}

func activation(s domain.Signals) map[string]any {
	return map[string]any{
		"credit_score":          s.CreditScore,
		"dti":                   s.DTI,
		"years_since_last_late": s.YearsSinceLastLate,
		"has_major_delinquency": s.HasMajorDelinquency,
		"late_count_last_2y":    s.LateCountLast2Years,
		"multiple_recent_lates": s.MultipleRecentLates,
		"one_major_delinquency": s.OneMajorDelinquency,
		"employment_years":      s.EmploymentYears,
		"self_employed":         s.SelfEmployed,
		"retired":               s.Retired,
		"housing_payments":      s.HousingPayments,
		"housing_gaps":          s.HousingGaps,
		"monthly_income":        s.MonthlyIncome,
		"spending_ratio":        s.SpendingRatio,
		"waste_count":           s.WasteCount,
	}
}

// Ladders returns the loaded ladder configurations in LadderOrder.
func (e *Engine) Ladders() []*domain.LadderConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.LadderConfig, 0, len(LadderOrder))
	for _, id := range LadderOrder {
		out = append(out, e.compiled[id].Config)
	}
	return out
}

// Fingerprint identifies the loaded ladder set. It changes whenever any
// expression or group changes.
func (e *Engine) Fingerprint() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fingerprint
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	return nil
}

func (e *Engine) compileLadder(cfg *domain.LadderConfig) (*CompiledLadder, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile ladder %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.IntType {
		return nil, fmt.Errorf("ladder %s: expression must return int, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for ladder %s: %w", cfg.ID, err)
	}

	return &CompiledLadder{
		Config:  cfg,
		Program: program,
	}, nil
}

func isKnownLadder(id string) bool {
	for _, known := range LadderOrder {
		if id == known {
			return true
		}
	}
	return false
}

func fingerprint(compiled map[string]*CompiledLadder) string {
	ids := make([]string, 0, len(compiled))
	for id := range compiled {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := xxhash.New()
	for _, id := range ids {
		cfg := compiled[id].Config
		_, _ = h.WriteString(id)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(cfg.Group)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(cfg.Expression)
		_, _ = h.WriteString("\x00")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
