package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/underwrite/internal/cache"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/repository"
	"github.com/opensource-finance/underwrite/internal/rules"
	"github.com/opensource-finance/underwrite/internal/scoring"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 50 << 20

// Validation errors returned before the scoring core runs.
var (
	ErrMissingDocuments = errors.New("both prefi and plaid data are required")
	ErrInvalidPrefi     = errors.New("the prefi data appears to be missing required fields (DataPerfection, DataEnhance, or Offers)")
	ErrInvalidPlaid     = errors.New("the plaid data appears to be missing required fields (items or report.items)")
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	scorer    *scoring.Scorer
	version   string
	maxUpload int64
}

// NewHandler creates a new API handler. maxUpload is the per-file limit of
// multipart uploads in bytes.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *scoring.Scorer, version string, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		scorer:    scorer,
		version:   version,
		maxUpload: maxUpload,
	}
}

// ValidateRequest checks the structural prerequisites of a document pair.
func ValidateRequest(req *domain.ScoreRequest) error {
	if req == nil || req.Prefi == nil || req.Plaid == nil {
		return ErrMissingDocuments
	}
	if !req.Prefi.HasBureauSignal() {
		return ErrInvalidPrefi
	}
	if !req.Plaid.HasItems() {
		return ErrInvalidPlaid
	}
	return nil
}

func validationTitle(err error) string {
	switch {
	case errors.Is(err, ErrMissingDocuments):
		return "Missing data"
	case errors.Is(err, ErrInvalidPrefi):
		return "Invalid prefi data"
	case errors.Is(err, ErrInvalidPlaid):
		return "Invalid plaid data"
	}
	return "Validation error"
}

// Score handles POST /api/score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req domain.ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	if err := ValidateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationTitle(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.score(r.Context(), &req))
}

// ScoreFiles handles POST /api/score/files. The prefi and plaid parts are
// read into memory and never touch disk.
func (h *Handler) ScoreFiles(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Upload error", err.Error())
		return
	}

	files := make(map[string][]byte, 2)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Upload error", err.Error())
			return
		}

		field := part.FormName()
		if field != "prefi" && field != "plaid" {
			part.Close()
			continue
		}
		if strings.ToLower(filepath.Ext(part.FileName())) != ".json" {
			part.Close()
			writeError(w, http.StatusBadRequest, "Upload error", "Only JSON files are allowed")
			return
		}

		data, err := io.ReadAll(io.LimitReader(part, h.maxUpload+1))
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Upload error", err.Error())
			return
		}
		if int64(len(data)) > h.maxUpload {
			writeError(w, http.StatusBadRequest, "File too large",
				fmt.Sprintf("File size exceeds the %dMB limit", h.maxUpload>>20))
			return
		}
		files[field] = data
	}

	if files["prefi"] == nil || files["plaid"] == nil {
		writeError(w, http.StatusBadRequest, "Missing files", "Both prefi and plaid files are required")
		return
	}

	req := domain.ScoreRequest{Prefi: &domain.Prefi{}, Plaid: &domain.Plaid{}}
	if err := json.Unmarshal(files["prefi"], req.Prefi); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid prefi JSON", "The prefi file contains invalid JSON data")
		return
	}
	if err := json.Unmarshal(files["plaid"], req.Plaid); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plaid JSON", "The plaid file contains invalid JSON data")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationTitle(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.score(r.Context(), &req))
}

// score runs the scorer, records history and announces the result. History
// and bus failures are logged; the result is returned regardless.
func (h *Handler) score(ctx context.Context, req *domain.ScoreRequest) *domain.ScoreResult {
	start := time.Now()
	result := h.scorer.CalculateScores(ctx, req.Prefi, req.Plaid)

	completed := domain.ScoreCompletedEvent{
		RequestID: GetRequestID(ctx),
		Result:    result,
	}

	if h.repo != nil {
		record, err := h.repo.SaveScore(ctx, result, req)
		if err != nil {
			slog.ErrorContext(ctx, "failed to save score", "error", err)
		} else {
			completed.HistoryID = record.ID
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(completed); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicScoreCompleted, payload); err != nil {
				slog.ErrorContext(ctx, "failed to publish score result", "error", err)
			}
		}
	}

	slog.DebugContext(ctx, "score calculated",
		"history_id", completed.HistoryID,
		"total_score", result.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// ScoreAsync handles POST /api/score/async.
func (h *Handler) ScoreAsync(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "Unavailable", "event bus not available")
		return
	}

	var req domain.ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationTitle(err), err.Error())
		return
	}

	event := domain.ScoreRequestedEvent{
		RequestID:    uuid.New().String(),
		ScoreRequest: req,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Processing error", err.Error())
		return
	}

	ctx := domain.WithRequestID(r.Context(), event.RequestID)
	if err := h.bus.Publish(ctx, domain.TopicScoreRequested, payload); err != nil {
		slog.ErrorContext(r.Context(), "failed to publish score request", "error", err)
		writeError(w, http.StatusInternalServerError, "Processing error", "failed to queue score request")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"requestId": event.RequestID,
	})
}

// ListHistory handles GET /api/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "Database error", "repository not available")
		return
	}

	records, err := h.repo.ListScores(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list score history", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error", "Error fetching calculation history")
		return
	}
	if records == nil {
		records = []*domain.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// GetHistory handles GET /api/history/{id}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "Database error", "repository not available")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", "history id must be an integer")
		return
	}

	record, err := h.repo.GetScore(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found", "score not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get score", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error", "Error fetching score")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// plaidBody accepts a plaid document either bare or wrapped in {"plaid": ...}.
type plaidBody struct {
	Wrapped *domain.Plaid `json:"plaid"`
	domain.Plaid
}

func (h *Handler) decodePlaid(w http.ResponseWriter, r *http.Request) (*domain.Plaid, bool) {
	var body plaidBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", err.Error())
		return nil, false
	}

	plaid := &body.Plaid
	if body.Wrapped != nil {
		plaid = body.Wrapped
	}
	if !plaid.HasItems() {
		writeError(w, http.StatusBadRequest, "Invalid plaid data", ErrInvalidPlaid.Error())
		return nil, false
	}
	return plaid, true
}

// Debits handles POST /api/debits.
func (h *Handler) Debits(w http.ResponseWriter, r *http.Request) {
	plaid, ok := h.decodePlaid(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.scorer.GetDebitsAndTotal(r.Context(), plaid))
}

// AccountsIncome handles POST /api/accounts/income.
func (h *Handler) AccountsIncome(w http.ResponseWriter, r *http.Request) {
	plaid, ok := h.decodePlaid(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.scorer.GetAccountTransactionLog(r.Context(), plaid))
}

// Patterns handles POST /api/patterns.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	plaid, ok := h.decodePlaid(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns":               h.scorer.IdentifyRecurringPatterns(ctx, plaid),
		"heuristicMonthlyIncome": h.scorer.ComputeAverageMonthlyIncome(ctx, plaid),
	})
}

// ListLadders handles GET /api/ladders.
func (h *Handler) ListLadders(w http.ResponseWriter, r *http.Request) {
	engine := h.scorer.Engine()
	ladders := engine.Ladders()

	writeJSON(w, http.StatusOK, map[string]any{
		"ladders":     ladders,
		"count":       len(ladders),
		"fingerprint": engine.Fingerprint(),
	})
}

// LadderRequest is the request body for PUT /api/ladders/{id}.
type LadderRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Expression  string `json:"expression"`

	// Enabled defaults to true; false drops the override and restores the
	// built-in ladder.
	Enabled *bool `json:"enabled"`
}

// UpdateLadder handles PUT /api/ladders/{id}. The override is compiled,
// persisted and applied; ladder groups are fixed.
func (h *Handler) UpdateLadder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ladderID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "Database error", "repository not available")
		return
	}

	var defaults *domain.LadderConfig
	for _, l := range rules.DefaultLadders() {
		if l.ID == ladderID {
			defaults = l
		}
	}
	if defaults == nil {
		writeError(w, http.StatusNotFound, "Not found", fmt.Sprintf("unknown ladder %q", ladderID))
		return
	}

	var req LadderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	ladder := &domain.LadderConfig{
		ID:          ladderID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Group:       defaults.Group,
		Expression:  req.Expression,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	if ladder.Name == "" {
		ladder.Name = defaults.Name
	}
	if ladder.Version == "" {
		ladder.Version = defaults.Version
	}
	if ladder.Expression == "" {
		ladder.Expression = defaults.Expression
	}

	engine := h.scorer.Engine()
	if err := engine.ValidateLadder(ladder); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ladder", err.Error())
		return
	}

	if err := h.repo.SaveLadderConfig(ctx, ladder); err != nil {
		slog.ErrorContext(ctx, "failed to save ladder", "id", ladderID, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error", "failed to save ladder")
		return
	}

	if err := ReloadLadders(ctx, h.repo, engine); err != nil {
		slog.ErrorContext(ctx, "failed to reload ladders", "error", err)
		writeError(w, http.StatusInternalServerError, "Processing error", "failed to reload ladders")
		return
	}

	slog.InfoContext(ctx, "ladder updated",
		"id", ladderID,
		"enabled", ladder.Enabled,
		"fingerprint", engine.Fingerprint(),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ladder":      ladder,
		"fingerprint": engine.Fingerprint(),
	})
}

// ReloadLadders applies the persisted ladder overrides to the engine.
func ReloadLadders(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	overrides, err := repo.ListLadderConfigs(ctx)
	if err != nil {
		return fmt.Errorf("list ladder configs: %w", err)
	}
	return engine.ReloadLadders(overrides)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}

	if h.repo != nil {
		check("repository", h.repo.Ping)
	}
	if h.cache != nil {
		check("cache", h.cache.Ping)
	}
	if h.bus != nil {
		check("eventBus", h.bus.Ping)
	}

	resp := map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	}
	if tiers, ok := h.cache.(interface{ TierStats() cache.TierStats }); ok {
		resp["memo"] = tiers.TierStats()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, title, message string) {
	writeJSON(w, status, map[string]string{
		"error":   title,
		"message": message,
	})
}
