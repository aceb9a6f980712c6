package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/underwrite/internal/bus"
	"github.com/opensource-finance/underwrite/internal/cache"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/repository"
	"github.com/opensource-finance/underwrite/internal/rules"
	"github.com/opensource-finance/underwrite/internal/scoring"
)

const (
	bureauPrefi = `{"Offers":[{"Score":"810"}]}`
	emptyPlaid  = `{"items":[{"accounts":[]}]}`
	salaryPlaid = `{"report":{"items":[{"accounts":[{"account_id":"acc-1","name":"Checking","transactions":[
		{"date":"2025-01-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-02-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-03-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-02-10","amount":120.5,"category":["Shops"],"name":"Grocer"},
		{"date":"2025-02-12","amount":900,"category":["Payment","Rent"],"name":"Landlord"}
	]}]}]}}`
)

type testEnv struct {
	server *Server
	repo   domain.Repository
	bus    *bus.ChannelBus
}

// createTestServer creates a server backed by a temp SQLite database and a
// channel bus.
func createTestServer(t *testing.T) *testEnv {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	memo := cache.NewLRUCache(0)
	scorer := scoring.New(memo, engine)

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         3001,
		ReadTimeout:  30,
		WriteTimeout: 30,
		MaxUploadMB:  1,
	}

	return &testEnv{
		server: NewServer(cfg, repo, memo, eventBus, scorer, "test-v1"),
		repo:   repo,
		bus:    eventBus,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rr, req)
	return rr
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func scoreBody(prefi, plaid string) string {
	return fmt.Sprintf(`{"prefi":%s,"plaid":%s}`, prefi, plaid)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse error body: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestScoreEndpoint(t *testing.T) {
	env := createTestServer(t)

	t.Run("SuccessfulScore", func(t *testing.T) {
		rr := env.do(postJSON("/api/score", scoreBody(bureauPrefi, emptyPlaid)))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var res domain.ScoreResult
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if res.TotalScore != 35 {
			t.Errorf("expected total score 35, got %d", res.TotalScore)
		}
		if res.Details.CreditScore != 5 {
			t.Errorf("expected credit sub-score 5, got %d", res.Details.CreditScore)
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected X-Request-ID header")
		}

		records, err := env.repo.ListScores(context.Background())
		if err != nil {
			t.Fatalf("ListScores failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 saved score, got %d", len(records))
		}
	})

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"MissingPlaid", `{"prefi":` + bureauPrefi + `}`, "Missing data"},
		{"NullPrefi", scoreBody("null", emptyPlaid), "Missing data"},
		{"InvalidPrefi", scoreBody(`{"Other":1}`, emptyPlaid), "Invalid prefi data"},
		{"InvalidPlaid", scoreBody(bureauPrefi, `{"items":[]}`), "Invalid plaid data"},
		{"PlaidWithoutItems", scoreBody(bureauPrefi, `{"report":{}}`), "Invalid plaid data"},
		{"InvalidJSON", "not-json", "Validation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(postJSON("/api/score", tt.body))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			body := decodeError(t, rr)
			if body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, body["error"])
			}
			if body["message"] == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestScoreFilesEndpoint(t *testing.T) {
	env := createTestServer(t)

	upload := func(files map[string][2]string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for field, f := range files {
			part, err := mw.CreateFormFile(field, f[0])
			if err != nil {
				t.Fatalf("CreateFormFile failed: %v", err)
			}
			part.Write([]byte(f[1]))
		}
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/score/files", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("SuccessfulUpload", func(t *testing.T) {
		rr := env.do(upload(map[string][2]string{
			"prefi": {"prefi.json", bureauPrefi},
			"plaid": {"plaid.JSON", salaryPlaid},
		}))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var res domain.ScoreResult
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if res.CoreScore+res.BayesianScore != res.TotalScore {
			t.Errorf("total %d is not core %d + bayesian %d", res.TotalScore, res.CoreScore, res.BayesianScore)
		}
	})

	tests := []struct {
		name      string
		files     map[string][2]string
		wantError string
	}{
		{"WrongExtension", map[string][2]string{
			"prefi": {"prefi.txt", bureauPrefi},
			"plaid": {"plaid.json", emptyPlaid},
		}, "Upload error"},
		{"MissingFile", map[string][2]string{
			"prefi": {"prefi.json", bureauPrefi},
		}, "Missing files"},
		{"InvalidPrefiJSON", map[string][2]string{
			"prefi": {"prefi.json", "{broken"},
			"plaid": {"plaid.json", emptyPlaid},
		}, "Invalid prefi JSON"},
		{"InvalidPlaidJSON", map[string][2]string{
			"prefi": {"prefi.json", bureauPrefi},
			"plaid": {"plaid.json", "[1,2"},
		}, "Invalid plaid JSON"},
		{"InvalidPrefiData", map[string][2]string{
			"prefi": {"prefi.json", `{}`},
			"plaid": {"plaid.json", emptyPlaid},
		}, "Invalid prefi data"},
		{"TooLarge", map[string][2]string{
			"prefi": {"prefi.json", bureauPrefi},
			"plaid": {"plaid.json", `{"items":[{}],"pad":"` + strings.Repeat("x", 1<<20) + `"}`},
		}, "File too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(upload(tt.files))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if body := decodeError(t, rr); body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, body["error"])
			}
		})
	}

	t.Run("NotMultipart", func(t *testing.T) {
		rr := env.do(postJSON("/api/score/files", "{}"))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestScoreAsyncEndpoint(t *testing.T) {
	env := createTestServer(t)

	received := make(chan domain.ScoreRequestedEvent, 1)
	_, err := env.bus.Subscribe(context.Background(), domain.TopicScoreRequested, func(ctx context.Context, msg *domain.Message) error {
		var ev domain.ScoreRequestedEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		if got := domain.RequestIDFrom(ctx); got != ev.RequestID {
			t.Errorf("expected handler context request id %s, got %s", ev.RequestID, got)
		}
		received <- ev
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	rr := env.do(postJSON("/api/score/async", scoreBody(bureauPrefi, emptyPlaid)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["requestId"] == "" {
		t.Fatal("expected requestId in response")
	}

	select {
	case ev := <-received:
		if ev.RequestID != resp["requestId"] {
			t.Errorf("expected requestId %s, got %s", resp["requestId"], ev.RequestID)
		}
		if ev.Prefi == nil || ev.Plaid == nil {
			t.Error("expected both documents in the published request")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published request")
	}

	t.Run("InvalidRequestNotQueued", func(t *testing.T) {
		rr := env.do(postJSON("/api/score/async", scoreBody(bureauPrefi, `{"items":[]}`)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestHistoryEndpoints(t *testing.T) {
	env := createTestServer(t)

	t.Run("EmptyHistory", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("expected empty array, got %s", rr.Body.String())
		}
	})

	for i := 0; i < 2; i++ {
		if rr := env.do(postJSON("/api/score", scoreBody(bureauPrefi, emptyPlaid))); rr.Code != http.StatusOK {
			t.Fatalf("score failed: %d", rr.Code)
		}
	}

	var history []domain.HistoryRecord
	t.Run("ListNewestFirst", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
		if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil {
			t.Fatalf("failed to parse history: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 records, got %d", len(history))
		}
		if history[0].ID <= history[1].ID {
			t.Errorf("expected newest first, got ids %d, %d", history[0].ID, history[1].ID)
		}
		if history[0].TotalScore != 35 {
			t.Errorf("expected total 35, got %d", history[0].TotalScore)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/history/%d", history[1].ID), nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var record domain.HistoryRecord
		if err := json.Unmarshal(rr.Body.Bytes(), &record); err != nil {
			t.Fatalf("failed to parse record: %v", err)
		}
		if record.ID != history[1].ID {
			t.Errorf("expected id %d, got %d", history[1].ID, record.ID)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/history/9999", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("BadID", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/history/abc", nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestReportEndpoints(t *testing.T) {
	env := createTestServer(t)

	t.Run("Debits", func(t *testing.T) {
		rr := env.do(postJSON("/api/debits", salaryPlaid))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var report domain.DebitReport
		if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if len(report.AllDebits) != 2 {
			t.Fatalf("expected 2 debits, got %d", len(report.AllDebits))
		}
		if report.AllDebits[0].Amount != 900 || report.AllDebits[0].Account != "Checking" {
			t.Errorf("unexpected first debit: %+v", report.AllDebits[0])
		}
		if report.TotalDebits != 1020.5 {
			t.Errorf("expected total 1020.5, got %v", report.TotalDebits)
		}
	})

	t.Run("DebitsWrapped", func(t *testing.T) {
		rr := env.do(postJSON("/api/debits", `{"plaid":`+salaryPlaid+`}`))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("AccountsIncome", func(t *testing.T) {
		rr := env.do(postJSON("/api/accounts/income", salaryPlaid))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var logs map[string]domain.AccountIncomeLog
		if err := json.Unmarshal(rr.Body.Bytes(), &logs); err != nil {
			t.Fatalf("failed to parse log: %v", err)
		}
		if got := len(logs["acc-1"].IncomeTransactions); got != 3 {
			t.Errorf("expected 3 income transactions, got %d", got)
		}
	})

	t.Run("Patterns", func(t *testing.T) {
		rr := env.do(postJSON("/api/patterns", salaryPlaid))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Patterns []domain.RecurringPattern `json:"patterns"`
			Income   float64                   `json:"heuristicMonthlyIncome"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse patterns: %v", err)
		}
		if len(resp.Patterns) != 1 || resp.Patterns[0].Frequency != domain.FrequencyMonthly {
			t.Errorf("expected one monthly pattern, got %+v", resp.Patterns)
		}
		if resp.Income != 4000 {
			t.Errorf("expected heuristic income 4000, got %v", resp.Income)
		}
	})

	t.Run("MissingItems", func(t *testing.T) {
		rr := env.do(postJSON("/api/debits", `{"items":[]}`))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestLadderEndpoints(t *testing.T) {
	env := createTestServer(t)

	listLadders := func(t *testing.T) (int, string) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/ladders", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Count       int    `json:"count"`
			Fingerprint string `json:"fingerprint"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse ladders: %v", err)
		}
		return resp.Count, resp.Fingerprint
	}

	put := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/ladders/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.do(req)
	}

	count, before := listLadders(t)
	if count != 9 {
		t.Fatalf("expected 9 ladders, got %d", count)
	}

	t.Run("OverrideApplied", func(t *testing.T) {
		rr := put("credit", `{"expression":"credit_score >= 900.0 ? 5 : 2"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if _, after := listLadders(t); after == before {
			t.Error("expected fingerprint to change")
		}

		rr = env.do(postJSON("/api/score", scoreBody(bureauPrefi, emptyPlaid)))
		var res domain.ScoreResult
		json.Unmarshal(rr.Body.Bytes(), &res)
		if res.Details.CreditScore != 2 {
			t.Errorf("expected overridden credit sub-score 2, got %d", res.Details.CreditScore)
		}
	})

	t.Run("DisableRestoresDefault", func(t *testing.T) {
		rr := put("credit", `{"expression":"credit_score >= 900.0 ? 5 : 2","enabled":false}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if _, after := listLadders(t); after != before {
			t.Error("expected default fingerprint after disabling the override")
		}
	})

	t.Run("InvalidExpression", func(t *testing.T) {
		rr := put("credit", `{"expression":"credit_score >"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownLadder", func(t *testing.T) {
		rr := put("velocity", `{"expression":"1"}`)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := createTestServer(t)

	t.Run("Health", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp map[string]any
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "healthy" {
			t.Errorf("expected healthy, got %v", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version test-v1, got %v", resp["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("CORSPreflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/score", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := env.do(req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("expected origin echoed, got %q", got)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RequestIDPropagated", func(t *testing.T) {
		var seen string
		h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
		req.Header.Set(RequestIDHeader, "client-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if seen != "client-123" {
			t.Errorf("expected request id client-123 in context, got %q", seen)
		}
		if got := rr.Header().Get(RequestIDHeader); got != "client-123" {
			t.Errorf("expected request id echoed, got %q", got)
		}
		if got := rr.Header().Get(TraceIDHeader); got == "" {
			t.Error("expected a trace id header")
		}
	})

	t.Run("GeneratedRequestID", func(t *testing.T) {
		rr := httptest.NewRecorder()
		TracingMiddleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a generated request id")
		}
	})

	t.Run("RoutePattern", func(t *testing.T) {
		var route string
		router := chi.NewRouter()
		router.Get("/api/history/{id}", func(w http.ResponseWriter, r *http.Request) {
			route = routePattern(r)
		})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/history/42", nil))

		if route != "/api/history/{id}" {
			t.Errorf("expected route /api/history/{id}, got %q", route)
		}
		if got := routePattern(httptest.NewRequest(http.MethodGet, "/unrouted", nil)); got != "/unrouted" {
			t.Errorf("expected raw path for unrouted request, got %q", got)
		}
	})

	t.Run("StatusLevel", func(t *testing.T) {
		levels := map[int]slog.Level{
			http.StatusOK:                    slog.LevelInfo,
			http.StatusAccepted:              slog.LevelInfo,
			http.StatusBadRequest:            slog.LevelWarn,
			http.StatusRequestEntityTooLarge: slog.LevelWarn,
			http.StatusInternalServerError:   slog.LevelError,
			http.StatusServiceUnavailable:    slog.LevelError,
		}
		for code, want := range levels {
			if got := statusLevel(code); got != want {
				t.Errorf("status %d: expected %v, got %v", code, want, got)
			}
		}
	})

	t.Run("SharedResponseWriter", func(t *testing.T) {
		var inner *responseWriter
		h := TracingMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner, _ = w.(*responseWriter)
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("short and stout"))
		})))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if inner == nil {
			t.Fatal("expected the handler to see the wrapped writer")
		}
		if inner.statusCode != http.StatusTeapot || inner.bytes != len("short and stout") {
			t.Errorf("expected status 418 and 15 bytes, got %d and %d", inner.statusCode, inner.bytes)
		}
		if wrap(inner) != inner {
			t.Error("expected wrap to reuse an existing writer")
		}
	})
}

func TestValidateRequest(t *testing.T) {
	prefi := &domain.Prefi{DataEnhance: &domain.DataEnhance{}}
	plaid := &domain.Plaid{Items: []domain.PlaidItem{{}}}

	tests := []struct {
		name string
		req  *domain.ScoreRequest
		want error
	}{
		{"Valid", &domain.ScoreRequest{Prefi: prefi, Plaid: plaid}, nil},
		{"Nil", nil, ErrMissingDocuments},
		{"NoPlaid", &domain.ScoreRequest{Prefi: prefi}, ErrMissingDocuments},
		{"EmptyPrefi", &domain.ScoreRequest{Prefi: &domain.Prefi{}, Plaid: plaid}, ErrInvalidPrefi},
		{"EmptyPlaid", &domain.ScoreRequest{Prefi: prefi, Plaid: &domain.Plaid{}}, ErrInvalidPlaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRequest(tt.req); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
