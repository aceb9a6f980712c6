package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/underwrite/internal/domain"
)

const (
	bureauPrefi = `{"Offers":[{"Score":"810"}]}`
	salaryPlaid = `{"report":{"items":[{"accounts":[{"account_id":"acc-1","name":"Checking","transactions":[
		{"date":"2025-01-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-02-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-03-01","amount":-4000,"category":["Transfer","Payroll"],"name":"ACME PAYROLL"},
		{"date":"2025-02-10","amount":120.5,"category":["Shops"],"name":"Grocer"},
		{"date":"2025-02-12","amount":900,"category":["Payment","Rent"],"name":"Landlord"}
	]}]}]}}`
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	prefi := writeDoc(t, "prefi.json", bureauPrefi)
	plaid := writeDoc(t, "plaid.json", `{"items":[{"accounts":[]}]}`)

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "score", "--prefi", prefi, "--plaid", plaid)
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}

		var res domain.ScoreResult
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("failed to parse output: %v\n%s", err, out)
		}
		if res.CoreScore != 20 || res.BayesianScore != 15 || res.TotalScore != 35 {
			t.Errorf("expected 20/15/35, got %d/%d/%d", res.CoreScore, res.BayesianScore, res.TotalScore)
		}
	})

	t.Run("YAML", func(t *testing.T) {
		out, err := run(t, "score", "--prefi", prefi, "--plaid", plaid, "--format", "yaml")
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}
		if strings.HasPrefix(strings.TrimSpace(out), "{") {
			t.Fatalf("expected block style yaml, got:\n%s", out)
		}

		var res map[string]any
		if err := yaml.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("failed to parse yaml: %v", err)
		}
		if res["totalScore"] != 35 {
			t.Errorf("expected totalScore 35, got %v", res["totalScore"])
		}
		details, ok := res["details"].(map[string]any)
		if !ok {
			t.Fatalf("expected details mapping, got %T", res["details"])
		}
		if v, present := details["yearsSinceLastLate"]; !present || v != nil {
			t.Errorf("expected null yearsSinceLastLate, got %v", v)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		if _, err := run(t, "score", "--prefi", prefi, "--plaid", plaid, "--format", "xml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("MissingFlag", func(t *testing.T) {
		if _, err := run(t, "score", "--prefi", prefi); err == nil {
			t.Error("expected error without --plaid")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		bad := writeDoc(t, "bad.json", "{not json")
		_, err := run(t, "score", "--prefi", bad, "--plaid", plaid)
		if err == nil || !strings.Contains(err.Error(), "invalid prefi JSON") {
			t.Errorf("expected invalid prefi JSON error, got %v", err)
		}
	})
}

func TestReportCommands(t *testing.T) {
	plaid := writeDoc(t, "plaid.json", salaryPlaid)

	t.Run("Debits", func(t *testing.T) {
		out, err := run(t, "debits", "--plaid", plaid)
		if err != nil {
			t.Fatalf("debits failed: %v", err)
		}
		var report domain.DebitReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if len(report.AllDebits) != 2 || report.TotalDebits != 1020.5 {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("DebitsLimit", func(t *testing.T) {
		out, err := run(t, "debits", "--plaid", plaid, "--limit", "1")
		if err != nil {
			t.Fatalf("debits failed: %v", err)
		}
		var report domain.DebitReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if len(report.AllDebits) != 1 || report.AllDebits[0].Amount != 900 {
			t.Errorf("expected only the 900 debit, got %+v", report.AllDebits)
		}
		if report.TotalDebits != 1020.5 {
			t.Errorf("expected total to cover every debit, got %v", report.TotalDebits)
		}
	})

	t.Run("Patterns", func(t *testing.T) {
		out, err := run(t, "patterns", "--plaid", plaid)
		if err != nil {
			t.Fatalf("patterns failed: %v", err)
		}
		var resp patternsOutput
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("failed to parse patterns: %v", err)
		}
		if resp.HeuristicMonthlyIncome != 4000 {
			t.Errorf("expected heuristic income 4000, got %v", resp.HeuristicMonthlyIncome)
		}
	})

	t.Run("Accounts", func(t *testing.T) {
		out, err := run(t, "accounts", "--plaid", plaid)
		if err != nil {
			t.Fatalf("accounts failed: %v", err)
		}
		var logs map[string]domain.AccountIncomeLog
		if err := json.Unmarshal([]byte(out), &logs); err != nil {
			t.Fatalf("failed to parse log: %v", err)
		}
		if logs["acc-1"].Name != "Checking" || len(logs["acc-1"].IncomeTransactions) != 3 {
			t.Errorf("unexpected account log: %+v", logs)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := run(t, "debits", "--plaid", filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
