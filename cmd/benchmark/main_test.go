package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	write("a-prefi.json", `{"Offers":[{"Score":700}]}`)
	write("a-plaid.json", `{"items":[{"accounts":[]}]}`)
	write("outcomes.csv", "prefi,plaid,defaulted\na-prefi.json,a-plaid.json,1\na-prefi.json,a-plaid.json,0\n")

	t.Run("ReadsAllRows", func(t *testing.T) {
		applicants, err := readManifest(filepath.Join(dir, "outcomes.csv"), 0)
		if err != nil {
			t.Fatalf("readManifest failed: %v", err)
		}
		if len(applicants) != 2 {
			t.Fatalf("expected 2 applicants, got %d", len(applicants))
		}
		if !applicants[0].Defaulted || applicants[1].Defaulted {
			t.Errorf("unexpected labels: %v, %v", applicants[0].Defaulted, applicants[1].Defaulted)
		}
		if applicants[0].Name != "a-prefi" {
			t.Errorf("expected name a-prefi, got %s", applicants[0].Name)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		applicants, err := readManifest(filepath.Join(dir, "outcomes.csv"), 1)
		if err != nil {
			t.Fatalf("readManifest failed: %v", err)
		}
		if len(applicants) != 1 {
			t.Errorf("expected 1 applicant, got %d", len(applicants))
		}
	})

	t.Run("MissingColumn", func(t *testing.T) {
		write("bad.csv", "prefi,plaid\na-prefi.json,a-plaid.json\n")
		if _, err := readManifest(filepath.Join(dir, "bad.csv"), 0); err == nil {
			t.Error("expected error for missing defaulted column")
		}
	})
}

func TestMetricsRecord(t *testing.T) {
	m := &Metrics{}
	m.record(20, true, 27)  // TP
	m.record(20, false, 27) // FP
	m.record(35, false, 27) // TN
	m.record(35, true, 27)  // FN
	m.record(27, false, 27) // TN at the cutoff

	if m.TruePositives != 1 || m.FalsePositives != 1 || m.TrueNegatives != 2 || m.FalseNegatives != 1 {
		t.Errorf("unexpected confusion matrix: %+v", m)
	}
	if m.TotalDefaulted != 2 || m.TotalGood != 3 {
		t.Errorf("unexpected label counts: %d defaulted, %d good", m.TotalDefaulted, m.TotalGood)
	}
	if m.Distribution[20-minTotal] != 2 || m.Distribution[35-minTotal] != 2 {
		t.Errorf("unexpected distribution: %v", m.Distribution)
	}
}
