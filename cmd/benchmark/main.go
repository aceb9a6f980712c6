// Benchmark tool for calibrating underwrite against labelled loan outcomes.
//
// Usage:
//
//	go run ./cmd/benchmark -manifest /path/to/outcomes.csv -url http://localhost:3001
//
// The manifest is a CSV with the header prefi,plaid,defaulted. Document paths
// are resolved relative to the manifest; defaulted is 1 for a loan that went
// bad and 0 otherwise. Each pair is posted to /api/score and an applicant whose
// total falls below -cutoff is treated as a predicted default.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
)

const (
	minTotal = 9
	maxTotal = 45
)

// Applicant is one manifest row with its documents loaded.
type Applicant struct {
	Name      string
	Prefi     json.RawMessage
	Plaid     json.RawMessage
	Defaulted bool
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Default predicted as decline
	FalsePositives int64 // Good loan predicted as decline
	TrueNegatives  int64 // Good loan predicted as approve
	FalseNegatives int64 // Default predicted as approve

	TotalProcessed int64
	TotalDefaulted int64
	TotalGood      int64
	TotalErrors    int64

	ProcessingTimeMs int64

	// Distribution counts totals, indexed by total-minTotal.
	Distribution [maxTotal - minTotal + 1]int64
}

func main() {
	manifestPath := flag.String("manifest", "", "Path to the outcomes CSV manifest")
	baseURL := flag.String("url", "http://localhost:3001", "underwrite base URL")
	cutoff := flag.Int("cutoff", 27, "Totals below this are predicted defaults")
	limit := flag.Int("limit", 0, "Maximum applicants to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each applicant result")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Println("Usage: benchmark -manifest /path/to/outcomes.csv [-url http://localhost:3001]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|          UNDERWRITE BENCHMARK - Loan Outcome Calibration      |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Printf("\nManifest:    %s\n", *manifestPath)
	fmt.Printf("URL:         %s\n", *baseURL)
	fmt.Printf("Cutoff:      %d\n", *cutoff)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: underwrite not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the server is running:")
		fmt.Println("  go run ./cmd/underwrite")
		os.Exit(1)
	}
	fmt.Println("underwrite is healthy")

	applicants, err := readManifest(*manifestPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read manifest: %v\n", err)
		os.Exit(1)
	}
	if len(applicants) == 0 {
		fmt.Println("ERROR: manifest has no applicants")
		os.Exit(1)
	}
	fmt.Printf("Loaded %d applicants\n", len(applicants))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(applicants, *baseURL, *cutoff, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, *cutoff, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readManifest(path string, limit int) ([]Applicant, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"prefi", "plaid", "defaulted"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("manifest is missing the %q column", col)
		}
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var applicants []Applicant
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		prefiPath := resolve(record[colIndex["prefi"]])
		prefi, err := os.ReadFile(prefiPath)
		if err != nil {
			return nil, err
		}
		plaid, err := os.ReadFile(resolve(record[colIndex["plaid"]]))
		if err != nil {
			return nil, err
		}

		applicants = append(applicants, Applicant{
			Name:      strings.TrimSuffix(filepath.Base(prefiPath), filepath.Ext(prefiPath)),
			Prefi:     prefi,
			Plaid:     plaid,
			Defaulted: strings.TrimSpace(record[colIndex["defaulted"]]) == "1",
		})

		if limit > 0 && len(applicants) >= limit {
			break
		}
	}

	return applicants, nil
}

func runBenchmark(applicants []Applicant, baseURL string, cutoff, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Applicant, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for a := range work {
				start := time.Now()
				result, err := scoreApplicant(client, baseURL, a)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", a.Name, err)
					}
					continue
				}

				metrics.record(result.TotalScore, a.Defaulted, cutoff)

				if verbose {
					predicted := result.TotalScore < cutoff
					status := "ok"
					if predicted != a.Defaulted {
						status = "MISS"
					}
					fmt.Printf("%-4s %-24s | core %2d | bayesian %2d | total %2d | defaulted %-5v\n",
						status,
						a.Name,
						result.CoreScore,
						result.BayesianScore,
						result.TotalScore,
						a.Defaulted,
					)
				}
			}
		}()
	}

	for _, a := range applicants {
		work <- a
	}
	close(work)

	wg.Wait()

	return metrics
}

// record adds one scored applicant. Safe for concurrent use.
func (m *Metrics) record(total int, defaulted bool, cutoff int) {
	if defaulted {
		atomic.AddInt64(&m.TotalDefaulted, 1)
	} else {
		atomic.AddInt64(&m.TotalGood, 1)
	}
	if total >= minTotal && total <= maxTotal {
		atomic.AddInt64(&m.Distribution[total-minTotal], 1)
	}

	predicted := total < cutoff
	switch {
	case predicted && defaulted:
		atomic.AddInt64(&m.TruePositives, 1)
	case predicted && !defaulted:
		atomic.AddInt64(&m.FalsePositives, 1)
	case !predicted && !defaulted:
		atomic.AddInt64(&m.TrueNegatives, 1)
	default:
		atomic.AddInt64(&m.FalseNegatives, 1)
	}
}

func scoreApplicant(client *http.Client, baseURL string, a Applicant) (*domain.ScoreResult, error) {
	body, err := json.Marshal(map[string]json.RawMessage{
		"prefi": a.Prefi,
		"plaid": a.Plaid,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, cutoff int, duration time.Duration) {
	fmt.Println("\n+---------------------------------------------------------------+")
	fmt.Println("|                      BENCHMARK RESULTS                        |")
	fmt.Println("+---------------------------------------------------------------+")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Defaulted:        %d\n", m.TotalDefaulted)
	fmt.Printf("   Repaid:           %d\n", m.TotalGood)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nSCORE DISTRIBUTION\n")
	var peak int64
	for _, n := range m.Distribution {
		peak = max(peak, n)
	}
	for i, n := range m.Distribution {
		if n == 0 {
			continue
		}
		bar := int(n * 40 / peak)
		marker := " "
		if minTotal+i < cutoff {
			marker = "<"
		}
		fmt.Printf("   %s %2d | %-40s %d\n", marker, minTotal+i, strings.Repeat("#", max(bar, 1)), n)
	}

	fmt.Printf("\nCONFUSION MATRIX (cutoff %d)\n", cutoff)
	fmt.Println("                        Predicted")
	fmt.Println("                  DECLINE    APPROVE")
	fmt.Println("              +----------+----------+")
	fmt.Printf("   Actual  D  | %8d | %8d |  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              +----------+----------+")
	fmt.Printf("           R  | %8d | %8d |  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              +----------+----------+")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\nCALIBRATION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of declines, how many defaulted)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of defaults, how many were declined)\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	if m.TotalGood > 0 {
		rate := float64(m.FalsePositives) / float64(m.TotalGood) * 100
		fmt.Printf("   Good loans declined: %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalGood, rate)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f applicants/sec\n", rps)
	}

	fmt.Println()
}
