// Package cli implements the underwrite-cli commands, which score local
// prefi/plaid files without a database or a server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/underwrite/internal/cache"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/rules"
	"github.com/opensource-finance/underwrite/internal/scoring"
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "underwrite-cli",
		Short: "Score loan applicants from local bureau and bank documents",
		Long: `underwrite-cli runs the scoring engine against prefi and plaid JSON files.

Results are computed in-process with the built-in ladders; nothing is persisted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().String("format", "json", "Output format (json or yaml)")

	root.AddCommand(newScoreCmd())
	root.AddCommand(newDebitsCmd())
	root.AddCommand(newPatternsCmd())
	root.AddCommand(newAccountsCmd())
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newScorer() (*scoring.Scorer, error) {
	engine, err := rules.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("init ladder engine: %w", err)
	}
	return scoring.New(cache.NewLRUCache(0), engine), nil
}

func readPrefi(path string) (*domain.Prefi, error) {
	var prefi domain.Prefi
	if err := readJSON(path, &prefi); err != nil {
		return nil, fmt.Errorf("invalid prefi JSON: %w", err)
	}
	return &prefi, nil
}

func readPlaid(path string) (*domain.Plaid, error) {
	var plaid domain.Plaid
	if err := readJSON(path, &plaid); err != nil {
		return nil, fmt.Errorf("invalid plaid JSON: %w", err)
	}
	return &plaid, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return writeYAML(out, v)
	}
	return fmt.Errorf("unknown format %q", format)
}

// writeYAML renders v through its JSON encoding so field names and null
// handling match the HTTP responses.
func writeYAML(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
