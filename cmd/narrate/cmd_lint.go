package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/eval"
)

var (
	minAlternatives int
	strictLint      bool
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check grammars and voices for authoring mistakes",
	Args:  cobra.NoArgs,
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().IntVar(&minAlternatives, "min-alternatives", 3, "warn for rules with fewer alternatives")
	lintCmd.Flags().BoolVar(&strictLint, "strict", false, "treat warnings as failures")
}

func runLint(cmd *cobra.Command, args []string) error {
	c, err := content.Load(cfg, logger)
	if err != nil {
		return err
	}
	lc := eval.DefaultLintConfig()
	lc.MinAlternatives = minAlternatives
	lc.KnownCorpora = c.Library.IDs()

	report := eval.NewLinter(lc).Run(c.Rules, c.Voices)
	for _, f := range report.Findings {
		rule := f.Rule
		if rule == "" {
			rule = "-"
		}
		fmt.Printf("%-8s %-15s %-24s %s\n", f.Severity, f.Check, rule, f.Message)
	}
	fmt.Printf("\n%d errors, %d warnings\n", len(report.Errors()), len(report.Warnings()))

	if !report.Passed || (strictLint && len(report.Warnings()) > 0) {
		return fmt.Errorf("%s", report.Reason)
	}
	return nil
}
