package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/narrative-engine/internal/logging"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/store"
)

// #region main
var (
	dbPath  string
	jsonOut bool
	last    int
	engine  string
)

var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect recorded narrations, rule quality and stored content",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", "narrative.db", "path to the narrative database")
	pf.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")

	narrationsCmd.Flags().IntVar(&last, "last", 20, "show the N most recent narrations")
	narrationsCmd.Flags().StringVar(&engine, "engine", "", "only narrations of this engine id")

	rootCmd.AddCommand(narrationsCmd, rulesCmd, contentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return store.Open(dbPath)
}

// #endregion main

// #region narrations
var narrationsCmd = &cobra.Command{
	Use:   "narrations",
	Short: "List recorded narrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := logging.EnsureSchema(st.DB()); err != nil {
			return err
		}

		records, err := logging.Records(st.DB(), engine)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "no narrations found")
			return nil
		}
		if last > 0 && len(records) > last {
			records = records[len(records)-last:]
		}
		if jsonOut {
			return printJSON(records)
		}

		fmt.Printf("%-10s  %7s  %-7s  %-24s  %3s  %s\n", "Engine", "Counter", "Outcome", "Rule", "Ret", "Text")
		fmt.Printf("%-10s+-%7s+-%-7s+-%-24s+-%3s+-%s\n",
			"----------", "-------", "-------", "------------------------", "---", "--------------------")
		for _, r := range records {
			text := r.Text
			if r.Outcome != "done" {
				text = r.ErrorKind + ": " + r.Error
			}
			fmt.Printf("%-10s  %7d  %-7s  %-24s  %3d  %s\n",
				shortID(r.EngineID), r.Counter, r.Outcome, dash(r.Rule), r.Retries, truncate(text, 60))
		}
		return nil
	},
}

// #endregion narrations

// #region rules
type ruleRow struct {
	Rule     string  `json:"rule"`
	Attempts int     `json:"attempts"`
	Accepted int     `json:"accepted"`
	Retries  int     `json:"retries"`
	Quality  float32 `json:"quality"`
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show per-rule attempt statistics and decayed quality",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		mem, err := orchestrator.NewAttemptMemory(st.DB(), nil)
		if err != nil {
			return err
		}
		sums, err := mem.Summaries()
		if err != nil {
			return err
		}
		rows := make([]ruleRow, 0, len(sums))
		for _, s := range sums {
			q, _, err := mem.RuleQuality(s.Rule)
			if err != nil {
				return err
			}
			rows = append(rows, ruleRow{Rule: s.Rule, Attempts: s.Attempts, Accepted: s.Accepted, Retries: s.Retries, Quality: q})
		}
		if jsonOut {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "no attempts recorded")
			return nil
		}

		fmt.Printf("%-28s  %8s  %8s  %7s  %7s\n", "Rule", "Attempts", "Accepted", "Retries", "Quality")
		fmt.Printf("%-28s+-%8s+-%8s+-%7s+-%7s\n",
			"----------------------------", "--------", "--------", "-------", "-------")
		for _, r := range rows {
			fmt.Printf("%-28s  %8d  %8d  %7d  %7.3f\n", r.Rule, r.Attempts, r.Accepted, r.Retries, r.Quality)
		}
		return nil
	},
}

// #endregion rules

// #region content
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "List stored rule sets and phrase models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sets, err := st.RuleSets()
		if err != nil {
			return err
		}
		models, err := st.PhraseModels()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]any{"rule_sets": sets, "phrase_models": models})
		}

		fmt.Println("Rule sets:")
		for _, s := range sets {
			fmt.Printf("  %-20s  %4d rules  %s  %s\n", s.Name, s.RuleCount, shortID(s.ID), s.CreatedAt)
		}
		fmt.Println("\nPhrase models:")
		for _, m := range models {
			fmt.Printf("  %-20s  order %d  tags [%s]  %s\n", m.CorpusID, m.Order, strings.Join(m.Tags, ", "), m.UpdatedAt)
		}
		return nil
	},
}

// #endregion content

// #region output
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
