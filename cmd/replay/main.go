package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/narrative-engine/internal/config"
	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/logging"
	"github.com/danielpatrickdp/narrative-engine/internal/replay"
	"github.com/danielpatrickdp/narrative-engine/internal/store"
)

// #region main
var (
	dbPath      string
	fixturePath string
	configPath  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded narrations and report drift",
	Long: `Fixture mode replays a fixture file against the content it embeds.
DB mode replays every engine recorded in a database against the current
content files, so content edits that change output show up as drift.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (dbPath == "") == (fixturePath == "") {
			return fmt.Errorf("exactly one of --db or --fixture is required")
		}
		var code int
		var err error
		if fixturePath != "" {
			code, err = runFixtureMode(fixturePath)
		} else {
			code, err = runDBMode(dbPath, configPath)
		}
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&dbPath, "db", "", "path to the narrative database (DB mode)")
	f.StringVar(&fixturePath, "fixture", "", "path to fixture JSON (fixture mode)")
	f.StringVarP(&configPath, "config", "c", "narrate.yaml", "content configuration for DB mode")
	f.BoolVarP(&verbose, "verbose", "v", false, "print replayed text for every interaction")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

// #endregion main

// #region modes
func runFixtureMode(path string) (int, error) {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return 0, err
	}
	results, err := replay.Replay(f)
	if err != nil {
		return 0, err
	}
	fmt.Printf("Fixture: %s (seed %d)\n\n", f.Description, f.Seed)
	return printComparison(results), nil
}

func runDBMode(dbPath, configPath string) (int, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer st.Close()
	if err := logging.EnsureSchema(st.DB()); err != nil {
		return 0, err
	}
	records, err := logging.Records(st.DB(), "")
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no narrations recorded in %s", dbPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return 0, err
	}
	c, err := content.Load(cfg, nil)
	if err != nil {
		return 0, err
	}
	rc, err := c.Replay()
	if err != nil {
		return 0, err
	}

	exit := 0
	for _, group := range byEngine(records) {
		f, err := replay.FromRecords(group[0].EngineID, group, rc)
		if err != nil {
			// resumed or partial sessions cannot be replayed from counter zero
			fmt.Printf("Engine %s: skipped (%v)\n\n", group[0].EngineID, err)
			continue
		}
		f.MaxDepth = cfg.MaxDepth
		f.WindowCapacity = cfg.WindowCapacity
		f.DefaultVoice = cfg.DefaultVoiceID()

		results, err := replay.Replay(f)
		if err != nil {
			return 0, err
		}
		fmt.Printf("Engine %s (seed %d)\n", group[0].EngineID, f.Seed)
		if code := printComparison(results); code > exit {
			exit = code
		}
		fmt.Println()
	}
	return exit, nil
}

// byEngine splits records, already ordered by engine and counter, into one
// slice per engine.
func byEngine(records []logging.NarrationRecord) [][]logging.NarrationRecord {
	var out [][]logging.NarrationRecord
	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || records[i].EngineID != records[start].EngineID {
			out = append(out, records[start:i])
			start = i
		}
	}
	return out
}

// #endregion modes

// #region output

// printComparison outputs a verdict table and returns the exit code: 1 when
// any interaction drifted.
func printComparison(results []replay.ReplayResult) int {
	fmt.Printf("%-6s| %-10s| %-24s| %s\n", "Index", "Verdict", "Rule", "Detail")
	fmt.Printf("%-6s+%-11s+%-25s+%s\n", "------", "-----------", "-------------------------", "--------")

	for _, r := range results {
		detail := r.Reason
		if detail == "" && verbose {
			detail = r.Text
			if r.Err != nil {
				detail = r.ErrorKind
			}
		}
		rule := r.Rule
		if rule == "" {
			rule = "-"
		}
		fmt.Printf("%-6d| %-10s| %-24s| %s\n", r.Index, r.Verdict, rule, detail)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d drift, %d unchecked, %d errors, %d retries\n",
		s.Total, s.Matches, s.Drifts, s.Unchecked, s.Errors, s.Retries)
	if s.Drifts > 0 {
		return 1
	}
	return 0
}

// #endregion output
