package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

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
	configPath  string
	engineID    string
	ruleSet     string
	outPath     string
	description string
)

var rootCmd = &cobra.Command{
	Use:   "fixture-export",
	Short: "Write a replay fixture from one engine's recorded narrations",
	Long: `Reads the provenance log of one engine and writes a fixture holding the
content, the seed, the world and every recorded event with the text or error
it produced, so the run can be replayed later.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&dbPath, "db", "narrative.db", "path to the narrative database")
	f.StringVarP(&configPath, "config", "c", "narrate.yaml", "configuration naming the content files")
	f.StringVar(&engineID, "engine", "", "engine id to export (required when the log holds several)")
	f.StringVar(&ruleSet, "rule-set", "", "take rules from this stored rule set instead of the grammar files")
	f.StringVarP(&outPath, "out", "o", "", "output fixture JSON path")
	f.StringVar(&description, "description", "", "fixture description")
	_ = rootCmd.MarkFlagRequired("out")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract
func run(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := logging.EnsureSchema(st.DB()); err != nil {
		return err
	}

	records, err := logging.Records(st.DB(), engineID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no narrations recorded for engine %q", engineID)
	}
	if engineID == "" {
		if ids := engines(records); len(ids) > 1 {
			return fmt.Errorf("log holds %d engines, pick one with --engine: %s", len(ids), strings.Join(ids, ", "))
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	c, err := content.Load(cfg, nil)
	if err != nil {
		return err
	}
	if ruleSet != "" {
		if c.Rules, err = st.LoadRuleSet(ruleSet); err != nil {
			return err
		}
	}
	rc, err := c.Replay()
	if err != nil {
		return err
	}

	desc := description
	if desc == "" {
		desc = fmt.Sprintf("exported from %s, engine %s", dbPath, records[0].EngineID)
	}
	f, err := replay.FromRecords(desc, records, rc)
	if err != nil {
		return err
	}
	f.MaxDepth = cfg.MaxDepth
	f.WindowCapacity = cfg.WindowCapacity
	f.DefaultVoice = cfg.DefaultVoiceID()
	if err := f.Save(outPath); err != nil {
		return err
	}

	fmt.Printf("Exported %d interactions (seed %d, %d entities) to %s\n",
		len(f.Interactions), f.Seed, len(f.Entities), outPath)
	return nil
}

func engines(records []logging.NarrationRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		if !seen[r.EngineID] {
			seen[r.EngineID] = true
			out = append(out, r.EngineID)
		}
	}
	sort.Strings(out)
	return out
}

// #endregion extract
