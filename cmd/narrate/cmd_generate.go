package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/store"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

var (
	genSession string
	genResume  bool
	genRuleSet string
	genJSON    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <events.json>",
	Short: "Narrate a sequence of events with one engine",
	Long: `Narrates every event in the file in order with a single engine, records
each narration in the provenance log and stores the final context window under
the session name.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genSession, "session", "", "session name for provenance and window snapshots (default random)")
	f.BoolVar(&genResume, "resume", false, "start from the session's last stored context window")
	f.StringVar(&genRuleSet, "rule-set", "", "load rules and phrase models from the database instead of files")
	f.BoolVar(&genJSON, "json", false, "print one JSON object per narration")
}

type generated struct {
	Counter uint64 `json:"counter"`
	Text    string `json:"text,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Retries int    `json:"retries"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"error_kind,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	events, err := loadEvents(args[0])
	if err != nil {
		return err
	}
	c, err := content.Load(cfg, logger)
	if err != nil {
		return err
	}
	rec, err := openRecorder()
	if err != nil {
		return err
	}
	defer rec.Close()

	if genRuleSet != "" {
		if err := fromDatabase(c, rec.store, genRuleSet); err != nil {
			return err
		}
	}

	session := genSession
	if session == "" {
		session = uuid.New().String()
	}
	engineID := session
	opts := rec.options()
	if genResume {
		snap, at, err := rec.store.LatestSnapshot(session)
		switch {
		case errors.Is(err, store.ErrNotFound):
			logger.Info("no snapshot to resume", zap.String("session", session))
		case err != nil:
			return err
		default:
			opts = append(opts, orchestrator.WithWindow(window.Restore(snap)))
			// a resumed engine restarts its counter, so it logs under its own id
			engineID = fmt.Sprintf("%s@%d", session, at)
			logger.Info("resumed window", zap.String("session", session), zap.Uint64("after", at), zap.Int("records", len(snap.Records)))
		}
	}
	opts = append(opts, orchestrator.WithID(engineID))
	engine := c.NewEngine(cfg.Seed, opts...)

	world := events.World()
	enc := json.NewEncoder(os.Stdout)
	failures := 0
	for _, ev := range events.Events {
		res, err := engine.NarrateDetailed(ev, world)
		out := generated{Counter: engine.Counter() - 1}
		if err != nil {
			failures++
			out.Error = err.Error()
			out.Kind = orchestrator.ErrorKind(err)
		} else {
			out.Text, out.Rule, out.Voice, out.Retries = res.Text, res.Rule, res.Voice, res.Retries
		}
		if genJSON {
			if err := enc.Encode(out); err != nil {
				return err
			}
			continue
		}
		if out.Error != "" {
			fmt.Printf("[%d] error (%s): %s\n", out.Counter, out.Kind, out.Error)
		} else {
			fmt.Printf("[%d] %s\n", out.Counter, out.Text)
		}
	}

	if _, err := rec.store.SaveSnapshot(session, engine.Counter(), engine.Window().Snapshot()); err != nil {
		return err
	}
	if !genJSON {
		fmt.Printf("\nengine %s seed %d: %d narrations, %d failed\n", engineID, cfg.Seed, len(events.Events), failures)
	}
	if failures == len(events.Events) {
		return fmt.Errorf("every narration failed")
	}
	return nil
}

// fromDatabase swaps the file content for a stored rule set and the stored
// phrase models.
func fromDatabase(c *content.Content, st *store.Store, name string) error {
	rules, err := st.LoadRuleSet(name)
	if err != nil {
		return err
	}
	lib, err := st.Library()
	if err != nil {
		return err
	}
	c.Rules, c.Library = rules, lib
	return nil
}
