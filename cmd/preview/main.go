package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/narrative-engine/internal/config"
	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/logging"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	textStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("230"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	retryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// #endregion styles

// #region main
var (
	configPath string
	worldPath  string
	seed       uint64
)

var rootCmd = &cobra.Command{
	Use:   "preview",
	Short: "Interactive narration shell for content authors",
	Long: `Reads events from stdin as "<function> <subject> [object] [location]" using
entity ids from the world file, and prints each narration with the rule,
voice and retries that produced it.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "narrate.yaml", "configuration file")
	rootCmd.Flags().StringVarP(&worldPath, "world", "w", "", "JSON file with an \"entities\" list")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "seed (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	log, err := logging.New("warn")
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := content.Load(cfg, log)
	if err != nil {
		return err
	}
	world, err := loadWorld(worldPath)
	if err != nil {
		return err
	}
	engine := c.NewEngine(cfg.Seed, orchestrator.WithLogger(log))

	fmt.Println(titleStyle.Render("Narrative preview ready."))
	fmt.Println(statsStyle.Render(fmt.Sprintf("  seed %d | %d rules | %d entities", cfg.Seed, c.Rules.Len(), len(world.Entities))))
	fmt.Println(statsStyle.Render("  <function> <subject> [object] [location] | mood <m> | stakes <s> | window | quit"))

	sh := &shell{engine: engine, world: world, mood: schema.MoodNeutral, stakes: schema.StakesMedium}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		sh.handle(line)
	}
	return scanner.Err()
}

// #endregion main

// #region shell
type shell struct {
	engine *orchestrator.Engine
	world  schema.World
	mood   schema.Mood
	stakes schema.Stakes
}

func (s *shell) handle(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "mood":
		if len(fields) == 2 {
			s.mood = schema.Mood(fields[1])
		}
		fmt.Println(statsStyle.Render("mood: " + string(s.mood)))
		return
	case "stakes":
		if len(fields) == 2 {
			s.stakes = schema.Stakes(fields[1])
		}
		fmt.Println(statsStyle.Render("stakes: " + string(s.stakes)))
		return
	case "window":
		snap := s.engine.Window().Snapshot()
		for i, f := range snap.Records {
			fmt.Println(statsStyle.Render(fmt.Sprintf("  %d. %q sentences=%v", i, f.Opening, f.SentenceLengths)))
		}
		return
	}

	ev, err := s.parseEvent(fields)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	res, err := s.engine.NarrateDetailed(ev, s.world)
	if err != nil {
		kind := orchestrator.ErrorKind(err)
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s: %v", kind, err)))
		return
	}

	fmt.Printf("\n%s\n\n", textStyle.Render(res.Text))
	stats := fmt.Sprintf("[%d] rule=%s voice=%s", res.Counter, res.Rule, res.Voice)
	if res.Retries > 0 {
		fmt.Println(statsStyle.Render(stats) + " " + retryStyle.Render(fmt.Sprintf("retries=%d", res.Retries)))
	} else {
		fmt.Println(statsStyle.Render(stats))
	}
}

func (s *shell) parseEvent(fields []string) (schema.Event, error) {
	if len(fields) < 2 {
		return schema.Event{}, fmt.Errorf("usage: <function> <subject> [object] [location]")
	}
	ids := make([]schema.EntityID, 0, 3)
	for _, f := range fields[1:] {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return schema.Event{}, fmt.Errorf("entity id %q: %w", f, err)
		}
		ids = append(ids, schema.EntityID(n))
	}

	ev := schema.Event{
		Type:         "preview",
		Participants: []schema.EntityRef{{EntityID: ids[0], Role: "subject"}},
		Mood:         s.mood,
		Stakes:       s.stakes,
		NarrativeFn:  schema.NarrativeFunction(fields[0]),
	}
	if len(ids) > 1 {
		ev.Participants = append(ev.Participants, schema.EntityRef{EntityID: ids[1], Role: "object"})
	}
	if len(ids) > 2 {
		ev.Location = &schema.EntityRef{EntityID: ids[2], Role: "location"}
	}
	return ev, nil
}

// #endregion shell

// #region helpers
func loadWorld(path string) (schema.World, error) {
	if path == "" {
		return schema.NewWorld(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.World{}, fmt.Errorf("read world: %w", err)
	}
	var f struct {
		Entities []*schema.Entity `json:"entities"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return schema.World{}, fmt.Errorf("parse world %s: %w", path, err)
	}
	return schema.NewWorld(f.Entities...), nil
}

// #endregion helpers
