package orchestrator

// #region imports
import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #endregion

// #region classify

// Classify turns an event into a tag and binding bundle. Tags come from the
// mood, stakes, function, outcome and event type, every participant and
// location entity tag, and rel:<type> for relationships between participants.
// If no participant plays "subject", the first one is bound to it as well.
func Classify(ev schema.Event, world schema.World) (Bundle, error) {
	fn := ev.NarrativeFn.RuleName()
	tags := map[string]struct{}{}
	add := func(t string) { tags[t] = struct{}{} }

	if ev.Mood != "" {
		add("mood:" + string(ev.Mood))
	}
	if ev.Stakes != "" {
		add("stakes:" + string(ev.Stakes))
	}
	if fn != "" {
		add("fn:" + fn)
	}
	if ev.Outcome != nil {
		add("outcome:" + string(*ev.Outcome))
	}
	if ev.Type != "" {
		add("event:" + ev.Type)
	}

	bindings := map[string]*schema.Entity{}
	participants := map[schema.EntityID]*schema.Entity{}
	var order []*schema.Entity

	for _, ref := range ev.Participants {
		e, ok := world.Entity(ref.EntityID)
		if !ok {
			return Bundle{}, fmt.Errorf("%w: participant %d (%s)", grammar.ErrEntityNotFound, ref.EntityID, ref.Role)
		}
		if _, bound := bindings[ref.Role]; !bound && ref.Role != "" {
			bindings[ref.Role] = e
		}
		if _, seen := participants[e.ID]; !seen {
			participants[e.ID] = e
			order = append(order, e)
		}
		for _, t := range e.Tags {
			add(t)
		}
	}
	if _, ok := bindings["subject"]; !ok && len(order) > 0 {
		bindings["subject"] = order[0]
	}

	if ev.Location != nil {
		loc, ok := world.Entity(ev.Location.EntityID)
		if !ok {
			return Bundle{}, fmt.Errorf("%w: location %d", grammar.ErrEntityNotFound, ev.Location.EntityID)
		}
		role := ev.Location.Role
		if role == "" {
			role = "location"
		}
		if _, bound := bindings[role]; !bound {
			bindings[role] = loc
		}
		for _, t := range loc.Tags {
			add(t)
		}
	}

	for _, e := range order {
		for _, rel := range e.Relationships {
			if _, ok := participants[rel.Target]; ok && rel.Type != "" {
				add("rel:" + rel.Type)
			}
		}
	}

	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)

	return Bundle{Tags: out, Bindings: bindings, Function: fn}, nil
}

// #endregion

// #region entry-rule

// EntryRule picks "{fn}_opening" when present, else "{fn}". Neither present
// is a RuleNotFoundError naming the bare function.
func EntryRule(rules *grammar.Store, fn string) (string, error) {
	if _, ok := rules.Get(fn + "_opening"); ok {
		return fn + "_opening", nil
	}
	if _, ok := rules.Get(fn); ok {
		return fn, nil
	}
	return "", &grammar.RuleNotFoundError{Name: fn}
}

// #endregion
