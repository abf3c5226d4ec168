package orchestrator

// #region imports
import (
	"fmt"

	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// #endregion

// #region voice-selection

// VoiceSelector picks and resolves the voice for a bundle.
type VoiceSelector struct {
	registry *voice.Registry
	fallback *schema.VoiceID
	cache    map[schema.VoiceID]*voice.Resolved
}

// NewVoiceSelector creates a selector. registry may be nil, in which case
// every narration uses the empty voice.
func NewVoiceSelector(registry *voice.Registry, fallback *schema.VoiceID) *VoiceSelector {
	return &VoiceSelector{registry: registry, fallback: fallback, cache: map[schema.VoiceID]*voice.Resolved{}}
}

// Select returns the subject's voice, else the fallback voice, else the
// empty voice. A voice id that does not resolve is an error.
func (s *VoiceSelector) Select(b Bundle) (*voice.Resolved, error) {
	var id *schema.VoiceID
	if subj, ok := b.Bindings["subject"]; ok && subj.VoiceID != nil {
		id = subj.VoiceID
	} else if s.fallback != nil {
		id = s.fallback
	}
	if id == nil || s.registry == nil {
		return voice.Empty(), nil
	}
	if r, ok := s.cache[*id]; ok {
		return r, nil
	}
	r, err := s.registry.Resolve(*id)
	if err != nil {
		return nil, fmt.Errorf("select voice: %w", err)
	}
	s.cache[*id] = r
	return r, nil
}

// #endregion
