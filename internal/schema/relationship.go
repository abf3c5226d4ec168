package schema

// #region relationship

// Relationship is a typed, directional edge between two entities. The engine
// only uses its type and tags for set membership.
type Relationship struct {
	Source    EntityID `json:"source"`
	Target    EntityID `json:"target"`
	Type      string   `json:"type"`
	Intensity float64  `json:"intensity"`
	Tags      []string `json:"tags,omitempty"`
}

// NewRelationship builds a relationship with intensity clamped to [0, 1].
func NewRelationship(source, target EntityID, relType string, intensity float64, tags ...string) Relationship {
	return Relationship{
		Source:    source,
		Target:    target,
		Type:      relType,
		Intensity: clamp01(intensity),
		Tags:      tags,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// #endregion
