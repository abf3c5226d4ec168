package logging

import (
	"time"

	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	EngineID    string
	Counter     uint64
	EventHash   string
	TriggerType string
	RecordJSON  string
	Rule        string
	Decision    string // "done" | "failed" | "error"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region narration-record
// NarrationRecord captures everything a single Narrate call consumed and
// produced. Serialized as JSON into provenance_log.record_json so the call can
// be replayed against the same content.
type NarrationRecord struct {
	EngineID string           `json:"engine_id"`
	Seed     uint64           `json:"seed"`
	Counter  uint64           `json:"counter"`
	Event    schema.Event     `json:"event"`
	Entities []*schema.Entity `json:"entities"`

	// Outcome of the call
	Rule      string `json:"rule,omitempty"`
	Voice     string `json:"voice,omitempty"`
	Outcome   string `json:"outcome"`
	Retries   int    `json:"retries"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// #endregion narration-record
