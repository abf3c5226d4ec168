package logging

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region schema
const provenanceSchema = `
CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	engine_id     TEXT NOT NULL,
	counter       INTEGER NOT NULL,
	event_hash    TEXT,
	trigger_type  TEXT NOT NULL,
	record_json   TEXT,
	rule          TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`

// EnsureSchema creates the provenance_log table if it is missing.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(provenanceSchema); err != nil {
		return fmt.Errorf("provenance schema: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (engine_id, counter, event_hash, trigger_type, record_json, rule, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EngineID,
		int64(entry.Counter),
		nullIfEmpty(entry.EventHash),
		entry.TriggerType,
		nullIfEmpty(entry.RecordJSON),
		nullIfEmpty(entry.Rule),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region records
// Records returns the narration records logged for engineID in counter
// order. An empty engineID returns every record.
func Records(db *sql.DB, engineID string) ([]NarrationRecord, error) {
	query := `SELECT record_json FROM provenance_log WHERE record_json IS NOT NULL`
	var args []any
	if engineID != "" {
		query += ` AND engine_id = ?`
		args = append(args, engineID)
	}
	query += ` ORDER BY engine_id, counter, id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []NarrationRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec NarrationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion records

// #region provenance-observer
// Provenance logs every finished narration to provenance_log.
type Provenance struct {
	db  *sql.DB
	log *zap.Logger
}

// NewProvenance ensures the schema and returns an observer writing to db.
func NewProvenance(db *sql.DB, log *zap.Logger) (*Provenance, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provenance{db: db, log: log.Named("provenance")}, nil
}

// AttemptFinished implements orchestrator.Observer. Attempts are kept by the
// attempt memory, not here.
func (p *Provenance) AttemptFinished(orchestrator.AttemptReport) {}

// NarrationFinished implements orchestrator.Observer.
func (p *Provenance) NarrationFinished(rep orchestrator.NarrationReport) {
	rec := RecordFromReport(rep)
	data, err := json.Marshal(rec)
	if err != nil {
		p.log.Warn("encode narration record", zap.Error(err))
		return
	}
	entry := ProvenanceEntry{
		EngineID:    rep.EngineID,
		Counter:     rep.Counter,
		EventHash:   EventHash(rep.Event),
		TriggerType: "narrate",
		RecordJSON:  string(data),
		Rule:        rep.Rule,
		Decision:    rep.Outcome,
		Reason:      rec.Error,
	}
	if err := LogDecision(p.db, entry); err != nil {
		p.log.Warn("provenance write failed", zap.Error(err), zap.Uint64("counter", rep.Counter))
	}
}

// RecordFromReport flattens a report into its serialized form.
func RecordFromReport(rep orchestrator.NarrationReport) NarrationRecord {
	rec := NarrationRecord{
		EngineID: rep.EngineID,
		Seed:     rep.Seed,
		Counter:  rep.Counter,
		Event:    rep.Event,
		Entities: rep.Entities,
		Rule:     rep.Rule,
		Voice:    rep.Voice,
		Outcome:  rep.Outcome,
		Retries:  rep.Retries,
		Text:     rep.Text,
	}
	if rep.Err != nil {
		rec.Error = rep.Err.Error()
		rec.ErrorKind = orchestrator.ErrorKind(rep.Err)
	}
	if rep.Duration > 0 {
		rec.Duration = rep.Duration.String()
	}
	return rec
}

// #endregion provenance-observer

// #region helpers
// EventHash is a short content hash of an event, used to group narrations of
// identical events.
func EventHash(ev schema.Event) string {
	data, err := json.Marshal(ev)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
