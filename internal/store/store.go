// Package store persists authored content and engine state in SQLite: rule
// sets, trained phrase models and context window snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

// ErrNotFound is returned when a named row does not exist.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS rule_sets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	rule_count  INTEGER NOT NULL,
	body        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS phrase_models (
	corpus_id   TEXT PRIMARY KEY,
	ord         INTEGER NOT NULL,
	tags        TEXT NOT NULL DEFAULT '[]',
	body        TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS window_snapshots (
	id          TEXT PRIMARY KEY,
	engine_id   TEXT NOT NULL,
	counter     INTEGER NOT NULL,
	body        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_sets_name ON rule_sets(name, created_at);
CREATE INDEX IF NOT EXISTS idx_window_snapshots_engine ON window_snapshots(engine_id, counter);
`

// #endregion schema

// #region store-struct

// Store wraps the content database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. attempt
// memory and provenance).
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// #endregion constructor

// #region rule-sets

// RuleSetInfo describes a stored rule set version.
type RuleSetInfo struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	RuleCount int    `db:"rule_count"`
	CreatedAt string `db:"created_at"`
}

// SaveRuleSet stores a new version of the named rule set and returns its id.
func (s *Store) SaveRuleSet(name string, rules *grammar.Store) (string, error) {
	body, err := rules.EncodeYAML()
	if err != nil {
		return "", fmt.Errorf("encode rules: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO rule_sets (id, name, rule_count, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, rules.Len(), string(body), s.stamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert rule set: %w", err)
	}
	return id, nil
}

// LoadRuleSet returns the newest version of the named rule set.
func (s *Store) LoadRuleSet(name string) (*grammar.Store, error) {
	var body string
	err := s.db.Get(&body,
		`SELECT body FROM rule_sets WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule set %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query rule set: %w", err)
	}
	return grammar.ParseYAML([]byte(body))
}

// RuleSets lists every stored version, newest first.
func (s *Store) RuleSets() ([]RuleSetInfo, error) {
	var out []RuleSetInfo
	err := s.db.Select(&out,
		`SELECT id, name, rule_count, created_at FROM rule_sets ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	return out, nil
}

// #endregion rule-sets

// #region phrase-models

type phraseRow struct {
	CorpusID  string `db:"corpus_id"`
	Order     int    `db:"ord"`
	Tags      string `db:"tags"`
	Body      string `db:"body"`
	UpdatedAt string `db:"updated_at"`
}

// PhraseModelInfo describes a stored phrase model without its tables.
type PhraseModelInfo struct {
	CorpusID  string
	Order     int
	Tags      []string
	UpdatedAt string
}

// SavePhraseModel stores m under corpusID, replacing any previous model.
func (s *Store) SavePhraseModel(corpusID string, m *markov.Model) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	tags, err := json.Marshal(m.Tags())
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.NamedExec(`
		INSERT INTO phrase_models (corpus_id, ord, tags, body, updated_at)
		VALUES (:corpus_id, :ord, :tags, :body, :updated_at)
		ON CONFLICT(corpus_id) DO UPDATE SET
			ord = excluded.ord, tags = excluded.tags,
			body = excluded.body, updated_at = excluded.updated_at`,
		phraseRow{CorpusID: corpusID, Order: m.Order, Tags: string(tags), Body: string(body), UpdatedAt: s.stamp()},
	)
	if err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	return nil
}

// LoadPhraseModel returns the model stored under corpusID.
func (s *Store) LoadPhraseModel(corpusID string) (*markov.Model, error) {
	var body string
	err := s.db.Get(&body, `SELECT body FROM phrase_models WHERE corpus_id = ?`, corpusID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("phrase model %q: %w", corpusID, markov.ErrCorpusNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	return markov.Decode([]byte(body))
}

// PhraseModels lists stored models by corpus id.
func (s *Store) PhraseModels() ([]PhraseModelInfo, error) {
	var rows []phraseRow
	if err := s.db.Select(&rows, `SELECT corpus_id, ord, tags, '' AS body, updated_at FROM phrase_models ORDER BY corpus_id`); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]PhraseModelInfo, 0, len(rows))
	for _, r := range rows {
		info := PhraseModelInfo{CorpusID: r.CorpusID, Order: r.Order, UpdatedAt: r.UpdatedAt}
		if err := json.Unmarshal([]byte(r.Tags), &info.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %q: %w", r.CorpusID, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Library loads every stored model into a library.
func (s *Store) Library() (*markov.Library, error) {
	var rows []phraseRow
	if err := s.db.Select(&rows, `SELECT corpus_id, ord, tags, body, updated_at FROM phrase_models`); err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	lib := markov.NewLibrary()
	for _, r := range rows {
		m, err := markov.Decode([]byte(r.Body))
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", r.CorpusID, err)
		}
		lib.Add(r.CorpusID, m)
	}
	return lib, nil
}

// #endregion phrase-models

// #region window-snapshots

// SaveSnapshot stores the window state of an engine after counter narrations.
func (s *Store) SaveSnapshot(engineID string, counter uint64, snap window.Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO window_snapshots (id, engine_id, counter, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, engineID, int64(counter), string(body), s.stamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the snapshot with the highest counter for engineID
// along with that counter.
func (s *Store) LatestSnapshot(engineID string) (window.Snapshot, uint64, error) {
	var row struct {
		Counter int64  `db:"counter"`
		Body    string `db:"body"`
	}
	err := s.db.Get(&row,
		`SELECT counter, body FROM window_snapshots WHERE engine_id = ? ORDER BY counter DESC, rowid DESC LIMIT 1`,
		engineID)
	if errors.Is(err, sql.ErrNoRows) {
		return window.Snapshot{}, 0, fmt.Errorf("snapshot for %q: %w", engineID, ErrNotFound)
	}
	if err != nil {
		return window.Snapshot{}, 0, fmt.Errorf("query snapshot: %w", err)
	}
	var snap window.Snapshot
	if err := json.Unmarshal([]byte(row.Body), &snap); err != nil {
		return window.Snapshot{}, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, uint64(row.Counter), nil
}

// #endregion window-snapshots
