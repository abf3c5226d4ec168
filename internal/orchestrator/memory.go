package orchestrator

// #region imports
import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// #endregion

// #region schema

const attemptOutcomesSchema = `
CREATE TABLE IF NOT EXISTS attempt_outcomes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    engine_id     TEXT NOT NULL,
    counter       INTEGER NOT NULL,
    attempt_num   INTEGER NOT NULL,
    seed          TEXT NOT NULL,
    rule          TEXT NOT NULL,
    voice         TEXT NOT NULL DEFAULT '',
    quality       REAL NOT NULL,
    failure_type  TEXT NOT NULL DEFAULT 'none',
    issues        TEXT NOT NULL DEFAULT '',
    accepted      INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
`

const attemptOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_attempt_outcomes_rule
ON attempt_outcomes(rule, voice);
`

// #endregion

// #region memory-struct

// AttemptMemory persists every attempt in SQLite so content authors can see
// which entry rules keep tripping the repetition checks.
type AttemptMemory struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// NewAttemptMemory initializes the attempt_outcomes table.
func NewAttemptMemory(db *sql.DB, log *zap.Logger) (*AttemptMemory, error) {
	if _, err := db.Exec(attemptOutcomesSchema); err != nil {
		return nil, err
	}
	if _, err := db.Exec(attemptOutcomesIndex); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptMemory{db: db, log: log.Named("memory"), now: time.Now}, nil
}

// #endregion

// #region record-outcome

// RecordOutcome persists a single attempt row.
func (m *AttemptMemory) RecordOutcome(rep AttemptReport) error {
	accepted := 0
	if rep.Accepted {
		accepted = 1
	}
	kinds := make([]string, 0, len(rep.Evaluation.Issues))
	for _, is := range rep.Evaluation.Issues {
		kinds = append(kinds, string(is.Kind))
	}
	_, err := m.db.Exec(`
		INSERT INTO attempt_outcomes
		(engine_id, counter, attempt_num, seed, rule, voice,
		 quality, failure_type, issues, accepted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.EngineID,
		int64(rep.Counter),
		rep.Attempt,
		strconv.FormatUint(rep.Seed, 10),
		rep.Rule,
		rep.Voice,
		rep.Evaluation.Quality,
		string(rep.Evaluation.FailureType),
		strings.Join(kinds, ","),
		accepted,
		m.now().UTC().Format(time.RFC3339),
	)
	return err
}

// AttemptFinished implements Observer.
func (m *AttemptMemory) AttemptFinished(rep AttemptReport) {
	if err := m.RecordOutcome(rep); err != nil {
		m.log.Warn("failed to record attempt", zap.Error(err), zap.String("rule", rep.Rule))
	}
}

// NarrationFinished implements Observer.
func (m *AttemptMemory) NarrationFinished(NarrationReport) {}

// #endregion

// #region rule-quality

// RuleQuality returns the decay-weighted mean quality of first attempts for
// rule and how many samples it is based on. Fewer than 3 samples yields a
// zero score.
func (m *AttemptMemory) RuleQuality(rule string) (float32, int, error) {
	rows, err := m.db.Query(`
		SELECT quality, created_at
		FROM attempt_outcomes
		WHERE rule = ? AND attempt_num = 0`,
		rule,
	)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	now := m.now()
	halfLife := 7.0 * 24.0 // 7 days in hours
	var weightedSum, totalWeight float64
	count := 0

	for rows.Next() {
		var quality float64
		var createdAtStr string
		if err := rows.Scan(&quality, &createdAtStr); err != nil {
			return 0, 0, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / halfLife)
		weightedSum += quality * weight
		totalWeight += weight
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	if count < 3 || totalWeight == 0 {
		return 0, count, nil
	}
	return float32(weightedSum / totalWeight), count, nil
}

// RuleSummary is the per-rule view used by inspection tools.
type RuleSummary struct {
	Rule     string
	Attempts int
	Accepted int
	Retries  int
}

// Summaries aggregates attempts per rule, most attempted first.
func (m *AttemptMemory) Summaries() ([]RuleSummary, error) {
	rows, err := m.db.Query(`
		SELECT rule, COUNT(*), SUM(accepted), SUM(CASE WHEN attempt_num > 0 THEN 1 ELSE 0 END)
		FROM attempt_outcomes
		GROUP BY rule
		ORDER BY COUNT(*) DESC, rule ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RuleSummary
	for rows.Next() {
		var s RuleSummary
		if err := rows.Scan(&s.Rule, &s.Attempts, &s.Accepted, &s.Retries); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion
