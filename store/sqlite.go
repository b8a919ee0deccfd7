package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			job_role TEXT NOT NULL,
			job_description TEXT NOT NULL,
			question_count INTEGER NOT NULL,
			current_question_number INTEGER NOT NULL DEFAULT 0,
			questions TEXT,
			answers TEXT,
			evaluation_history TEXT,
			final_evaluation TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at)`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			ts DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts or replaces the full session record.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	questions, _ := json.Marshal(session.Questions)
	answers, _ := json.Marshal(session.Answers)
	evaluations, _ := json.Marshal(session.EvaluationHistory)

	var finalEval []byte
	if session.FinalEvaluation != nil {
		finalEval, _ = json.Marshal(session.FinalEvaluation)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
		(session_id, state, job_role, job_description, question_count,
		 current_question_number, questions, answers, evaluation_history,
		 final_evaluation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, string(session.State), session.JobRole,
		session.JobDescription, session.QuestionCount,
		session.CurrentQuestionNumber, string(questions), string(answers),
		string(evaluations), nullableString(finalEval),
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		session     domain.Session
		state       string
		questions   sql.NullString
		answers     sql.NullString
		evaluations sql.NullString
		finalEval   sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, state, job_role, job_description, question_count,
		        current_question_number, questions, answers,
		        evaluation_history, final_evaluation, created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&session.SessionID, &state, &session.JobRole,
			&session.JobDescription, &session.QuestionCount,
			&session.CurrentQuestionNumber, &questions, &answers,
			&evaluations, &finalEval, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.SessionNotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.State = domain.InterviewState(state)
	if questions.Valid && questions.String != "" {
		if err := json.Unmarshal([]byte(questions.String), &session.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
	}
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &session.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
	}
	if evaluations.Valid && evaluations.String != "" {
		if err := json.Unmarshal([]byte(evaluations.String), &session.EvaluationHistory); err != nil {
			return nil, fmt.Errorf("failed to decode evaluations: %w", err)
		}
	}
	if finalEval.Valid && finalEval.String != "" {
		var fe domain.FinalEvaluation
		if err := json.Unmarshal([]byte(finalEval.String), &fe); err != nil {
			return nil, fmt.Errorf("failed to decode final evaluation: %w", err)
		}
		session.FinalEvaluation = &fe
	}

	return &session, nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

// SaveTransitions appends state machine transitions for a session.
func (s *SQLiteStore) SaveTransitions(ctx context.Context, sessionID string, transitions []engine.Transition) error {
	if len(transitions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transitions (session_id, from_state, to_state, ts) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range transitions {
		if _, err := stmt.ExecContext(ctx, sessionID, string(t.From), string(t.To), t.Timestamp); err != nil {
			return fmt.Errorf("failed to insert transition: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransitions returns the recorded transition log for a session.
func (s *SQLiteStore) GetTransitions(ctx context.Context, sessionID string) ([]engine.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_state, to_state, ts FROM transitions WHERE session_id = ? ORDER BY ts, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []engine.Transition
	for rows.Next() {
		var (
			from, to string
			ts       time.Time
		)
		if err := rows.Scan(&from, &to, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, engine.Transition{
			From:      domain.InterviewState(from),
			To:        domain.InterviewState(to),
			Timestamp: ts,
		})
	}
	return transitions, rows.Err()
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
