package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ctfcord/internal/ports/secondary"
)

// ChallengeRepository implements secondary.ChallengeRepository with SQLite.
type ChallengeRepository struct {
	db *sql.DB
}

// NewChallengeRepository creates a new SQLite challenge repository.
func NewChallengeRepository(db *sql.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

const challengeColumns = `id, ctf_id, name, category, thread_ref, points, solved, flag,
	created_at, updated_at`

// Create persists a new challenge with its worker and solver sets in
// one transaction.
func (r *ChallengeRepository) Create(ctx context.Context, ch *secondary.ChallengeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO challenges (id, ctf_id, name, category, thread_ref, points, solved, flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.CtfID, ch.Name, ch.Category, nullable(ch.ThreadRef),
		ch.Points, ch.Solved, nullable(ch.Flag),
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	if err := insertSet(ctx, tx, "challenge_workers", ch.ID, ch.Workers); err != nil {
		return fmt.Errorf("failed to add workers: %w", err)
	}
	if err := insertSet(ctx, tx, "challenge_solvers", ch.ID, ch.Solvers); err != nil {
		return fmt.Errorf("failed to add solvers: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit challenge: %w", err)
	}
	return nil
}

// GetByName retrieves a challenge by its name within a CTF, if any.
// Name matching is exact and case-sensitive.
func (r *ChallengeRepository) GetByName(ctx context.Context, ctfID, name string) (*secondary.ChallengeRecord, error) {
	record, err := scanChallenge(r.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE ctf_id = ? AND name = ?", ctfID, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if err := r.loadSets(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetByThread retrieves the challenge owning a discussion thread, if any.
func (r *ChallengeRepository) GetByThread(ctx context.Context, threadRef string) (*secondary.ChallengeRecord, error) {
	record, err := scanChallenge(r.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE thread_ref = ?", threadRef))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge by thread: %w", err)
	}
	if err := r.loadSets(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListByCtf retrieves a CTF's challenges ordered by category, then
// insertion order within a category.
func (r *ChallengeRepository) ListByCtf(ctx context.Context, ctfID string) ([]*secondary.ChallengeRecord, error) {
	return r.list(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE ctf_id = ? ORDER BY category, created_at, rowid", ctfID)
}

// ListSolved retrieves a CTF's solved challenges.
func (r *ChallengeRepository) ListSolved(ctx context.Context, ctfID string) ([]*secondary.ChallengeRecord, error) {
	return r.list(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE ctf_id = ? AND solved = 1 ORDER BY category, created_at, rowid", ctfID)
}

func (r *ChallengeRepository) list(ctx context.Context, query string, args ...any) ([]*secondary.ChallengeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*secondary.ChallengeRecord
	for rows.Next() {
		record, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, record := range challenges {
		if err := r.loadSets(ctx, record); err != nil {
			return nil, err
		}
	}
	return challenges, nil
}

// AddWorker appends a user to the challenge's working set. Re-adding an
// existing worker is a no-op.
func (r *ChallengeRepository) AddWorker(ctx context.Context, challengeID, userRef string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO challenge_workers (challenge_id, user_ref) VALUES (?, ?)",
		challengeID, userRef,
	)
	if err != nil {
		return fmt.Errorf("failed to add worker: %w", err)
	}
	return nil
}

// AddSolver appends a user to the challenge's solver set. Re-adding an
// existing solver is a no-op.
func (r *ChallengeRepository) AddSolver(ctx context.Context, challengeID, userRef string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO challenge_solvers (challenge_id, user_ref) VALUES (?, ?)",
		challengeID, userRef,
	)
	if err != nil {
		return fmt.Errorf("failed to add solver: %w", err)
	}
	return nil
}

// MarkSolved transitions a challenge to solved and records its solver
// set in one transaction, so a solved row and its solvers land (or fail)
// together. The flag is written once; an already-solved challenge is
// left untouched.
func (r *ChallengeRepository) MarkSolved(ctx context.Context, challengeID, flag string, points int, solvers []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE challenges SET solved = 1, flag = ?, points = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND solved = 0`,
		flag, points, challengeID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark challenge solved: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("challenge %s not found or already solved", challengeID)
	}

	if err := insertSet(ctx, tx, "challenge_solvers", challengeID, solvers); err != nil {
		return fmt.Errorf("failed to add solvers: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit solve: %w", err)
	}
	return nil
}

// SetThreadRef stores the discussion thread reference.
func (r *ChallengeRepository) SetThreadRef(ctx context.Context, challengeID, threadRef string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE challenges SET thread_ref = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		nullable(threadRef), challengeID,
	)
	if err != nil {
		return fmt.Errorf("failed to set thread ref: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	return nil
}

// Delete removes a challenge; worker and solver rows cascade.
func (r *ChallengeRepository) Delete(ctx context.Context, challengeID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM challenges WHERE id = ?", challengeID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	return nil
}

// loadSets fills the worker and solver sets in insertion order.
func (r *ChallengeRepository) loadSets(ctx context.Context, record *secondary.ChallengeRecord) error {
	var err error
	record.Workers, err = r.loadSet(ctx, "challenge_workers", record.ID)
	if err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}
	record.Solvers, err = r.loadSet(ctx, "challenge_solvers", record.ID)
	if err != nil {
		return fmt.Errorf("failed to load solvers: %w", err)
	}
	return nil
}

func insertSet(ctx context.Context, tx *sql.Tx, table, challengeID string, users []string) error {
	for _, user := range users {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+table+" (challenge_id, user_ref) VALUES (?, ?)",
			challengeID, user,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChallengeRepository) loadSet(ctx context.Context, table, challengeID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_ref FROM "+table+" WHERE challenge_id = ? ORDER BY created_at, rowid", challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanChallenge(row rowScanner) (*secondary.ChallengeRecord, error) {
	var (
		threadRef sql.NullString
		flag      sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.ChallengeRecord{}
	err := row.Scan(&record.ID, &record.CtfID, &record.Name, &record.Category, &threadRef,
		&record.Points, &record.Solved, &flag, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.ThreadRef = threadRef.String
	record.Flag = flag.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

// Ensure ChallengeRepository implements the interface
var _ secondary.ChallengeRepository = (*ChallengeRepository)(nil)
