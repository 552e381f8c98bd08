// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ctfcord/internal/ports/secondary"
)

// CtfRepository implements secondary.CtfRepository with SQLite.
type CtfRepository struct {
	db *sql.DB
}

// NewCtfRepository creates a new SQLite CTF repository.
func NewCtfRepository(db *sql.DB) *CtfRepository {
	return &CtfRepository{db: db}
}

const ctfColumns = `id, guild_ref, event_id, team_name, title, description, url, logo_url, invite_url,
	channel_ref, join_marker_ref, scheduled_event_ref, phase, start_at, finish_at,
	created_at, updated_at`

// Create persists a new CTF record.
func (r *CtfRepository) Create(ctx context.Context, ctf *secondary.CtfRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ctfs (id, guild_ref, event_id, team_name, title, description, url, logo_url, invite_url,
			channel_ref, join_marker_ref, scheduled_event_ref, phase, start_at, finish_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ctf.ID, ctf.GuildRef, nullable(ctf.EventID), ctf.TeamName, ctf.Title, nullable(ctf.Description),
		nullable(ctf.URL), nullable(ctf.LogoURL), nullable(ctf.InviteURL),
		ctf.ChannelRef, ctf.JoinMarkerRef, nullable(ctf.ScheduledEventRef),
		ctf.Phase, ctf.StartAt.UTC(), ctf.FinishAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create ctf: %w", err)
	}
	return nil
}

// GetByID retrieves a CTF by its ID.
func (r *CtfRepository) GetByID(ctx context.Context, id string) (*secondary.CtfRecord, error) {
	record, err := scanCtf(r.db.QueryRowContext(ctx,
		"SELECT "+ctfColumns+" FROM ctfs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ctf %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ctf: %w", err)
	}
	return record, nil
}

// GetByChannel retrieves the CTF bound to a channel, if any.
func (r *CtfRepository) GetByChannel(ctx context.Context, channelRef string) (*secondary.CtfRecord, error) {
	record, err := scanCtf(r.db.QueryRowContext(ctx,
		"SELECT "+ctfColumns+" FROM ctfs WHERE channel_ref = ?", channelRef))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ctf by channel: %w", err)
	}
	return record, nil
}

// GetByJoinMarker retrieves the CTF owning a join marker, if any.
func (r *CtfRepository) GetByJoinMarker(ctx context.Context, markerRef string) (*secondary.CtfRecord, error) {
	record, err := scanCtf(r.db.QueryRowContext(ctx,
		"SELECT "+ctfColumns+" FROM ctfs WHERE join_marker_ref = ?", markerRef))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ctf by join marker: %w", err)
	}
	return record, nil
}

// ListOpen retrieves all CTFs that have not ended or been archived.
func (r *CtfRepository) ListOpen(ctx context.Context) ([]*secondary.CtfRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ctfColumns+" FROM ctfs WHERE phase NOT IN ('ended', 'archived') ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list open ctfs: %w", err)
	}
	defer rows.Close()

	var ctfs []*secondary.CtfRecord
	for rows.Next() {
		record, err := scanCtf(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ctf: %w", err)
		}
		ctfs = append(ctfs, record)
	}
	return ctfs, rows.Err()
}

// UpdatePhase advances a CTF to the given phase.
func (r *CtfRepository) UpdatePhase(ctx context.Context, id string, phase string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE ctfs SET phase = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		phase, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ctf phase: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("ctf %s not found", id)
	}
	return nil
}

// Delete removes a CTF; owned challenges cascade.
func (r *CtfRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM ctfs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete ctf: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("ctf %s not found", id)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCtf(row rowScanner) (*secondary.CtfRecord, error) {
	var (
		eventID        sql.NullString
		description    sql.NullString
		url            sql.NullString
		logoURL        sql.NullString
		inviteURL      sql.NullString
		scheduledEvent sql.NullString
		startAt        time.Time
		finishAt       time.Time
		createdAt      time.Time
		updatedAt      time.Time
	)

	record := &secondary.CtfRecord{}
	err := row.Scan(&record.ID, &record.GuildRef, &eventID, &record.TeamName, &record.Title, &description,
		&url, &logoURL, &inviteURL, &record.ChannelRef, &record.JoinMarkerRef,
		&scheduledEvent, &record.Phase, &startAt, &finishAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.EventID = eventID.String
	record.Description = description.String
	record.URL = url.String
	record.LogoURL = logoURL.String
	record.InviteURL = inviteURL.String
	record.ScheduledEventRef = scheduledEvent.String
	record.StartAt = startAt
	record.FinishAt = finishAt
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure CtfRepository implements the interface
var _ secondary.CtfRepository = (*CtfRepository)(nil)
