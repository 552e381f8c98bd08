// Package sqlite_test contains integration tests for SQLite repositories.
//
// This file is the single point where the database schema is loaded for
// tests. All test setup goes through setupTestDB(), which uses
// db.GetSchemaSQL() so test and production schemas cannot drift.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/ctfcord/internal/db"
	"github.com/example/ctfcord/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// testCtfRecord returns a valid CTF record with distinct refs derived
// from id.
func testCtfRecord(id string) *secondary.CtfRecord {
	return &secondary.CtfRecord{
		ID:            id,
		GuildRef:      "guild-1",
		EventID:       "1616",
		TeamName:      "teamA",
		Title:         "Test CTF",
		Description:   "A test competition",
		URL:           "https://test.ctf",
		ChannelRef:    "chan-" + id,
		JoinMarkerRef: "marker-" + id,
		Phase:         "upcoming",
		StartAt:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		FinishAt:      time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
	}
}

// testChallengeRecord returns a valid unsolved challenge owned by ctfID.
func testChallengeRecord(id, ctfID, name, category string) *secondary.ChallengeRecord {
	return &secondary.ChallengeRecord{
		ID:       id,
		CtfID:    ctfID,
		Name:     name,
		Category: category,
	}
}
