package sqlite_test

import (
	"context"
	"strings"
	"testing"

	"github.com/example/ctfcord/internal/adapters/sqlite"
)

func setupChallengeRepo(t *testing.T) (*sqlite.ChallengeRepository, context.Context) {
	t.Helper()
	database := setupTestDB(t)
	ctfRepo := sqlite.NewCtfRepository(database)
	ctx := context.Background()
	if err := ctfRepo.Create(ctx, testCtfRecord("CTF-001")); err != nil {
		t.Fatalf("failed to seed ctf: %v", err)
	}
	return sqlite.NewChallengeRepository(database), ctx
}

func TestChallengeRepo_CreateAndGetByName(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	record := testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")
	record.Workers = []string{"U1"}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	got, err := repo.GetByName(ctx, "CTF-001", "pwn200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil {
		t.Fatal("expected challenge, got nil")
	}
	if got.Category != "pwn" {
		t.Errorf("expected category 'pwn', got %q", got.Category)
	}
	if got.Solved {
		t.Error("expected challenge unsolved")
	}
	if len(got.Workers) != 1 || got.Workers[0] != "U1" {
		t.Errorf("expected workers [U1], got %v", got.Workers)
	}
}

func TestChallengeRepo_GetByName_CaseSensitive(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	if err := repo.Create(ctx, testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	got, err := repo.GetByName(ctx, "CTF-001", "PWN200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Error("expected exact case-sensitive match only")
	}
}

func TestChallengeRepo_GetByName_Missing(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	got, err := repo.GetByName(ctx, "CTF-001", "doesnotexist")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing challenge, got %+v", got)
	}
}

func TestChallengeRepo_UniqueNamePerCtf(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	if err := repo.Create(ctx, testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	err := repo.Create(ctx, testChallengeRecord("CHALL-002", "CTF-001", "pwn200", "pwn"))
	if err == nil || !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatalf("expected unique constraint violation on (ctf_id, name), got %v", err)
	}
}

func TestChallengeRepo_GetByThread(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	record := testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	if err := repo.SetThreadRef(ctx, "CHALL-001", "thread-1"); err != nil {
		t.Fatalf("failed to set thread ref: %v", err)
	}

	got, err := repo.GetByThread(ctx, "thread-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || got.ID != "CHALL-001" {
		t.Fatalf("expected CHALL-001, got %+v", got)
	}

	missing, err := repo.GetByThread(ctx, "thread-unknown")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown thread, got %+v", missing)
	}
}

func TestChallengeRepo_AddWorkerIdempotent(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	if err := repo.Create(ctx, testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.AddWorker(ctx, "CHALL-001", "U1"); err != nil {
			t.Fatalf("expected no error adding worker, got %v", err)
		}
	}
	if err := repo.AddWorker(ctx, "CHALL-001", "U2"); err != nil {
		t.Fatalf("expected no error adding worker, got %v", err)
	}

	got, err := repo.GetByName(ctx, "CTF-001", "pwn200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Workers) != 2 {
		t.Errorf("expected 2 workers, got %v", got.Workers)
	}
}

func TestChallengeRepo_MarkSolvedOnce(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	if err := repo.Create(ctx, testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	if err := repo.MarkSolved(ctx, "CHALL-001", "flag{x}", 100, []string{"U1", "U2"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.GetByName(ctx, "CTF-001", "pwn200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.Solved {
		t.Error("expected challenge solved")
	}
	if got.Flag != "flag{x}" {
		t.Errorf("expected flag 'flag{x}', got %q", got.Flag)
	}
	if got.Points != 100 {
		t.Errorf("expected 100 points, got %d", got.Points)
	}
	// The solver set lands with the solved row, never after it.
	if len(got.Solvers) != 2 {
		t.Errorf("expected solvers written with the transition, got %v", got.Solvers)
	}

	// Second transition must not overwrite the flag or grow the set.
	if err := repo.MarkSolved(ctx, "CHALL-001", "flag{y}", 200, []string{"U3"}); err == nil {
		t.Error("expected error marking an already-solved challenge, got nil")
	}
	got, _ = repo.GetByName(ctx, "CTF-001", "pwn200")
	if got.Flag != "flag{x}" {
		t.Errorf("expected flag unchanged, got %q", got.Flag)
	}
	if len(got.Solvers) != 2 {
		t.Errorf("expected solver set unchanged, got %v", got.Solvers)
	}
}

func TestChallengeRepo_ListByCtf_GroupedByCategory(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	for _, c := range []struct{ id, name, category string }{
		{"CHALL-001", "web100", "web"},
		{"CHALL-002", "pwn200", "pwn"},
		{"CHALL-003", "web200", "web"},
		{"CHALL-004", "pwn100", "pwn"},
	} {
		if err := repo.Create(ctx, testChallengeRecord(c.id, "CTF-001", c.name, c.category)); err != nil {
			t.Fatalf("failed to create challenge: %v", err)
		}
	}

	challenges, err := repo.ListByCtf(ctx, "CTF-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(challenges) != 4 {
		t.Fatalf("expected 4 challenges, got %d", len(challenges))
	}

	// Categories grouped, insertion order within each category.
	wantNames := []string{"pwn200", "pwn100", "web100", "web200"}
	for i, want := range wantNames {
		if challenges[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, challenges[i].Name)
		}
	}
}

func TestChallengeRepo_ListSolved(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	if err := repo.Create(ctx, testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	if err := repo.Create(ctx, testChallengeRecord("CHALL-002", "CTF-001", "web100", "web")); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	if err := repo.MarkSolved(ctx, "CHALL-001", "flag{x}", 100, []string{"U1"}); err != nil {
		t.Fatalf("failed to mark solved: %v", err)
	}

	solved, err := repo.ListSolved(ctx, "CTF-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(solved) != 1 {
		t.Fatalf("expected 1 solved challenge, got %d", len(solved))
	}
	if solved[0].Name != "pwn200" {
		t.Errorf("expected pwn200, got %q", solved[0].Name)
	}
	if len(solved[0].Solvers) != 1 || solved[0].Solvers[0] != "U1" {
		t.Errorf("expected solvers [U1], got %v", solved[0].Solvers)
	}
}

func TestChallengeRepo_Delete(t *testing.T) {
	repo, ctx := setupChallengeRepo(t)

	record := testChallengeRecord("CHALL-001", "CTF-001", "pwn200", "pwn")
	record.Workers = []string{"U1"}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}

	if err := repo.Delete(ctx, "CHALL-001"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.GetByName(ctx, "CTF-001", "pwn200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Error("expected challenge deleted")
	}

	if err := repo.Delete(ctx, "CHALL-001"); err == nil {
		t.Error("expected error deleting non-existent challenge, got nil")
	}
}
