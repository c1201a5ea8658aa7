package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lol-tracker/internal/database"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newIdentity(user, name, puuid string) *domain.Identity {
	return &domain.Identity{
		UserHandle: user,
		GameName:   name,
		TagLine:    "EUW",
		Region:     "euw1",
		Puuid:      puuid,
	}
}

func TestIdentityCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(openTestDB(t), zerolog.Nop())

	a := newIdentity("alice", "Faker", "puuid-a")
	b := newIdentity("bob", "Caps", "puuid-b")
	c := newIdentity("alice", "Rekkles", "puuid-c")
	for _, id := range []*domain.Identity{a, b, c} {
		if err := repo.Create(ctx, id); err != nil {
			t.Fatalf("Create %s: %v", id.GameName, err)
		}
		if id.ID == "" || id.CreatedAt.IsZero() {
			t.Fatalf("Create did not assign id/created_at: %+v", id)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != a.ID || all[1].ID != b.ID || all[2].ID != c.ID {
		t.Fatalf("List order = %+v", all)
	}

	mine, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 2 || mine[0].GameName != "Faker" || mine[1].GameName != "Rekkles" {
		t.Fatalf("ListByUser = %+v", mine)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Puuid != "puuid-b" || got.RiotID() != "Caps#EUW" {
		t.Errorf("Get = %+v", got)
	}
}

func TestIdentityDuplicatePuuid(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(openTestDB(t), zerolog.Nop())

	if err := repo.Create(ctx, newIdentity("alice", "Faker", "same")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, newIdentity("bob", "Faker", "same"))
	if !errors.Is(err, domain.ErrDuplicateRegistration) {
		t.Fatalf("second Create = %v, want ErrDuplicateRegistration", err)
	}
}

func TestIdentityDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewIdentityRepository(db, zerolog.Nop())
	sessions := NewSessionRepository(db, zerolog.Nop())

	id := newIdentity("alice", "Faker", "puuid-a")
	if err := repo.Create(ctx, id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Now()
	err := sessions.Record(ctx, domain.GameSession{ID: "EUW1_1", IdentityID: id.ID, DetectedAt: now, EndedAt: now})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := repo.Delete(ctx, id.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, id.ID); !errors.Is(err, domain.ErrUnknownIdentity) {
		t.Errorf("Get after delete = %v, want ErrUnknownIdentity", err)
	}
	if err := repo.Delete(ctx, id.ID); !errors.Is(err, domain.ErrUnknownIdentity) {
		t.Errorf("second Delete = %v, want ErrUnknownIdentity", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM game_sessions`).Scan(&n); err != nil || n != 0 {
		t.Errorf("sessions after delete = %d, %v; want cascade", n, err)
	}
}

func TestSessionRecordAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	identities := NewIdentityRepository(db, zerolog.Nop())
	repo := NewSessionRepository(db, zerolog.Nop())

	id := newIdentity("alice", "Faker", "puuid-a")
	if err := identities.Create(ctx, id); err != nil {
		t.Fatalf("Create: %v", err)
	}

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	record := func(sessionID string, endedAt time.Time, outcome *domain.Outcome) {
		t.Helper()
		err := repo.Record(ctx, domain.GameSession{
			ID:         sessionID,
			IdentityID: id.ID,
			ContentID:  103,
			QueueType:  domain.QueueRankedSolo,
			DetectedAt: endedAt.Add(-30 * time.Minute),
			EndedAt:    endedAt,
			Outcome:    outcome,
		})
		if err != nil {
			t.Fatalf("Record %s: %v", sessionID, err)
		}
	}

	record("EUW1_1", day.Add(-time.Hour), nil)
	record("EUW1_2", day.Add(2*time.Hour), &domain.Outcome{Win: true, Kills: 7, Deaths: 2, Assists: 9, Duration: 31 * time.Minute})
	record("EUW1_3", day.Add(5*time.Hour), nil)
	// same session again with an outcome
	record("EUW1_3", day.Add(5*time.Hour), &domain.Outcome{Win: false, Kills: 1, Deaths: 8})
	record("EUW1_4", day.Add(24*time.Hour), nil)

	got, err := repo.ListEndedBetween(ctx, id.ID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListEndedBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2: %+v", len(got), got)
	}
	if got[0].ID != "EUW1_2" || got[0].Outcome == nil || !got[0].Outcome.Win || got[0].Outcome.Duration != 31*time.Minute {
		t.Errorf("first session = %+v", got[0])
	}
	if got[1].ID != "EUW1_3" || got[1].Outcome == nil || got[1].Outcome.Win || got[1].Outcome.Deaths != 8 {
		t.Errorf("second session = %+v", got[1])
	}
	if got[0].ContentID != 103 || got[0].QueueType != domain.QueueRankedSolo {
		t.Errorf("session fields not round-tripped: %+v", got[0])
	}
}

func TestSnapshotLatest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	identities := NewIdentityRepository(db, zerolog.Nop())
	repo := NewSnapshotRepository(db, zerolog.Nop())

	id := newIdentity("alice", "Faker", "puuid-a")
	if err := identities.Create(ctx, id); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap, err := repo.Latest(ctx, id.ID, domain.QueueRankedSolo)
	if err != nil || snap != nil {
		t.Fatalf("Latest on empty = %+v, %v; want nil, nil", snap, err)
	}
	if last, err := repo.LastTakenAt(ctx); err != nil || !last.IsZero() {
		t.Fatalf("LastTakenAt on empty = %v, %v; want zero time", last, err)
	}

	t0 := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	err = repo.InsertBatch(ctx, []domain.ScoreSnapshot{
		{IdentityID: id.ID, TakenAt: t0, Score: domain.Score{Queue: domain.QueueRankedSolo, Tier: "GOLD", Division: "II", LeaguePoints: 40}},
		{IdentityID: id.ID, TakenAt: t0, Score: domain.Score{Queue: domain.QueueRankedFlex, Tier: "SILVER", Division: "I", LeaguePoints: 10}},
		{IdentityID: id.ID, TakenAt: t0.Add(24 * time.Hour), Score: domain.Score{Queue: domain.QueueRankedSolo, Tier: "GOLD", Division: "I", LeaguePoints: 5, Wins: 12, Losses: 9}},
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	snap, err = repo.Latest(ctx, id.ID, domain.QueueRankedSolo)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.Score.Division != "I" || snap.Score.LeaguePoints != 5 || snap.Score.Wins != 12 || !snap.TakenAt.Equal(t0.Add(24*time.Hour)) {
		t.Errorf("Latest solo = %+v", snap)
	}

	snap, err = repo.Latest(ctx, id.ID, domain.QueueRankedFlex)
	if err != nil || snap == nil || snap.Score.Tier != "SILVER" {
		t.Errorf("Latest flex = %+v, %v", snap, err)
	}

	last, err := repo.LastTakenAt(ctx)
	if err != nil || !last.Equal(t0.Add(24*time.Hour)) {
		t.Errorf("LastTakenAt = %v, %v; want %v", last, err, t0.Add(24*time.Hour))
	}
}
