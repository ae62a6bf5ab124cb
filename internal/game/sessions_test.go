package game

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/models"
)

func strPtr(s string) *string { return &s }

// Helper to create a registry with an in-memory-only snapshot store.
func newTestRegistry() *SessionRegistry {
	return NewSessionRegistry(NewSnapshotStore(nil))
}

// Helper to create a registry holding a Matched p1/p2 session.
func newMatchedRegistry(t *testing.T) (*SessionRegistry, uuid.UUID) {
	t.Helper()
	r := newTestRegistry()
	id := r.Create("p1", strPtr("alice"))
	if _, err := r.Join(id, "p2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	return r, id
}

func TestCreateRegistersWaitingMatch(t *testing.T) {
	r := newTestRegistry()
	id := r.Create("p1", strPtr("alice"))

	m, ok := r.Get(id)
	if !ok {
		t.Fatal("Created match not found")
	}
	if m.Status != models.StatusWaiting {
		t.Errorf("Status = %q, want Waiting", m.Status)
	}
	if m.PlayerA.ID != "p1" {
		t.Errorf("PlayerA.ID = %q", m.PlayerA.ID)
	}
	if m.CreatorUsername == nil || *m.CreatorUsername != "alice" {
		t.Errorf("CreatorUsername = %v", m.CreatorUsername)
	}
}

func TestJoinPairsPlayers(t *testing.T) {
	r := newTestRegistry()
	id := r.Create("p1", nil)

	outcome, err := r.Join(id, "p2")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if outcome.PlayerAID != "p1" || outcome.Rejoin {
		t.Errorf("Outcome = %+v", outcome)
	}

	m, _ := r.Get(id)
	if m.Status != models.StatusMatched {
		t.Errorf("Status = %q, want Matched", m.Status)
	}
	if m.PlayerB == nil || m.PlayerB.ID != "p2" {
		t.Errorf("PlayerB = %+v", m.PlayerB)
	}
}

func TestJoinErrors(t *testing.T) {
	r := newTestRegistry()
	id := r.Create("p1", nil)

	if _, err := r.Join(uuid.New(), "p2"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Unknown id: err = %v, want ErrMatchNotFound", err)
	}
	if _, err := r.Join(id, "p1"); !errors.Is(err, ErrSelfJoin) {
		t.Errorf("Self join: err = %v, want ErrSelfJoin", err)
	}

	// A third player cannot join once the match is taken.
	if _, err := r.Join(id, "p2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := r.Join(id, "p3"); !errors.Is(err, ErrMatchNotAvailable) {
		t.Errorf("Full match: err = %v, want ErrMatchNotAvailable", err)
	}
}

func TestJoinAgainByPlayerBIsRejoin(t *testing.T) {
	r, id := newMatchedRegistry(t)
	r.MarkInactive(id, time.Now().UTC())

	outcome, err := r.Join(id, "p2")
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if !outcome.Rejoin || outcome.PlayerAID != "p1" {
		t.Errorf("Outcome = %+v, want rejoin by p2", outcome)
	}

	m, _ := r.Get(id)
	if m.LastActiveAt != nil {
		t.Error("Rejoin must clear the inactivity stamp")
	}
	if m.Status != models.StatusMatched {
		t.Errorf("Rejoin must not change status, got %q", m.Status)
	}
}

func TestValidateReady(t *testing.T) {
	r, id := newMatchedRegistry(t)

	if err := r.ValidateReady(id, "p1"); err != nil {
		t.Errorf("Participant rejected: %v", err)
	}
	if err := r.ValidateReady(id, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Stranger: err = %v, want ErrNotParticipant", err)
	}
	if err := r.ValidateReady(uuid.New(), "p1"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Unknown id: err = %v, want ErrMatchNotFound", err)
	}
}

func TestCompleteReadyStartsBattleWhenBothReady(t *testing.T) {
	r, id := newMatchedRegistry(t)

	first, err := r.CompleteReady(id, "p1", "character_a")
	if err != nil {
		t.Fatalf("First ready failed: %v", err)
	}
	if first.Started {
		t.Error("Battle started with only one player ready")
	}
	if first.OpponentID != "p2" {
		t.Errorf("OpponentID = %q, want p2", first.OpponentID)
	}
	if first.Character.ModelID != "character_a" || first.Character.HP != models.CharacterMaxHP {
		t.Errorf("Character = %+v", first.Character)
	}

	second, err := r.CompleteReady(id, "p2", "character_b")
	if err != nil {
		t.Fatalf("Second ready failed: %v", err)
	}
	if !second.Started || second.Battle == nil {
		t.Fatalf("Second ready must start the battle: %+v", second)
	}
	if second.Battle.PlayerAID != "p1" || second.Battle.PlayerBID != "p2" {
		t.Errorf("Battle players = %q vs %q", second.Battle.PlayerAID, second.Battle.PlayerBID)
	}
	if second.Battle.PlayerACharacter.ModelID != "character_a" {
		t.Errorf("Battle snapshot missing p1's character: %+v", second.Battle.PlayerACharacter)
	}

	m, _ := r.Get(id)
	if m.Status != models.StatusInGame || !m.BattleStarted {
		t.Errorf("Match after both ready: status=%q started=%v", m.Status, m.BattleStarted)
	}
}

func TestConnectUnknownMatchIsExpired(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Connect(uuid.New(), "p1", time.Now().UTC())
	if !errors.Is(err, ErrMatchExpired) {
		t.Errorf("err = %v, want ErrMatchExpired", err)
	}
}

func TestConnectClearsInactivityAndReportsOpponent(t *testing.T) {
	r, id := newMatchedRegistry(t)
	now := time.Now().UTC()
	r.MarkInactive(id, now.Add(-30*time.Second))

	info, err := r.Connect(id, "p2", now)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !info.Participant || info.OpponentID != "p1" {
		t.Errorf("Info = %+v", info)
	}

	m, _ := r.Get(id)
	if m.LastActiveAt != nil {
		t.Error("Connect must clear the inactivity stamp")
	}

	// A non-participant may observe the match but gets no opponent.
	spectator, err := r.Connect(id, "p9", now)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if spectator.Participant || spectator.OpponentID != "" {
		t.Errorf("Spectator info = %+v", spectator)
	}
}

func TestConnectRejectsExpiredMatch(t *testing.T) {
	r, id := newMatchedRegistry(t)
	now := time.Now().UTC()
	r.MarkInactive(id, now.Add(-61*time.Second))

	if _, err := r.Connect(id, "p2", now); !errors.Is(err, ErrMatchExpired) {
		t.Errorf("err = %v, want ErrMatchExpired", err)
	}
}

func TestPurgeInvalidRemovesTimedOutMatches(t *testing.T) {
	r, expired := newMatchedRegistry(t)
	fresh := r.Create("p3", nil)

	now := time.Now().UTC()
	r.MarkInactive(expired, now.Add(-2*time.Minute))

	removed := r.PurgeInvalid(now)
	if len(removed) != 1 || removed[0] != expired {
		t.Errorf("Purged ids = %v, want [%s]", removed, expired)
	}
	if _, ok := r.Get(expired); ok {
		t.Error("Expired match still in registry")
	}
	if _, ok := r.Get(fresh); !ok {
		t.Error("Fresh match was purged")
	}
}

func TestFinishBattleMakesMatchInvalid(t *testing.T) {
	r, id := newMatchedRegistry(t)
	r.FinishBattle(id)

	m, _ := r.Get(id)
	if m.Status != models.StatusFinished || !m.BattleFinished {
		t.Errorf("Match after finish: %+v", m)
	}

	removed := r.PurgeInvalid(time.Now().UTC())
	if len(removed) != 1 || removed[0] != id {
		t.Errorf("Finished match not purged: %v", removed)
	}
}

func TestInfoForResolvesOnlyLiveIDs(t *testing.T) {
	r := newTestRegistry()
	a := r.Create("p1", strPtr("alice"))
	ghost := uuid.New()

	infos := r.InfoFor([]uuid.UUID{a, ghost})
	if len(infos) != 1 {
		t.Fatalf("InfoFor returned %d entries, want 1", len(infos))
	}
	info, ok := infos[a]
	if !ok {
		t.Fatal("Live match missing from InfoFor result")
	}
	if info.Status != models.StatusWaiting || info.CreatorUsername == nil || *info.CreatorUsername != "alice" {
		t.Errorf("Info = %+v", info)
	}
}
