package game

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/models"
)

// Error messages surfaced to clients verbatim as Error frames, or as the
// HTTP body when a pre-bound connection is rejected before upgrade.
var (
	ErrMatchNotFound     = errors.New("Matching session not found")
	ErrMatchNotAvailable = errors.New("This matching session is not available")
	ErrSelfJoin          = errors.New("Cannot join your own matching session")
	ErrNotParticipant    = errors.New("You are not a participant in this matching session")
	ErrMatchExpired      = errors.New("Matching session is expired")
)

// SessionRegistry is the process-wide owner of all matches. Every mutation
// of a Match happens under its lock; callers get ids, plain values or
// clones, never live pointers.
type SessionRegistry struct {
	mu        sync.Mutex
	matches   map[uuid.UUID]*models.Match
	snapshots *SnapshotStore
}

func NewSessionRegistry(snapshots *SnapshotStore) *SessionRegistry {
	if snapshots == nil {
		snapshots = NewSnapshotStore(nil)
	}
	return &SessionRegistry{
		matches:   make(map[uuid.UUID]*models.Match),
		snapshots: snapshots,
	}
}

// persist snapshots pre-battle matches only. Once a battle starts the
// match can no longer be resumed across a restart.
func (r *SessionRegistry) persist(m *models.Match) {
	if m.Status == models.StatusWaiting || m.Status == models.StatusMatched {
		r.snapshots.Save(m)
	}
}

// Create registers a fresh Waiting match advertised by playerID.
func (r *SessionRegistry) Create(playerID string, username *string) uuid.UUID {
	m := models.NewMatch(playerID, username)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.MatchingID] = m
	r.persist(m)

	log.Printf("[GAME] Match %s created by player %s", m.MatchingID, playerID)
	return m.MatchingID
}

// Get returns a clone of the match, primarily for inspection in tests.
func (r *SessionRegistry) Get(matchingID uuid.UUID) (models.Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchingID]
	if !ok {
		return models.Match{}, false
	}
	return m.Clone(), true
}

// JoinOutcome describes a successful JoinMatch.
type JoinOutcome struct {
	PlayerAID string
	// Rejoin is set when an already-matched player_b reconnected; the
	// match state is left untouched apart from its inactivity timer.
	Rejoin bool
}

// Join pairs playerID into a Waiting match and moves it to Matched. A
// repeat join by the existing player_b of a Matched match is a rejoin,
// not an error.
func (r *SessionRegistry) Join(matchingID uuid.UUID, playerID string) (JoinOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return JoinOutcome{}, ErrMatchNotFound
	}

	if m.Status != models.StatusWaiting {
		if m.Status == models.StatusMatched && m.PlayerB != nil && m.PlayerB.ID == playerID {
			m.LastActiveAt = nil
			r.persist(m)
			log.Printf("[GAME] Player %s rejoined match %s", playerID, matchingID)
			return JoinOutcome{PlayerAID: m.PlayerA.ID, Rejoin: true}, nil
		}
		return JoinOutcome{}, ErrMatchNotAvailable
	}

	if m.PlayerA.ID == playerID {
		return JoinOutcome{}, ErrSelfJoin
	}

	playerB := models.NewPlayer(playerID)
	m.PlayerB = &playerB
	m.Status = models.StatusMatched
	r.persist(m)

	log.Printf("[GAME] Match %s established: player_a=%s player_b=%s", matchingID, m.PlayerA.ID, playerID)
	return JoinOutcome{PlayerAID: m.PlayerA.ID}, nil
}

// ValidateReady checks that a Ready can proceed before the model store is
// consulted. The store lookup must run without the registry lock, so the
// caller re-validates afterwards through CompleteReady.
func (r *SessionRegistry) ValidateReady(matchingID uuid.UUID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return ErrMatchNotFound
	}
	if !m.IsParticipant(playerID) {
		return ErrNotParticipant
	}
	return nil
}

// ReadyResult describes the mutation performed by CompleteReady.
type ReadyResult struct {
	Character  models.Character
	OpponentID string
	// Started is set when this Ready made both players ready; the match
	// has moved to InGame and Battle carries the replicated state to hand
	// to the orchestrator.
	Started bool
	Battle  *Battle
}

// CompleteReady binds the claimed model to the calling player and marks
// it ready. The model must already be marked used in the store; this is
// the re-validation half that runs after that suspension point.
func (r *SessionRegistry) CompleteReady(matchingID uuid.UUID, playerID, modelID string) (ReadyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return ReadyResult{}, ErrMatchNotFound
	}
	p := m.PlayerByID(playerID)
	if p == nil {
		return ReadyResult{}, ErrNotParticipant
	}

	character := models.NewCharacter(modelID)
	p.Character = character
	p.Ready = true

	res := ReadyResult{Character: *character}
	if opponentID, ok := m.OpponentID(playerID); ok {
		res.OpponentID = opponentID
	}

	if m.IsBothReady() {
		m.Status = models.StatusInGame
		m.BattleStarted = true
		res.Started = true
		res.Battle = NewBattle(m.MatchingID, m.PlayerA.ID, m.PlayerB.ID,
			*m.PlayerA.Character, *m.PlayerB.Character)
		r.snapshots.Delete(m.MatchingID)
		log.Printf("[GAME] Match %s entering battle: %s vs %s", matchingID, m.PlayerA.ID, m.PlayerB.ID)
	} else {
		r.persist(m)
	}

	return res, nil
}

// ConnectInfo describes how a pre-bound connection relates to its match.
type ConnectInfo struct {
	Participant bool
	// OpponentID is set when the connecting player is a participant and
	// the other slot is filled.
	OpponentID string
}

// Connect validates a matching_id presented at connect time, restoring a
// snapshotted match after a restart. An unknown or no-longer-valid id
// yields ErrMatchExpired, which rejects the connection before upgrade.
// A live match has its inactivity timer cleared.
func (r *SessionRegistry) Connect(matchingID uuid.UUID, playerID string, now time.Time) (ConnectInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		m = r.snapshots.Load(matchingID)
		if m == nil {
			return ConnectInfo{}, ErrMatchExpired
		}
		if !m.IsValid(now) {
			r.snapshots.Delete(matchingID)
			return ConnectInfo{}, ErrMatchExpired
		}
		r.matches[matchingID] = m
		log.Printf("[GAME] Match %s restored from snapshot", matchingID)
	}

	if !m.IsValid(now) {
		return ConnectInfo{}, ErrMatchExpired
	}

	if m.LastActiveAt != nil {
		m.LastActiveAt = nil
		r.persist(m)
	}

	info := ConnectInfo{Participant: m.IsParticipant(playerID)}
	if info.Participant {
		if opponentID, ok := m.OpponentID(playerID); ok {
			info.OpponentID = opponentID
		}
	}
	return info, nil
}

// MarkInactive stamps the match when its last connected participant goes
// away, arming the 60 second reclamation timer.
func (r *SessionRegistry) MarkInactive(matchingID uuid.UUID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return
	}
	m.LastActiveAt = &now
	r.persist(m)
}

// FinishBattle records the terminal state after a GameEnd. The finished
// match fails validity and is reclaimed by the next cleanup pass.
func (r *SessionRegistry) FinishBattle(matchingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return
	}
	m.BattleFinished = true
	m.Status = models.StatusFinished
}

// PurgeInvalid removes every match that is no longer valid and returns
// their ids so the orchestrator can drop its own entries.
func (r *SessionRegistry) PurgeInvalid(now time.Time) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []uuid.UUID
	for id, m := range r.matches {
		if !m.IsValid(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(r.matches, id)
		r.snapshots.Delete(id)
		log.Printf("[GAME] Match %s expired, removed from registry", id)
	}
	return expired
}

// InfoFor resolves lobby listing entries for a set of matching ids. The
// lobby registry calls this while holding its own lock so the combined
// view is consistent; the lock order is always lobby before sessions.
func (r *SessionRegistry) InfoFor(ids []uuid.UUID) map[uuid.UUID]models.MatchingInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make(map[uuid.UUID]models.MatchingInfo, len(ids))
	for _, id := range ids {
		if m, ok := r.matches[id]; ok {
			infos[id] = m.Info()
		}
	}
	return infos
}
