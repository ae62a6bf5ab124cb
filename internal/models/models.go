package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// CharacterMaxHP is the starting and maximum hit-point value.
	CharacterMaxHP int32 = 100

	// MatchInactivityTimeout is how long a match survives with no
	// connected participants before the cleanup loop reclaims it.
	MatchInactivityTimeout = 60 * time.Second
)

// MatchingStatus represents the lifecycle state of a matching session.
// Transitions are monotonic: Waiting -> Matched -> InGame -> Finished.
type MatchingStatus string

const (
	StatusWaiting  MatchingStatus = "Waiting"
	StatusMatched  MatchingStatus = "Matched"
	StatusInGame   MatchingStatus = "InGame"
	StatusFinished MatchingStatus = "Finished"
)

// Character is the per-match avatar state. It is created when a player
// readies up and mutated only by the match orchestrator.
type Character struct {
	ModelID  string  `json:"model_id"`
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
	HP       int32   `json:"hp"`
	MaxHP    int32   `json:"max_hp"`
}

// NewCharacter creates a full-health character bound to a 3D model.
func NewCharacter(modelID string) *Character {
	return &Character{
		ModelID: modelID,
		HP:      CharacterMaxHP,
		MaxHP:   CharacterMaxHP,
	}
}

func (c *Character) IsAlive() bool {
	return c.HP > 0
}

// Player is one side of a matching session.
type Player struct {
	ID        string     `json:"id"`
	Username  *string    `json:"username"`
	Character *Character `json:"character"`
	Ready     bool       `json:"ready"`
}

func NewPlayer(id string) Player {
	return Player{ID: id}
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	if p.Username != nil {
		v := *p.Username
		p.Username = &v
	}
	if p.Character != nil {
		ch := *p.Character
		p.Character = &ch
	}
	return p
}

// Match is a two-slot rendezvous object identified by a UUID. It is owned
// exclusively by the session registry; other components reference players
// by id, never by pointer.
type Match struct {
	MatchingID      uuid.UUID      `json:"matching_id"`
	CreatorUsername *string        `json:"creator_username"`
	PlayerA         Player         `json:"player_a"`
	PlayerB         *Player        `json:"player_b"`
	Status          MatchingStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	LastActiveAt    *time.Time     `json:"last_active_at"`
	BattleStarted   bool           `json:"battle_started"`
	BattleFinished  bool           `json:"battle_finished"`
}

// NewMatch creates a Waiting match advertised by the given player.
func NewMatch(playerAID string, username *string) *Match {
	return &Match{
		MatchingID:      uuid.New(),
		CreatorUsername: username,
		PlayerA:         Player{ID: playerAID, Username: username},
		Status:          StatusWaiting,
		CreatedAt:       time.Now().UTC(),
	}
}

// Clone returns a deep copy safe to read outside the registry lock.
func (m *Match) Clone() Match {
	c := *m
	if m.CreatorUsername != nil {
		v := *m.CreatorUsername
		c.CreatorUsername = &v
	}
	if m.LastActiveAt != nil {
		v := *m.LastActiveAt
		c.LastActiveAt = &v
	}
	c.PlayerA = m.PlayerA.Clone()
	if m.PlayerB != nil {
		pb := m.PlayerB.Clone()
		c.PlayerB = &pb
	}
	return c
}

// IsBothReady reports whether both players are ready with characters set.
func (m *Match) IsBothReady() bool {
	if m.PlayerB == nil {
		return false
	}
	return m.PlayerA.Ready && m.PlayerA.Character != nil &&
		m.PlayerB.Ready && m.PlayerB.Character != nil
}

// IsValid reports whether the match may still be joined or resumed.
// A match is invalid once its battle finished, or once both participants
// have been absent for longer than MatchInactivityTimeout.
func (m *Match) IsValid(now time.Time) bool {
	if m.BattleFinished {
		return false
	}
	if m.LastActiveAt != nil && now.Sub(*m.LastActiveAt) > MatchInactivityTimeout {
		return false
	}
	return true
}

func (m *Match) IsParticipant(playerID string) bool {
	if m.PlayerA.ID == playerID {
		return true
	}
	return m.PlayerB != nil && m.PlayerB.ID == playerID
}

// OpponentID returns the id of the other participant, if there is one.
func (m *Match) OpponentID(playerID string) (string, bool) {
	if m.PlayerA.ID == playerID {
		if m.PlayerB == nil {
			return "", false
		}
		return m.PlayerB.ID, true
	}
	if m.PlayerB != nil && m.PlayerB.ID == playerID {
		return m.PlayerA.ID, true
	}
	return "", false
}

// PlayerByID returns the participant with the given id, or nil.
func (m *Match) PlayerByID(playerID string) *Player {
	if m.PlayerA.ID == playerID {
		return &m.PlayerA
	}
	if m.PlayerB != nil && m.PlayerB.ID == playerID {
		return m.PlayerB
	}
	return nil
}

// Info returns the lobby listing entry for this match.
func (m *Match) Info() MatchingInfo {
	return MatchingInfo{
		MatchingID:      m.MatchingID,
		CreatorUsername: m.CreatorUsername,
		CreatedAt:       m.CreatedAt,
		Status:          m.Status,
	}
}

// MatchingInfo is the lobby listing entry for an advertised match.
type MatchingInfo struct {
	MatchingID      uuid.UUID      `json:"matching_id"`
	CreatorUsername *string        `json:"creator_username"`
	CreatedAt       time.Time      `json:"created_at"`
	Status          MatchingStatus `json:"status"`
}

// GameResult summarizes a finished battle. It is delivered to both
// participants in the GameEnd event and is not persisted.
type GameResult struct {
	MatchingID      uuid.UUID `json:"matching_id"`
	WinnerID        string    `json:"winner_id"`
	LoserID         string    `json:"loser_id"`
	PlayerAID       string    `json:"player_a_id"`
	PlayerBID       string    `json:"player_b_id"`
	PlayTimeSeconds int64     `json:"play_time_seconds"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Model3D is an uploaded 3D avatar asset registered in the models table.
type Model3D struct {
	ID         string    `db:"id" json:"id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
	IsUsed     bool      `db:"is_used" json:"is_used"`
}

// UploadModelResponse is the body returned by the model upload endpoint.
type UploadModelResponse struct {
	ModelID  string `json:"model_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}
