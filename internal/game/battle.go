package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/models"
)

// moveStepSeconds is the simulation step applied to Move inputs, one
// frame at the 60 Hz tick rate.
const moveStepSeconds float32 = 0.016667

// Battle is the orchestrator's replicated per-match character state. The
// session registry keeps the authoritative Match; a Battle is created when
// a match enters InGame and lives until victory or expiry.
type Battle struct {
	MatchingID       uuid.UUID
	PlayerAID        string
	PlayerBID        string
	PlayerACharacter models.Character
	PlayerBCharacter models.Character
	StartedAt        time.Time
}

// NewBattle snapshots both characters at InGame entry. StartedAt feeds
// play_time_seconds in the final GameResult.
func NewBattle(matchingID uuid.UUID, playerAID, playerBID string, playerAChar, playerBChar models.Character) *Battle {
	return &Battle{
		MatchingID:       matchingID,
		PlayerAID:        playerAID,
		PlayerBID:        playerBID,
		PlayerACharacter: playerAChar,
		PlayerBCharacter: playerBChar,
		StartedAt:        time.Now().UTC(),
	}
}

// CharacterOf returns the character controlled by the given player, or nil
// for an unknown player id.
func (b *Battle) CharacterOf(playerID string) *models.Character {
	switch playerID {
	case b.PlayerAID:
		return &b.PlayerACharacter
	case b.PlayerBID:
		return &b.PlayerBCharacter
	}
	return nil
}

// OpponentOf returns the other participant's id.
func (b *Battle) OpponentOf(playerID string) (string, bool) {
	switch playerID {
	case b.PlayerAID:
		return b.PlayerBID, true
	case b.PlayerBID:
		return b.PlayerAID, true
	}
	return "", false
}

// ApplyInput mutates the acting player's character. Move integrates one
// 60 Hz step of velocity, Rotate overwrites the rotation, Attack leaves
// state untouched (damage is client-reported). Unknown players are a no-op.
func (b *Battle) ApplyInput(playerID string, action models.InputAction) {
	character := b.CharacterOf(playerID)
	if character == nil {
		return
	}

	switch {
	case action.Move != nil:
		velocity := action.Move.Direction.Normalized().Scale(action.Move.Speed * moveStepSeconds)
		character.Position = character.Position.Add(velocity)
	case action.Rotate != nil:
		character.Rotation = action.Rotate.Rotation
	case action.Attack != nil:
		// Relay only; the server does not simulate hits.
	}
}

// UpdateState overwrites the player's position and rotation from a client
// StateUpdate report.
func (b *Battle) UpdateState(playerID string, position, rotation models.Vector3) {
	character := b.CharacterOf(playerID)
	if character == nil {
		return
	}
	character.Position = position
	character.Rotation = rotation
}

// ApplyDamage clamps the victim's hp at zero. Victory is evaluated on the
// next tick, not here.
func (b *Battle) ApplyDamage(playerID string, damage int32) {
	character := b.CharacterOf(playerID)
	if character == nil {
		return
	}
	hp := character.HP - damage
	if hp < 0 {
		hp = 0
	}
	character.HP = hp
}

// Winner returns the surviving player once the battle is decided. When
// both characters die in the same tick, player A wins the tie-break.
func (b *Battle) Winner() (string, bool) {
	if !b.PlayerBCharacter.IsAlive() {
		return b.PlayerAID, true
	}
	if !b.PlayerACharacter.IsAlive() {
		return b.PlayerBID, true
	}
	return "", false
}

// IsOver reports whether either character has reached zero hp.
func (b *Battle) IsOver() bool {
	_, over := b.Winner()
	return over
}
