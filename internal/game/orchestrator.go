package game

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/models"
)

const (
	defaultTickInterval    = 16 * time.Millisecond
	defaultCleanupInterval = time.Second
)

// Sender delivers an encoded frame to one connected player. Implemented
// by the websocket layer's outbound queue; Send never blocks and reports
// false once the queue is closed.
type Sender interface {
	Send(frame []byte) bool
}

type startGameCmd struct {
	battle  *Battle
	senders map[string]Sender
}

type inputCmd struct {
	matchingID uuid.UUID
	playerID   string
	action     models.InputAction
}

type stateUpdateCmd struct {
	matchingID uuid.UUID
	playerID   string
	position   models.Vector3
	rotation   models.Vector3
}

type damageCmd struct {
	matchingID uuid.UUID
	playerID   string
	damage     int32
}

// Orchestrator runs all active battles on a single goroutine. Commands
// arrive over channels; the games and senders maps are owned by Run and
// never touched from outside it.
type Orchestrator struct {
	sessions *SessionRegistry

	startCh  chan startGameCmd
	inputCh  chan inputCmd
	stateCh  chan stateUpdateCmd
	damageCh chan damageCmd

	games   map[uuid.UUID]*Battle
	senders map[uuid.UUID]map[string]Sender

	tickInterval    time.Duration
	cleanupInterval time.Duration
}

func NewOrchestrator(sessions *SessionRegistry) *Orchestrator {
	return &Orchestrator{
		sessions:        sessions,
		startCh:         make(chan startGameCmd, 16),
		inputCh:         make(chan inputCmd, 256),
		stateCh:         make(chan stateUpdateCmd, 256),
		damageCh:        make(chan damageCmd, 64),
		games:           make(map[uuid.UUID]*Battle),
		senders:         make(map[uuid.UUID]map[string]Sender),
		tickInterval:    defaultTickInterval,
		cleanupInterval: defaultCleanupInterval,
	}
}

// StartGame installs a battle and its per-player senders, then emits
// GameStart to both sides.
func (o *Orchestrator) StartGame(battle *Battle, senders map[string]Sender) {
	o.startCh <- startGameCmd{battle: battle, senders: senders}
}

// ProcessInput applies a player input to its battle.
func (o *Orchestrator) ProcessInput(matchingID uuid.UUID, playerID string, action models.InputAction) {
	o.inputCh <- inputCmd{matchingID: matchingID, playerID: playerID, action: action}
}

// ProcessStateUpdate overwrites a player's position and rotation from a
// client report.
func (o *Orchestrator) ProcessStateUpdate(matchingID uuid.UUID, playerID string, position, rotation models.Vector3) {
	o.stateCh <- stateUpdateCmd{matchingID: matchingID, playerID: playerID, position: position, rotation: rotation}
}

// ApplyDamage records client-reported damage. Victory is evaluated on the
// next tick.
func (o *Orchestrator) ApplyDamage(matchingID uuid.UUID, playerID string, damage int32) {
	o.damageCh <- damageCmd{matchingID: matchingID, playerID: playerID, damage: damage}
}

// Run consumes commands and drives the victory and cleanup tickers until
// the context is cancelled. Call it once, on its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.tickInterval)
	cleanup := time.NewTicker(o.cleanupInterval)
	defer ticker.Stop()
	defer cleanup.Stop()

	log.Printf("[GAME] Orchestrator started (tick=%s, cleanup=%s)", o.tickInterval, o.cleanupInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[GAME] Orchestrator stopped")
			return
		case cmd := <-o.startCh:
			o.handleStartGame(cmd)
		case cmd := <-o.inputCh:
			o.handleInput(cmd)
		case cmd := <-o.stateCh:
			o.handleStateUpdate(cmd)
		case cmd := <-o.damageCh:
			o.handleDamage(cmd)
		case <-ticker.C:
			o.checkVictories()
		case <-cleanup.C:
			o.cleanupExpired()
		}
	}
}

func (o *Orchestrator) handleStartGame(cmd startGameCmd) {
	b := cmd.battle
	o.games[b.MatchingID] = b
	o.senders[b.MatchingID] = cmd.senders

	now := time.Now().UTC()
	o.sendTo(b.MatchingID, b.PlayerAID, models.TypeGameStart, models.GameStartData{
		OpponentCharacter: b.PlayerBCharacter,
		YourPlayerID:      b.PlayerAID,
		Timestamp:         now,
	})
	o.sendTo(b.MatchingID, b.PlayerBID, models.TypeGameStart, models.GameStartData{
		OpponentCharacter: b.PlayerACharacter,
		YourPlayerID:      b.PlayerBID,
		Timestamp:         now,
	})

	log.Printf("[GAME] Game started for match %s", b.MatchingID)
}

func (o *Orchestrator) handleInput(cmd inputCmd) {
	b, ok := o.games[cmd.matchingID]
	if !ok {
		return
	}

	b.ApplyInput(cmd.playerID, cmd.action)

	if attack := cmd.action.Attack; attack != nil {
		opponentID, ok := b.OpponentOf(cmd.playerID)
		if !ok {
			return
		}
		o.sendTo(cmd.matchingID, opponentID, models.TypeOpponentAttacked, models.OpponentAttackedData{
			AttackerID: cmd.playerID,
			AttackType: attack.AttackType,
			Position:   attack.Position,
			Direction:  attack.Direction,
			Timestamp:  time.Now().UTC(),
		})
		return
	}

	o.sendOpponentState(cmd.matchingID, cmd.playerID)
}

func (o *Orchestrator) handleStateUpdate(cmd stateUpdateCmd) {
	b, ok := o.games[cmd.matchingID]
	if !ok {
		return
	}
	b.UpdateState(cmd.playerID, cmd.position, cmd.rotation)
	o.sendOpponentState(cmd.matchingID, cmd.playerID)
}

func (o *Orchestrator) handleDamage(cmd damageCmd) {
	b, ok := o.games[cmd.matchingID]
	if !ok {
		return
	}
	b.ApplyDamage(cmd.playerID, cmd.damage)
}

// sendOpponentState pushes the acting player's full character state to
// the opponent.
func (o *Orchestrator) sendOpponentState(matchingID uuid.UUID, playerID string) {
	b, ok := o.games[matchingID]
	if !ok {
		return
	}
	character := b.CharacterOf(playerID)
	opponentID, hasOpponent := b.OpponentOf(playerID)
	if character == nil || !hasOpponent {
		return
	}
	o.sendTo(matchingID, opponentID, models.TypeOpponentStateUpdate, models.OpponentStateUpdateData{
		Opponent:  *character,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) sendTo(matchingID uuid.UUID, playerID, msgType string, data any) {
	playerSenders, ok := o.senders[matchingID]
	if !ok {
		return
	}
	sender, ok := playerSenders[playerID]
	if !ok {
		return
	}
	frame, err := models.Encode(msgType, data)
	if err != nil {
		log.Printf("[GAME] Failed to encode %s for player %s: %v", msgType, playerID, err)
		return
	}
	sender.Send(frame)
}

func (o *Orchestrator) checkVictories() {
	var finished []uuid.UUID
	for id, b := range o.games {
		if b.IsOver() {
			finished = append(finished, id)
		}
	}
	for _, id := range finished {
		o.finishGame(id)
	}
}

func (o *Orchestrator) finishGame(matchingID uuid.UUID) {
	b := o.games[matchingID]
	winnerID, _ := b.Winner()
	loserID, _ := b.OpponentOf(winnerID)

	now := time.Now().UTC()
	result := models.GameResult{
		MatchingID:      b.MatchingID,
		WinnerID:        winnerID,
		LoserID:         loserID,
		PlayerAID:       b.PlayerAID,
		PlayerBID:       b.PlayerBID,
		PlayTimeSeconds: int64(now.Sub(b.StartedAt).Seconds()),
		FinishedAt:      now,
	}

	frame, err := models.Encode(models.TypeGameEnd, models.GameEndData{Result: result, Timestamp: now})
	if err != nil {
		log.Printf("[GAME] Failed to encode GameEnd for match %s: %v", matchingID, err)
	} else {
		for _, sender := range o.senders[matchingID] {
			sender.Send(frame)
		}
	}

	delete(o.games, matchingID)
	delete(o.senders, matchingID)
	o.sessions.FinishBattle(matchingID)

	log.Printf("[GAME] Match %s finished: winner=%s loser=%s play_time=%ds",
		matchingID, winnerID, loserID, result.PlayTimeSeconds)
}

func (o *Orchestrator) cleanupExpired() {
	for _, id := range o.sessions.PurgeInvalid(time.Now().UTC()) {
		delete(o.games, id)
		delete(o.senders, id)
	}
}
