package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/playarena/backend/internal/game"
	"github.com/playarena/backend/internal/models"
)

const (
	// pingInterval is how often the server probes the client; pongWait is
	// how long a silent connection survives. Ping and pong frames from the
	// client both refresh the deadline, ordinary text frames do not.
	pingInterval = 5 * time.Second
	pongWait     = 10 * time.Second
	writeWait    = 10 * time.Second

	maxMessageSize = 65536
)

// ModelStore is the slice of the model store that Ready handling needs.
// *models.Store satisfies it; tests substitute an in-memory fake.
type ModelStore interface {
	FindByID(ctx context.Context, id string) (*models.Model3D, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
}

// Session is one player's websocket connection. Dispatch runs on the read
// goroutine; matchingID is only touched there and during setup, before the
// pumps start.
type Session struct {
	conn     *websocket.Conn
	queue    *Queue
	playerID string

	// matchingID is the match this session is bound to, nil until a
	// create, join or pre-bound connect.
	matchingID *uuid.UUID

	gw *Gateway
}

func newSession(conn *websocket.Conn, playerID string, gw *Gateway) *Session {
	return &Session{
		conn:     conn,
		queue:    NewQueue(),
		playerID: playerID,
		gw:       gw,
	}
}

func (s *Session) sendError(message string) {
	s.queue.Send(models.EncodeError(message))
}

func (s *Session) send(msgType string, data any) {
	frame, err := models.Encode(msgType, data)
	if err != nil {
		log.Printf("[WS] Failed to encode %s for player %s: %v", msgType, s.playerID, err)
		return
	}
	s.queue.Send(frame)
}

// readPump consumes inbound frames until the connection dies, then tears
// the session down.
func (s *Session) readPump() {
	defer func() {
		s.teardown()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	s.conn.SetPingHandler(func(appData string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		// WriteControl is safe concurrently with the write pump.
		s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for player %s: %v", s.playerID, err)
			} else {
				log.Printf("WebSocket read error for player %s: %v", s.playerID, err)
			}
			break
		}
		s.dispatch(raw)
	}
}

// writePump drains the outbound queue onto the connection and keeps the
// client alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.queue.Wait():
			for {
				frame, ok := s.queue.Next()
				if !ok {
					break
				}
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					log.Printf("WebSocket write error for player %s: %v", s.playerID, err)
					return
				}
			}
			if s.queue.IsClosed() {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for player %s: %v", s.playerID, err)
				return
			}
		}
	}
}

// teardown detaches the session from every registry. When this was the
// match's last connection, the inactivity timer starts.
func (s *Session) teardown() {
	s.gw.lobby.Remove(s.playerID)
	s.gw.lobby.BroadcastUpdate()

	if s.matchingID != nil {
		if emptied := s.gw.channels.Unregister(*s.matchingID, s.playerID); emptied {
			log.Printf("[WS] All players disconnected from match %s, starting inactivity timer", *s.matchingID)
			s.gw.sessions.MarkInactive(*s.matchingID, time.Now().UTC())
		}
	}

	s.queue.Close()
	log.Printf("[WS] Player %s disconnected", s.playerID)
}

func (s *Session) dispatch(raw []byte) {
	env, err := models.DecodeEnvelope(raw)
	if err != nil {
		s.rejectFrame(string(raw))
		return
	}

	switch env.Type {
	case models.TypeCreateMatching:
		var data models.CreateMatchingData
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) != nil {
			s.rejectFrame(string(raw))
			return
		}
		s.handleCreateMatching(data)

	case models.TypeJoinMatch:
		var data models.JoinMatchData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.rejectFrame(string(raw))
			return
		}
		s.handleJoinMatch(data)

	case models.TypeReady:
		var data models.ReadyData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.rejectFrame(string(raw))
			return
		}
		s.handleReady(data)

	case models.TypeInput:
		var data models.InputData
		if err := json.Unmarshal(env.Data, &data); err != nil || !data.Action.IsValid() {
			s.rejectFrame(string(raw))
			return
		}
		s.handleInput(data)

	case models.TypeStateUpdate:
		var data models.StateUpdateData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.rejectFrame(string(raw))
			return
		}
		s.handleStateUpdate(data)

	case models.TypeApplyDamage:
		var data models.ApplyDamageData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.rejectFrame(string(raw))
			return
		}
		s.handleApplyDamage(data)

	case models.TypeMatchingCreated, models.TypeUpdateMatchings,
		models.TypeMatchingEstablished, models.TypeMatchingSuccess,
		models.TypeOpponentCharacterSelected, models.TypeGameStart,
		models.TypeOpponentStateUpdate, models.TypeOpponentAttacked,
		models.TypeGameEnd, models.TypeError:
		// Server-to-client tags echoed back by a confused client.
		log.Printf("[WS] Unhandled message type %q from player %s", env.Type, s.playerID)

	default:
		s.rejectFrame(string(raw))
	}
}

// rejectFrame reports a frame the dispatcher could not act on. The retired
// SelectCharacter tag gets migration guidance instead of the generic error.
func (s *Session) rejectFrame(raw string) {
	if strings.Contains(raw, `"type":"`+models.TypeSelectCharacter+`"`) {
		s.sendError(`SelectCharacter is deprecated. Use Ready with selected_model_id instead. Example: {"type":"Ready","data":{"selected_model_id":"your_model_id"}}`)
		return
	}
	log.Printf("[WS] Invalid message from player %s: %s", s.playerID, raw)
	s.sendError("Invalid message format: " + raw)
}

func (s *Session) handleCreateMatching(data models.CreateMatchingData) {
	matchingID := s.gw.sessions.Create(s.playerID, data.Username)
	s.matchingID = &matchingID

	current := s.gw.lobby.Add(s.playerID, matchingID, s.queue)
	s.send(models.TypeMatchingCreated, models.MatchingCreatedData{
		MatchingID:       matchingID,
		CurrentMatchings: current,
		Timestamp:        time.Now().UTC(),
	})

	s.gw.lobby.BroadcastUpdate()
}

func (s *Session) handleJoinMatch(data models.JoinMatchData) {
	outcome, err := s.gw.sessions.Join(data.MatchingID, s.playerID)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	matchingID := data.MatchingID
	s.matchingID = &matchingID

	if outcome.Rejoin {
		s.gw.channels.Register(matchingID, s.playerID, s.queue)
		s.send(models.TypeMatchingSuccess, models.MatchingSuccessData{
			MatchingID: matchingID,
			OpponentID: outcome.PlayerAID,
			Timestamp:  time.Now().UTC(),
		})
		return
	}

	// Move the creator's queue out of the lobby; leave the channel entry
	// from a pre-bound reconnect in place when they are not waiting.
	creatorQueue, creatorWasWaiting := s.gw.lobby.Take(outcome.PlayerAID)
	s.gw.lobby.Remove(s.playerID)

	s.gw.channels.Register(matchingID, s.playerID, s.queue)
	if creatorWasWaiting {
		s.gw.channels.Register(matchingID, outcome.PlayerAID, creatorQueue)
	}

	now := time.Now().UTC()
	s.sendToMatch(matchingID, outcome.PlayerAID, models.TypeMatchingEstablished, models.MatchingEstablishedData{
		MatchingID: matchingID,
		OpponentID: s.playerID,
		Timestamp:  now,
	})
	s.sendToMatch(matchingID, s.playerID, models.TypeMatchingEstablished, models.MatchingEstablishedData{
		MatchingID: matchingID,
		OpponentID: outcome.PlayerAID,
		Timestamp:  now,
	})

	s.gw.lobby.BroadcastUpdate()
}

func (s *Session) handleReady(data models.ReadyData) {
	if s.matchingID == nil {
		s.sendError("No active matching session")
		return
	}
	matchingID := *s.matchingID

	if err := s.gw.sessions.ValidateReady(matchingID, s.playerID); err != nil {
		s.sendError(err.Error())
		return
	}

	// The store round-trips run without any registry lock; CompleteReady
	// re-validates the match afterwards.
	ctx := context.Background()
	model, err := s.gw.store.FindByID(ctx, data.SelectedModelID)
	if err != nil {
		log.Printf("[WS] Model lookup failed for %s: %v", data.SelectedModelID, err)
		s.sendError("Failed to validate model ID")
		return
	}
	if model == nil {
		s.sendError(fmt.Sprintf("Model ID '%s' not found. Please upload a 3D model first.", data.SelectedModelID))
		return
	}
	if model.IsUsed {
		s.sendError(fmt.Sprintf("Model ID '%s' has already been used.", data.SelectedModelID))
		return
	}

	claimed, err := s.gw.store.MarkUsed(ctx, data.SelectedModelID)
	if err != nil {
		log.Printf("[WS] Failed to mark model %s as used: %v", data.SelectedModelID, err)
		s.sendError("Failed to process model selection")
		return
	}
	if !claimed {
		// Lost the claim race to the other player.
		s.sendError(fmt.Sprintf("Model ID '%s' has already been used.", data.SelectedModelID))
		return
	}

	res, err := s.gw.sessions.CompleteReady(matchingID, s.playerID, data.SelectedModelID)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	if res.OpponentID != "" {
		s.sendToMatch(matchingID, res.OpponentID, models.TypeOpponentCharacterSelected, models.OpponentCharacterSelectedData{
			Character: res.Character,
			Timestamp: time.Now().UTC(),
		})
	}

	if res.Started {
		senders := s.gw.channels.Senders(matchingID)
		s.gw.orchestrator.StartGame(res.Battle, senders)
	}
}

func (s *Session) handleInput(data models.InputData) {
	if s.matchingID == nil {
		return
	}
	s.gw.orchestrator.ProcessInput(*s.matchingID, s.playerID, data.Action)
}

func (s *Session) handleStateUpdate(data models.StateUpdateData) {
	if s.matchingID == nil {
		return
	}
	s.gw.orchestrator.ProcessStateUpdate(*s.matchingID, s.playerID, data.Position, data.Rotation)
}

func (s *Session) handleApplyDamage(data models.ApplyDamageData) {
	if s.matchingID == nil {
		return
	}
	s.gw.orchestrator.ApplyDamage(*s.matchingID, s.playerID, data.Damage)
}

// sendToMatch encodes once and delivers through the channel registry.
func (s *Session) sendToMatch(matchingID uuid.UUID, playerID, msgType string, data any) {
	frame, err := models.Encode(msgType, data)
	if err != nil {
		log.Printf("[WS] Failed to encode %s for player %s: %v", msgType, playerID, err)
		return
	}
	if !s.gw.channels.Send(matchingID, playerID, frame) {
		log.Printf("[WS] No sender for player %s in match %s, dropping %s", playerID, matchingID, msgType)
	}
}
