package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/playarena/backend/internal/game"
	"github.com/playarena/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Gateway bundles the process-wide registries behind the websocket
// endpoint. One Gateway serves every connection.
type Gateway struct {
	sessions     *game.SessionRegistry
	lobby        *LobbyRegistry
	channels     *ChannelRegistry
	orchestrator *game.Orchestrator
	store        ModelStore
}

func NewGateway(sessions *game.SessionRegistry, lobby *LobbyRegistry, channels *ChannelRegistry, orchestrator *game.Orchestrator, store ModelStore) *Gateway {
	return &Gateway{
		sessions:     sessions,
		lobby:        lobby,
		channels:     channels,
		orchestrator: orchestrator,
		store:        store,
	}
}

// HandleConnection upgrades /ws requests. An absent player_id gets a
// generated one; a matching_id query parameter pre-binds the session to
// that match, rejecting the request before upgrade when the match is
// unknown or expired.
func (g *Gateway) HandleConnection(c *gin.Context) {
	playerID := c.Query("player_id")
	if playerID == "" {
		playerID = uuid.New().String()
		log.Printf("[WS] Generated player_id=%s", playerID)
	}

	var matchingID *uuid.UUID
	var connectInfo game.ConnectInfo
	if raw := c.Query("matching_id"); raw != "" {
		// A malformed id is ignored rather than rejected; the session
		// simply starts unbound.
		if id, err := uuid.Parse(raw); err == nil {
			info, err := g.sessions.Connect(id, playerID, time.Now().UTC())
			if err != nil {
				log.Printf("[WS] Rejecting connection for match %s: %v", id, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			matchingID = &id
			connectInfo = info
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	session := newSession(conn, playerID, g)

	if matchingID != nil {
		session.matchingID = matchingID
		g.channels.Register(*matchingID, playerID, session.queue)

		if connectInfo.Participant && connectInfo.OpponentID != "" {
			session.send(models.TypeMatchingSuccess, models.MatchingSuccessData{
				MatchingID: *matchingID,
				OpponentID: connectInfo.OpponentID,
				Timestamp:  time.Now().UTC(),
			})
		}
		log.Printf("[WS] Player %s connected to match %s", playerID, *matchingID)
	} else {
		log.Printf("[WS] Player %s connected", playerID)
	}

	go session.writePump()
	go session.readPump()
}
