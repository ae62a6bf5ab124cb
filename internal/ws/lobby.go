package ws

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/game"
	"github.com/playarena/backend/internal/models"
)

// LobbyRegistry tracks players advertising a Waiting match. Listings are
// resolved against the session registry while the lobby lock is held, so
// a broadcast sees a consistent view of both. The lock order is always
// lobby before sessions.
type LobbyRegistry struct {
	mu       sync.Mutex
	sessions *game.SessionRegistry
	waiting  map[string]lobbyEntry
}

type lobbyEntry struct {
	matchingID uuid.UUID
	queue      *Queue
}

func NewLobbyRegistry(sessions *game.SessionRegistry) *LobbyRegistry {
	return &LobbyRegistry{
		sessions: sessions,
		waiting:  make(map[string]lobbyEntry),
	}
}

// Add registers an advertiser and returns the listing of everyone else's
// matches, which seeds the creator's MatchingCreated payload.
func (l *LobbyRegistry) Add(playerID string, matchingID uuid.UUID, queue *Queue) []models.MatchingInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waiting[playerID] = lobbyEntry{matchingID: matchingID, queue: queue}
	return l.listingsLocked(playerID)
}

// Take removes an advertiser and hands back their queue so a join can move
// it into the channel registry.
func (l *LobbyRegistry) Take(playerID string) (*Queue, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.waiting[playerID]
	if !ok {
		return nil, false
	}
	delete(l.waiting, playerID)
	return entry.queue, true
}

// Remove drops an advertiser, if present.
func (l *LobbyRegistry) Remove(playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.waiting, playerID)
}

// BroadcastUpdate pushes a personalized UpdateMatchings frame to every
// advertiser. Enqueueing under the lock is safe; queues never block.
func (l *LobbyRegistry) BroadcastUpdate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	for playerID, entry := range l.waiting {
		frame, err := models.Encode(models.TypeUpdateMatchings, models.UpdateMatchingsData{
			CurrentMatchings: l.listingsLocked(playerID),
			Timestamp:        now,
		})
		if err != nil {
			log.Printf("[WS] Failed to encode UpdateMatchings for player %s: %v", playerID, err)
			continue
		}
		entry.queue.Send(frame)
	}
}

// listingsLocked builds the lobby listing excluding the given player's own
// match. Callers hold l.mu.
func (l *LobbyRegistry) listingsLocked(exceptPlayerID string) []models.MatchingInfo {
	ids := make([]uuid.UUID, 0, len(l.waiting))
	for playerID, entry := range l.waiting {
		if playerID == exceptPlayerID {
			continue
		}
		ids = append(ids, entry.matchingID)
	}

	infos := l.sessions.InfoFor(ids)
	listings := make([]models.MatchingInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := infos[id]; ok {
			listings = append(listings, info)
		}
	}
	return listings
}
