package ws

import (
	"sync"

	"github.com/google/uuid"

	"github.com/playarena/backend/internal/game"
)

// ChannelRegistry maps each match to the outbound queues of its connected
// players. Sessions register on connect and join, and unregister on
// disconnect; an entry with no players left is removed immediately.
type ChannelRegistry struct {
	mu       sync.Mutex
	channels map[uuid.UUID]map[string]*Queue
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[uuid.UUID]map[string]*Queue)}
}

// Register adds or replaces the player's queue for the match.
func (r *ChannelRegistry) Register(matchingID uuid.UUID, playerID string, queue *Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.channels[matchingID]
	if !ok {
		players = make(map[string]*Queue)
		r.channels[matchingID] = players
	}
	players[playerID] = queue
}

// Unregister removes the player's queue. It reports true when an existing
// match entry was emptied by the removal, which is the signal to start
// the match's inactivity timer.
func (r *ChannelRegistry) Unregister(matchingID uuid.UUID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.channels[matchingID]
	if !ok {
		return false
	}
	delete(players, playerID)
	if len(players) == 0 {
		delete(r.channels, matchingID)
		return true
	}
	return false
}

// Send pushes a frame to one player of a match. It reports false when the
// player has no registered queue or the queue is closed.
func (r *ChannelRegistry) Send(matchingID uuid.UUID, playerID string, frame []byte) bool {
	r.mu.Lock()
	queue, ok := r.channels[matchingID][playerID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return queue.Send(frame)
}

// Senders snapshots the match's queues as orchestrator senders.
func (r *ChannelRegistry) Senders(matchingID uuid.UUID) map[string]game.Sender {
	r.mu.Lock()
	defer r.mu.Unlock()

	senders := make(map[string]game.Sender)
	for playerID, queue := range r.channels[matchingID] {
		senders[playerID] = queue
	}
	return senders
}
