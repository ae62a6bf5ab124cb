package game

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/playarena/backend/internal/models"
)

// snapshotTTL bounds how long a pre-battle match survives a server
// restart. Matches past this age would fail the inactivity check anyway.
const snapshotTTL = time.Hour

// SnapshotStore persists pre-battle match state to Redis so that a
// reconnecting client can resume a Waiting or Matched session after a
// restart. All methods tolerate a nil client; snapshots are best effort.
type SnapshotStore struct {
	rdb *redis.Client
}

func NewSnapshotStore(rdb *redis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

func snapshotKey(matchingID uuid.UUID) string {
	return "matching:" + matchingID.String() + ":state"
}

// Save writes the match under matching:<id>:state with a 1 hour expiry.
func (s *SnapshotStore) Save(match *models.Match) {
	if s.rdb == nil {
		return
	}

	data, err := json.Marshal(match)
	if err != nil {
		log.Printf("[GAME] Failed to marshal match %s for snapshot: %v", match.MatchingID, err)
		return
	}

	ctx := context.Background()
	if err := s.rdb.SetEx(ctx, snapshotKey(match.MatchingID), data, snapshotTTL).Err(); err != nil {
		log.Printf("[GAME] Failed to save match snapshot %s: %v", match.MatchingID, err)
	}
}

// Load returns the snapshotted match, or nil when no snapshot exists.
func (s *SnapshotStore) Load(matchingID uuid.UUID) *models.Match {
	if s.rdb == nil {
		return nil
	}

	ctx := context.Background()
	data, err := s.rdb.Get(ctx, snapshotKey(matchingID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[GAME] Failed to load match snapshot %s: %v", matchingID, err)
		}
		return nil
	}

	var match models.Match
	if err := json.Unmarshal([]byte(data), &match); err != nil {
		log.Printf("[GAME] Failed to unmarshal match snapshot %s: %v", matchingID, err)
		return nil
	}
	return &match
}

// Delete removes the snapshot once the match starts, finishes or expires.
func (s *SnapshotStore) Delete(matchingID uuid.UUID) {
	if s.rdb == nil {
		return
	}

	ctx := context.Background()
	if err := s.rdb.Del(ctx, snapshotKey(matchingID)).Err(); err != nil {
		log.Printf("[GAME] Failed to delete match snapshot %s: %v", matchingID, err)
	}
}
