package game

import (
	"testing"

	"github.com/playarena/backend/internal/models"
)

func TestSnapshotStoreToleratesNilClient(t *testing.T) {
	s := NewSnapshotStore(nil)
	m := models.NewMatch("p1", nil)

	s.Save(m)
	if got := s.Load(m.MatchingID); got != nil {
		t.Errorf("Load with no backing client = %+v, want nil", got)
	}
	s.Delete(m.MatchingID)
}
