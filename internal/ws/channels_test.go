package ws

import (
	"testing"

	"github.com/google/uuid"
)

func TestChannelRegistrySendRouting(t *testing.T) {
	r := NewChannelRegistry()
	id := uuid.New()
	q1, q2 := NewQueue(), NewQueue()
	r.Register(id, "p1", q1)
	r.Register(id, "p2", q2)

	if !r.Send(id, "p1", []byte("hello")) {
		t.Fatal("Send to a registered player failed")
	}
	if q1.Len() != 1 || q2.Len() != 0 {
		t.Errorf("Queue lengths: p1=%d p2=%d", q1.Len(), q2.Len())
	}

	if r.Send(id, "ghost", []byte("x")) {
		t.Error("Send to an unregistered player reported success")
	}
	if r.Send(uuid.New(), "p1", []byte("x")) {
		t.Error("Send to an unknown match reported success")
	}
}

func TestChannelRegistryUnregisterReportsEmptied(t *testing.T) {
	r := NewChannelRegistry()
	id := uuid.New()
	r.Register(id, "p1", NewQueue())
	r.Register(id, "p2", NewQueue())

	if r.Unregister(id, "p1") {
		t.Error("Removal with a player remaining reported emptied")
	}
	if !r.Unregister(id, "p2") {
		t.Error("Removing the last player must report emptied")
	}

	// Once the entry is gone, further removals are not an emptying event.
	if r.Unregister(id, "p2") {
		t.Error("Unregister on a missing match reported emptied")
	}
}

func TestChannelRegistryReplaceQueueOnReconnect(t *testing.T) {
	r := NewChannelRegistry()
	id := uuid.New()
	old, fresh := NewQueue(), NewQueue()

	r.Register(id, "p1", old)
	r.Register(id, "p1", fresh)
	r.Send(id, "p1", []byte("frame"))

	if old.Len() != 0 {
		t.Error("Frame landed in the replaced queue")
	}
	if fresh.Len() != 1 {
		t.Error("Frame missing from the replacement queue")
	}
}

func TestChannelRegistrySendersSnapshot(t *testing.T) {
	r := NewChannelRegistry()
	id := uuid.New()
	q1, q2 := NewQueue(), NewQueue()
	r.Register(id, "p1", q1)
	r.Register(id, "p2", q2)

	senders := r.Senders(id)
	if len(senders) != 2 {
		t.Fatalf("Snapshot has %d senders, want 2", len(senders))
	}
	senders["p1"].Send([]byte("frame"))
	if q1.Len() != 1 {
		t.Error("Snapshot sender not backed by the registered queue")
	}

	if empty := r.Senders(uuid.New()); len(empty) != 0 {
		t.Errorf("Unknown match snapshot has %d senders", len(empty))
	}
}
