package core

import (
	"errors"
	"testing"

	"cepchain/core/events"
	"cepchain/native/community"
	"cepchain/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	node := NewNode(storage.NewMemDB())
	node.SetAuthority(addr(0xEE))
	if err := node.Execute(func(s *Services) error {
		return s.Communities.InitializeRegistry()
	}); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	return node
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	node := newTestNode(t)
	admin := addr(0x01)

	var id community.ID
	err := node.Execute(func(s *Services) error {
		created, err := s.Communities.Create(admin, "Acme", "desc", community.Metadata{})
		if err != nil {
			return err
		}
		id = created
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if err := node.View(func(s *Services) error {
		if _, ok := s.Communities.Get(id); !ok {
			t.Fatalf("community missing after committed operation")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestExecuteDiscardsOnFailure(t *testing.T) {
	node := newTestNode(t)
	admin := addr(0x01)
	failure := errors.New("late failure")

	err := node.Execute(func(s *Services) error {
		if _, err := s.Communities.Create(admin, "Acme", "desc", community.Metadata{}); err != nil {
			return err
		}
		// The create above buffered writes; failing now must drop them all.
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if err := node.View(func(s *Services) error {
		ids, err := s.Communities.List()
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			t.Fatalf("failed operation leaked %d communities into state", len(ids))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestExecuteWithholdsEventsUntilCommit(t *testing.T) {
	node := newTestNode(t)
	emitter := &capturingEmitter{}
	node.SetEmitter(emitter)
	admin := addr(0x01)
	failure := errors.New("late failure")

	err := node.Execute(func(s *Services) error {
		if _, err := s.Communities.Create(admin, "Acme", "desc", community.Metadata{}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("discarded operation emitted %d events", len(emitter.events))
	}

	if err := node.Execute(func(s *Services) error {
		_, err := s.Communities.Create(admin, "Acme", "desc", community.Metadata{})
		return err
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(emitter.events) == 0 {
		t.Fatalf("committed operation emitted no events")
	}
	if emitter.events[0].EventType() != events.TypeCommunityCreated {
		t.Fatalf("unexpected first event %q", emitter.events[0].EventType())
	}
}

func TestExecuteIsAllOrNothingAcrossEngines(t *testing.T) {
	node := newTestNode(t)
	admin := addr(0x01)
	user := addr(0x02)

	var communityID community.ID
	if err := node.Execute(func(s *Services) error {
		id, err := s.Communities.Create(admin, "Acme", "desc", community.Metadata{})
		communityID = id
		return err
	}); err != nil {
		t.Fatalf("create community: %v", err)
	}

	// Award without a user index fails after the achievement was created in
	// the same operation; the achievement must not survive.
	err := node.Execute(func(s *Services) error {
		id, err := s.Achievements.CreatePlain(admin, communityID, "First Login", "", "", 1)
		if err != nil {
			return err
		}
		_, err = s.Achievements.Award(admin, id, user)
		return err
	})
	if err == nil {
		t.Fatalf("expected award against missing index to fail")
	}

	if err := node.View(func(s *Services) error {
		refs, err := s.Communities.ListAchievements(communityID)
		if err != nil {
			return err
		}
		if len(refs) != 0 {
			t.Fatalf("rolled-back operation leaked %d achievement refs", len(refs))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
