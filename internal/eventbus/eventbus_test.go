package eventbus

import (
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		if strings.Contains(err.Error(), "unknown driver") {
			t.Skip("sqlite driver not available")
		}
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterIsIdempotentPerMachineAndClient(t *testing.T) {
	s := newTestStore(t)
	id1, err := s.Register("session-a", "host1", "/repo", "client-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	id2, err := s.Register("session-a-renamed", "host1", "/repo2", "client-1")
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same session id, got %q and %q", id1, id2)
	}

	sessions, err := s.ListSessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Name != "session-a-renamed" || sessions[0].Cwd != "/repo2" {
		t.Fatalf("expected second call's name/cwd to win, got %+v", sessions)
	}
}

func TestHeartbeatIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Register("s", "host1", "/repo", "client-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Heartbeat(id); err != nil {
			t.Fatalf("heartbeat: %v", err)
		}
	}
	sessions, err := s.ListSessions()
	if err != nil || len(sessions) != 1 {
		t.Fatalf("expected exactly one session, got %v err=%v", sessions, err)
	}
}

func TestUnregisterRemovesSession(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Register("s", "host1", "/repo", "client-1")
	if err := s.Unregister(id); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	sessions, err := s.ListSessions()
	if err != nil || len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %v err=%v", sessions, err)
	}
}

func TestPublishThenGetEventsAscReturnsExactlyOnceInOrder(t *testing.T) {
	s := newTestStore(t)
	sid, _ := s.Register("s", "host1", "/repo", "client-1")
	for i := 0; i < 3; i++ {
		if _, err := s.PublishEvent("note", "payload", "ch", sid); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	page1, err := s.GetEvents(GetEventsOptions{Channel: "ch", Order: "asc", SessionID: sid, Limit: 2})
	if err != nil {
		t.Fatalf("get events page 1: %v", err)
	}
	if len(page1) != 2 || page1[0].ID >= page1[1].ID {
		t.Fatalf("expected 2 strictly increasing ids, got %+v", page1)
	}

	page2, err := s.GetEvents(GetEventsOptions{Channel: "ch", Order: "asc", SessionID: sid, Resume: true})
	if err != nil {
		t.Fatalf("get events page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != page1[1].ID+1 {
		t.Fatalf("expected exactly the third event via resume cursor, got %+v", page2)
	}
}

func TestListChannelsResolvesAllAndRepoSubscriberCounts(t *testing.T) {
	s := newTestStore(t)
	s.Register("a", "host1", "/work/repo-x", "client-1")
	s.Register("b", "host1", "/work/repo-y", "client-2")
	s.PublishEvent("note", "p", "repo:repo-x", "")

	channels, err := s.ListChannels()
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	var found bool
	for _, c := range channels {
		if c.Channel == "all" && c.Subscribers != 2 {
			t.Fatalf("expected 2 live sessions on 'all', got %d", c.Subscribers)
		}
		if c.Channel == "repo:repo-x" {
			found = true
			if c.Subscribers != 1 {
				t.Fatalf("expected 1 subscriber for repo:repo-x, got %d", c.Subscribers)
			}
		}
	}
	if !found {
		t.Fatal("expected repo:repo-x channel to be present")
	}
}
