package players

import (
	"testing"

	"github.com/strayfetch/fetchserver/internal/session"
	"github.com/strayfetch/fetchserver/internal/world"
)

func TestNewTokenIsWellFormed(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if len(tok) != tokenSize {
		t.Fatalf("want token length %d, got %d", tokenSize, len(tok))
	}
}

func TestParseBearerTokenRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Bearer ",
		"Basic deadbeef",
		"Bearer " + "short",
	}
	for _, c := range cases {
		if _, ok := ParseBearerToken(c); ok {
			t.Fatalf("want rejection for %q", c)
		}
	}
}

func TestParseBearerTokenAcceptsWellFormed(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	parsed, ok := ParseBearerToken("Bearer " + string(tok))
	if !ok || parsed != tok {
		t.Fatalf("want parsed token %q, got %q ok=%v", tok, parsed, ok)
	}
}

func TestRegistryFindUnknownToken(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Find("nonexistent"); err != ErrUnknownToken {
		t.Fatalf("want ErrUnknownToken, got %v", err)
	}
}

func TestRegistryAddFindAndRemove(t *testing.T) {
	m := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	s := session.New(m, &session.IDCounters{}, 1, 1, nil)
	av := s.AddAvatar("alice", false)

	r := NewRegistry()
	r.BindSession(m.ID, s)
	tok := Token("abc")
	r.Add(tok, m.ID, av.ID)

	got, err := r.Avatar(tok)
	if err != nil || got.Name != "alice" {
		t.Fatalf("want avatar alice, got %+v err=%v", got, err)
	}

	av.Score = 7
	stats, err := r.Remove(tok)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if stats.Name != "alice" || stats.Score != 7 {
		t.Fatalf("want captured stats name=alice score=7, got %+v", stats)
	}
	if _, err := r.Find(tok); err != ErrUnknownToken {
		t.Fatalf("want token gone after Remove, got %v", err)
	}
}

func TestRegistryRemoveUnregisteredTokenIsLogicFault(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Remove("never-added"); err != ErrTokenNotFound {
		t.Fatalf("want ErrTokenNotFound, got %v", err)
	}
}

func TestRegistryListOmitsRemovedPlayers(t *testing.T) {
	m := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	s := session.New(m, &session.IDCounters{}, 1, 1, nil)
	av := s.AddAvatar("bob", false)

	r := NewRegistry()
	r.BindSession(m.ID, s)
	tok := Token("xyz")
	r.Add(tok, m.ID, av.ID)

	if got := r.ListInSession(m.ID); len(got) != 1 || got[av.ID] != "bob" {
		t.Fatalf("want one listed player bob, got %+v", got)
	}

	if _, err := r.Remove(tok); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := r.ListInSession(m.ID); len(got) != 0 {
		t.Fatalf("want empty list after removal, got %+v", got)
	}
}

func TestRegistryListInSessionExcludesOtherMaps(t *testing.T) {
	m1 := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	m2 := &world.Map{ID: "m2", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	s1 := session.New(m1, &session.IDCounters{}, 1, 1, nil)
	s2 := session.New(m2, &session.IDCounters{}, 1, 1, nil)
	av1 := s1.AddAvatar("alice", false)
	av2 := s2.AddAvatar("bob", false)

	r := NewRegistry()
	r.BindSession(m1.ID, s1)
	r.BindSession(m2.ID, s2)
	r.Add(Token("tok1"), m1.ID, av1.ID)
	r.Add(Token("tok2"), m2.ID, av2.ID)

	got := r.ListInSession(m1.ID)
	if len(got) != 1 || got[av1.ID] != "alice" {
		t.Fatalf("want only alice in m1's session, got %+v", got)
	}
}
