package app

import (
	"context"
	"testing"
	"time"

	"github.com/strayfetch/fetchserver/internal/leaderboard"
	"github.com/strayfetch/fetchserver/internal/session"
	"github.com/strayfetch/fetchserver/internal/world"
)

type fakeStore struct {
	saved []leaderboard.Record
}

func (f *fakeStore) Save(ctx context.Context, rec leaderboard.Record) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) Query(ctx context.Context, offset, limit int) ([]leaderboard.Record, error) {
	return f.saved, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestApp(t *testing.T, retirementSeconds float64) (*App, *fakeStore) {
	t.Helper()
	game := world.NewGame(1000, 1, retirementSeconds)
	m := &world.Map{
		ID: "map1", Name: "Town", DogSpeed: 1, BagCapacity: 3,
		Roads: []world.Road{world.NewHorizontalRoad(0, 0, 10)},
	}
	if err := game.AddMap(m); err != nil {
		t.Fatalf("AddMap: %v", err)
	}
	store := &fakeStore{}
	a := New(game, store, false, func() float64 { return 0 })
	return a, store
}

func TestJoinGameUnknownMapFails(t *testing.T) {
	a, _ := newTestApp(t, 60)
	if _, err := a.JoinGame("alice", "nope"); err == nil {
		t.Fatalf("want error for unknown map")
	}
}

func TestJoinGameEmptyNameFails(t *testing.T) {
	a, _ := newTestApp(t, 60)
	if _, err := a.JoinGame("", "map1"); err == nil {
		t.Fatalf("want error for empty name")
	}
}

func TestJoinGameThenGetState(t *testing.T) {
	a, _ := newTestApp(t, 60)
	result, err := a.JoinGame("alice", "map1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	state, err := a.GetState(result.Token)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Players) != 1 || state.Players[0].ID != result.AvatarID {
		t.Fatalf("want one player with id %d, got %+v", result.AvatarID, state.Players)
	}
}

func TestChangeDirUnknownTokenFails(t *testing.T) {
	a, _ := newTestApp(t, 60)
	if err := a.ChangeDir("bogus", session.DirRight); err == nil {
		t.Fatalf("want error for unknown token")
	}
}

func TestTickMovesAvatarAndRetiresIdlePlayer(t *testing.T) {
	a, store := newTestApp(t, 5) // retire after 5s idle
	result, err := a.JoinGame("alice", "map1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if err := a.ChangeDir(result.Token, session.DirRight); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}

	a.Tick(2 * time.Second)
	state, err := a.GetState(result.Token)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Players[0].Pos[0] <= 0 {
		t.Fatalf("want avatar to have moved right, got pos %+v", state.Players[0].Pos)
	}

	if err := a.ChangeDir(result.Token, session.DirStop); err != nil {
		t.Fatalf("ChangeDir stop: %v", err)
	}
	// Accumulate 6s of idle time, past the 5s retirement threshold.
	a.Tick(6 * time.Second)

	if _, err := a.GetState(result.Token); err == nil {
		t.Fatalf("want player evicted after exceeding retirement threshold")
	}
	if len(store.saved) != 1 {
		t.Fatalf("want one leaderboard record saved on retirement, got %d", len(store.saved))
	}
}

func TestGetRecordsRejectsOversizedLimit(t *testing.T) {
	a, _ := newTestApp(t, 60)
	if _, err := a.GetRecords(context.Background(), 0, leaderboard.MaxLimit+1); err == nil {
		t.Fatalf("want error for a limit above MaxLimit")
	}
}

func TestGetRecordsDefaultsLimit(t *testing.T) {
	a, _ := newTestApp(t, 60)
	if _, err := a.GetRecords(context.Background(), 0, 0); err != nil {
		t.Fatalf("GetRecords: %v", err)
	}
}

func TestGetPlayersIsScopedToOwnSession(t *testing.T) {
	game := world.NewGame(1000, 1, 60)
	mapA := &world.Map{ID: "mapA", Name: "A", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 10)}}
	mapB := &world.Map{ID: "mapB", Name: "B", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 10)}}
	if err := game.AddMap(mapA); err != nil {
		t.Fatalf("AddMap mapA: %v", err)
	}
	if err := game.AddMap(mapB); err != nil {
		t.Fatalf("AddMap mapB: %v", err)
	}
	a := New(game, &fakeStore{}, false, func() float64 { return 0 })

	resultA, err := a.JoinGame("alice", "mapA")
	if err != nil {
		t.Fatalf("JoinGame alice: %v", err)
	}
	if _, err := a.JoinGame("bob", "mapB"); err != nil {
		t.Fatalf("JoinGame bob: %v", err)
	}

	list, err := a.GetPlayers(resultA.Token)
	if err != nil {
		t.Fatalf("GetPlayers: %v", err)
	}
	if len(list) != 1 || list[resultA.AvatarID] != "alice" {
		t.Fatalf("want only alice visible to a mapA token, got %+v", list)
	}
}
