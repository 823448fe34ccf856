package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/strayfetch/fetchserver/internal/app"
	"github.com/strayfetch/fetchserver/internal/leaderboard"
	"github.com/strayfetch/fetchserver/internal/ticker"
	"github.com/strayfetch/fetchserver/internal/world"
)

type noopStore struct{}

func (noopStore) Save(ctx context.Context, rec leaderboard.Record) error { return nil }
func (noopStore) Query(ctx context.Context, offset, limit int) ([]leaderboard.Record, error) {
	return nil, nil
}
func (noopStore) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	game := world.NewGame(1000, 1, 60)
	m := &world.Map{
		ID: "map1", Name: "Town", DogSpeed: 1, BagCapacity: 3,
		Roads: []world.Road{world.NewHorizontalRoad(0, 0, 10)},
	}
	if err := game.AddMap(m); err != nil {
		t.Fatalf("AddMap: %v", err)
	}
	a := app.New(game, noopStore{}, false, func() float64 { return 0 })
	return &Server{App: a, Ticker: ticker.New(0, a.Tick)}
}

func TestHandleListMaps(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/maps")
	if err != nil {
		t.Fatalf("GET /maps: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var maps []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&maps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(maps) != 1 || maps[0]["id"] != "map1" {
		t.Fatalf("want one map map1, got %+v", maps)
	}
}

func TestJoinThenStateFlow(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"userName": "alice", "mapId": "map1"})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/game/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST join: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var joined struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if joined.AuthToken == "" {
		t.Fatalf("want non-empty auth token")
	}

	stateReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/game/state", nil)
	stateReq.Header.Set("Authorization", "Bearer "+joined.AuthToken)
	stateResp, err := http.DefaultClient.Do(stateReq)
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer stateResp.Body.Close()
	if stateResp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", stateResp.StatusCode)
	}
}

func TestStateWithoutTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/game/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestTickRejectsZeroTimeDelta(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]int64{"timeDelta": 0})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/game/tick", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST tick: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for timeDelta=0, got %d", resp.StatusCode)
	}
}

func TestTickAcceptsPositiveTimeDelta(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]int64{"timeDelta": 100})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/game/tick", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST tick: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 for a positive timeDelta, got %d", resp.StatusCode)
	}
}

func TestUnknownEndpointIs400(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/nonexistent")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}
