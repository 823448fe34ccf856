// Package restapi serves the JSON HTTP surface documented under /api/v1:
// map listing, joining, player listing, state polling, direction changes,
// the external-tick endpoint, and the retired-player leaderboard.
package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/strayfetch/fetchserver/internal/app"
	"github.com/strayfetch/fetchserver/internal/apperr"
	"github.com/strayfetch/fetchserver/internal/players"
	"github.com/strayfetch/fetchserver/internal/session"
	"github.com/strayfetch/fetchserver/internal/ticker"
)

// Server wires the use-case façade to the HTTP surface.
type Server struct {
	App    *app.App
	Ticker *ticker.Ticker
}

// Router builds the full /api/v1 mux.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/maps", s.handleListMaps).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/maps/{id}", s.handleGetMap).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/game/players", s.handlePlayers).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/state", s.handleState).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/player/action", s.handleAction).Methods(http.MethodPost)
	api.HandleFunc("/game/records", s.handleRecords).Methods(http.MethodGet, http.MethodHead)
	if s.Ticker != nil && s.Ticker.External() {
		api.HandleFunc("/game/tick", s.handleTick).Methods(http.MethodPost)
	}

	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.NotFoundHandler = http.HandlerFunc(notFound)

	r.Use(noCacheMiddleware)
	return r
}

func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD, POST")
	writeError(w, apperr.New(apperr.InvalidMethod, "Invalid method"))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperr.New(apperr.BadRequest, "Invalid endpoint"))
}

// writeJSON encodes v as the response body with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps err to its documented JSON body and status code.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.New(apperr.Internal, "Internal server error")
		slog.Error("unhandled error", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status())
	json.NewEncoder(w).Encode(map[string]string{
		"code":    appErr.Code(),
		"message": appErr.Message,
	})
}

func requireJSONContentType(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct != "application/json" {
		return apperr.New(apperr.InvalidArgument, "Invalid content type")
	}
	return nil
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	maps := s.App.GetMaps()
	type mapRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]mapRef, 0, len(maps))
	for _, m := range maps {
		out = append(out, mapRef{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, out)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := s.App.GetMap(id)
	if err != nil {
		writeError(w, err)
		return
	}

	type roadJSON struct {
		X0 float64  `json:"x0"`
		Y0 float64  `json:"y0"`
		X1 *float64 `json:"x1,omitempty"`
		Y1 *float64 `json:"y1,omitempty"`
	}
	type officeJSON struct {
		ID      string  `json:"id"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		OffsetX float64 `json:"offsetX"`
		OffsetY float64 `json:"offsetY"`
	}
	type buildingJSON struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	type mapJSON struct {
		ID        string            `json:"id"`
		Name      string            `json:"name"`
		Roads     []roadJSON        `json:"roads"`
		Buildings []buildingJSON    `json:"buildings"`
		Offices   []officeJSON      `json:"offices"`
		LootTypes []json.RawMessage `json:"lootTypes"`
	}

	out := mapJSON{ID: m.ID, Name: m.Name}
	for _, rd := range m.Roads {
		rj := roadJSON{X0: rd.Start.X, Y0: rd.Start.Y}
		if rd.IsHorizontal() {
			x1 := rd.End.X
			rj.X1 = &x1
		} else {
			y1 := rd.End.Y
			rj.Y1 = &y1
		}
		out.Roads = append(out.Roads, rj)
	}
	for _, b := range m.Buildings {
		out.Buildings = append(out.Buildings, buildingJSON{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	for _, o := range m.Offices {
		out.Offices = append(out.Offices, officeJSON{
			ID: o.ID, X: o.Position.X, Y: o.Position.Y, OffsetX: o.OffsetX, OffsetY: o.OffsetY,
		})
	}
	for _, lt := range m.LootTypes {
		if lt.Extra != nil {
			out.LootTypes = append(out.LootTypes, lt.Extra)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if err := requireJSONContentType(r); err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		UserName string `json:"userName"`
		MapID    string `json:"mapId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.New(apperr.BadRequest, "Join game request parse error"))
		return
	}
	result, err := s.App.JoinGame(body.UserName, body.MapID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"authToken": string(result.Token),
		"playerId":  result.AvatarID,
	})
}

func bearerToken(r *http.Request) (players.Token, error) {
	tok, ok := players.ParseBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", apperr.New(apperr.InvalidToken, "Authorization header is missing or invalid")
	}
	return tok, nil
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := s.App.GetPlayers(tok)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]map[string]string, len(list))
	for id, name := range list {
		out[strconv.FormatUint(id, 10)] = map[string]string{"name": name}
	}
	writeJSON(w, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := s.App.GetState(tok)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireJSONContentType(r); err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Move string `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.New(apperr.BadRequest, "Failed to parse action"))
		return
	}
	var dir session.Direction
	switch body.Move {
	case "L":
		dir = session.DirLeft
	case "R":
		dir = session.DirRight
	case "U":
		dir = session.DirUp
	case "D":
		dir = session.DirDown
	case "":
		dir = session.DirStop
	default:
		writeError(w, apperr.New(apperr.InvalidArgument, "Invalid move value"))
		return
	}
	if err := s.App.ChangeDir(tok, dir); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if err := requireJSONContentType(r); err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		TimeDelta int64 `json:"timeDelta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TimeDelta <= 0 {
		writeError(w, apperr.New(apperr.BadRequest, "Failed to parse tick request JSON"))
		return
	}
	s.Ticker.Advance(time.Duration(body.TimeDelta) * time.Millisecond)
	writeJSON(w, map[string]any{})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := 0
	limit := 0
	if v := q.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperr.New(apperr.InvalidArgument, "Invalid start parameter"))
			return
		}
		start = n
	}
	if v := q.Get("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, apperr.New(apperr.InvalidArgument, "Invalid maxItems parameter"))
			return
		}
		limit = n
	}
	records, err := s.App.GetRecords(r.Context(), start, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	type recordJSON struct {
		Name     string `json:"name"`
		Score    int    `json:"score"`
		PlayTime int64  `json:"playTime"`
	}
	out := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON{Name: rec.Name, Score: rec.Score, PlayTime: rec.PlayTimeMillis})
	}
	writeJSON(w, out)
}
