// Package players implements the bearer-token registry that binds a
// client's authorization token to a (session, avatar id) pair.
package players

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/strayfetch/fetchserver/internal/session"
)

// tokenSize is the number of hex characters in a token: two concatenated
// 64-bit draws, each formatted as 16 zero-padded hex digits.
const tokenSize = 32

// Token is an opaque 32-character lowercase hex bearer token.
type Token string

// NewToken draws two 64-bit random values and formats them as a single
// 32-character hex string.
func NewToken() (Token, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return Token(fmt.Sprintf("%016x%016x",
		beUint64(buf[0:8]), beUint64(buf[8:16]))), nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// ParseBearerToken extracts the token from an Authorization header value.
// It accepts exactly the prefix "Bearer " followed by 32 characters;
// anything else returns ok == false.
func ParseBearerToken(authHeader string) (Token, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", false
	}
	rest := authHeader[len(prefix):]
	if len(rest) != tokenSize {
		return "", false
	}
	return Token(rest), true
}

// ErrUnknownToken signals a well-formed token with no active player — a
// client-facing 401, not an internal fault.
var ErrUnknownToken = errors.New("unknown token")

// ErrTokenNotFound signals removal of a token that was never registered —
// a logic fault, since every caller is expected to have just looked the
// token up before removing it.
var ErrTokenNotFound = errors.New("token not found")

// Statistics is the immutable record captured when a player is evicted.
type Statistics struct {
	Name            string
	Score           int
	PlayTimeSeconds float64
}

// Player pairs a token with a live avatar inside a session.
type Player struct {
	Token    Token
	SessID   string // map id of the owning session
	AvatarID uint64
}

// sessionLookup is the narrow interface players needs to resolve a player's
// live avatar, kept here to avoid a dependency on the session registry's
// concrete type.
type sessionLookup interface {
	FindAvatar(id uint64) *session.Avatar
	RemoveAvatar(id uint64)
}

// Registry is the live token -> player table.
type Registry struct {
	order    []Token
	byToken  map[Token]*Player
	sessions map[string]sessionLookup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byToken:  make(map[Token]*Player),
		sessions: make(map[string]sessionLookup),
	}
}

// BindSession associates a map id with the session used to resolve a
// player's avatar. Call this once per session as it is created.
func (r *Registry) BindSession(mapID string, s sessionLookup) {
	r.sessions[mapID] = s
}

// Add registers a new player under token.
func (r *Registry) Add(token Token, mapID string, avatarID uint64) {
	p := &Player{Token: token, SessID: mapID, AvatarID: avatarID}
	r.byToken[token] = p
	r.order = append(r.order, token)
}

// Find returns the player for token, or ErrUnknownToken.
func (r *Registry) Find(token Token) (*Player, error) {
	p, ok := r.byToken[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return p, nil
}

// Avatar resolves the live avatar bound to token.
func (r *Registry) Avatar(token Token) (*session.Avatar, error) {
	p, err := r.Find(token)
	if err != nil {
		return nil, err
	}
	s, ok := r.sessions[p.SessID]
	if !ok {
		return nil, ErrUnknownToken
	}
	a := s.FindAvatar(p.AvatarID)
	if a == nil {
		return nil, ErrUnknownToken
	}
	return a, nil
}

// Remove evicts the player bound to token, removing its avatar from the
// owning session and returning final statistics. Removing an unregistered
// token is a logic fault, not a normal not-found condition.
func (r *Registry) Remove(token Token) (Statistics, error) {
	p, ok := r.byToken[token]
	if !ok {
		return Statistics{}, ErrTokenNotFound
	}

	var stats Statistics
	if s, ok := r.sessions[p.SessID]; ok {
		if a := s.FindAvatar(p.AvatarID); a != nil {
			stats = Statistics{Name: a.Name, Score: a.Score, PlayTimeSeconds: a.PlayTimeSeconds}
			s.RemoveAvatar(p.AvatarID)
		}
	}

	delete(r.byToken, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return stats, nil
}

// ListInSession returns the id and name of every active player bound to
// mapID — only players in the caller's own session, matching the
// original's "players in the same (!!!) game session" contract.
func (r *Registry) ListInSession(mapID string) map[uint64]string {
	out := make(map[uint64]string, len(r.order))
	for _, t := range r.order {
		p := r.byToken[t]
		if p.SessID != mapID {
			continue
		}
		if s, ok := r.sessions[p.SessID]; ok {
			if a := s.FindAvatar(p.AvatarID); a != nil {
				out[p.AvatarID] = a.Name
			}
		}
	}
	return out
}

// Pairs enumerates every active (token, player) pair, in registration
// order, for snapshotting and for the retirement sweep.
func (r *Registry) Pairs() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byToken[t])
	}
	return out
}
