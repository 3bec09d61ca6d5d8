// Package session resolves the identity behind a request's auth tokens into a
// tri-state State and keeps the role lookup rate limited.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

// ErrRefreshFailed means the access token expired and the refresh token could
// not be exchanged for a new session.
var ErrRefreshFailed = errors.New("session refresh failed")

type Status int

const (
	Loading Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type State struct {
	Status Status      `json:"status"`
	User   *types.User `json:"user"`
	// Refreshed is set when the tokens were rotated while resolving.
	Refreshed *supabase.Session `json:"-"`
}

func (s State) Loading() bool {
	return s.Status == Loading
}

type Identity struct {
	Id    string
	Email string
}

type EventType int

const (
	Established EventType = iota
	RefreshFailed
	Cleared
)

type Event struct {
	Type        EventType
	Identity    *Identity
	AccessToken string
}

// Authenticator turns request tokens into an identity. A nil identity with a
// nil error means the request carries no session.
type Authenticator interface {
	Authenticate(ctx context.Context, tokens Tokens) (*Identity, *supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userId string) (database.Profile, error)
}

type Resolver struct {
	auth     Authenticator
	profiles ProfileStore
	roles    *roleCache
	log      *zap.Logger
}

type Option func(*Resolver)

// WithClock replaces the clock the role throttle uses.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.roles.now = now
	}
}

func WithRoleCacheSize(n int) Option {
	return func(r *Resolver) {
		r.roles.max = n
	}
}

func NewResolver(auth Authenticator, profiles ProfileStore, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		auth:     auth,
		profiles: profiles,
		roles:    newRoleCache(RoleLookupInterval, defaultRoleCacheSize),
		log:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the session state carried by tokens.
func (r *Resolver) Resolve(ctx context.Context, tokens Tokens) State {
	if tokens.AccessToken == "" && tokens.RefreshToken == "" {
		return State{Status: Unauthenticated}
	}

	identity, refreshed, err := r.auth.Authenticate(ctx, tokens)
	if errors.Is(err, ErrRefreshFailed) {
		r.log.Info("session refresh failed", zap.Error(err))
		return r.HandleEvent(ctx, Event{Type: RefreshFailed, AccessToken: tokens.AccessToken})
	}
	if err != nil {
		r.log.Info("rejecting session", zap.Error(err))
		r.signOut(ctx, tokens.AccessToken)
		return State{Status: Unauthenticated}
	}
	if identity == nil {
		return State{Status: Unauthenticated}
	}

	accessToken := tokens.AccessToken
	if refreshed != nil {
		accessToken = refreshed.AccessToken
	}

	state := r.HandleEvent(ctx, Event{Type: Established, Identity: identity, AccessToken: accessToken})
	state.Refreshed = refreshed

	return state
}

// HandleEvent applies an auth state change. Only RefreshFailed touches the
// remote service, and only to sign out.
func (r *Resolver) HandleEvent(ctx context.Context, ev Event) State {
	switch ev.Type {
	case Established:
		if ev.Identity == nil {
			return State{Status: Unauthenticated}
		}

		return State{
			Status: Authenticated,
			User: &types.User{
				Id:    ev.Identity.Id,
				Email: ev.Identity.Email,
				Role:  r.role(ctx, ev.Identity.Id, ev.AccessToken),
			},
		}
	case RefreshFailed:
		r.signOut(ctx, ev.AccessToken)
		return State{Status: Unauthenticated}
	default:
		return State{Status: Unauthenticated}
	}
}

func (r *Resolver) signOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}

	if err := r.auth.SignOut(ctx, accessToken); err != nil {
		r.log.Debug("sign out failed", zap.Error(err))
	}
}

// role returns the profile role for userId, reusing the last lookup when it
// happened less than RoleLookupInterval ago. Lookup failures yield no role.
func (r *Resolver) role(ctx context.Context, userId, accessToken string) types.Role {
	role, pending, fetch := r.roles.begin(userId)
	if pending != nil {
		select {
		case <-pending:
			return r.roles.get(userId)
		case <-ctx.Done():
			return types.RoleNone
		}
	}
	if !fetch {
		return role
	}

	if accessToken != "" {
		ctx = supabase.WithAccessToken(ctx, accessToken)
	}

	profile, err := r.profiles.GetProfile(ctx, userId)
	if err != nil {
		r.log.Warn("profile lookup failed", zap.String("user_id", userId), zap.Error(err))
	} else {
		role = types.Role(profile.Role)
	}

	r.roles.finish(userId, role)

	return role
}
