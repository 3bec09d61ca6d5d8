package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/session"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

const (
	accessTokenCookie  = "sb-access-token"
	refreshTokenCookie = "sb-refresh-token"
	refreshTokenTTL    = 30 * 24 * time.Hour
)

type contextKey string

var stateKey = contextKey("session")

func WithState(ctx context.Context, state session.State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func StateFrom(ctx context.Context) (session.State, bool) {
	state, ok := ctx.Value(stateKey).(session.State)
	return state, ok
}

// UserFrom returns the authenticated user of the request, or nil.
func UserFrom(ctx context.Context) *types.User {
	state, ok := StateFrom(ctx)
	if !ok || state.Status != session.Authenticated {
		return nil
	}

	return state.User
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"max=100"`
}

type RegisterResponse struct {
	User                 types.User `json:"user"`
	ConfirmationRequired bool       `json:"confirmation_required"`
}

func tokensFromRequest(r *http.Request) session.Tokens {
	var t session.Tokens
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		t.AccessToken = c.Value
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		t.RefreshToken = c.Value
	}

	return t
}

func sessionCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setSessionCookies(w http.ResponseWriter, sess *supabase.Session) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, sess.AccessToken, sess.Expiry()))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, sess.RefreshToken, time.Now().Add(refreshTokenTTL)))
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := sessionCookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (s *App) decodeValid(r *http.Request, v any) *ApiError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewBadRequestError()
	}

	if err := s.validate.Struct(v); err != nil {
		return NewValidationError(err)
	}

	return nil
}

// signUpError turns a rejected sign-up into a 400 carrying the auth
// service's message. Transport and server failures stay 500s.
func signUpError(err error) *ApiError {
	var sbErr *supabase.Error
	if errors.As(err, &sbErr) && sbErr.Kind != supabase.KindNetwork && sbErr.Status < http.StatusInternalServerError {
		errResp := NewBadRequestError()
		errResp.Message = sbErr.Message
		errResp.Err = err
		return errResp
	}

	return NewInternalServerError(err)
}

func (s *App) signUp(w http.ResponseWriter, r *http.Request, req RegisterRequest) (*supabase.AuthUser, *supabase.Session, bool) {
	user, sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.log.Info("sign up rejected", zap.String("email", req.Email), zap.Error(err))
		errResp := signUpError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return nil, nil, false
	}

	if sess != nil {
		setSessionCookies(w, sess)
	}

	return user, sess, true
}

func (s *App) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if errResp := s.decodeValid(r, &req); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, sess, ok := s.signUp(w, r, req)
	if !ok {
		return
	}

	s.writeJson(w, http.StatusCreated, RegisterResponse{
		User:                 types.User{Id: user.Id, Email: user.Email, Role: types.RoleUser},
		ConfirmationRequired: sess == nil,
	})
}

// registerOwner signs up and writes an owner profile row. A failed profile
// write is logged and the account is still returned.
func (s *App) registerOwner(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if errResp := s.decodeValid(r, &req); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, sess, ok := s.signUp(w, r, req)
	if !ok {
		return
	}

	ctx := r.Context()
	if sess != nil {
		ctx = supabase.WithAccessToken(ctx, sess.AccessToken)
	}

	role := types.RoleOwner
	profile := database.Profile{Id: user.Id, Role: string(types.RoleOwner), FullName: req.FullName}
	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		s.log.Warn("owner profile write failed", zap.String("user_id", user.Id), zap.Error(err))
		role = types.RoleNone
	}

	s.writeJson(w, http.StatusCreated, RegisterResponse{
		User:                 types.User{Id: user.Id, Email: user.Email, Role: role},
		ConfirmationRequired: sess == nil,
	})
}

func (s *App) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if errResp := s.decodeValid(r, &req); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sess, err := s.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		var sbErr *supabase.Error
		if errors.As(err, &sbErr) && sbErr.Kind != supabase.KindNetwork && sbErr.Status < http.StatusInternalServerError {
			s.log.Info("login rejected", zap.String("email", req.Email))
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	setSessionCookies(w, sess)
	state := s.sessions.Resolve(r.Context(), session.Tokens{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	})
	if state.Refreshed != nil {
		setSessionCookies(w, state.Refreshed)
	}

	s.writeJson(w, http.StatusOK, state)
}

func (s *App) logout(w http.ResponseWriter, r *http.Request) {
	tokens := tokensFromRequest(r)
	if tokens.AccessToken != "" {
		if err := s.auth.SignOut(r.Context(), tokens.AccessToken); err != nil {
			s.log.Warn("sign out failed", zap.Error(err))
		}
	}

	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *App) session(w http.ResponseWriter, r *http.Request) {
	state, _ := StateFrom(r.Context())
	s.writeJson(w, http.StatusOK, state)
}
