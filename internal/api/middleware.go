package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/npezzotti/roomrent/internal/gate"
	"github.com/npezzotti/roomrent/internal/session"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

func (s *App) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Error("panic", zap.String("path", r.URL.Path), zap.Error(panicError))
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// withSession resolves the session cookies into a session.State on the
// request context. Rotated tokens are written back; dead ones are cleared.
func (s *App) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens := tokensFromRequest(r)
		state := s.sessions.Resolve(r.Context(), tokens)

		accessToken := tokens.AccessToken
		if state.Refreshed != nil {
			setSessionCookies(w, state.Refreshed)
			accessToken = state.Refreshed.AccessToken
		}

		hadTokens := tokens.AccessToken != "" || tokens.RefreshToken != ""
		if state.Status == session.Unauthenticated && hadTokens {
			clearSessionCookies(w)
		}

		ctx := WithState(r.Context(), state)
		if state.Status == session.Authenticated {
			ctx = supabase.WithAccessToken(ctx, accessToken)
		}
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

type denyFunc func(w http.ResponseWriter, r *http.Request, target string)

func (s *App) requireRole(required types.Role, deny denyFunc, next http.HandlerFunc) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		state, _ := StateFrom(r.Context())
		decision := s.gate.Decide(required, state.User, state.Loading())

		switch decision.Outcome {
		case gate.Allow:
			next(w, r)
		case gate.Pending:
			errResp := NewServiceUnavailableError()
			s.writeJson(w, errResp.StatusCode, errResp)
		default:
			s.log.Debug("gate redirect",
				zap.String("path", r.URL.Path),
				zap.String("required", string(required)),
				zap.String("target", decision.Target),
			)
			deny(w, r, decision.Target)
		}
	})
}

func (s *App) denyJSON(w http.ResponseWriter, r *http.Request, target string) {
	errResp := NewUnauthorizedError()
	errResp.Redirect = target
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *App) denyRedirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target+"?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
}

func (s *App) ownerAPI(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(types.RoleOwner, s.denyJSON, next)
}

func (s *App) ownerView(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(types.RoleOwner, s.denyRedirect, next)
}
