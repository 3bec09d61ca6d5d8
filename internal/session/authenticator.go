package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/roomrent/internal/supabase"
	"go.uber.org/zap"
)

var (
	errTokenExpired = errors.New("access token expired")
	errTokenInvalid = errors.New("access token invalid")
)

// AuthClient is the part of the BaaS auth API the authenticator needs.
type AuthClient interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.AuthUser, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type accessClaims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenAuthenticator verifies access tokens locally when it knows the
// project's JWT secret and asks the auth service otherwise. Expired tokens are
// exchanged using the refresh token.
type TokenAuthenticator struct {
	client AuthClient
	secret []byte
	log    *zap.Logger
}

func NewTokenAuthenticator(client AuthClient, secret []byte, logger *zap.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{client: client, secret: secret, log: logger}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, tokens Tokens) (*Identity, *supabase.Session, error) {
	if tokens.AccessToken != "" {
		identity, err := a.verify(ctx, tokens.AccessToken)
		if err == nil {
			return identity, nil, nil
		}
		if !errors.Is(err, errTokenExpired) {
			return nil, nil, err
		}
		a.log.Debug("access token expired, refreshing")
	}

	if tokens.RefreshToken == "" {
		return nil, nil, nil
	}

	sess, err := a.client.RefreshSession(ctx, tokens.RefreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if sess.User != nil {
		return &Identity{Id: sess.User.Id, Email: sess.User.Email}, sess, nil
	}

	identity, err := a.verify(ctx, sess.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	return identity, sess, nil
}

func (a *TokenAuthenticator) SignOut(ctx context.Context, accessToken string) error {
	return a.client.SignOut(ctx, accessToken)
}

func (a *TokenAuthenticator) verify(ctx context.Context, accessToken string) (*Identity, error) {
	if len(a.secret) == 0 {
		return a.verifyRemote(ctx, accessToken)
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, errTokenInvalid
	}

	return &Identity{Id: claims.Subject, Email: claims.Email}, nil
}

func (a *TokenAuthenticator) verifyRemote(ctx context.Context, accessToken string) (*Identity, error) {
	user, err := a.client.GetUser(ctx, accessToken)
	if err != nil {
		// the auth service answers 401 for expired and revoked tokens alike
		if supabase.IsKind(err, supabase.KindAuth) {
			return nil, errTokenExpired
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &Identity{Id: user.Id, Email: user.Email}, nil
}
