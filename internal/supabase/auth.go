package supabase

import (
	"context"
	"strconv"
	"strings"
	"time"
)

type AuthUser struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         *AuthUser `json:"user"`
}

func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignInWithPassword creates a session from email/password credentials.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err := c.check("sign in", resp, err); err != nil {
		return nil, err
	}

	return &sess, nil
}

// signUpResponse is a session when email confirmation is disabled and a bare
// user otherwise.
type signUpResponse struct {
	Session
	Id    string `json:"id"`
	Email string `json:"email"`
}

// SignUp registers a new account. The returned session is nil when the
// project requires email confirmation first.
func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthUser, *Session, error) {
	var res signUpResponse
	resp, err := c.request(ctx).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&res).
		Post("/auth/v1/signup")
	if err := c.check("sign up", resp, err); err != nil {
		return nil, nil, err
	}

	if res.AccessToken != "" && res.User != nil {
		sess := res.Session
		return sess.User, &sess, nil
	}

	if res.User != nil {
		return res.User, nil, nil
	}

	return &AuthUser{Id: res.Id, Email: res.Email}, nil, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var sess Session
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(refreshRequest{RefreshToken: refreshToken}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err := c.check("refresh session", resp, err); err != nil {
		return nil, err
	}

	return &sess, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	var user AuthUser
	resp, err := c.request(WithAccessToken(ctx, accessToken)).
		SetResult(&user).
		Get("/auth/v1/user")
	if err := c.check("get user", resp, err); err != nil {
		return nil, err
	}

	return &user, nil
}

// SignOut revokes the refresh tokens of the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.request(WithAccessToken(ctx, accessToken)).
		Post("/auth/v1/logout")
	return c.check("sign out", resp, err)
}

type adminCreateUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

// AdminCreateUser creates a confirmed account. It requires a client built
// with the service role key.
func (c *Client) AdminCreateUser(ctx context.Context, email, password string) (*AuthUser, error) {
	var user AuthUser
	resp, err := c.request(ctx).
		SetBody(adminCreateUserRequest{Email: email, Password: password, EmailConfirm: true}).
		SetResult(&user).
		Post("/auth/v1/admin/users")
	if err := c.check("admin create user", resp, err); err != nil {
		return nil, err
	}

	return &user, nil
}

type adminUserList struct {
	Users []AuthUser `json:"users"`
}

// AdminFindUserByEmail pages through the project's users looking for email.
func (c *Client) AdminFindUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	const perPage = 200
	for page := 1; ; page++ {
		var list adminUserList
		resp, err := c.request(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("per_page", strconv.Itoa(perPage)).
			SetResult(&list).
			Get("/auth/v1/admin/users")
		if err := c.check("admin list users", resp, err); err != nil {
			return nil, err
		}

		for _, u := range list.Users {
			if strings.EqualFold(u.Email, email) {
				user := u
				return &user, nil
			}
		}

		if len(list.Users) < perPage {
			return nil, &Error{Kind: KindNotFound, Status: 404, Message: "admin find user: no user with email " + email}
		}
	}
}
