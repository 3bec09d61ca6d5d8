package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "anon-key", zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestSignInWithPassword(t *testing.T) {
	tcases := []struct {
		name     string
		status   int
		body     any
		wantErr  bool
		wantKind ErrorKind
	}{
		{
			name:   "valid credentials",
			status: http.StatusOK,
			body: map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"expires_in":    3600,
				"user":          map[string]any{"id": "user-1", "email": "asha@example.com"},
			},
		},
		{
			name:     "invalid credentials",
			status:   http.StatusBadRequest,
			body:     map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"},
			wantErr:  true,
			wantKind: KindRemote,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/v1/token", r.URL.Path)
				assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
				assert.Equal(t, "anon-key", r.Header.Get("apikey"))
				assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

				var creds credentials
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "asha@example.com", creds.Email)

				writeJSON(w, tc.status, tc.body)
			})

			sess, err := c.SignInWithPassword(context.Background(), "asha@example.com", "Password123!")
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, IsKind(err, tc.wantKind), "expected error kind %s, got %v", tc.wantKind, err)
				assert.Contains(t, err.Error(), "Invalid login credentials")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "access", sess.AccessToken)
			assert.Equal(t, "refresh", sess.RefreshToken)
			assert.Equal(t, "user-1", sess.User.Id)
		})
	}
}

func TestSignUp_WithoutSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-2", "email": "new@example.com"})
	})

	user, sess, err := c.SignUp(context.Background(), "new@example.com", "pw")
	require.NoError(t, err)
	assert.Nil(t, sess, "expected no session when confirmation is required")
	assert.Equal(t, "user-2", user.Id)
}

func TestGetUser_UsesAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-1", "email": "a@example.com"})
	})

	user, err := c.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.Id)
}

func TestRefreshSession_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Invalid Refresh Token"})
	})

	_, err := c.RefreshSession(context.Background(), "stale")
	assert.True(t, IsKind(err, KindAuth), "expected auth error, got %v", err)
}

func TestAdminFindUserByEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{
			{"id": "u1", "email": "one@example.com"},
			{"id": "u2", "email": "Two@Example.com"},
		}})
	})

	user, err := c.AdminFindUserByEmail(context.Background(), "two@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.Id)

	_, err = c.AdminFindUserByEmail(context.Background(), "missing@example.com")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSelect_BuildsPostgrestQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rooms", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*,room_images(image_url)", q.Get("select"))
		assert.Equal(t, "ilike.*andheri*", q.Get("location"))
		assert.ElementsMatch(t, []string{"gte.100", "lte.2500.5"}, q["rent"])
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "r1"}})
	})

	q := From("rooms").
		Select("*,room_images(image_url)").
		ILike("location", "*andheri*").
		Gte("rent", 100).
		Lte("rent", 2500.5).
		Order("created_at", false)

	var rows []map[string]any
	ctx := WithAccessToken(context.Background(), "user-token")
	require.NoError(t, c.Select(ctx, q, &rows))
	assert.Len(t, rows, 1)
}

func TestInsert_ReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		writeJSON(w, http.StatusCreated, []map[string]any{{"id": "new-room"}})
	})

	var out []struct {
		Id string `json:"id"`
	}
	require.NoError(t, c.Insert(context.Background(), "rooms", map[string]any{"title": "t"}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "new-room", out[0].Id)
}

func TestDelete_InFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.room-1", r.URL.Query().Get("room_id"))
		assert.Equal(t, `in.("https://x/a.jpg","https://x/b.jpg")`, r.URL.Query().Get("image_url"))
		w.WriteHeader(http.StatusNoContent)
	})

	q := From("room_images").Eq("room_id", "room-1").In("image_url", []string{"https://x/a.jpg", "https://x/b.jpg"})
	assert.NoError(t, c.Delete(context.Background(), q))
}

func TestStorage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/storage/v1/object/room-images/user-1/photo.jpg":
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "jpeg-bytes", string(body))
			writeJSON(w, http.StatusOK, map[string]any{"Key": "room-images/user-1/photo.jpg"})
		case "/storage/v1/object/list/room-images":
			writeJSON(w, http.StatusOK, []map[string]any{{"name": "user-1"}})
		case "/storage/v1/object/list/missing":
			writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": "404", "error": "Bucket not found", "message": "Bucket not found"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	assert.NoError(t, c.Upload(ctx, "room-images", "user-1/photo.jpg", "image/jpeg", []byte("jpeg-bytes")))

	objects, err := c.List(ctx, "room-images", "", 1)
	require.NoError(t, err)
	assert.Len(t, objects, 1)

	_, err = c.List(ctx, "missing", "", 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket not found")

	assert.Equal(t, c.baseURL+"/storage/v1/object/public/room-images/user-1/photo.jpg", c.PublicURL("room-images", "user-1/photo.jpg"))
}

func TestCheck_NetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "anon-key", zap.NewNop())
	_, err := c.List(context.Background(), "room-images", "", 1)
	assert.True(t, IsKind(err, KindNetwork), "expected network error, got %v", err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off`, EscapeLike("50%_off"))
	assert.Equal(t, "Andheri East", EscapeLike("Andheri East"))
	assert.Equal(t, `Plot\\7*`, EscapeLike(`Plot\7*`))
}
