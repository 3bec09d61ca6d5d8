package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	dashboardPage = "dashboard.html"
	addRoomPage   = "add_room.html"
	editRoomPage  = "edit_room.html"
	errorPage     = "error.html"
	loginPage     = "login.html"
)

const defaultLoginNext = "/owner/dashboard"

type viewSet struct {
	pages map[string]*template.Template
}

func mustParseViews() *viewSet {
	vs := &viewSet{pages: make(map[string]*template.Template)}
	for _, page := range []string{dashboardPage, addRoomPage, editRoomPage, errorPage, loginPage} {
		vs.pages[page] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+page))
	}

	return vs
}

type pageData struct {
	Title   string
	User    *types.User
	Rooms   []types.Room
	Room    *types.Room
	Warning string
	Message string
	// Next is where the login form sends the browser after signing in.
	Next string
}

func (s *App) render(w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := s.views.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		s.log.Error("render view", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *App) renderError(w http.ResponseWriter, status int, user *types.User) {
	s.render(w, status, errorPage, pageData{
		Title:   http.StatusText(status),
		User:    user,
		Message: http.StatusText(status),
	})
}

func (s *App) dashboardView(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	rooms, err := s.listings.ListOwnerRooms(r.Context(), user.Id)
	if err != nil {
		s.log.Error("dashboard rooms", zap.String("owner_id", user.Id), zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, user)
		return
	}

	s.render(w, http.StatusOK, dashboardPage, pageData{Title: "My rooms", User: user, Rooms: rooms})
}

func (s *App) addRoomView(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	data := pageData{Title: "Add a room", User: user}

	report := s.diag.Run(r.Context(), user)
	if !report.StorageBucketExists {
		data.Warning = "Image storage is unavailable. The room will be saved with placeholder images."
	}

	s.render(w, http.StatusOK, addRoomPage, data)
}

func (s *App) editRoomView(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	room, err := s.listings.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		s.renderError(w, listingError(err).StatusCode, user)
		return
	}

	if room.OwnerId != user.Id {
		s.renderError(w, listingError(listing.ErrForbidden).StatusCode, user)
		return
	}

	s.render(w, http.StatusOK, editRoomPage, pageData{Title: "Edit " + room.Title, User: user, Room: &room})
}

// loginNext returns the local path carried in the next query parameter.
// Anything that could leave the site falls back to the dashboard.
func loginNext(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultLoginNext
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultLoginNext
	}

	return next
}

func (s *App) loginView(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, loginPage, pageData{Title: "Log in", Next: loginNext(r)})
}

func (s *App) ownerLoginView(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, loginPage, pageData{Title: "Owner log in", Next: loginNext(r)})
}
