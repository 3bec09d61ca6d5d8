package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/npezzotti/roomrent/internal/config"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/diagnostics"
	"github.com/npezzotti/roomrent/internal/feed"
	"github.com/npezzotti/roomrent/internal/gate"
	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/session"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.AuthUser, *supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type SessionResolver interface {
	Resolve(ctx context.Context, tokens session.Tokens) session.State
}

type ListingService interface {
	ListRooms(ctx context.Context, filter types.RoomFilter) []types.Room
	GetRoom(ctx context.Context, id string) (types.Room, error)
	ListOwnerRooms(ctx context.Context, ownerId string) ([]types.Room, error)
	Create(ctx context.Context, ownerId string, draft listing.Draft) (*listing.CreateResult, error)
	Edit(ctx context.Context, req listing.EditRequest) (*listing.EditResult, error)
	Delete(ctx context.Context, roomId, ownerId string) error
	PopulateImages(ctx context.Context, ownerId string) (int, error)
}

type ProfileWriter interface {
	UpsertProfile(ctx context.Context, profile database.Profile) error
}

type DiagnosticsRunner interface {
	Run(ctx context.Context, user *types.User) diagnostics.Report
}

// Services are the collaborators the HTTP layer delegates to.
type Services struct {
	Auth        AuthService
	Sessions    SessionResolver
	Listings    ListingService
	Profiles    ProfileWriter
	Diagnostics DiagnosticsRunner
	Feed        *feed.Hub
	Gate        *gate.Gate
}

type App struct {
	log            *zap.Logger
	srv            *http.Server
	auth           AuthService
	sessions       SessionResolver
	listings       ListingService
	profiles       ProfileWriter
	diag           DiagnosticsRunner
	hub            *feed.Hub
	gate           *gate.Gate
	views          *viewSet
	validate       *validator.Validate
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *zap.Logger, svc Services, cfg *config.Config) *App {
	g := svc.Gate
	if g == nil {
		g = gate.New(gate.Parity)
	}

	s := &App{
		log:            logger,
		auth:           svc.Auth,
		sessions:       svc.Sessions,
		listings:       svc.Listings,
		profiles:       svc.Profiles,
		diag:           svc.Diagnostics,
		hub:            svc.Feed,
		gate:           g,
		views:          mustParseViews(),
		validate:       validator.New(),
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.HandleFunc("GET /api/rooms/{id}", s.getRoom)

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/owner/register", s.registerOwner)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/auth/session", s.withSession(s.session))

	mux.HandleFunc("GET /api/owner/rooms", s.ownerAPI(s.listOwnerRooms))
	mux.HandleFunc("POST /api/owner/rooms", s.ownerAPI(s.createRoom))
	mux.HandleFunc("PUT /api/owner/rooms/{id}", s.ownerAPI(s.editRoom))
	mux.HandleFunc("DELETE /api/owner/rooms/{id}", s.ownerAPI(s.deleteRoom))
	mux.HandleFunc("POST /api/owner/rooms/populate-images", s.ownerAPI(s.populateImages))

	mux.HandleFunc("GET /api/diagnostics", s.withSession(s.diagnostics))

	mux.HandleFunc("GET "+gate.LoginPath, s.loginView)
	mux.HandleFunc("GET "+gate.OwnerLoginPath, s.ownerLoginView)
	mux.HandleFunc("GET /owner/dashboard", s.ownerView(s.dashboardView))
	mux.HandleFunc("GET /owner/add-room", s.ownerView(s.addRoomView))
	mux.HandleFunc("GET /owner/edit-room/{id}", s.ownerView(s.editRoomView))

	mux.HandleFunc("GET /ws/rooms", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = handlers.CombinedLoggingHandler(zap.NewStdLog(logger.Named("access")).Writer(), h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *App) Handler() http.Handler {
	return s.srv.Handler
}

func (s *App) Start() error {
	s.log.Info("starting server", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
