package internal

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"telefonia-inventory-api/internal/auth"
	"telefonia-inventory-api/internal/config"
	"telefonia-inventory-api/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Log        *logrus.Logger
}

// NewServer opens the database and builds a fully-routed server.
func NewServer(dsn string, cfg *config.Config) (*Server, error) {
	log := newLogger()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// A pgxpool alongside database/sql: the bulk importer streams rows
	// through it.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	return newServer(db, pool, jwtManager, log), nil
}

// newServer wires routes onto an already-opened handle. Kept separate so
// tests can build a server without a live database ping.
func newServer(db *sql.DB, pool *pgxpool.Pool, jwtManager *auth.JWTManager, log *logrus.Logger) *Server {
	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Log:        log,
	}

	s.Router.Use(RequestLogger(log))

	// Public routes first (no middleware beyond logging)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Public auth routes (no JWT required)
	s.Router.Post("/auth/login", s.loginUser)

	// Mount metrics if enabled
	if os.Getenv("ENABLE_METRICS") == "true" {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Protected route group
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// mountProtectedRoutes mounts all routes that require authentication. The
// verb mapping is uniform across every entity: GET <entity>/list,
// POST <entity>/create, PUT <entity>/update/{id}, DELETE <entity>/delete/{id}.
// Reads require any valid token; writes require the admin role.
func (s *Server) mountProtectedRoutes(r chi.Router) {
	adminOnly := auth.MustRole("admin")

	// Reference catalogs share one generic handler set
	for _, e := range refEntities {
		r.Get("/"+e.path+"/list", s.listReference(e))
		r.Get("/"+e.path+"/{id}", s.getReference(e))
		r.Post("/"+e.path+"/create", adminOnly(s.createReference(e)).(http.HandlerFunc))
		r.Put("/"+e.path+"/update/{id}", adminOnly(s.updateReference(e)).(http.HandlerFunc))
		r.Delete("/"+e.path+"/delete/{id}", adminOnly(s.deleteReference(e)).(http.HandlerFunc))
	}

	// Device inventory
	r.Get("/devices/list", s.listDevices)
	r.Get("/devices/{id}", s.getDevice)
	r.Post("/devices/create", adminOnly(http.HandlerFunc(s.createDevice)).(http.HandlerFunc))
	r.Put("/devices/update/{id}", adminOnly(http.HandlerFunc(s.updateDevice)).(http.HandlerFunc))
	r.Delete("/devices/delete/{id}", adminOnly(http.HandlerFunc(s.deleteDevice)).(http.HandlerFunc))

	// Assignees
	r.Get("/assignees/list", s.listAssignees)
	r.Get("/assignees/{id}", s.getAssignee)
	r.Post("/assignees/create", adminOnly(http.HandlerFunc(s.createAssignee)).(http.HandlerFunc))
	r.Put("/assignees/update/{id}", adminOnly(http.HandlerFunc(s.updateAssignee)).(http.HandlerFunc))
	r.Delete("/assignees/delete/{id}", adminOnly(http.HandlerFunc(s.deleteAssignee)).(http.HandlerFunc))

	// Assignments (list honors ?assigneeId=)
	r.Get("/assignments/list", s.listAssignments)
	r.Get("/assignments/{id}", s.getAssignment)
	r.Post("/assignments/create", adminOnly(http.HandlerFunc(s.createAssignment)).(http.HandlerFunc))
	r.Put("/assignments/update/{id}", adminOnly(http.HandlerFunc(s.updateAssignment)).(http.HandlerFunc))
	r.Delete("/assignments/delete/{id}", adminOnly(http.HandlerFunc(s.deleteAssignment)).(http.HandlerFunc))

	// CSV export
	r.Post("/export/devices", s.exportDevices)
	r.Post("/export/assignments", s.exportAssignments)

	// Excel bulk import
	importsHandler := handlers.NewImportsHandler(s.Pool, s.Log)
	r.Post("/imports/excel", adminOnly(http.HandlerFunc(importsHandler.UploadExcel)).(http.HandlerFunc))

	// User management - admin only
	r.Post("/users", adminOnly(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/users", adminOnly(http.HandlerFunc(s.listUsers)).(http.HandlerFunc))
	r.Get("/users/{id}", adminOnly(http.HandlerFunc(s.getUser)).(http.HandlerFunc))
	r.Put("/users/{id}", adminOnly(http.HandlerFunc(s.updateUser)).(http.HandlerFunc))
	r.Delete("/users/{id}", adminOnly(http.HandlerFunc(s.deleteUser)).(http.HandlerFunc))

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}
