package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"sitebooks/backend/config"
	"sitebooks/backend/handlers"
	"sitebooks/backend/middleware"
)

// Server represents the API server
type Server struct {
	db     *sql.DB
	cfg    *config.Config
	router *mux.Router
	auth   *middleware.Authenticator

	users       *handlers.UserHandler
	departments *handlers.DepartmentHandler
	budgets     *handlers.BudgetHandler
	lineItems   *handlers.LineItemHandler
	favorites   *handlers.FavoriteHandler
	xero        *handlers.XeroHandler
}

// NewServer creates a new API server. A nil verifier turns token checks off
// and authenticates every request as the development user.
func NewServer(cfg *config.Config, db *sql.DB, verifier middleware.TokenVerifier, xeroHandler *handlers.XeroHandler) *Server {
	s := &Server{
		db:          db,
		cfg:         cfg,
		router:      mux.NewRouter(),
		auth:        middleware.NewAuthenticator(verifier),
		users:       handlers.NewUserHandler(db, cfg.AdminEmails),
		departments: handlers.NewDepartmentHandler(db, cfg.OverheadsStageName),
		budgets:     handlers.NewBudgetHandler(db),
		lineItems:   handlers.NewLineItemHandler(db),
		favorites:   handlers.NewFavoriteHandler(db),
		xero:        xeroHandler,
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	r := s.router.PathPrefix("/api").Subrouter()

	// Public routes (no auth required)
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	r.HandleFunc("/xero/callback", s.xero.Callback).Methods("GET")

	cron := r.PathPrefix("/xero/sync-incremental").Subrouter()
	cron.Use(middleware.RequireCronSecret(s.cfg.CronSecret))
	cron.HandleFunc("", s.xero.SyncIncremental).Methods("GET", "POST")

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(s.auth.Middleware)

	protected.HandleFunc("/users/sync", s.users.SyncUser).Methods("POST")
	protected.HandleFunc("/users/me", s.users.GetMe).Methods("GET")

	protected.HandleFunc("/departments", s.departments.ListDepartments).Methods("GET")
	protected.HandleFunc("/departments/{id}", s.departments.GetDepartment).Methods("GET")
	protected.HandleFunc("/departments/{id}/income", s.departments.GetIncome).Methods("GET")
	protected.HandleFunc("/departments/{id}/unassigned-bills", s.departments.GetUnassignedBills).Methods("GET")
	protected.HandleFunc("/departments/{id}/stages", s.departments.ListStages).Methods("GET")
	protected.HandleFunc("/departments/{id}/stages/{stageId}/budget", s.budgets.GetBudget).Methods("GET")
	protected.HandleFunc("/departments/{id}/stages/{stageId}/budget", s.budgets.PutBudget).Methods("PUT")

	protected.HandleFunc("/favorites/departments", s.favorites.ListFavorites).Methods("GET")
	protected.HandleFunc("/favorites/departments", s.favorites.AddFavorite).Methods("POST")
	protected.HandleFunc("/favorites/departments", s.favorites.RemoveFavorite).Methods("DELETE")

	protected.HandleFunc("/xero/status", s.xero.Status).Methods("GET")

	// Admin routes
	admin := protected.PathPrefix("").Subrouter()
	admin.Use(middleware.RequireAdmin(s.db))

	admin.HandleFunc("/departments", s.departments.CreateDepartment).Methods("POST")
	admin.HandleFunc("/departments/{id}", s.departments.UpdateDepartment).Methods("PUT")
	admin.HandleFunc("/departments/{id}/stages", s.departments.CreateStage).Methods("POST")
	admin.HandleFunc("/line-items/{id}/assignment", s.lineItems.AssignLineItem).Methods("PUT")
	admin.HandleFunc("/xero/connect", s.xero.Connect).Methods("GET")
}

// Handler returns the HTTP handler for the API server. CORS wraps the router
// so preflight requests are answered before method matching.
func (s *Server) Handler() http.Handler {
	cors := middleware.CORS(s.cfg.CORSAllowedOrigins, !s.cfg.IsProduction())
	return middleware.Recover(middleware.RequestLogger(cors(s.router)))
}
