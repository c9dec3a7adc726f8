package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	mw "github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, clock *businessday.Clock, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"http://localhost:3000",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/eventos", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services share the pool; each one binds its store to the transaction
	// it opens.
	cuentaService := service.NewCuentaService(pool, func(db database.DBTX) service.CuentaStore {
		return database.New(db)
	}, clock)
	pedidoService := service.NewPedidoService(pool, func(db database.DBTX) service.PedidoStore {
		return database.New(db)
	}, clock)
	modificacionService := service.NewModificacionService(pool, func(db database.DBTX) service.ModificacionStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			mesaHandler := handler.NewMesaHandler(queries, clock)
			r.Route("/mesas/admin", mesaHandler.RegisterAdminRoutes)

			menuHandler := handler.NewMenuHandler(queries)
			r.Route("/menu/admin", menuHandler.RegisterAdminRoutes)
		})

		// Floor data
		mesaHandler := handler.NewMesaHandler(queries, clock)
		r.Route("/mesas", mesaHandler.RegisterRoutes)

		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Accounts
		cuentaHandler := handler.NewCuentaHandler(cuentaService, queries, clock, hub)
		r.Route("/cuentas", func(r chi.Router) {
			cuentaHandler.RegisterRoutes(r)

			// Collecting payment is the register's job.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCaja, enum.RoleAdmin))
				cuentaHandler.RegisterCobroRoutes(r)
			})
		})

		// Orders
		pedidoHandler := handler.NewPedidoHandler(pedidoService, queries, hub)
		r.Route("/pedidos", pedidoHandler.RegisterRoutes)

		// Modification workflow
		modificacionHandler := handler.NewModificacionHandler(modificacionService, queries, hub)
		r.Route("/modificaciones", func(r chi.Router) {
			modificacionHandler.RegisterRoutes(r)

			// Deciding requests is restricted to the register and admins.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCaja, enum.RoleAdmin))
				modificacionHandler.RegisterDecisionRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
