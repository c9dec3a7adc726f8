package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/database"
)

// MesaStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MesaStore interface {
	CreateMesa(ctx context.Context, arg database.CreateMesaParams) (database.Mesa, error)
	ListMesas(ctx context.Context) ([]database.Mesa, error)
	MesaOcupada(ctx context.Context, arg database.MesaOcupadaParams) (bool, error)
}

// MesaHandler handles table endpoints.
type MesaHandler struct {
	store MesaStore
	clock *businessday.Clock
}

// NewMesaHandler creates a new MesaHandler.
func NewMesaHandler(store MesaStore, clock *businessday.Clock) *MesaHandler {
	return &MesaHandler{store: store, clock: clock}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *MesaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers the admin-only table endpoints.
func (h *MesaHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

type createMesaRequest struct {
	Numero    string `json:"numero"`
	Capacidad int32  `json:"capacidad"`
}

type mesaResponse struct {
	ID        uuid.UUID `json:"id"`
	Numero    string    `json:"numero"`
	Capacidad int32     `json:"capacidad"`
	Ocupada   bool      `json:"ocupada"`
}

// List handles GET /mesas. Occupancy is derived live from open accounts for
// the current business day, never stored.
func (h *MesaHandler) List(w http.ResponseWriter, r *http.Request) {
	mesas, err := h.store.ListMesas(r.Context())
	if err != nil {
		log.Printf("ERROR: list mesas: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	desde, hasta := h.clock.TodayBounds()
	resp := make([]mesaResponse, len(mesas))
	for i, m := range mesas {
		ocupada, err := h.store.MesaOcupada(r.Context(), database.MesaOcupadaParams{
			Mesa:  m.Numero,
			Desde: desde,
			Hasta: hasta,
		})
		if err != nil {
			log.Printf("ERROR: mesa ocupada: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[i] = mesaResponse{ID: m.ID, Numero: m.Numero, Capacidad: m.Capacidad, Ocupada: ocupada}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /mesas (admin only).
func (h *MesaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMesaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Numero == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "numero is required"})
		return
	}
	if req.Capacidad <= 0 {
		req.Capacidad = 4
	}

	mesa, err := h.store.CreateMesa(r.Context(), database.CreateMesaParams{
		Numero:    req.Numero,
		Capacidad: req.Capacidad,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "mesa already exists"})
			return
		}
		log.Printf("ERROR: create mesa: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, mesaResponse{ID: mesa.ID, Numero: mesa.Numero, Capacidad: mesa.Capacidad})
}
