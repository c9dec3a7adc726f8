package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	ListMenuItems(ctx context.Context, disponible pgtype.Bool) ([]database.MenuItem, error)
}

// MenuHandler handles menu catalog endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers the admin-only menu endpoints.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

type createMenuItemRequest struct {
	Nombre    string `json:"nombre"`
	Precio    string `json:"precio"`
	Categoria string `json:"categoria"`
}

type menuItemResponse struct {
	ID         uuid.UUID `json:"id"`
	Nombre     string    `json:"nombre"`
	Precio     string    `json:"precio"`
	Categoria  *string   `json:"categoria"`
	Disponible bool      `json:"disponible"`
	CreadoEn   time.Time `json:"creado_en"`
}

// List handles GET /menu. Pass disponible=true/false to filter; unfiltered
// listings include retired items for back-office screens.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	var disponible pgtype.Bool
	if s := r.URL.Query().Get("disponible"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid disponible filter"})
			return
		}
		disponible = pgtype.Bool{Bool: v, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), disponible)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, mi := range items {
		resp[i] = toMenuItemResponse(mi)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /menu (admin only).
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Nombre == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nombre is required"})
		return
	}

	precio, err := decimal.NewFromString(req.Precio)
	if err != nil || precio.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid precio"})
		return
	}

	var precioNumeric pgtype.Numeric
	if err := precioNumeric.Scan(precio.StringFixed(2)); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid precio"})
		return
	}

	var categoria pgtype.Text
	if req.Categoria != "" {
		categoria = pgtype.Text{String: req.Categoria, Valid: true}
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Nombre:    req.Nombre,
		Precio:    precioNumeric,
		Categoria: categoria,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

func toMenuItemResponse(mi database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:         mi.ID,
		Nombre:     mi.Nombre,
		Precio:     numericToString(mi.Precio),
		Categoria:  textToPtr(mi.Categoria),
		Disponible: mi.Disponible,
		CreadoEn:   mi.CreadoEn,
	}
}
