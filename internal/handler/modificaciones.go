package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
)

// ModificacionServicer defines the service methods needed by modification
// handlers. Satisfied by *service.ModificacionService.
type ModificacionServicer interface {
	Create(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error)
	Decide(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error)
}

// ModificacionStore defines the database methods needed by modification read
// handlers. Satisfied by *database.Queries.
type ModificacionStore interface {
	ListModificaciones(ctx context.Context, estado pgtype.Text) ([]database.ListModificacionesRow, error)
}

// ModificacionHandler handles the modification-request workflow endpoints.
type ModificacionHandler struct {
	svc      ModificacionServicer
	store    ModificacionStore
	notifier Notifier
}

// NewModificacionHandler creates a new ModificacionHandler.
func NewModificacionHandler(svc ModificacionServicer, store ModificacionStore, notifier Notifier) *ModificacionHandler {
	return &ModificacionHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterRoutes registers modification endpoints on the given Chi router.
// Decidir is additionally restricted to caja and admin in the router.
func (h *ModificacionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// RegisterDecisionRoutes registers the decision endpoint separately so the
// router can wrap it in a stricter role check.
func (h *ModificacionHandler) RegisterDecisionRoutes(r chi.Router) {
	r.Post("/{id}/decidir", h.Decidir)
}

// --- Request / Response types ---

type createModificacionRequest struct {
	Tipo     string        `json:"tipo"`
	PedidoID string        `json:"pedido_id"`
	Detalles string        `json:"detalles"`
	Cambios  []itemRequest `json:"cambios"`
}

type decidirRequest struct {
	Decision string `json:"decision"`
}

type modificacionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Tipo          string          `json:"tipo"`
	PedidoID      uuid.UUID       `json:"pedido_id"`
	CuentaID      uuid.UUID       `json:"cuenta_id"`
	SolicitadoPor string          `json:"solicitado_por"`
	Detalles      *string         `json:"detalles"`
	Cambios       json.RawMessage `json:"cambios,omitempty"`
	Estado        string          `json:"estado"`
	SolicitadoEn  time.Time       `json:"solicitado_en"`
	AprobadoPor   *string         `json:"aprobado_por"`
	DecididoEn    *time.Time      `json:"decidido_en"`
}

// modificacionListItem adds the display context the approvals queue shows.
type modificacionListItem struct {
	modificacionResponse
	PedidoNumero string `json:"pedido_numero"`
	CuentaNumero string `json:"cuenta_numero"`
	MeseroNombre string `json:"mesero_nombre"`
}

// --- Handlers ---

// Create handles POST /modificaciones.
func (h *ModificacionHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createModificacionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Tipo == "" || req.PedidoID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tipo and pedido_id are required"})
		return
	}

	mod, err := h.svc.Create(r.Context(), service.CreateModificacionRequest{
		Tipo:          req.Tipo,
		PedidoID:      req.PedidoID,
		SolicitadoPor: claims.Nombre,
		Detalles:      req.Detalles,
		Cambios:       toServiceItems(req.Cambios),
	})
	if err != nil {
		writeModificacionError(w, "create modificacion", err)
		return
	}

	resp := toModificacionResponse(mod)
	notify(h.notifier, EventModificacionCreada, resp)

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /modificaciones. Defaults to the pending queue; pass
// estado=aprobada, estado=rechazada or estado=todas for history.
func (h *ModificacionHandler) List(w http.ResponseWriter, r *http.Request) {
	estado := pgtype.Text{String: enum.ModificacionEstadoPendiente, Valid: true}
	switch s := r.URL.Query().Get("estado"); s {
	case "", enum.ModificacionEstadoPendiente:
	case enum.ModificacionEstadoAprobada, enum.ModificacionEstadoRechazada:
		estado = pgtype.Text{String: s, Valid: true}
	case "todas":
		estado = pgtype.Text{}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid estado filter"})
		return
	}

	rows, err := h.store.ListModificaciones(r.Context(), estado)
	if err != nil {
		log.Printf("ERROR: list modificaciones: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]modificacionListItem, len(rows))
	for i, row := range rows {
		resp[i] = modificacionListItem{
			modificacionResponse: toModificacionResponse(row.ModificacionPedido),
			PedidoNumero:         row.PedidoNumero,
			CuentaNumero:         row.CuentaNumero,
			MeseroNombre:         row.MeseroNombre,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Decidir handles POST /modificaciones/{id}/decidir.
func (h *ModificacionHandler) Decidir(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modificacion ID"})
		return
	}

	var req decidirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Decision == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decision is required"})
		return
	}

	mod, err := h.svc.Decide(r.Context(), id, req.Decision, claims.Nombre)
	if err != nil {
		writeModificacionError(w, "decide modificacion", err)
		return
	}

	resp := toModificacionResponse(mod)
	notify(h.notifier, EventModificacionDecidida, resp)

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// writeModificacionError maps known service errors to HTTP status codes.
func writeModificacionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTipo),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidPedidoID),
		isPedidoValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrModificacionNotFound),
		errors.Is(err, service.ErrPedidoNotFound),
		errors.Is(err, service.ErrCuentaNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyDecided):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toModificacionResponse(m database.ModificacionPedido) modificacionResponse {
	resp := modificacionResponse{
		ID:            m.ID,
		Tipo:          m.Tipo,
		PedidoID:      m.PedidoID,
		CuentaID:      m.CuentaID,
		SolicitadoPor: m.SolicitadoPor,
		Detalles:      textToPtr(m.Detalles),
		Estado:        m.Estado,
		SolicitadoEn:  m.SolicitadoEn,
		AprobadoPor:   textToPtr(m.AprobadoPor),
	}
	if len(m.Cambios) > 0 {
		resp.Cambios = json.RawMessage(m.Cambios)
	}
	if m.DecididoEn.Valid {
		t := m.DecididoEn.Time
		resp.DecididoEn = &t
	}
	return resp
}
