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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
)

// CuentaServicer defines the service methods needed by account handlers.
// Satisfied by *service.CuentaService; narrow interface for testability.
type CuentaServicer interface {
	Close(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	CollectPayment(ctx context.Context, id uuid.UUID, metodo, monto string) (database.Cuenta, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CuentaStore defines the database methods needed by account read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CuentaStore interface {
	GetCuenta(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	ListCuentasEnRango(ctx context.Context, arg database.ListCuentasEnRangoParams) ([]database.Cuenta, error)
	ListPedidosByCuenta(ctx context.Context, cuentaID uuid.UUID) ([]database.Pedido, error)
	ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]database.DetallePedido, error)
}

// CuentaHandler handles account endpoints.
type CuentaHandler struct {
	svc      CuentaServicer
	store    CuentaStore
	clock    *businessday.Clock
	notifier Notifier
}

// NewCuentaHandler creates a new CuentaHandler.
func NewCuentaHandler(svc CuentaServicer, store CuentaStore, clock *businessday.Clock, notifier Notifier) *CuentaHandler {
	return &CuentaHandler{svc: svc, store: store, clock: clock, notifier: notifier}
}

// RegisterRoutes registers account endpoints on the given Chi router.
// Cobrar is registered separately so the router can restrict it by role.
func (h *CuentaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cerrar", h.Cerrar)
	r.Delete("/{id}", h.Delete)
}

// RegisterCobroRoutes registers the payment endpoint separately so the router
// can wrap it in a stricter role check.
func (h *CuentaHandler) RegisterCobroRoutes(r chi.Router) {
	r.Post("/{id}/cobrar", h.Cobrar)
}

// --- Request / Response types ---

type cobrarRequest struct {
	MetodoPago   string `json:"metodo_pago"`
	MontoCobrado string `json:"monto_cobrado"`
}

type cuentaResponse struct {
	ID           uuid.UUID  `json:"id"`
	Numero       string     `json:"numero"`
	Mesa         *string    `json:"mesa"`
	MeseroID     uuid.UUID  `json:"mesero_id"`
	Estado       string     `json:"estado"`
	Total        string     `json:"total"`
	MetodoPago   *string    `json:"metodo_pago"`
	MontoCobrado *string    `json:"monto_cobrado"`
	CreadoEn     time.Time  `json:"creado_en"`
	CerradoEn    *time.Time `json:"cerrado_en"`
}

// cuentaDetailResponse extends cuentaResponse with the account's orders.
type cuentaDetailResponse struct {
	cuentaResponse
	Pedidos []pedidoResponse `json:"pedidos"`
}

// --- Handlers ---

// List handles GET /cuentas. Defaults to today's business day; the fecha
// query param (YYYY-MM-DD, business timezone) selects another day and estado
// filters by lifecycle state.
func (h *CuentaHandler) List(w http.ResponseWriter, r *http.Request) {
	desde, hasta := h.clock.TodayBounds()
	if s := r.URL.Query().Get("fecha"); s != "" {
		var err error
		desde, hasta, err = h.clock.DateBounds(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fecha format, use YYYY-MM-DD"})
			return
		}
	}

	var estado pgtype.Text
	if s := r.URL.Query().Get("estado"); s != "" {
		switch s {
		case enum.CuentaEstadoAbierta, enum.CuentaEstadoCerrada, enum.CuentaEstadoCobrada:
			estado = pgtype.Text{String: s, Valid: true}
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid estado filter"})
			return
		}
	}

	cuentas, err := h.store.ListCuentasEnRango(r.Context(), database.ListCuentasEnRangoParams{
		Desde:  desde,
		Hasta:  hasta,
		Estado: estado,
	})
	if err != nil {
		log.Printf("ERROR: list cuentas: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]cuentaResponse, len(cuentas))
	for i, c := range cuentas {
		resp[i] = toCuentaResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /cuentas/{id}, returning the account with its orders and
// their line items.
func (h *CuentaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cuenta ID"})
		return
	}

	cuenta, err := h.store.GetCuenta(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cuenta not found"})
			return
		}
		log.Printf("ERROR: get cuenta: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	pedidos, err := h.store.ListPedidosByCuenta(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list pedidos de cuenta: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	pedidoResps := make([]pedidoResponse, len(pedidos))
	for i, p := range pedidos {
		detalles, err := h.store.ListDetallesByPedido(r.Context(), p.ID)
		if err != nil {
			log.Printf("ERROR: list detalles: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		pedidoResps[i] = toPedidoResponse(p, detalles)
	}

	writeJSON(w, http.StatusOK, cuentaDetailResponse{
		cuentaResponse: toCuentaResponse(cuenta),
		Pedidos:        pedidoResps,
	})
}

// Cerrar handles POST /cuentas/{id}/cerrar.
func (h *CuentaHandler) Cerrar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cuenta ID"})
		return
	}

	cuenta, err := h.svc.Close(r.Context(), id)
	if err != nil {
		writeCuentaError(w, "cerrar cuenta", err)
		return
	}

	resp := toCuentaResponse(cuenta)
	notify(h.notifier, EventCuentaCerrada, resp)

	writeJSON(w, http.StatusOK, resp)
}

// Cobrar handles POST /cuentas/{id}/cobrar. Restricted to caja and admin in
// the router.
func (h *CuentaHandler) Cobrar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cuenta ID"})
		return
	}

	var req cobrarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.MetodoPago == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "metodo_pago is required"})
		return
	}

	cuenta, err := h.svc.CollectPayment(r.Context(), id, req.MetodoPago, req.MontoCobrado)
	if err != nil {
		writeCuentaError(w, "cobrar cuenta", err)
		return
	}

	resp := toCuentaResponse(cuenta)
	notify(h.notifier, EventCuentaCobrada, resp)

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /cuentas/{id}. Only open accounts with no orders can
// be removed.
func (h *CuentaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cuenta ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeCuentaError(w, "delete cuenta", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Helpers ---

// writeCuentaError maps known service errors to HTTP status codes.
func writeCuentaError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMetodoPago),
		errors.Is(err, service.ErrInvalidMonto):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrCuentaNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCuentaConPedidos):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toCuentaResponse(c database.Cuenta) cuentaResponse {
	resp := cuentaResponse{
		ID:         c.ID,
		Numero:     c.Numero,
		Mesa:       textToPtr(c.Mesa),
		MeseroID:   c.MeseroID,
		Estado:     c.Estado,
		Total:      numericToString(c.Total),
		MetodoPago: textToPtr(c.MetodoPago),
		CreadoEn:   c.CreadoEn,
	}
	if c.MontoCobrado.Valid {
		s := numericToString(c.MontoCobrado)
		resp.MontoCobrado = &s
	}
	if c.CerradoEn.Valid {
		t := c.CerradoEn.Time
		resp.CerradoEn = &t
	}
	return resp
}
