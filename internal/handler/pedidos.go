package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
)

// PedidoServicer defines the service methods needed by order handlers.
// Satisfied by *service.PedidoService; narrow interface for testability.
type PedidoServicer interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (service.SubmitOrderResult, error)
	EditItems(ctx context.Context, pedidoID uuid.UUID, items []service.ItemInput) (service.SubmitOrderResult, error)
	SetState(ctx context.Context, pedidoID uuid.UUID, estado string) (database.Pedido, error)
	DeleteOrder(ctx context.Context, pedidoID uuid.UUID) error
}

// PedidoStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PedidoStore interface {
	GetPedido(ctx context.Context, id uuid.UUID) (database.Pedido, error)
	ListPedidosByEstado(ctx context.Context, estados []string) ([]database.Pedido, error)
	ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]database.DetallePedido, error)
}

// PedidoHandler handles order endpoints.
type PedidoHandler struct {
	svc      PedidoServicer
	store    PedidoStore
	notifier Notifier
}

// NewPedidoHandler creates a new PedidoHandler.
func NewPedidoHandler(svc PedidoServicer, store PedidoStore, notifier Notifier) *PedidoHandler {
	return &PedidoHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *PedidoHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/items", h.ReplaceItems)
	r.Patch("/{id}/estado", h.UpdateEstado)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type itemRequest struct {
	MenuItemID     string `json:"menu_item_id"`
	ProductoNombre string `json:"producto_nombre"`
	PrecioUnitario string `json:"precio_unitario"`
	Cantidad       int32  `json:"cantidad"`
	Especificacion string `json:"especificacion"`
	Nota           string `json:"nota"`
}

type createPedidoRequest struct {
	Mesa       string        `json:"mesa"`
	Personas   int32         `json:"personas"`
	ParaLlevar bool          `json:"para_llevar"`
	CuentaID   string        `json:"cuenta_id"`
	Items      []itemRequest `json:"items"`
}

type replaceItemsRequest struct {
	Items []itemRequest `json:"items"`
}

type updateEstadoRequest struct {
	Estado string `json:"estado"`
}

type pedidoResponse struct {
	ID            uuid.UUID         `json:"id"`
	Numero        string            `json:"numero"`
	CuentaID      *string           `json:"cuenta_id"`
	Mesa          *string           `json:"mesa"`
	Personas      int32             `json:"personas"`
	ParaLlevar    bool              `json:"para_llevar"`
	Estado        string            `json:"estado"`
	Total         string            `json:"total"`
	MetodoPago    *string           `json:"metodo_pago"`
	CreadoEn      time.Time         `json:"creado_en"`
	ActualizadoEn time.Time         `json:"actualizado_en"`
	Detalles      []detalleResponse `json:"detalles,omitempty"`
}

type detalleResponse struct {
	ID             uuid.UUID `json:"id"`
	MenuItemID     *string   `json:"menu_item_id"`
	ProductoNombre string    `json:"producto_nombre"`
	Cantidad       int32     `json:"cantidad"`
	PrecioUnitario string    `json:"precio_unitario"`
	Subtotal       string    `json:"subtotal"`
	Especificacion *string   `json:"especificacion"`
	Nota           *string   `json:"nota"`
}

// --- Handlers ---

// Create handles POST /pedidos.
func (h *PedidoHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createPedidoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	result, err := h.svc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		MeseroID:   claims.UserID,
		Mesa:       req.Mesa,
		Personas:   req.Personas,
		ParaLlevar: req.ParaLlevar,
		CuentaID:   req.CuentaID,
		Items:      toServiceItems(req.Items),
	})
	if err != nil {
		writePedidoError(w, "create pedido", err)
		return
	}

	resp := toPedidoResponse(result.Pedido, result.Detalles)
	notify(h.notifier, EventPedidoCreado, resp)

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /pedidos. The estado query param takes a comma-separated
// list of states; without it the listing covers the working set, everything
// except completado and pagado.
func (h *PedidoHandler) List(w http.ResponseWriter, r *http.Request) {
	estados := []string{
		enum.PedidoEstadoPendiente,
		enum.PedidoEstadoPreparacion,
		enum.PedidoEstadoListo,
		enum.PedidoEstadoEntregado,
		enum.PedidoEstadoCancelado,
	}
	if s := r.URL.Query().Get("estado"); s != "" {
		estados = nil
		for _, estado := range strings.Split(s, ",") {
			estado = strings.TrimSpace(estado)
			if !service.IsValidPedidoEstado(estado) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid estado filter: " + estado})
				return
			}
			estados = append(estados, estado)
		}
	}

	pedidos, err := h.store.ListPedidosByEstado(r.Context(), estados)
	if err != nil {
		log.Printf("ERROR: list pedidos: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]pedidoResponse, len(pedidos))
	for i, p := range pedidos {
		resp[i] = toPedidoResponse(p, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /pedidos/{id}.
func (h *PedidoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	pedido, err := h.store.GetPedido(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "pedido not found"})
			return
		}
		log.Printf("ERROR: get pedido: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	detalles, err := h.store.ListDetallesByPedido(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list detalles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPedidoResponse(pedido, detalles))
}

// ReplaceItems handles PUT /pedidos/{id}/items. Direct edits are only open
// while the order is pendiente; after that the modification workflow owns
// item changes.
func (h *PedidoHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	var req replaceItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.EditItems(r.Context(), id, toServiceItems(req.Items))
	if err != nil {
		writePedidoError(w, "replace items", err)
		return
	}

	writeJSON(w, http.StatusOK, toPedidoResponse(result.Pedido, result.Detalles))
}

// UpdateEstado handles PATCH /pedidos/{id}/estado.
func (h *PedidoHandler) UpdateEstado(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	var req updateEstadoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Estado == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "estado is required"})
		return
	}

	pedido, err := h.svc.SetState(r.Context(), id, req.Estado)
	if err != nil {
		writePedidoError(w, "update pedido estado", err)
		return
	}

	resp := toPedidoResponse(pedido, nil)
	notify(h.notifier, EventPedidoEstado, resp)

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /pedidos/{id}.
func (h *PedidoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writePedidoError(w, "delete pedido", err)
		return
	}

	notify(h.notifier, EventPedidoEliminado, map[string]string{"id": id.String()})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Helpers ---

func toServiceItems(items []itemRequest) []service.ItemInput {
	svcItems := make([]service.ItemInput, len(items))
	for i, item := range items {
		svcItems[i] = service.ItemInput{
			MenuItemID:     item.MenuItemID,
			ProductoNombre: item.ProductoNombre,
			PrecioUnitario: item.PrecioUnitario,
			Cantidad:       item.Cantidad,
			Especificacion: item.Especificacion,
			Nota:           item.Nota,
		}
	}
	return svcItems
}

// writePedidoError maps known service errors to HTTP status codes.
func writePedidoError(w http.ResponseWriter, op string, err error) {
	switch {
	case isPedidoValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPedidoNotFound),
		errors.Is(err, service.ErrCuentaNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPedidoNoEditable),
		errors.Is(err, service.ErrEstadoConflict),
		errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAllocationExhausted):
		// Retry budget spent, not a state problem: the whole submission is
		// safe to resend.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isPedidoValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrItemSinProducto) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrMesaRequired) ||
		errors.Is(err, service.ErrInvalidCuentaID) ||
		errors.Is(err, service.ErrInvalidEstado)
}

func toPedidoResponse(p database.Pedido, detalles []database.DetallePedido) pedidoResponse {
	resp := pedidoResponse{
		ID:            p.ID,
		Numero:        p.Numero,
		CuentaID:      uuidToPtr(p.CuentaID),
		Mesa:          textToPtr(p.Mesa),
		Personas:      p.Personas,
		ParaLlevar:    p.ParaLlevar,
		Estado:        p.Estado,
		Total:         numericToString(p.Total),
		MetodoPago:    textToPtr(p.MetodoPago),
		CreadoEn:      p.CreadoEn,
		ActualizadoEn: p.ActualizadoEn,
	}
	for _, d := range detalles {
		resp.Detalles = append(resp.Detalles, detalleResponse{
			ID:             d.ID,
			MenuItemID:     uuidToPtr(d.MenuItemID),
			ProductoNombre: d.ProductoNombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: numericToString(d.PrecioUnitario),
			Subtotal:       numericToString(d.Subtotal),
			Especificacion: textToPtr(d.Especificacion),
			Nota:           textToPtr(d.Nota),
		})
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0"
	}
	return val.(string)
}

func textToPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func uuidToPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}
