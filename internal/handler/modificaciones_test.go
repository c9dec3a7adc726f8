package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
)

// --- Mock ModificacionServicer ---

type mockModificacionHandlerService struct {
	createFn func(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error)
	decideFn func(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error)
}

func (m *mockModificacionHandlerService) Create(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error) {
	return m.createFn(ctx, req)
}

func (m *mockModificacionHandlerService) Decide(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error) {
	return m.decideFn(ctx, id, decision, aprobadoPor)
}

// --- Mock ModificacionStore ---

type mockModificacionReadStore struct {
	listFn func(ctx context.Context, estado pgtype.Text) ([]database.ListModificacionesRow, error)
}

func (m *mockModificacionReadStore) ListModificaciones(ctx context.Context, estado pgtype.Text) ([]database.ListModificacionesRow, error) {
	if m.listFn != nil {
		return m.listFn(ctx, estado)
	}
	return []database.ListModificacionesRow{}, nil
}

func setupModificacionRouter(svc *mockModificacionHandlerService, store *mockModificacionReadStore, notifier *mockNotifier) chi.Router {
	var n handler.Notifier
	if notifier != nil {
		n = notifier
	}
	h := handler.NewModificacionHandler(svc, store, n)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/modificaciones", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterDecisionRoutes(r)
	})
	return r
}

func testModificacion(tipo, estado string) database.ModificacionPedido {
	return database.ModificacionPedido{
		ID:            uuid.New(),
		Tipo:          tipo,
		PedidoID:      uuid.New(),
		CuentaID:      uuid.New(),
		SolicitadoPor: "Carlos Mendoza",
		Detalles:      pgtype.Text{String: "cliente cambió de opinión", Valid: true},
		Estado:        estado,
		SolicitadoEn:  time.Now(),
	}
}

// --- Tests ---

func TestModificacionCreate_HappyPath(t *testing.T) {
	claims := testClaims("mesero")
	notifier := &mockNotifier{}
	pedidoID := uuid.New()

	svc := &mockModificacionHandlerService{
		createFn: func(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error) {
			if req.Tipo != "eliminacion" {
				t.Errorf("tipo: got %q, want eliminacion", req.Tipo)
			}
			if req.PedidoID != pedidoID.String() {
				t.Errorf("pedido_id: got %q, want %s", req.PedidoID, pedidoID)
			}
			if req.SolicitadoPor != claims.Nombre {
				t.Errorf("solicitado_por: got %q, want %q", req.SolicitadoPor, claims.Nombre)
			}
			mod := testModificacion("eliminacion", "pendiente")
			mod.PedidoID = pedidoID
			return mod, nil
		},
	}
	router := setupModificacionRouter(svc, &mockModificacionReadStore{}, notifier)

	rr := doAuthRequest(t, router, "POST", "/modificaciones", map[string]interface{}{
		"tipo":      "eliminacion",
		"pedido_id": pedidoID.String(),
		"detalles":  "cliente cambió de opinión",
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["tipo"] != "eliminacion" {
		t.Errorf("tipo: got %v, want eliminacion", resp["tipo"])
	}
	if resp["estado"] != "pendiente" {
		t.Errorf("estado: got %v, want pendiente", resp["estado"])
	}
	if len(notifier.events) != 1 || notifier.events[0] != handler.EventModificacionCreada {
		t.Errorf("events: got %v, want [%s]", notifier.events, handler.EventModificacionCreada)
	}
}

func TestModificacionCreate_MissingTipo(t *testing.T) {
	claims := testClaims("mesero")
	router := setupModificacionRouter(&mockModificacionHandlerService{}, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/modificaciones", map[string]interface{}{
		"pedido_id": uuid.NewString(),
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestModificacionCreate_InvalidTipo(t *testing.T) {
	claims := testClaims("mesero")
	svc := &mockModificacionHandlerService{
		createFn: func(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error) {
			return database.ModificacionPedido{}, service.ErrInvalidTipo
		},
	}
	router := setupModificacionRouter(svc, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/modificaciones", map[string]interface{}{
		"tipo":      "duplicacion",
		"pedido_id": uuid.NewString(),
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestModificacionCreate_PedidoNotFound(t *testing.T) {
	claims := testClaims("mesero")
	svc := &mockModificacionHandlerService{
		createFn: func(ctx context.Context, req service.CreateModificacionRequest) (database.ModificacionPedido, error) {
			return database.ModificacionPedido{}, service.ErrPedidoNotFound
		},
	}
	router := setupModificacionRouter(svc, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/modificaciones", map[string]interface{}{
		"tipo":      "eliminacion",
		"pedido_id": uuid.NewString(),
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestModificacionList_DefaultsToPendientes(t *testing.T) {
	claims := testClaims("caja")

	var gotEstado pgtype.Text
	store := &mockModificacionReadStore{
		listFn: func(ctx context.Context, estado pgtype.Text) ([]database.ListModificacionesRow, error) {
			gotEstado = estado
			return []database.ListModificacionesRow{{
				ModificacionPedido: testModificacion("edicion", "pendiente"),
				PedidoNumero:       "Pedido 004",
				CuentaNumero:       "Cuenta 002",
				MeseroNombre:       "Carlos Mendoza",
			}}, nil
		},
	}
	router := setupModificacionRouter(&mockModificacionHandlerService{}, store, nil)

	rr := doAuthRequest(t, router, "GET", "/modificaciones", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if !gotEstado.Valid || gotEstado.String != "pendiente" {
		t.Errorf("estado filter: got %v, want pendiente", gotEstado)
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("count: got %d, want 1", len(resp))
	}
	item := resp[0].(map[string]interface{})
	if item["pedido_numero"] != "Pedido 004" {
		t.Errorf("pedido_numero: got %v, want Pedido 004", item["pedido_numero"])
	}
	if item["mesero_nombre"] != "Carlos Mendoza" {
		t.Errorf("mesero_nombre: got %v", item["mesero_nombre"])
	}
}

func TestModificacionList_Todas(t *testing.T) {
	claims := testClaims("caja")

	var gotEstado pgtype.Text
	store := &mockModificacionReadStore{
		listFn: func(ctx context.Context, estado pgtype.Text) ([]database.ListModificacionesRow, error) {
			gotEstado = estado
			return nil, nil
		},
	}
	router := setupModificacionRouter(&mockModificacionHandlerService{}, store, nil)

	rr := doAuthRequest(t, router, "GET", "/modificaciones?estado=todas", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if gotEstado.Valid {
		t.Errorf("estado filter: got %v, want unset", gotEstado)
	}
}

func TestModificacionList_InvalidEstado(t *testing.T) {
	claims := testClaims("caja")
	router := setupModificacionRouter(&mockModificacionHandlerService{}, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/modificaciones?estado=dudosa", nil, claims)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestModificacionDecidir_HappyPath(t *testing.T) {
	claims := testClaims("caja")
	notifier := &mockNotifier{}
	modID := uuid.New()

	svc := &mockModificacionHandlerService{
		decideFn: func(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error) {
			if id != modID {
				t.Errorf("modificacion ID: got %v, want %v", id, modID)
			}
			if decision != "aprobada" {
				t.Errorf("decision: got %q, want aprobada", decision)
			}
			if aprobadoPor != claims.Nombre {
				t.Errorf("aprobado_por: got %q, want %q", aprobadoPor, claims.Nombre)
			}
			mod := testModificacion("eliminacion", "aprobada")
			mod.ID = modID
			mod.AprobadoPor = pgtype.Text{String: claims.Nombre, Valid: true}
			mod.DecididoEn = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return mod, nil
		},
	}
	router := setupModificacionRouter(svc, &mockModificacionReadStore{}, notifier)

	rr := doAuthRequest(t, router, "POST", "/modificaciones/"+modID.String()+"/decidir", map[string]interface{}{
		"decision": "aprobada",
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["estado"] != "aprobada" {
		t.Errorf("estado: got %v, want aprobada", resp["estado"])
	}
	if resp["decidido_en"] == nil {
		t.Error("decidido_en should be set")
	}
	if len(notifier.events) != 1 || notifier.events[0] != handler.EventModificacionDecidida {
		t.Errorf("events: got %v, want [%s]", notifier.events, handler.EventModificacionDecidida)
	}
}

func TestModificacionDecidir_MissingDecision(t *testing.T) {
	claims := testClaims("caja")
	router := setupModificacionRouter(&mockModificacionHandlerService{}, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/modificaciones/"+uuid.NewString()+"/decidir", map[string]interface{}{}, claims)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestModificacionDecidir_AlreadyDecided(t *testing.T) {
	claims := testClaims("caja")
	svc := &mockModificacionHandlerService{
		decideFn: func(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error) {
			return database.ModificacionPedido{}, service.ErrAlreadyDecided
		},
	}
	router := setupModificacionRouter(svc, &mockModificacionReadStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/modificaciones/"+uuid.NewString()+"/decidir", map[string]interface{}{
		"decision": "rechazada",
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}
