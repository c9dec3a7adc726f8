package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
)

// --- Mock MesaStore ---

type mockMesaStore struct {
	createMesaFn func(ctx context.Context, arg database.CreateMesaParams) (database.Mesa, error)
	listMesasFn  func(ctx context.Context) ([]database.Mesa, error)
	ocupadaFn    func(ctx context.Context, arg database.MesaOcupadaParams) (bool, error)
}

func (m *mockMesaStore) CreateMesa(ctx context.Context, arg database.CreateMesaParams) (database.Mesa, error) {
	return m.createMesaFn(ctx, arg)
}

func (m *mockMesaStore) ListMesas(ctx context.Context) ([]database.Mesa, error) {
	if m.listMesasFn != nil {
		return m.listMesasFn(ctx)
	}
	return []database.Mesa{}, nil
}

func (m *mockMesaStore) MesaOcupada(ctx context.Context, arg database.MesaOcupadaParams) (bool, error) {
	if m.ocupadaFn != nil {
		return m.ocupadaFn(ctx, arg)
	}
	return false, nil
}

func setupMesaRouter(t *testing.T, store *mockMesaStore) chi.Router {
	t.Helper()
	clock, err := businessday.New("America/Mexico_City")
	if err != nil {
		t.Fatalf("create clock: %v", err)
	}

	h := handler.NewMesaHandler(store, clock)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/mesas", h.RegisterRoutes)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole("admin"))
		r.Route("/mesas/admin", h.RegisterAdminRoutes)
	})
	return r
}

// --- Tests ---

func TestMesaList_DerivesOcupada(t *testing.T) {
	claims := testClaims("mesero")

	store := &mockMesaStore{
		listMesasFn: func(ctx context.Context) ([]database.Mesa, error) {
			return []database.Mesa{
				{ID: uuid.New(), Numero: "1", Capacidad: 4},
				{ID: uuid.New(), Numero: "2", Capacidad: 6},
			}, nil
		},
		ocupadaFn: func(ctx context.Context, arg database.MesaOcupadaParams) (bool, error) {
			return arg.Mesa == "2", nil
		},
	}
	router := setupMesaRouter(t, store)

	rr := doAuthRequest(t, router, "GET", "/mesas", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 2 {
		t.Fatalf("mesas count: got %d, want 2", len(resp))
	}
	mesa1 := resp[0].(map[string]interface{})
	mesa2 := resp[1].(map[string]interface{})
	if mesa1["ocupada"] != false {
		t.Errorf("mesa 1 ocupada: got %v, want false", mesa1["ocupada"])
	}
	if mesa2["ocupada"] != true {
		t.Errorf("mesa 2 ocupada: got %v, want true", mesa2["ocupada"])
	}
}

func TestMesaCreate_DefaultsCapacidad(t *testing.T) {
	claims := testClaims("admin")

	store := &mockMesaStore{
		createMesaFn: func(ctx context.Context, arg database.CreateMesaParams) (database.Mesa, error) {
			if arg.Capacidad != 4 {
				t.Errorf("capacidad: got %d, want 4", arg.Capacidad)
			}
			return database.Mesa{ID: uuid.New(), Numero: arg.Numero, Capacidad: arg.Capacidad}, nil
		},
	}
	router := setupMesaRouter(t, store)

	rr := doAuthRequest(t, router, "POST", "/mesas/admin", map[string]interface{}{
		"numero": "7",
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestMesaCreate_Duplicate(t *testing.T) {
	claims := testClaims("admin")

	store := &mockMesaStore{
		createMesaFn: func(ctx context.Context, arg database.CreateMesaParams) (database.Mesa, error) {
			return database.Mesa{}, &pgconn.PgError{Code: "23505", ConstraintName: "mesas_numero_key"}
		},
	}
	router := setupMesaRouter(t, store)

	rr := doAuthRequest(t, router, "POST", "/mesas/admin", map[string]interface{}{
		"numero": "1",
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestMesaCreate_RequiresAdmin(t *testing.T) {
	claims := testClaims("mesero")
	router := setupMesaRouter(t, &mockMesaStore{})

	rr := doAuthRequest(t, router, "POST", "/mesas/admin", map[string]interface{}{
		"numero": "8",
	}, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
