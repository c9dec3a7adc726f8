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
)

// --- Mock MenuStore ---

type mockMenuStore struct {
	createFn func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	listFn   func(ctx context.Context, disponible pgtype.Bool) ([]database.MenuItem, error)
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	return m.createFn(ctx, arg)
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context, disponible pgtype.Bool) ([]database.MenuItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx, disponible)
	}
	return []database.MenuItem{}, nil
}

func setupMenuRouter(store *mockMenuStore) chi.Router {
	h := handler.NewMenuHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/menu", h.RegisterRoutes)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole("admin"))
		r.Route("/menu/admin", h.RegisterAdminRoutes)
	})
	return r
}

// --- Tests ---

func TestMenuList_DisponibleFilter(t *testing.T) {
	claims := testClaims("mesero")

	var gotFilter pgtype.Bool
	store := &mockMenuStore{
		listFn: func(ctx context.Context, disponible pgtype.Bool) ([]database.MenuItem, error) {
			gotFilter = disponible
			now := time.Now()
			return []database.MenuItem{{
				ID:            uuid.New(),
				Nombre:        "Tacos al pastor (orden)",
				Precio:        testNumeric(t, "85.00"),
				Categoria:     pgtype.Text{String: "Tacos", Valid: true},
				Disponible:    true,
				CreadoEn:      now,
				ActualizadoEn: now,
			}}, nil
		},
	}
	router := setupMenuRouter(store)

	rr := doAuthRequest(t, router, "GET", "/menu?disponible=true", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if !gotFilter.Valid || !gotFilter.Bool {
		t.Errorf("disponible filter: got %v, want true", gotFilter)
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("items count: got %d, want 1", len(resp))
	}
	item := resp[0].(map[string]interface{})
	if item["precio"] != "85.00" {
		t.Errorf("precio: got %v, want 85.00", item["precio"])
	}
	if item["categoria"] != "Tacos" {
		t.Errorf("categoria: got %v, want Tacos", item["categoria"])
	}
}

func TestMenuList_InvalidDisponible(t *testing.T) {
	claims := testClaims("mesero")
	router := setupMenuRouter(&mockMenuStore{})

	rr := doAuthRequest(t, router, "GET", "/menu?disponible=quizas", nil, claims)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuCreate_HappyPath(t *testing.T) {
	claims := testClaims("admin")

	store := &mockMenuStore{
		createFn: func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
			if arg.Nombre != "Pozole rojo" {
				t.Errorf("nombre: got %q, want Pozole rojo", arg.Nombre)
			}
			now := time.Now()
			return database.MenuItem{
				ID:            uuid.New(),
				Nombre:        arg.Nombre,
				Precio:        arg.Precio,
				Categoria:     arg.Categoria,
				Disponible:    true,
				CreadoEn:      now,
				ActualizadoEn: now,
			}, nil
		},
	}
	router := setupMenuRouter(store)

	rr := doAuthRequest(t, router, "POST", "/menu/admin", map[string]interface{}{
		"nombre":    "Pozole rojo",
		"precio":    "110.00",
		"categoria": "Sopas",
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["precio"] != "110.00" {
		t.Errorf("precio: got %v, want 110.00", resp["precio"])
	}
}

func TestMenuCreate_NegativePrecio(t *testing.T) {
	claims := testClaims("admin")
	router := setupMenuRouter(&mockMenuStore{})

	rr := doAuthRequest(t, router, "POST", "/menu/admin", map[string]interface{}{
		"nombre": "Error",
		"precio": "-10.00",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuCreate_MissingNombre(t *testing.T) {
	claims := testClaims("admin")
	router := setupMenuRouter(&mockMenuStore{})

	rr := doAuthRequest(t, router, "POST", "/menu/admin", map[string]interface{}{
		"precio": "50.00",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
