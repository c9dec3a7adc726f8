package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Cuenta is a running tab for a table (or takeout), aggregating orders until paid.
type Cuenta struct {
	ID           uuid.UUID
	Numero       string
	Mesa         pgtype.Text // null = takeout
	MeseroID     uuid.UUID
	Estado       string
	Total        pgtype.Numeric
	MetodoPago   pgtype.Text
	MontoCobrado pgtype.Numeric
	CreadoEn     time.Time
	CerradoEn    pgtype.Timestamptz
}

// Pedido is one kitchen-bound submission of line items.
type Pedido struct {
	ID            uuid.UUID
	Numero        string
	CuentaID      pgtype.UUID // null for standalone takeout
	Mesa          pgtype.Text
	Personas      int32
	ParaLlevar    bool
	Estado        string
	Total         pgtype.Numeric
	MetodoPago    pgtype.Text
	CreadoEn      time.Time
	ActualizadoEn time.Time
}

// DetallePedido is a single line item on an order.
type DetallePedido struct {
	ID             uuid.UUID
	PedidoID       uuid.UUID
	MenuItemID     pgtype.UUID // null for free-text items
	ProductoNombre string
	Cantidad       int32
	PrecioUnitario pgtype.Numeric
	Subtotal       pgtype.Numeric
	Especificacion pgtype.Text
	Nota           pgtype.Text
}

// ModificacionPedido is a cashier-gated request to edit or delete a dispatched order.
type ModificacionPedido struct {
	ID            uuid.UUID
	Tipo          string
	PedidoID      uuid.UUID
	CuentaID      uuid.UUID
	SolicitadoPor string
	Detalles      pgtype.Text
	Cambios       []byte // JSONB: proposed item set for edicion types
	Estado        string
	SolicitadoEn  time.Time
	AprobadoPor   pgtype.Text
	DecididoEn    pgtype.Timestamptz
}

type Mesa struct {
	ID        uuid.UUID
	Numero    string
	Capacidad int32
}

type MenuItem struct {
	ID            uuid.UUID
	Nombre        string
	Precio        pgtype.Numeric
	Categoria     pgtype.Text
	Disponible    bool
	CreadoEn      time.Time
	ActualizadoEn time.Time
}

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Nombre         string
	Role           string
	Activo         bool
	CreadoEn       time.Time
}
