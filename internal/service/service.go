// Package service owns the POS core: the account lifecycle state machine,
// order state and mutation, per-day sequence allocation, and the
// modification-approval workflow. Handlers stay thin; every multi-statement
// mutation here runs inside a single database transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
)

// Errors returned by the POS core services.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("cantidad must be > 0")
	ErrInvalidPrice         = errors.New("invalid precio_unitario")
	ErrItemSinProducto      = errors.New("item needs a menu_item_id or a producto_nombre with precio_unitario")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMesaRequired         = errors.New("mesa is required for dine-in orders")
	ErrInvalidCuentaID      = errors.New("invalid cuenta_id")
	ErrInvalidPedidoID      = errors.New("invalid pedido_id")
	ErrCuentaNotFound       = errors.New("cuenta not found")
	ErrPedidoNotFound       = errors.New("pedido not found")
	ErrModificacionNotFound = errors.New("modificacion not found")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrAlreadyDecided       = errors.New("modificacion already decided")
	ErrInvalidEstado        = errors.New("invalid estado")
	ErrInvalidTipo          = errors.New("invalid tipo")
	ErrInvalidDecision      = errors.New("decision must be aprobada or rechazada")
	ErrInvalidMetodoPago    = errors.New("invalid metodo_pago")
	ErrInvalidMonto         = errors.New("invalid monto_cobrado")
	ErrCuentaConPedidos     = errors.New("cuenta still has pedidos")
	ErrPedidoNoEditable     = errors.New("pedido is no longer freely editable; file a modificacion")
	ErrEstadoConflict       = errors.New("pedido estado changed, please retry")
	ErrAllocationExhausted  = errors.New("could not allocate a free numero after retries")
)

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ItemInput is one requested line item. Either MenuItemID resolves the name
// and price from the catalog, or ProductoNombre + PrecioUnitario describe a
// free-text item directly.
type ItemInput struct {
	MenuItemID     string `json:"menu_item_id,omitempty"`
	ProductoNombre string `json:"producto_nombre,omitempty"`
	PrecioUnitario string `json:"precio_unitario,omitempty"`
	Cantidad       int32  `json:"cantidad"`
	Especificacion string `json:"especificacion,omitempty"`
	Nota           string `json:"nota,omitempty"`
}

// resolvedItem is an ItemInput with its price settled and subtotal computed.
type resolvedItem struct {
	menuItemID     pgtype.UUID
	nombre         string
	precio         decimal.Decimal
	cantidad       int32
	subtotal       decimal.Decimal
	especificacion pgtype.Text
	nota           pgtype.Text
}

// menuLookup is the catalog dependency of item resolution.
type menuLookup interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// resolveItems validates and prices a requested item set. With dropNonPositive
// set, quantity <= 0 items are silently filtered (the replace-items contract);
// otherwise they are rejected.
func resolveItems(ctx context.Context, store menuLookup, items []ItemInput, dropNonPositive bool) ([]resolvedItem, decimal.Decimal, error) {
	total := decimal.Zero
	var resolved []resolvedItem

	for i, item := range items {
		if item.Cantidad <= 0 {
			if dropNonPositive {
				continue
			}
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		r := resolvedItem{cantidad: item.Cantidad}

		if item.MenuItemID != "" {
			id, err := uuid.Parse(item.MenuItemID)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
			}
			mi, err := store.GetMenuItem(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
				}
				return nil, decimal.Zero, fmt.Errorf("items[%d]: get menu item: %w", i, err)
			}
			r.menuItemID = pgtype.UUID{Bytes: id, Valid: true}
			r.nombre = mi.Nombre
			r.precio = numericToDecimal(mi.Precio)
			// Explicit name/price on the request wins over the catalog
			// (price agreed at the table, off-menu preparation, etc).
			if item.ProductoNombre != "" {
				r.nombre = item.ProductoNombre
			}
			if item.PrecioUnitario != "" {
				p, err := decimal.NewFromString(item.PrecioUnitario)
				if err != nil || p.IsNegative() {
					return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidPrice)
				}
				r.precio = p
			}
		} else {
			if item.ProductoNombre == "" {
				return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrItemSinProducto)
			}
			p, err := decimal.NewFromString(item.PrecioUnitario)
			if err != nil || p.IsNegative() {
				return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidPrice)
			}
			r.nombre = item.ProductoNombre
			r.precio = p
		}

		if item.Especificacion != "" {
			r.especificacion = pgtype.Text{String: item.Especificacion, Valid: true}
		}
		if item.Nota != "" {
			r.nota = pgtype.Text{String: item.Nota, Valid: true}
		}

		r.subtotal = r.precio.Mul(decimal.NewFromInt32(r.cantidad))
		total = total.Add(r.subtotal)
		resolved = append(resolved, r)
	}

	return resolved, total, nil
}

// detalleWriter covers the stores that can rewrite an order's line items.
type detalleWriter interface {
	menuLookup
	DeleteDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)
	CreateDetalle(ctx context.Context, arg database.CreateDetalleParams) (database.DetallePedido, error)
	UpdatePedidoTotal(ctx context.Context, arg database.UpdatePedidoTotalParams) (database.Pedido, error)
	RecomputeCuentaTotal(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error)
}

// replaceItemsTx rewrites an order's line items wholesale: delete all, insert
// the new set, recompute order and account totals. Must run inside the
// caller's transaction. Quantity <= 0 items are dropped, not rejected.
func replaceItemsTx(ctx context.Context, store detalleWriter, pedido database.Pedido, items []ItemInput) (database.Pedido, []database.DetallePedido, error) {
	resolved, total, err := resolveItems(ctx, store, items, true)
	if err != nil {
		return database.Pedido{}, nil, err
	}

	if _, err := store.DeleteDetallesByPedido(ctx, pedido.ID); err != nil {
		return database.Pedido{}, nil, fmt.Errorf("delete detalles: %w", err)
	}

	detalles, err := insertDetalles(ctx, store, pedido.ID, resolved)
	if err != nil {
		return database.Pedido{}, nil, err
	}

	updated, err := store.UpdatePedidoTotal(ctx, database.UpdatePedidoTotalParams{
		ID:    pedido.ID,
		Total: decimalToNumeric(total),
	})
	if err != nil {
		return database.Pedido{}, nil, fmt.Errorf("update pedido total: %w", err)
	}

	if pedido.CuentaID.Valid {
		if _, err := store.RecomputeCuentaTotal(ctx, uuid.UUID(pedido.CuentaID.Bytes)); err != nil {
			return database.Pedido{}, nil, fmt.Errorf("recompute cuenta total: %w", err)
		}
	}

	return updated, detalles, nil
}

type detalleInserter interface {
	CreateDetalle(ctx context.Context, arg database.CreateDetalleParams) (database.DetallePedido, error)
}

func insertDetalles(ctx context.Context, store detalleInserter, pedidoID uuid.UUID, items []resolvedItem) ([]database.DetallePedido, error) {
	var detalles []database.DetallePedido
	for _, r := range items {
		d, err := store.CreateDetalle(ctx, database.CreateDetalleParams{
			PedidoID:       pedidoID,
			MenuItemID:     r.menuItemID,
			ProductoNombre: r.nombre,
			Cantidad:       r.cantidad,
			PrecioUnitario: decimalToNumeric(r.precio),
			Subtotal:       decimalToNumeric(r.subtotal),
			Especificacion: r.especificacion,
			Nota:           r.nota,
		})
		if err != nil {
			return nil, fmt.Errorf("create detalle: %w", err)
		}
		detalles = append(detalles, d)
	}
	return detalles, nil
}

// NormalizeMetodoPago maps user-supplied payment method spellings onto the
// canonical enum values.
func NormalizeMetodoPago(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "efectivo", "cash":
		return enum.MetodoPagoEfectivo, nil
	case "tarjeta", "card", "credito", "debito", "tarjeta_credito", "tarjeta_debito":
		return enum.MetodoPagoTarjeta, nil
	}
	return "", ErrInvalidMetodoPago
}

// IsValidPedidoEstado reports whether s is a known order state. No transition
// table is enforced beyond this: kitchen staff occasionally need to move an
// order backwards, so the core stays permissive.
func IsValidPedidoEstado(s string) bool {
	switch s {
	case enum.PedidoEstadoPendiente, enum.PedidoEstadoPreparacion,
		enum.PedidoEstadoListo, enum.PedidoEstadoEntregado,
		enum.PedidoEstadoCancelado, enum.PedidoEstadoCompletado,
		enum.PedidoEstadoPagado:
		return true
	}
	return false
}

// --- Numeric helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
