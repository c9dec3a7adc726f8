package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
)

// PedidoStore is the data access order submission and mutation need. It
// includes the account reads/writes so get-or-create-account happens inside
// the same transaction as the order insert.
type PedidoStore interface {
	GetPedido(ctx context.Context, id uuid.UUID) (database.Pedido, error)
	CreatePedido(ctx context.Context, arg database.CreatePedidoParams) (database.Pedido, error)
	CountPedidosEnRango(ctx context.Context, arg database.RangoParams) (int64, error)
	UpdatePedidoEstado(ctx context.Context, arg database.UpdatePedidoEstadoParams) (database.Pedido, error)
	UpdatePedidoTotal(ctx context.Context, arg database.UpdatePedidoTotalParams) (database.Pedido, error)
	DeletePedido(ctx context.Context, id uuid.UUID) (pgtype.UUID, error)

	CreateDetalle(ctx context.Context, arg database.CreateDetalleParams) (database.DetallePedido, error)
	ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]database.DetallePedido, error)
	DeleteDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)
	DeleteModificacionesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)

	GetCuenta(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	GetCuentaAbierta(ctx context.Context, arg database.GetCuentaAbiertaParams) (database.Cuenta, error)
	CountCuentasEnRango(ctx context.Context, arg database.RangoParams) (int64, error)
	CreateCuenta(ctx context.Context, arg database.CreateCuentaParams) (database.Cuenta, error)
	RecomputeCuentaTotal(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error)

	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

type NewPedidoStore func(db database.DBTX) PedidoStore

// PedidoService handles order submission and the mutations on an order after
// it exists: free edits while pendiente, state moves, and deletion.
type PedidoService struct {
	pool     TxBeginner
	newStore NewPedidoStore
	clock    *businessday.Clock
}

func NewPedidoService(pool TxBeginner, newStore NewPedidoStore, clock *businessday.Clock) *PedidoService {
	return &PedidoService{pool: pool, newStore: newStore, clock: clock}
}

// SubmitOrderRequest carries everything needed to place an order. CuentaID
// pins the order to an existing account; otherwise dine-in orders attach to
// the table's open account for the business day (created on demand) and
// takeout orders stay unattached.
type SubmitOrderRequest struct {
	MeseroID   uuid.UUID
	Mesa       string
	Personas   int32
	ParaLlevar bool
	CuentaID   string
	Items      []ItemInput
}

// SubmitOrderResult is the created order with its line items and, when the
// order is on an account, the account after its total was recomputed.
type SubmitOrderResult struct {
	Pedido   database.Pedido
	Detalles []database.DetallePedido
	Cuenta   *database.Cuenta
}

// SubmitOrder places a new order atomically: price the items, allocate the
// day's next "Pedido NNN" numero, resolve or open the account, insert the
// order and its line items, and recompute the account total. Numero and
// open-account races are retried with a fresh count.
func (s *PedidoService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (SubmitOrderResult, error) {
	if len(req.Items) == 0 {
		return SubmitOrderResult{}, ErrEmptyItems
	}
	if !req.ParaLlevar && req.Mesa == "" && req.CuentaID == "" {
		return SubmitOrderResult{}, ErrMesaRequired
	}

	var cuentaID pgtype.UUID
	if req.CuentaID != "" {
		id, err := uuid.Parse(req.CuentaID)
		if err != nil {
			return SubmitOrderResult{}, ErrInvalidCuentaID
		}
		cuentaID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if req.Personas <= 0 {
		req.Personas = 1
	}

	for attempt := 0; attempt < maxNumeroRetries; attempt++ {
		result, err := s.submitOnce(ctx, req, cuentaID)
		if err == nil {
			return result, nil
		}
		if isUniqueViolation(err, constraintMesaAbiertaDia) || isNumeroConflict(err) {
			continue
		}
		return SubmitOrderResult{}, err
	}
	return SubmitOrderResult{}, ErrAllocationExhausted
}

func (s *PedidoService) submitOnce(ctx context.Context, req SubmitOrderRequest, cuentaID pgtype.UUID) (SubmitOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SubmitOrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	desde, hasta := s.clock.TodayBounds()

	resolved, total, err := resolveItems(ctx, store, req.Items, false)
	if err != nil {
		return SubmitOrderResult{}, err
	}
	if len(resolved) == 0 {
		return SubmitOrderResult{}, ErrEmptyItems
	}

	mesa := req.Mesa
	if req.ParaLlevar && mesa == "" {
		mesa = enum.MesaParaLlevar
	}

	switch {
	case cuentaID.Valid:
		cuenta, err := store.GetCuenta(ctx, uuid.UUID(cuentaID.Bytes))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return SubmitOrderResult{}, ErrCuentaNotFound
			}
			return SubmitOrderResult{}, fmt.Errorf("get cuenta: %w", err)
		}
		if cuenta.Estado != enum.CuentaEstadoAbierta {
			return SubmitOrderResult{}, ErrInvalidTransition
		}
		if mesa == "" && cuenta.Mesa.Valid {
			mesa = cuenta.Mesa.String
		}
	case !req.ParaLlevar:
		cuenta, err := s.attachCuenta(ctx, store, mesa, req.MeseroID, desde, hasta)
		if err != nil {
			return SubmitOrderResult{}, err
		}
		cuentaID = pgtype.UUID{Bytes: cuenta.ID, Valid: true}
	}

	count, err := store.CountPedidosEnRango(ctx, database.RangoParams{Desde: desde, Hasta: hasta})
	if err != nil {
		return SubmitOrderResult{}, fmt.Errorf("count pedidos: %w", err)
	}

	pedido, err := store.CreatePedido(ctx, database.CreatePedidoParams{
		Numero:     formatPedidoNumero(count + 1),
		CuentaID:   cuentaID,
		Mesa:       pgtype.Text{String: mesa, Valid: mesa != ""},
		Personas:   req.Personas,
		ParaLlevar: req.ParaLlevar,
		Total:      decimalToNumeric(total),
	})
	if err != nil {
		return SubmitOrderResult{}, err
	}

	detalles, err := insertDetalles(ctx, store, pedido.ID, resolved)
	if err != nil {
		return SubmitOrderResult{}, err
	}

	result := SubmitOrderResult{Pedido: pedido, Detalles: detalles}
	if cuentaID.Valid {
		if _, err := store.RecomputeCuentaTotal(ctx, uuid.UUID(cuentaID.Bytes)); err != nil {
			return SubmitOrderResult{}, fmt.Errorf("recompute cuenta total: %w", err)
		}
		cuenta, err := store.GetCuenta(ctx, uuid.UUID(cuentaID.Bytes))
		if err != nil {
			return SubmitOrderResult{}, fmt.Errorf("reload cuenta: %w", err)
		}
		result.Cuenta = &cuenta
	}

	if err := tx.Commit(ctx); err != nil {
		return SubmitOrderResult{}, err
	}
	return result, nil
}

// attachCuenta finds the table's open account inside the submit transaction,
// opening a new one with the next per-day numero when there is none.
func (s *PedidoService) attachCuenta(ctx context.Context, store PedidoStore, mesa string, meseroID uuid.UUID, desde, hasta time.Time) (database.Cuenta, error) {
	cuenta, _, err := getOrCreateCuentaAbierta(ctx, store, mesa, meseroID, desde, hasta)
	return cuenta, err
}

// EditItems replaces an order's line items directly, without an approval. Only
// allowed while the order is still pendiente; once the kitchen has it, edits
// go through the modification workflow instead.
func (s *PedidoService) EditItems(ctx context.Context, pedidoID uuid.UUID, items []ItemInput) (SubmitOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SubmitOrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	pedido, err := store.GetPedido(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmitOrderResult{}, ErrPedidoNotFound
		}
		return SubmitOrderResult{}, fmt.Errorf("get pedido: %w", err)
	}
	if pedido.Estado != enum.PedidoEstadoPendiente {
		return SubmitOrderResult{}, ErrPedidoNoEditable
	}

	updated, detalles, err := replaceItemsTx(ctx, store, pedido, items)
	if err != nil {
		return SubmitOrderResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SubmitOrderResult{}, err
	}
	return SubmitOrderResult{Pedido: updated, Detalles: detalles}, nil
}

// SetState moves an order to the given state. Any known state is accepted as
// a target; the write is a compare-and-swap against the state just read, so a
// concurrent change surfaces as ErrEstadoConflict instead of being clobbered.
func (s *PedidoService) SetState(ctx context.Context, pedidoID uuid.UUID, estado string) (database.Pedido, error) {
	if !IsValidPedidoEstado(estado) {
		return database.Pedido{}, ErrInvalidEstado
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Pedido{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	pedido, err := store.GetPedido(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Pedido{}, ErrPedidoNotFound
		}
		return database.Pedido{}, fmt.Errorf("get pedido: %w", err)
	}
	if pedido.Estado == estado {
		return pedido, tx.Commit(ctx)
	}

	updated, err := store.UpdatePedidoEstado(ctx, database.UpdatePedidoEstadoParams{
		ID:           pedidoID,
		Estado:       estado,
		EstadoPrevio: pedido.Estado,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Pedido{}, ErrEstadoConflict
		}
		return database.Pedido{}, fmt.Errorf("update pedido estado: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Pedido{}, err
	}
	return updated, nil
}

// DeleteOrder removes an order and everything hanging off it, in dependency
// order: modification requests, then line items, then the order itself. The
// owning account's total is recomputed in the same transaction. Like EditItems
// it only applies while the order is pendiente; once dispatched, removal goes
// through an approved eliminación instead.
func (s *PedidoService) DeleteOrder(ctx context.Context, pedidoID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	pedido, err := store.GetPedido(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPedidoNotFound
		}
		return fmt.Errorf("get pedido: %w", err)
	}
	if pedido.Estado != enum.PedidoEstadoPendiente {
		return ErrPedidoNoEditable
	}

	if _, err := store.DeleteModificacionesByPedido(ctx, pedidoID); err != nil {
		return fmt.Errorf("delete modificaciones: %w", err)
	}
	if _, err := store.DeleteDetallesByPedido(ctx, pedidoID); err != nil {
		return fmt.Errorf("delete detalles: %w", err)
	}

	cuentaID, err := store.DeletePedido(ctx, pedidoID)
	if err != nil {
		return fmt.Errorf("delete pedido: %w", err)
	}

	if cuentaID.Valid {
		if _, err := store.RecomputeCuentaTotal(ctx, uuid.UUID(cuentaID.Bytes)); err != nil {
			return fmt.Errorf("recompute cuenta total: %w", err)
		}
	}

	return tx.Commit(ctx)
}
