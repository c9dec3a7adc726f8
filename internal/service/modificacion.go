package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
)

// ModificacionStore is the data access the approval workflow needs. Approval
// side effects (cascade delete, item replacement) run through the same store,
// inside the decision's transaction.
type ModificacionStore interface {
	CreateModificacion(ctx context.Context, arg database.CreateModificacionParams) (database.ModificacionPedido, error)
	GetModificacion(ctx context.Context, id uuid.UUID) (database.ModificacionPedido, error)
	DecideModificacion(ctx context.Context, arg database.DecideModificacionParams) (database.ModificacionPedido, error)

	GetPedido(ctx context.Context, id uuid.UUID) (database.Pedido, error)
	GetCuenta(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	DeleteModificacionesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)
	DeleteDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)
	DeletePedido(ctx context.Context, id uuid.UUID) (pgtype.UUID, error)
	CreateDetalle(ctx context.Context, arg database.CreateDetalleParams) (database.DetallePedido, error)
	UpdatePedidoTotal(ctx context.Context, arg database.UpdatePedidoTotalParams) (database.Pedido, error)
	RecomputeCuentaTotal(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error)

	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

type NewModificacionStore func(db database.DBTX) ModificacionStore

// ModificacionService runs the modification-request workflow: waiters file
// requests against in-flight orders, a cashier or admin decides them, and an
// approval applies the requested change atomically with the decision.
type ModificacionService struct {
	pool     TxBeginner
	newStore NewModificacionStore
}

func NewModificacionService(pool TxBeginner, newStore NewModificacionStore) *ModificacionService {
	return &ModificacionService{pool: pool, newStore: newStore}
}

// CreateModificacionRequest files a change request against an order. Cambios
// carries the proposed replacement item set for edit-type requests; it is
// stored verbatim and only applied if the request is approved.
type CreateModificacionRequest struct {
	Tipo          string
	PedidoID      string
	SolicitadoPor string
	Detalles      string
	Cambios       []ItemInput
}

// Create validates and records a pending modification request. The order must
// exist and belong to an account; the request snapshots the account id so the
// approvals queue can show account context even after the order moves on.
func (s *ModificacionService) Create(ctx context.Context, req CreateModificacionRequest) (database.ModificacionPedido, error) {
	switch req.Tipo {
	case enum.ModificacionTipoEdicion, enum.ModificacionTipoEliminacion, enum.ModificacionTipoEdicionCompleta:
	default:
		return database.ModificacionPedido{}, ErrInvalidTipo
	}

	pedidoID, err := uuid.Parse(req.PedidoID)
	if err != nil {
		return database.ModificacionPedido{}, ErrInvalidPedidoID
	}

	var cambios []byte
	if len(req.Cambios) > 0 {
		if req.Tipo == enum.ModificacionTipoEliminacion {
			return database.ModificacionPedido{}, ErrInvalidTipo
		}
		cambios, err = json.Marshal(req.Cambios)
		if err != nil {
			return database.ModificacionPedido{}, fmt.Errorf("marshal cambios: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.ModificacionPedido{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	pedido, err := store.GetPedido(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ModificacionPedido{}, ErrPedidoNotFound
		}
		return database.ModificacionPedido{}, fmt.Errorf("get pedido: %w", err)
	}
	if !pedido.CuentaID.Valid {
		return database.ModificacionPedido{}, ErrCuentaNotFound
	}
	cuenta, err := store.GetCuenta(ctx, uuid.UUID(pedido.CuentaID.Bytes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ModificacionPedido{}, ErrCuentaNotFound
		}
		return database.ModificacionPedido{}, fmt.Errorf("get cuenta: %w", err)
	}

	var detalles pgtype.Text
	if req.Detalles != "" {
		detalles = pgtype.Text{String: req.Detalles, Valid: true}
	}

	mod, err := store.CreateModificacion(ctx, database.CreateModificacionParams{
		Tipo:          req.Tipo,
		PedidoID:      pedido.ID,
		CuentaID:      cuenta.ID,
		SolicitadoPor: req.SolicitadoPor,
		Detalles:      detalles,
		Cambios:       cambios,
	})
	if err != nil {
		return database.ModificacionPedido{}, fmt.Errorf("create modificacion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.ModificacionPedido{}, err
	}
	return mod, nil
}

// Decide settles a pending request as aprobada or rechazada. The settle is a
// compare-and-swap on estado = pendiente, so each request is decided exactly
// once. Approving an eliminacion deletes the order and everything referencing
// it; approving an edit with stored cambios replaces the order's items. Both
// side effects commit atomically with the decision.
func (s *ModificacionService) Decide(ctx context.Context, id uuid.UUID, decision, aprobadoPor string) (database.ModificacionPedido, error) {
	switch decision {
	case enum.ModificacionEstadoAprobada, enum.ModificacionEstadoRechazada:
	default:
		return database.ModificacionPedido{}, ErrInvalidDecision
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.ModificacionPedido{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	mod, err := store.DecideModificacion(ctx, database.DecideModificacionParams{
		ID:          id,
		Estado:      decision,
		AprobadoPor: aprobadoPor,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := store.GetModificacion(ctx, id); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return database.ModificacionPedido{}, ErrModificacionNotFound
				}
				return database.ModificacionPedido{}, fmt.Errorf("get modificacion: %w", err)
			}
			return database.ModificacionPedido{}, ErrAlreadyDecided
		}
		return database.ModificacionPedido{}, fmt.Errorf("decide modificacion: %w", err)
	}

	if decision == enum.ModificacionEstadoAprobada {
		if err := s.applyApproved(ctx, store, mod); err != nil {
			return database.ModificacionPedido{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.ModificacionPedido{}, err
	}
	return mod, nil
}

func (s *ModificacionService) applyApproved(ctx context.Context, store ModificacionStore, mod database.ModificacionPedido) error {
	switch mod.Tipo {
	case enum.ModificacionTipoEliminacion:
		return s.deletePedidoCascade(ctx, store, mod.PedidoID)

	case enum.ModificacionTipoEdicion, enum.ModificacionTipoEdicionCompleta:
		if len(mod.Cambios) == 0 {
			// Nothing machine-applicable; the kitchen acts on the free-text
			// detalles and the request just records the sign-off.
			return nil
		}
		var items []ItemInput
		if err := json.Unmarshal(mod.Cambios, &items); err != nil {
			return fmt.Errorf("unmarshal cambios: %w", err)
		}
		pedido, err := store.GetPedido(ctx, mod.PedidoID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPedidoNotFound
			}
			return fmt.Errorf("get pedido: %w", err)
		}
		if _, _, err := replaceItemsTx(ctx, store, pedido, items); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// deletePedidoCascade removes the order in dependency order, including every
// other modification request still pointing at it.
func (s *ModificacionService) deletePedidoCascade(ctx context.Context, store ModificacionStore, pedidoID uuid.UUID) error {
	if _, err := store.DeleteModificacionesByPedido(ctx, pedidoID); err != nil {
		return fmt.Errorf("delete modificaciones: %w", err)
	}
	if _, err := store.DeleteDetallesByPedido(ctx, pedidoID); err != nil {
		return fmt.Errorf("delete detalles: %w", err)
	}
	cuentaID, err := store.DeletePedido(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Order already gone; the decision itself still stands.
			return nil
		}
		return fmt.Errorf("delete pedido: %w", err)
	}
	if cuentaID.Valid {
		if _, err := store.RecomputeCuentaTotal(ctx, uuid.UUID(cuentaID.Bytes)); err != nil {
			return fmt.Errorf("recompute cuenta total: %w", err)
		}
	}
	return nil
}
