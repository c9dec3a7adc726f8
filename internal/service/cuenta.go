package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/businessday"
	"github.com/comanda-pos/api/internal/database"
)

// CuentaStore is the data access the account lifecycle needs.
type CuentaStore interface {
	GetCuenta(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	GetCuentaAbierta(ctx context.Context, arg database.GetCuentaAbiertaParams) (database.Cuenta, error)
	CountCuentasEnRango(ctx context.Context, arg database.RangoParams) (int64, error)
	CreateCuenta(ctx context.Context, arg database.CreateCuentaParams) (database.Cuenta, error)
	CerrarCuenta(ctx context.Context, id uuid.UUID) (database.Cuenta, error)
	CobrarCuenta(ctx context.Context, arg database.CobrarCuentaParams) (database.Cuenta, error)
	DeleteCuentaAbierta(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountPedidosByCuenta(ctx context.Context, cuentaID uuid.UUID) (int64, error)
	EntregarPedidosDeCuenta(ctx context.Context, cuentaID uuid.UUID) (int64, error)
	PagarPedidosDeCuenta(ctx context.Context, arg database.PagarPedidosDeCuentaParams) (int64, error)
	RecomputeCuentaTotal(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error)
}

// NewCuentaStore builds a CuentaStore bound to the given DBTX, so the service
// can run its store against a transaction.
type NewCuentaStore func(db database.DBTX) CuentaStore

// CuentaService drives the account lifecycle: abierta -> cerrada -> cobrada.
type CuentaService struct {
	pool     TxBeginner
	newStore NewCuentaStore
	clock    *businessday.Clock
}

func NewCuentaService(pool TxBeginner, newStore NewCuentaStore, clock *businessday.Clock) *CuentaService {
	return &CuentaService{pool: pool, newStore: newStore, clock: clock}
}

// GetOrCreateOpenAccount returns the table's open account for the current
// business day, creating one with a fresh per-day numero when none exists.
// Races are settled by the database: a duplicate open account trips the
// partial unique index and the loser re-reads, a duplicate numero triggers a
// re-count. The created flag reports whether this call opened the account.
func (s *CuentaService) GetOrCreateOpenAccount(ctx context.Context, mesa string, meseroID uuid.UUID) (database.Cuenta, bool, error) {
	if mesa == "" {
		return database.Cuenta{}, false, ErrMesaRequired
	}

	for attempt := 0; attempt < maxNumeroRetries; attempt++ {
		cuenta, created, err := s.getOrCreateOnce(ctx, mesa, meseroID)
		if err == nil {
			return cuenta, created, nil
		}
		if isUniqueViolation(err, constraintMesaAbiertaDia) || isNumeroConflict(err) {
			continue
		}
		return database.Cuenta{}, false, err
	}
	return database.Cuenta{}, false, ErrAllocationExhausted
}

func (s *CuentaService) getOrCreateOnce(ctx context.Context, mesa string, meseroID uuid.UUID) (database.Cuenta, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Cuenta{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	desde, hasta := s.clock.TodayBounds()

	cuenta, created, err := getOrCreateCuentaAbierta(ctx, store, mesa, meseroID, desde, hasta)
	if err != nil {
		return database.Cuenta{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.Cuenta{}, false, err
	}
	return cuenta, created, nil
}

// cuentaAbiertaStore is the slice of store that find-or-open needs; both
// CuentaStore and PedidoStore satisfy it, so account and order submission
// share one implementation of the race-recovery semantics.
type cuentaAbiertaStore interface {
	GetCuentaAbierta(ctx context.Context, arg database.GetCuentaAbiertaParams) (database.Cuenta, error)
	CountCuentasEnRango(ctx context.Context, arg database.RangoParams) (int64, error)
	CreateCuenta(ctx context.Context, arg database.CreateCuentaParams) (database.Cuenta, error)
}

// getOrCreateCuentaAbierta returns the table's open account in the given
// window, creating one with the next per-day numero when none exists. Runs
// inside the caller's transaction; the created flag reports whether this call
// opened the account.
func getOrCreateCuentaAbierta(ctx context.Context, store cuentaAbiertaStore, mesa string, meseroID uuid.UUID, desde, hasta time.Time) (database.Cuenta, bool, error) {
	existing, err := store.GetCuentaAbierta(ctx, database.GetCuentaAbiertaParams{
		Mesa: mesa, Desde: desde, Hasta: hasta,
	})
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Cuenta{}, false, fmt.Errorf("get cuenta abierta: %w", err)
	}

	count, err := store.CountCuentasEnRango(ctx, database.RangoParams{Desde: desde, Hasta: hasta})
	if err != nil {
		return database.Cuenta{}, false, fmt.Errorf("count cuentas: %w", err)
	}

	cuenta, err := store.CreateCuenta(ctx, database.CreateCuentaParams{
		Numero:   formatCuentaNumero(count + 1),
		Mesa:     pgtype.Text{String: mesa, Valid: true},
		MeseroID: meseroID,
	})
	if err != nil {
		return database.Cuenta{}, false, err
	}
	return cuenta, true, nil
}

// Close flips an abierta account to cerrada and, in the same transaction,
// marks its still in-flight orders (pendiente, preparacion, listo) as
// entregado so closing never hangs on kitchen state.
func (s *CuentaService) Close(ctx context.Context, id uuid.UUID) (database.Cuenta, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Cuenta{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	cuenta, err := store.CerrarCuenta(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Cuenta{}, s.classifyMissing(ctx, store, id)
		}
		return database.Cuenta{}, fmt.Errorf("cerrar cuenta: %w", err)
	}

	if _, err := store.EntregarPedidosDeCuenta(ctx, id); err != nil {
		return database.Cuenta{}, fmt.Errorf("entregar pedidos: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Cuenta{}, err
	}
	return cuenta, nil
}

// CollectPayment flips a cerrada account to cobrada, recording the payment
// method and amount, and marks the account's non-cancelled orders as pagado.
// An empty monto defaults to the account total; metodo accepts the usual
// synonyms (cash, card, credito, ...).
func (s *CuentaService) CollectPayment(ctx context.Context, id uuid.UUID, metodo, monto string) (database.Cuenta, error) {
	metodoPago, err := NormalizeMetodoPago(metodo)
	if err != nil {
		return database.Cuenta{}, err
	}

	var montoCobrado pgtype.Numeric
	if monto != "" {
		d, err := decimal.NewFromString(monto)
		if err != nil || d.IsNegative() {
			return database.Cuenta{}, ErrInvalidMonto
		}
		montoCobrado = decimalToNumeric(d)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Cuenta{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	cuenta, err := store.CobrarCuenta(ctx, database.CobrarCuentaParams{
		ID:           id,
		MetodoPago:   metodoPago,
		MontoCobrado: montoCobrado,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Cuenta{}, s.classifyMissing(ctx, store, id)
		}
		return database.Cuenta{}, fmt.Errorf("cobrar cuenta: %w", err)
	}

	if _, err := store.PagarPedidosDeCuenta(ctx, database.PagarPedidosDeCuentaParams{
		CuentaID:   id,
		MetodoPago: metodoPago,
	}); err != nil {
		return database.Cuenta{}, fmt.Errorf("pagar pedidos: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Cuenta{}, err
	}
	return cuenta, nil
}

// Delete removes an abierta account that has no orders left. Accounts with
// orders must have those deleted (or the account closed) first.
func (s *CuentaService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	n, err := store.CountPedidosByCuenta(ctx, id)
	if err != nil {
		return fmt.Errorf("count pedidos: %w", err)
	}
	if n > 0 {
		return ErrCuentaConPedidos
	}

	if _, err := store.DeleteCuentaAbierta(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.classifyMissing(ctx, store, id)
		}
		return fmt.Errorf("delete cuenta: %w", err)
	}

	return tx.Commit(ctx)
}

// classifyMissing turns a failed state-guarded update into the right sentinel:
// ErrCuentaNotFound when the row does not exist, ErrInvalidTransition when it
// exists in another state.
func (s *CuentaService) classifyMissing(ctx context.Context, store CuentaStore, id uuid.UUID) error {
	if _, err := store.GetCuenta(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCuentaNotFound
		}
		return fmt.Errorf("get cuenta: %w", err)
	}
	return ErrInvalidTransition
}
