package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cuentaColumns = `id, numero, mesa, mesero_id, estado, total, metodo_pago, monto_cobrado, creado_en, cerrado_en`

func scanCuenta(row interface{ Scan(dest ...any) error }) (Cuenta, error) {
	var c Cuenta
	err := row.Scan(
		&c.ID,
		&c.Numero,
		&c.Mesa,
		&c.MeseroID,
		&c.Estado,
		&c.Total,
		&c.MetodoPago,
		&c.MontoCobrado,
		&c.CreadoEn,
		&c.CerradoEn,
	)
	return c, err
}

const createCuenta = `
INSERT INTO cuentas (numero, mesa, mesero_id, estado, total)
VALUES ($1, $2, $3, 'abierta', 0)
RETURNING ` + cuentaColumns

type CreateCuentaParams struct {
	Numero   string
	Mesa     pgtype.Text
	MeseroID uuid.UUID
}

func (q *Queries) CreateCuenta(ctx context.Context, arg CreateCuentaParams) (Cuenta, error) {
	row := q.db.QueryRow(ctx, createCuenta, arg.Numero, arg.Mesa, arg.MeseroID)
	return scanCuenta(row)
}

const getCuenta = `
SELECT ` + cuentaColumns + ` FROM cuentas WHERE id = $1`

func (q *Queries) GetCuenta(ctx context.Context, id uuid.UUID) (Cuenta, error) {
	row := q.db.QueryRow(ctx, getCuenta, id)
	return scanCuenta(row)
}

const getCuentaAbierta = `
SELECT ` + cuentaColumns + `
FROM cuentas
WHERE mesa = $1 AND estado = 'abierta' AND creado_en >= $2 AND creado_en < $3
ORDER BY creado_en DESC
LIMIT 1`

type GetCuentaAbiertaParams struct {
	Mesa  string
	Desde time.Time
	Hasta time.Time
}

// GetCuentaAbierta returns the open account for a table within the given
// business-day bounds. pgx.ErrNoRows when the table has no open account.
func (q *Queries) GetCuentaAbierta(ctx context.Context, arg GetCuentaAbiertaParams) (Cuenta, error) {
	row := q.db.QueryRow(ctx, getCuentaAbierta, arg.Mesa, arg.Desde, arg.Hasta)
	return scanCuenta(row)
}

const countCuentasEnRango = `
SELECT COUNT(*) FROM cuentas WHERE creado_en >= $1 AND creado_en < $2`

type RangoParams struct {
	Desde time.Time
	Hasta time.Time
}

func (q *Queries) CountCuentasEnRango(ctx context.Context, arg RangoParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCuentasEnRango, arg.Desde, arg.Hasta).Scan(&n)
	return n, err
}

const listCuentasEnRango = `
SELECT ` + cuentaColumns + `
FROM cuentas
WHERE creado_en >= $1 AND creado_en < $2
  AND ($3::text IS NULL OR estado = $3)
ORDER BY creado_en`

type ListCuentasEnRangoParams struct {
	Desde  time.Time
	Hasta  time.Time
	Estado pgtype.Text
}

func (q *Queries) ListCuentasEnRango(ctx context.Context, arg ListCuentasEnRangoParams) ([]Cuenta, error) {
	rows, err := q.db.Query(ctx, listCuentasEnRango, arg.Desde, arg.Hasta, arg.Estado)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Cuenta
	for rows.Next() {
		c, err := scanCuenta(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const recomputeCuentaTotal = `
UPDATE cuentas
SET total = COALESCE((SELECT SUM(p.total) FROM pedidos p WHERE p.cuenta_id = cuentas.id), 0)
WHERE id = $1
RETURNING total`

// RecomputeCuentaTotal resets the account total to the sum of its orders.
// Idempotent; run inside the same transaction as the order mutation.
func (q *Queries) RecomputeCuentaTotal(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, recomputeCuentaTotal, id).Scan(&total)
	return total, err
}

const cerrarCuenta = `
UPDATE cuentas
SET estado = 'cerrada', cerrado_en = now()
WHERE id = $1 AND estado = 'abierta'
RETURNING ` + cuentaColumns

// CerrarCuenta flips abierta -> cerrada. pgx.ErrNoRows means the account is
// missing or not abierta; callers disambiguate with a follow-up GetCuenta.
func (q *Queries) CerrarCuenta(ctx context.Context, id uuid.UUID) (Cuenta, error) {
	row := q.db.QueryRow(ctx, cerrarCuenta, id)
	return scanCuenta(row)
}

const cobrarCuenta = `
UPDATE cuentas
SET estado = 'cobrada', metodo_pago = $2, monto_cobrado = COALESCE($3, total)
WHERE id = $1 AND estado = 'cerrada'
RETURNING ` + cuentaColumns

type CobrarCuentaParams struct {
	ID           uuid.UUID
	MetodoPago   string
	MontoCobrado pgtype.Numeric // invalid = default to stored total
}

func (q *Queries) CobrarCuenta(ctx context.Context, arg CobrarCuentaParams) (Cuenta, error) {
	row := q.db.QueryRow(ctx, cobrarCuenta, arg.ID, arg.MetodoPago, arg.MontoCobrado)
	return scanCuenta(row)
}

const deleteCuentaAbierta = `
DELETE FROM cuentas WHERE id = $1 AND estado = 'abierta' RETURNING id`

func (q *Queries) DeleteCuentaAbierta(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteCuentaAbierta, id).Scan(&deleted)
	return deleted, err
}

const countPedidosByCuenta = `
SELECT COUNT(*) FROM pedidos WHERE cuenta_id = $1`

func (q *Queries) CountPedidosByCuenta(ctx context.Context, cuentaID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPedidosByCuenta, cuentaID).Scan(&n)
	return n, err
}

const entregarPedidosDeCuenta = `
UPDATE pedidos
SET estado = 'entregado', actualizado_en = now()
WHERE cuenta_id = $1 AND estado IN ('pendiente', 'preparacion', 'listo')`

// EntregarPedidosDeCuenta marks the account's in-flight orders as delivered.
// Returns the number of orders touched.
func (q *Queries) EntregarPedidosDeCuenta(ctx context.Context, cuentaID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, entregarPedidosDeCuenta, cuentaID)
	return tag.RowsAffected(), err
}

const pagarPedidosDeCuenta = `
UPDATE pedidos
SET estado = 'pagado', metodo_pago = $2, actualizado_en = now()
WHERE cuenta_id = $1 AND estado <> 'cancelado'`

type PagarPedidosDeCuentaParams struct {
	CuentaID   uuid.UUID
	MetodoPago string
}

func (q *Queries) PagarPedidosDeCuenta(ctx context.Context, arg PagarPedidosDeCuentaParams) (int64, error) {
	tag, err := q.db.Exec(ctx, pagarPedidosDeCuenta, arg.CuentaID, arg.MetodoPago)
	return tag.RowsAffected(), err
}

const mesaOcupada = `
SELECT EXISTS (
  SELECT 1 FROM cuentas
  WHERE mesa = $1 AND estado = 'abierta' AND creado_en >= $2 AND creado_en < $3
)`

type MesaOcupadaParams struct {
	Mesa  string
	Desde time.Time
	Hasta time.Time
}

// MesaOcupada derives table occupancy from open accounts instead of a stored
// flag, so it can never go stale.
func (q *Queries) MesaOcupada(ctx context.Context, arg MesaOcupadaParams) (bool, error) {
	var ocupada bool
	err := q.db.QueryRow(ctx, mesaOcupada, arg.Mesa, arg.Desde, arg.Hasta).Scan(&ocupada)
	return ocupada, err
}
