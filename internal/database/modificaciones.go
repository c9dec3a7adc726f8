package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const modificacionColumns = `id, tipo, pedido_id, cuenta_id, solicitado_por, detalles, cambios, estado, solicitado_en, aprobado_por, decidido_en`

func scanModificacion(row interface{ Scan(dest ...any) error }) (ModificacionPedido, error) {
	var m ModificacionPedido
	err := row.Scan(
		&m.ID,
		&m.Tipo,
		&m.PedidoID,
		&m.CuentaID,
		&m.SolicitadoPor,
		&m.Detalles,
		&m.Cambios,
		&m.Estado,
		&m.SolicitadoEn,
		&m.AprobadoPor,
		&m.DecididoEn,
	)
	return m, err
}

const createModificacion = `
INSERT INTO modificaciones_pedido (tipo, pedido_id, cuenta_id, solicitado_por, detalles, cambios, estado)
VALUES ($1, $2, $3, $4, $5, $6, 'pendiente')
RETURNING ` + modificacionColumns

type CreateModificacionParams struct {
	Tipo          string
	PedidoID      uuid.UUID
	CuentaID      uuid.UUID
	SolicitadoPor string
	Detalles      pgtype.Text
	Cambios       []byte
}

func (q *Queries) CreateModificacion(ctx context.Context, arg CreateModificacionParams) (ModificacionPedido, error) {
	row := q.db.QueryRow(ctx, createModificacion,
		arg.Tipo, arg.PedidoID, arg.CuentaID, arg.SolicitadoPor, arg.Detalles, arg.Cambios)
	return scanModificacion(row)
}

const getModificacion = `
SELECT ` + modificacionColumns + ` FROM modificaciones_pedido WHERE id = $1`

func (q *Queries) GetModificacion(ctx context.Context, id uuid.UUID) (ModificacionPedido, error) {
	row := q.db.QueryRow(ctx, getModificacion, id)
	return scanModificacion(row)
}

const decideModificacion = `
UPDATE modificaciones_pedido
SET estado = $2, aprobado_por = $3, decidido_en = now()
WHERE id = $1 AND estado = 'pendiente'
RETURNING ` + modificacionColumns

type DecideModificacionParams struct {
	ID          uuid.UUID
	Estado      string
	AprobadoPor string
}

// DecideModificacion honors exactly one decision per request: the WHERE clause
// only matches while the request is still pendiente, so a second decision (or a
// concurrent one) comes back as pgx.ErrNoRows.
func (q *Queries) DecideModificacion(ctx context.Context, arg DecideModificacionParams) (ModificacionPedido, error) {
	row := q.db.QueryRow(ctx, decideModificacion, arg.ID, arg.Estado, arg.AprobadoPor)
	return scanModificacion(row)
}

const listModificaciones = `
SELECT m.id, m.tipo, m.pedido_id, m.cuenta_id, m.solicitado_por, m.detalles, m.cambios,
       m.estado, m.solicitado_en, m.aprobado_por, m.decidido_en,
       p.numero AS pedido_numero, c.numero AS cuenta_numero, u.nombre AS mesero_nombre
FROM modificaciones_pedido m
JOIN pedidos p ON p.id = m.pedido_id
JOIN cuentas c ON c.id = m.cuenta_id
JOIN users u ON u.id = c.mesero_id
WHERE ($1::text IS NULL OR m.estado = $1)
ORDER BY m.solicitado_en`

type ListModificacionesRow struct {
	ModificacionPedido
	PedidoNumero string
	CuentaNumero string
	MeseroNombre string
}

func (q *Queries) ListModificaciones(ctx context.Context, estado pgtype.Text) ([]ListModificacionesRow, error) {
	rows, err := q.db.Query(ctx, listModificaciones, estado)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListModificacionesRow
	for rows.Next() {
		var r ListModificacionesRow
		if err := rows.Scan(
			&r.ID,
			&r.Tipo,
			&r.PedidoID,
			&r.CuentaID,
			&r.SolicitadoPor,
			&r.Detalles,
			&r.Cambios,
			&r.Estado,
			&r.SolicitadoEn,
			&r.AprobadoPor,
			&r.DecididoEn,
			&r.PedidoNumero,
			&r.CuentaNumero,
			&r.MeseroNombre,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
