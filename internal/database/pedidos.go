package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const pedidoColumns = `id, numero, cuenta_id, mesa, personas, para_llevar, estado, total, metodo_pago, creado_en, actualizado_en`

func scanPedido(row interface{ Scan(dest ...any) error }) (Pedido, error) {
	var p Pedido
	err := row.Scan(
		&p.ID,
		&p.Numero,
		&p.CuentaID,
		&p.Mesa,
		&p.Personas,
		&p.ParaLlevar,
		&p.Estado,
		&p.Total,
		&p.MetodoPago,
		&p.CreadoEn,
		&p.ActualizadoEn,
	)
	return p, err
}

const createPedido = `
INSERT INTO pedidos (numero, cuenta_id, mesa, personas, para_llevar, estado, total)
VALUES ($1, $2, $3, $4, $5, 'pendiente', $6)
RETURNING ` + pedidoColumns

type CreatePedidoParams struct {
	Numero     string
	CuentaID   pgtype.UUID
	Mesa       pgtype.Text
	Personas   int32
	ParaLlevar bool
	Total      pgtype.Numeric
}

func (q *Queries) CreatePedido(ctx context.Context, arg CreatePedidoParams) (Pedido, error) {
	row := q.db.QueryRow(ctx, createPedido,
		arg.Numero, arg.CuentaID, arg.Mesa, arg.Personas, arg.ParaLlevar, arg.Total)
	return scanPedido(row)
}

const getPedido = `
SELECT ` + pedidoColumns + ` FROM pedidos WHERE id = $1`

func (q *Queries) GetPedido(ctx context.Context, id uuid.UUID) (Pedido, error) {
	row := q.db.QueryRow(ctx, getPedido, id)
	return scanPedido(row)
}

const countPedidosEnRango = `
SELECT COUNT(*) FROM pedidos WHERE creado_en >= $1 AND creado_en < $2`

func (q *Queries) CountPedidosEnRango(ctx context.Context, arg RangoParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPedidosEnRango, arg.Desde, arg.Hasta).Scan(&n)
	return n, err
}

const listPedidosByEstado = `
SELECT ` + pedidoColumns + `
FROM pedidos
WHERE estado = ANY($1::text[])
ORDER BY creado_en DESC`

func (q *Queries) ListPedidosByEstado(ctx context.Context, estados []string) ([]Pedido, error) {
	rows, err := q.db.Query(ctx, listPedidosByEstado, estados)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Pedido
	for rows.Next() {
		p, err := scanPedido(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const listPedidosByCuenta = `
SELECT ` + pedidoColumns + `
FROM pedidos
WHERE cuenta_id = $1
ORDER BY creado_en`

func (q *Queries) ListPedidosByCuenta(ctx context.Context, cuentaID uuid.UUID) ([]Pedido, error) {
	rows, err := q.db.Query(ctx, listPedidosByCuenta, cuentaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Pedido
	for rows.Next() {
		p, err := scanPedido(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updatePedidoEstado = `
UPDATE pedidos
SET estado = $2, actualizado_en = now()
WHERE id = $1 AND estado = $3
RETURNING ` + pedidoColumns

type UpdatePedidoEstadoParams struct {
	ID           uuid.UUID
	Estado       string
	EstadoPrevio string
}

// UpdatePedidoEstado is a compare-and-swap on the current state: pgx.ErrNoRows
// means the order is missing or its state changed between read and write.
func (q *Queries) UpdatePedidoEstado(ctx context.Context, arg UpdatePedidoEstadoParams) (Pedido, error) {
	row := q.db.QueryRow(ctx, updatePedidoEstado, arg.ID, arg.Estado, arg.EstadoPrevio)
	return scanPedido(row)
}

const updatePedidoTotal = `
UPDATE pedidos
SET total = $2, actualizado_en = now()
WHERE id = $1
RETURNING ` + pedidoColumns

type UpdatePedidoTotalParams struct {
	ID    uuid.UUID
	Total pgtype.Numeric
}

func (q *Queries) UpdatePedidoTotal(ctx context.Context, arg UpdatePedidoTotalParams) (Pedido, error) {
	row := q.db.QueryRow(ctx, updatePedidoTotal, arg.ID, arg.Total)
	return scanPedido(row)
}

const deletePedido = `
DELETE FROM pedidos WHERE id = $1 RETURNING cuenta_id`

// DeletePedido removes the order row and returns its (possibly null) account id
// so the caller can recompute the account total.
func (q *Queries) DeletePedido(ctx context.Context, id uuid.UUID) (pgtype.UUID, error) {
	var cuentaID pgtype.UUID
	err := q.db.QueryRow(ctx, deletePedido, id).Scan(&cuentaID)
	return cuentaID, err
}

// --- Line items ---

const detalleColumns = `id, pedido_id, menu_item_id, producto_nombre, cantidad, precio_unitario, subtotal, especificacion, nota`

func scanDetalle(row interface{ Scan(dest ...any) error }) (DetallePedido, error) {
	var d DetallePedido
	err := row.Scan(
		&d.ID,
		&d.PedidoID,
		&d.MenuItemID,
		&d.ProductoNombre,
		&d.Cantidad,
		&d.PrecioUnitario,
		&d.Subtotal,
		&d.Especificacion,
		&d.Nota,
	)
	return d, err
}

const createDetalle = `
INSERT INTO detalle_pedidos (pedido_id, menu_item_id, producto_nombre, cantidad, precio_unitario, subtotal, especificacion, nota)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + detalleColumns

type CreateDetalleParams struct {
	PedidoID       uuid.UUID
	MenuItemID     pgtype.UUID
	ProductoNombre string
	Cantidad       int32
	PrecioUnitario pgtype.Numeric
	Subtotal       pgtype.Numeric
	Especificacion pgtype.Text
	Nota           pgtype.Text
}

func (q *Queries) CreateDetalle(ctx context.Context, arg CreateDetalleParams) (DetallePedido, error) {
	row := q.db.QueryRow(ctx, createDetalle,
		arg.PedidoID, arg.MenuItemID, arg.ProductoNombre, arg.Cantidad,
		arg.PrecioUnitario, arg.Subtotal, arg.Especificacion, arg.Nota)
	return scanDetalle(row)
}

const listDetallesByPedido = `
SELECT ` + detalleColumns + `
FROM detalle_pedidos
WHERE pedido_id = $1
ORDER BY id`

func (q *Queries) ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]DetallePedido, error) {
	rows, err := q.db.Query(ctx, listDetallesByPedido, pedidoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DetallePedido
	for rows.Next() {
		d, err := scanDetalle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const deleteDetallesByPedido = `
DELETE FROM detalle_pedidos WHERE pedido_id = $1`

func (q *Queries) DeleteDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDetallesByPedido, pedidoID)
	return tag.RowsAffected(), err
}

const deleteModificacionesByPedido = `
DELETE FROM modificaciones_pedido WHERE pedido_id = $1`

func (q *Queries) DeleteModificacionesByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteModificacionesByPedido, pedidoID)
	return tag.RowsAffected(), err
}
