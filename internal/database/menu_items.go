package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, nombre, precio, categoria, disponible, creado_en, actualizado_en`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var mi MenuItem
	err := row.Scan(
		&mi.ID,
		&mi.Nombre,
		&mi.Precio,
		&mi.Categoria,
		&mi.Disponible,
		&mi.CreadoEn,
		&mi.ActualizadoEn,
	)
	return mi, err
}

const createMenuItem = `
INSERT INTO menu_items (nombre, precio, categoria, disponible)
VALUES ($1, $2, $3, true)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Nombre    string
	Precio    pgtype.Numeric
	Categoria pgtype.Text
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.Nombre, arg.Precio, arg.Categoria)
	return scanMenuItem(row)
}

const getMenuItem = `
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	return scanMenuItem(row)
}

const listMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE ($1::bool IS NULL OR disponible = $1)
ORDER BY categoria NULLS LAST, nombre`

func (q *Queries) ListMenuItems(ctx context.Context, disponible pgtype.Bool) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, disponible)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, mi)
	}
	return items, rows.Err()
}
