package database

import (
	"context"

	"github.com/google/uuid"
)

const mesaColumns = `id, numero, capacidad`

const createMesa = `
INSERT INTO mesas (numero, capacidad)
VALUES ($1, $2)
RETURNING ` + mesaColumns

type CreateMesaParams struct {
	Numero    string
	Capacidad int32
}

func (q *Queries) CreateMesa(ctx context.Context, arg CreateMesaParams) (Mesa, error) {
	var m Mesa
	err := q.db.QueryRow(ctx, createMesa, arg.Numero, arg.Capacidad).
		Scan(&m.ID, &m.Numero, &m.Capacidad)
	return m, err
}

const getMesaByNumero = `
SELECT ` + mesaColumns + ` FROM mesas WHERE numero = $1`

func (q *Queries) GetMesaByNumero(ctx context.Context, numero string) (Mesa, error) {
	var m Mesa
	err := q.db.QueryRow(ctx, getMesaByNumero, numero).
		Scan(&m.ID, &m.Numero, &m.Capacidad)
	return m, err
}

const getMesa = `
SELECT ` + mesaColumns + ` FROM mesas WHERE id = $1`

func (q *Queries) GetMesa(ctx context.Context, id uuid.UUID) (Mesa, error) {
	var m Mesa
	err := q.db.QueryRow(ctx, getMesa, id).
		Scan(&m.ID, &m.Numero, &m.Capacidad)
	return m, err
}

const listMesas = `
SELECT ` + mesaColumns + ` FROM mesas ORDER BY numero`

func (q *Queries) ListMesas(ctx context.Context) ([]Mesa, error) {
	rows, err := q.db.Query(ctx, listMesas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Mesa
	for rows.Next() {
		var m Mesa
		if err := rows.Scan(&m.ID, &m.Numero, &m.Capacidad); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
