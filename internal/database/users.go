package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, email, hashed_password, nombre, role, activo, creado_en`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.Nombre,
		&u.Role,
		&u.Activo,
		&u.CreadoEn,
	)
	return u, err
}

const createUser = `
INSERT INTO users (email, hashed_password, nombre, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email          string
	HashedPassword string
	Nombre         string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.HashedPassword, arg.Nombre, arg.Role)
	return scanUser(row)
}

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users WHERE email = $1 AND activo`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	return scanUser(row)
}

const getUserByID = `
SELECT ` + userColumns + ` FROM users WHERE id = $1 AND activo`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	return scanUser(row)
}

const listUsers = `
SELECT ` + userColumns + ` FROM users WHERE activo ORDER BY nombre`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
