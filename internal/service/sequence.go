package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxNumeroRetries bounds how often a numero allocation is retried after
// losing a unique-index race before giving up with ErrAllocationExhausted.
const maxNumeroRetries = 10

// Unique constraints that back the per-day allocation and the one-open-account
// rule. Names must match migrations/0001_init.up.sql.
const (
	constraintCuentaNumeroDia = "cuentas_numero_dia_key"
	constraintPedidoNumeroDia = "pedidos_numero_dia_key"
	constraintMesaAbiertaDia  = "cuentas_mesa_abierta_dia_key"
)

func formatCuentaNumero(n int64) string {
	return fmt.Sprintf("Cuenta %03d", n)
}

func formatPedidoNumero(n int64) string {
	return fmt.Sprintf("Pedido %03d", n)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return pgErr.ConstraintName == constraint
}

// isNumeroConflict reports whether err is a lost race on either per-day
// numbering index. The caller re-counts and retries with a fresh candidate.
func isNumeroConflict(err error) bool {
	return isUniqueViolation(err, constraintCuentaNumeroDia) ||
		isUniqueViolation(err, constraintPedidoNumeroDia)
}
