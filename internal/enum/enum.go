package enum

// ── State machines (CHECK constrained in DB) ──

const (
	CuentaEstadoAbierta = "abierta"
	CuentaEstadoCerrada = "cerrada"
	CuentaEstadoCobrada = "cobrada"
)

const (
	PedidoEstadoPendiente   = "pendiente"
	PedidoEstadoPreparacion = "preparacion"
	PedidoEstadoListo       = "listo"
	PedidoEstadoEntregado   = "entregado"
	PedidoEstadoCancelado   = "cancelado"
	PedidoEstadoCompletado  = "completado"
	PedidoEstadoPagado      = "pagado"
)

const (
	ModificacionEstadoPendiente = "pendiente"
	ModificacionEstadoAprobada  = "aprobada"
	ModificacionEstadoRechazada = "rechazada"
)

const (
	ModificacionTipoEdicion         = "edicion"
	ModificacionTipoEliminacion     = "eliminacion"
	ModificacionTipoEdicionCompleta = "edicion_completa"
)

// ── Roles (CHECK constrained in DB) ──

const (
	RoleAdmin  = "admin"
	RoleCaja   = "caja"
	RoleMesero = "mesero"
	RoleCocina = "cocina"
)

// ── Configurable labels ──

const (
	MetodoPagoEfectivo = "efectivo"
	MetodoPagoTarjeta  = "tarjeta"
)

// MesaParaLlevar is the virtual non-table used for takeout orders.
const MesaParaLlevar = "PARA_LLEVAR"
