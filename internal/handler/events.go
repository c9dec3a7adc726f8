package handler

// Notifier publishes domain events to connected clients. Satisfied by
// *ws.Hub; handlers tolerate a nil Notifier so tests and tools can run
// without a hub.
type Notifier interface {
	BroadcastEvent(eventType string, payload any)
}

// Event types pushed over the WebSocket stream. Clients filter on these.
const (
	EventPedidoCreado         = "pedido.creado"
	EventPedidoEstado         = "pedido.estado"
	EventPedidoEliminado      = "pedido.eliminado"
	EventCuentaCerrada        = "cuenta.cerrada"
	EventCuentaCobrada        = "cuenta.cobrada"
	EventModificacionCreada   = "modificacion.creada"
	EventModificacionDecidida = "modificacion.decidida"
)

func notify(n Notifier, eventType string, payload any) {
	if n == nil {
		return
	}
	n.BroadcastEvent(eventType, payload)
}
