package bus

import "context"

// Keyer lo implementan los eventos que deben mantener orden por entidad.
type Keyer interface {
	PartitionKey() string
}

// EventBus publica un evento en un topic. La serialización la deciden los adapters.
type EventBus interface {
	Publish(ctx context.Context, topic string, event interface{}) error
}

// MessageHandler procesa un mensaje ya recibido, venga de Kafka o del bus en memoria.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}
