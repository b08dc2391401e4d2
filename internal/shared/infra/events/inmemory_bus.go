package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedBus "github.com/davicafu/csamarket/internal/shared/infra/platform/bus"
)

// Message es lo que recibe un suscriptor del bus en memoria.
type Message struct {
	Key     string
	Payload []byte
}

// InMemoryEventBus sustituye a Kafka en local y en tests. Entrega cada evento
// a los suscriptores de su topic; si el buffer de un suscriptor está lleno el
// evento se descarta para ese suscriptor.
type InMemoryEventBus struct {
	subscribers map[string][]chan Message
	mu          sync.RWMutex
	closed      bool
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{subscribers: make(map[string][]chan Message)}
}

// Publish serializa el evento y lo entrega sin bloquear.
func (b *InMemoryEventBus) Publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := Message{Payload: payload}
	if keyer, ok := event.(sharedBus.Keyer); ok {
		msg.Key = keyer.PartitionKey()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subscribers[topic] {
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registra un oyente del topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan Message, bufferSize)
	if b.closed {
		close(sub)
		return sub
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	return sub
}

// Close cierra todos los canales de suscripción.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub)
		}
	}
}

// ChannelConsumer entrega los mensajes de una suscripción al handler, igual
// que ConsumerAdapter hace con Kafka.
type ChannelConsumer struct {
	messages <-chan Message
	handler  sharedBus.MessageHandler
}

func NewChannelConsumer(messages <-chan Message, handler sharedBus.MessageHandler) *ChannelConsumer {
	return &ChannelConsumer{messages: messages, handler: handler}
}

// Start consume hasta que se cancela el contexto o se cierra el canal.
func (c *ChannelConsumer) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-c.messages:
				if !ok {
					return
				}
				c.handler.HandleMessage(ctx, msg.Key, msg.Payload)
			}
		}
	}()
	return done
}
