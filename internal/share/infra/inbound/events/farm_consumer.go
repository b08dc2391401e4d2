// en internal/share/infra/inbound/events/farm_consumer.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
	sharedUtils "github.com/davicafu/csamarket/internal/shared/infra/utils"
)

const handleTimeout = 5 * time.Second

// ShareCleaner es lo que el consumidor necesita del servicio de cuotas.
type ShareCleaner interface {
	DeleteByFarm(ctx context.Context, farmID string) (int, error)
}

// FarmConsumer escucha el topic de granjas y borra las cuotas de las granjas
// eliminadas.
type FarmConsumer struct {
	service ShareCleaner
	log     *zap.Logger
}

func NewFarmConsumer(service ShareCleaner, logger *zap.Logger) *FarmConsumer {
	return &FarmConsumer{
		service: service,
		log:     logger,
	}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (c *FarmConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event for farm", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case farmDomain.FarmDeleted:
		sharedUtils.UnmarshalAndHandle(c.log, base.Data, func(farm farmDomain.Farm) {
			ctxDel, cancel := context.WithTimeout(ctx, handleTimeout)
			defer cancel()

			n, err := c.service.DeleteByFarm(ctxDel, farm.ID)
			if err != nil {
				c.log.Warn("Failed to delete shares of deleted farm",
					zap.String("farm_id", farm.ID),
					zap.String("event_id", base.ID),
					zap.Error(err))
				return
			}
			c.log.Info("Shares removed after farm deletion",
				zap.String("farm_id", farm.ID),
				zap.Int("deleted", n))
		})

	case farmDomain.FarmCreated, farmDomain.FarmUpdated:
		// sin efecto sobre las cuotas

	default:
		c.log.Warn("Unknown farm event type", zap.String("type", base.Type), zap.String("key", key))
	}
}
