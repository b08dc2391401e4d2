package contracts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	farmApp "github.com/davicafu/csamarket/internal/farm/application"
	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	shareEvents "github.com/davicafu/csamarket/internal/share/infra/inbound/events"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
	"github.com/davicafu/csamarket/internal/shared/infra/relayer"
	"github.com/davicafu/csamarket/tests/mocks"
)

// FakeShareCleaner registra las granjas cuyas cuotas se pidió borrar.
type FakeShareCleaner struct {
	mu    sync.Mutex
	Farms []string
}

func (f *FakeShareCleaner) DeleteByFarm(ctx context.Context, farmID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Farms = append(f.Farms, farmID)
	return 0, nil
}

// Lo que publica el relayer a partir de los eventos del servicio de granjas
// tiene que poder leerlo el consumidor de cuotas.
func TestFarmEvents_ProducerConsumerContract(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewInMemoryFarmRepo()
	svc := farmApp.NewFarmService(repo, mocks.NewDummyCache(), nil, zap.NewNop())

	name := "Green Acres"
	farm, err := svc.CreateFarm(ctx, "owner-1", farmDomain.FarmInput{Name: &name})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteFarm(ctx, "owner-1", farm.ID))
	require.Equal(t, []string{farmDomain.FarmCreated, farmDomain.FarmDeleted}, repo.EventTypes())

	outbox := &mocks.MockOutboxRepository{}
	outbox.On("FetchPendingOutbox", mock.Anything, 10).Return(repo.Events, nil)
	outbox.On("MarkOutboxProcessed", mock.Anything, mock.Anything).Return(nil)

	var published []sharedEvents.IntegrationEvent
	publisher := &mocks.MockPublisher{}
	publisher.On("Publish", mock.Anything, farmDomain.FarmTopic, mock.Anything).
		Run(func(args mock.Arguments) {
			published = append(published, args.Get(2).(sharedEvents.IntegrationEvent))
		}).
		Return(nil)

	worker := relayer.NewOutboxWorker(outbox, publisher, farmDomain.NewEventRegistry(), time.Second, 10, zap.NewNop())
	worker.ProcessBatch(ctx)

	require.Len(t, published, 2)
	outbox.AssertNumberOfCalls(t, "MarkOutboxProcessed", 2)
	for _, evt := range published {
		assert.Equal(t, farm.ID, evt.Key)
		assert.Equal(t, farm.ID, evt.PartitionKey())
		assert.False(t, evt.Timestamp.IsZero())
	}

	var data farmDomain.Farm
	require.NoError(t, json.Unmarshal(published[1].Data, &data))
	assert.Equal(t, "owner-1", data.UserID)

	cleaner := &FakeShareCleaner{}
	consumer := shareEvents.NewFarmConsumer(cleaner, zap.NewNop())
	for _, evt := range published {
		payload, err := json.Marshal(evt)
		require.NoError(t, err)
		consumer.HandleMessage(ctx, evt.Key, payload)
	}
	assert.Equal(t, []string{farm.ID}, cleaner.Farms)
}

// Un evento sin tipo registrado no se publica ni se marca.
func TestFarmEvents_UnknownTypeIsKeptPending(t *testing.T) {
	evt := sharedDomain.NewOutboxEvent(farmDomain.FarmTopic, "farm_x", "farm.renamed", map[string]string{"id": "farm_x"})

	outbox := &mocks.MockOutboxRepository{}
	outbox.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil)
	publisher := &mocks.MockPublisher{}

	relayer.NewOutboxWorker(outbox, publisher, farmDomain.NewEventRegistry(), time.Second, 10, zap.NewNop()).
		ProcessBatch(context.Background())

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	outbox.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}
