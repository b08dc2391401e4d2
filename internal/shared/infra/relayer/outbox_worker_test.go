package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedDomainEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
	sharedBus "github.com/davicafu/csamarket/internal/shared/infra/platform/bus"
	"github.com/davicafu/csamarket/tests/mocks"
)

type testPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const testCreated = "thing.created"

func testRegistry() map[string]sharedDomainEvents.EventMetadata {
	return map[string]sharedDomainEvents.EventMetadata{
		testCreated: {Type: reflect.TypeOf(testPayload{}), Topic: "thing"},
	}
}

func TestOutboxWorker_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	eventID := uuid.New()
	testEvent := sharedDomain.OutboxEvent{
		ID:          eventID,
		AggregateID: "thing_1",
		EventType:   testCreated,
		Payload:     map[string]interface{}{"id": "thing_1", "name": "Sunny", "extra": true},
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, "thing", mock.MatchedBy(func(e sharedDomainEvents.IntegrationEvent) bool {
		var p testPayload
		return e.Type == testCreated &&
			e.PartitionKey() == "thing_1" &&
			e.ID == eventID.String() &&
			json.Unmarshal(e.Data, &p) == nil && p.Name == "Sunny"
	})).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, eventID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), time.Second, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_PublisherFails(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: testCreated, Payload: map[string]interface{}{}}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	publisher.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_UnknownEventType(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: "unregistered.event", Payload: map[string]interface{}{}}
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_FetchFails(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent(nil), errors.New("db down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutboxWorker_StartStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	polled := make(chan struct{}, 1)
	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{}, nil).
		Run(func(mock.Arguments) {
			select {
			case polled <- struct{}{}:
			default:
			}
		})

	worker := NewOutboxWorker(repo, new(mocks.MockPublisher), testRegistry(), 5*time.Millisecond, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("worker never polled the outbox")
	}

	cancel()
	<-done
}

// Verificación estática de que los mocks cumplen las interfaces.
var _ sharedDomain.OutboxRepository = (*mocks.MockOutboxRepository)(nil)
var _ sharedBus.EventBus = (*mocks.MockPublisher)(nil)
