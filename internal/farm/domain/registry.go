package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	FarmCreated = "farm.created"
	FarmUpdated = "farm.updated"
	FarmDeleted = "farm.deleted"
)

const FarmTopic = "farm"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		FarmCreated: {
			Type:  reflect.TypeOf(Farm{}),
			Topic: FarmTopic,
		},
		FarmUpdated: {
			Type:  reflect.TypeOf(Farm{}),
			Topic: FarmTopic,
		},
		FarmDeleted: {
			Type:  reflect.TypeOf(Farm{}),
			Topic: FarmTopic,
		},
	}
}
