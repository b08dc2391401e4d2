package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
)

const (
	ShareCreated = "share.created"
	ShareUpdated = "share.updated"
	ShareDeleted = "share.deleted"
)

const ShareTopic = "share"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		ShareCreated: {Type: reflect.TypeOf(Share{}), Topic: ShareTopic},
		ShareUpdated: {Type: reflect.TypeOf(Share{}), Topic: ShareTopic},
		ShareDeleted: {Type: reflect.TypeOf(Share{}), Topic: ShareTopic},
	}
}
