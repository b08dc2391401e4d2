package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

// PartitionKey usa el id del agregado para mantener el orden por entidad.
func (e IntegrationEvent) PartitionKey() string {
	return e.Key
}

// EventMetadata indica a qué tipo se decodifica el payload y en qué topic se publica.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}

// MergeRegistries une los registros de cada dominio en uno solo.
func MergeRegistries(registries ...map[string]EventMetadata) map[string]EventMetadata {
	merged := make(map[string]EventMetadata)
	for _, r := range registries {
		for k, v := range r {
			merged[k] = v
		}
	}
	return merged
}
