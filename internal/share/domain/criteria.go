package domain

import (
	shared "github.com/davicafu/csamarket/internal/shared/domain"
)

// Campos lógicos de Share filtrables.
const (
	FieldID        = "id"
	FieldFarmID    = "farm_id"
	FieldAvailable = "available"
	FieldCreatedAt = "created_at"
)

// FarmCriteria filtra las cuotas de una granja.
type FarmCriteria struct {
	FarmID string
}

func (c FarmCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{{Field: FieldFarmID, Op: shared.OpEq, Value: c.FarmID}}
}

// FarmsCriteria filtra las cuotas de cualquiera de las granjas. Sin granjas
// no hay condición; quien llama debe cortar antes si la lista está vacía.
type FarmsCriteria struct {
	FarmIDs []string
}

func (c FarmsCriteria) ToConditions() []shared.Criterion {
	if len(c.FarmIDs) == 0 {
		return nil
	}
	anyOf := make([]shared.Criteria, 0, len(c.FarmIDs))
	for _, id := range c.FarmIDs {
		anyOf = append(anyOf, FarmCriteria{FarmID: id})
	}
	return shared.Or(anyOf...).ToConditions()
}

// AvailableCriteria filtra por disponibilidad; nil no restringe.
type AvailableCriteria struct {
	Available *bool
}

func (c AvailableCriteria) ToConditions() []shared.Criterion {
	if c.Available == nil {
		return nil
	}
	return []shared.Criterion{{Field: FieldAvailable, Op: shared.OpEq, Value: *c.Available}}
}
