package domain

import (
	"strings"

	shared "github.com/davicafu/csamarket/internal/shared/domain"
)

// Campos lógicos de Farm sobre los que se puede filtrar u ordenar. Cada
// adaptador de persistencia los traduce a su columna o clave.
const (
	FieldID              = "id"
	FieldUserID          = "user_id"
	FieldName            = "name"
	FieldCity            = "city"
	FieldState           = "state"
	FieldDescription     = "description"
	FieldCategories      = "categories"
	FieldDeliveryOptions = "delivery_options"
	FieldPricePerWeek    = "price_per_week"
	FieldRating          = "rating"
	FieldGeohash         = "geohash"
	FieldCreatedAt       = "created_at"
)

const (
	// DefaultRating se asume para granjas sin valoración.
	DefaultRating = 5.0
	// MissingPriceRank coloca al final a las granjas sin precio al ordenar por precio.
	MissingPriceRank = 1e18
)

// isUnconstrained indica si un parámetro de filtro no restringe nada.
func isUnconstrained(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// -----------------------------------------------------------

// SearchCriteria busca texto libre en nombre, ciudad, estado y descripción.
// Si el texto es un estado (abreviatura o nombre completo) también casa con
// las granjas cuyo estado sea exactamente ese.
type SearchCriteria struct {
	Term string
}

func (c SearchCriteria) ToConditions() []shared.Criterion {
	term := strings.TrimSpace(c.Term)
	if term == "" {
		return nil
	}

	anyOf := []shared.Criterion{
		{Field: FieldName, Op: shared.OpContains, Value: term},
		{Field: FieldCity, Op: shared.OpContains, Value: term},
		{Field: FieldState, Op: shared.OpContains, Value: term},
		{Field: FieldDescription, Op: shared.OpContains, Value: term},
	}

	if abbr, ok := StateAbbreviation(term); ok {
		anyOf = append(anyOf, shared.Criterion{Field: FieldState, Op: shared.OpEqFold, Value: abbr})
		if name, ok := StateName(abbr); ok {
			anyOf = append(anyOf, shared.Criterion{Field: FieldState, Op: shared.OpEqFold, Value: name})
		}
	}

	return []shared.Criterion{{Any: anyOf}}
}

// -----------------------------------------------------------

// CategoryCriteria exige que la granja ofrezca la categoría.
type CategoryCriteria struct {
	Category string
}

func (c CategoryCriteria) ToConditions() []shared.Criterion {
	if isUnconstrained(c.Category) {
		return nil
	}
	return []shared.Criterion{
		{Field: FieldCategories, Op: shared.OpHas, Value: strings.TrimSpace(c.Category)},
	}
}

// -----------------------------------------------------------

// DeliveryCriteria exige que la granja ofrezca el modo de entrega.
type DeliveryCriteria struct {
	Option string
}

func (c DeliveryCriteria) ToConditions() []shared.Criterion {
	if isUnconstrained(c.Option) {
		return nil
	}
	return []shared.Criterion{
		{Field: FieldDeliveryOptions, Op: shared.OpHas, Value: strings.TrimSpace(c.Option)},
	}
}

// -----------------------------------------------------------

// PriceTierCriteria acota el precio semanal según el tramo.
// Las granjas sin precio nunca cumplen un tramo.
type PriceTierCriteria struct {
	Tier PriceTier
}

func (c PriceTierCriteria) ToConditions() []shared.Criterion {
	switch c.Tier {
	case PriceUnder30:
		return []shared.Criterion{{Field: FieldPricePerWeek, Op: shared.OpLt, Value: 30.0}}
	case Price30To40:
		return []shared.Criterion{
			{Field: FieldPricePerWeek, Op: shared.OpGte, Value: 30.0},
			{Field: FieldPricePerWeek, Op: shared.OpLte, Value: 40.0},
		}
	case Price40Plus:
		return []shared.Criterion{{Field: FieldPricePerWeek, Op: shared.OpGt, Value: 40.0}}
	default:
		return nil
	}
}

// -----------------------------------------------------------

// MinRatingCriteria exige una valoración mínima; sin valoración se asume DefaultRating.
type MinRatingCriteria struct {
	Min *float64
}

func (c MinRatingCriteria) ToConditions() []shared.Criterion {
	if c.Min == nil {
		return nil
	}
	return []shared.Criterion{
		{Field: FieldRating, Op: shared.OpGte, Value: *c.Min, Coalesce: DefaultRating},
	}
}

// -----------------------------------------------------------

// GeohashPrefixCriteria restringe a una celda geohash. No calcula distancias.
type GeohashPrefixCriteria struct {
	Prefix string
}

func (c GeohashPrefixCriteria) ToConditions() []shared.Criterion {
	prefix := strings.ToLower(strings.TrimSpace(c.Prefix))
	if prefix == "" {
		return nil
	}
	return []shared.Criterion{{Field: FieldGeohash, Op: shared.OpPrefix, Value: prefix}}
}

// -----------------------------------------------------------

// OwnerCriteria filtra las granjas de un usuario.
type OwnerCriteria struct {
	UserID string
}

func (c OwnerCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{{Field: FieldUserID, Op: shared.OpEq, Value: c.UserID}}
}
