package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	shared "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// MaxSearchLength es la longitud máxima aceptada para el texto de búsqueda.
const MaxSearchLength = 100

// PriceTier es un tramo con nombre del precio semanal.
type PriceTier string

const (
	PriceAll     PriceTier = "all"
	PriceUnder30 PriceTier = "under-30"
	Price30To40  PriceTier = "30-40"
	Price40Plus  PriceTier = "40-plus"
)

// SortKey es el orden pedido por el cliente.
type SortKey string

const (
	// SortDistance es el orden por defecto. No hay cálculo geográfico, así que
	// equivale al orden canónico por fecha de creación.
	SortDistance SortKey = "distance"
	SortRating   SortKey = "rating"
	SortPrice    SortKey = "price"
	SortName     SortKey = "name"
)

var geohashPattern = regexp.MustCompile(`^[0123456789bcdefghjkmnpqrstuvwxyz]{1,12}$`)

// ListingParams son los parámetros crudos del listado tal y como llegan.
type ListingParams struct {
	Search   string
	Category string
	Price    string
	Delivery string
	Rating   string
	Sort     string
	Near     string
}

// ListingFilter es la versión normalizada y tipada de ListingParams.
type ListingFilter struct {
	Search    string
	Category  string
	PriceTier PriceTier
	Delivery  string
	MinRating *float64
	Near      string
	Sort      SortKey
}

// ParseListingParams valida y normaliza los parámetros. Los valores ausentes
// o "all" no restringen nada; los valores desconocidos son un error.
func ParseListingParams(p ListingParams) (ListingFilter, error) {
	f := ListingFilter{
		Search:    strings.TrimSpace(p.Search),
		PriceTier: PriceAll,
		Sort:      SortDistance,
	}

	if len([]rune(f.Search)) > MaxSearchLength {
		return f, fmt.Errorf("%w: search longer than %d characters", ErrInvalidListingQuery, MaxSearchLength)
	}

	if !isUnconstrained(p.Category) {
		f.Category = strings.ToLower(strings.TrimSpace(p.Category))
	}
	if !isUnconstrained(p.Delivery) {
		f.Delivery = strings.ToLower(strings.TrimSpace(p.Delivery))
	}

	if !isUnconstrained(p.Price) {
		tier := PriceTier(strings.ToLower(strings.TrimSpace(p.Price)))
		switch tier {
		case PriceUnder30, Price30To40, Price40Plus:
			f.PriceTier = tier
		default:
			return f, fmt.Errorf("%w: unknown price tier %q", ErrInvalidListingQuery, p.Price)
		}
	}

	if !isUnconstrained(p.Rating) {
		v, err := strconv.ParseFloat(strings.TrimSpace(p.Rating), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return f, fmt.Errorf("%w: invalid rating %q", ErrInvalidListingQuery, p.Rating)
		}
		f.MinRating = &v
	}

	if near := strings.ToLower(strings.TrimSpace(p.Near)); near != "" {
		if !geohashPattern.MatchString(near) {
			return f, fmt.Errorf("%w: invalid geohash %q", ErrInvalidListingQuery, p.Near)
		}
		f.Near = near
	}

	if s := strings.ToLower(strings.TrimSpace(p.Sort)); s != "" {
		switch SortKey(s) {
		case SortDistance, SortRating, SortPrice, SortName:
			f.Sort = SortKey(s)
		default:
			return f, fmt.Errorf("%w: unknown sort %q", ErrInvalidListingQuery, p.Sort)
		}
	}

	return f, nil
}

// Criteria combina con AND todos los predicados activos. Sin filtros el
// resultado no tiene condiciones y casa con todas las granjas.
func (f ListingFilter) Criteria() shared.Criteria {
	return shared.And(
		SearchCriteria{Term: f.Search},
		CategoryCriteria{Category: f.Category},
		PriceTierCriteria{Tier: f.PriceTier},
		DeliveryCriteria{Option: f.Delivery},
		MinRatingCriteria{Min: f.MinRating},
		GeohashPrefixCriteria{Prefix: f.Near},
	)
}

// BuildListingCriteria es la forma funcional de ListingFilter.Criteria.
func BuildListingCriteria(f ListingFilter) shared.Criteria {
	return f.Criteria()
}

// Order traduce el SortKey a un orden total con id como desempate.
func (k SortKey) Order() sharedQuery.Sort {
	switch k {
	case SortRating:
		return sharedQuery.Sort{Key: string(k), Field: FieldRating, Desc: true, Fallback: DefaultRating}
	case SortPrice:
		return sharedQuery.Sort{Key: string(k), Field: FieldPricePerWeek, Desc: false, Fallback: MissingPriceRank}
	case SortName:
		return sharedQuery.Sort{Key: string(k), Field: FieldName, Desc: false}
	default:
		return sharedQuery.CreationOrder
	}
}

// CursorFor construye el cursor (clave de seek compuesta) de una granja.
func (k SortKey) CursorFor(f *Farm) sharedQuery.Cursor {
	c := sharedQuery.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	switch k {
	case SortRating:
		c.Sort, c.Value = string(k), f.EffectiveRating()
	case SortPrice:
		c.Sort, c.Value = string(k), f.PriceRank()
	case SortName:
		c.Sort, c.Value = string(k), f.Name
	}
	return c
}

// AcceptCursor devuelve el cursor si corresponde a este orden y nil si no.
// Un cursor de otro orden se descarta para no saltar ni repetir filas.
func (k SortKey) AcceptCursor(c *sharedQuery.Cursor) *sharedQuery.Cursor {
	if c == nil {
		return nil
	}
	switch k {
	case SortRating, SortPrice:
		if _, ok := c.Value.(float64); !ok || c.Sort != string(k) {
			return nil
		}
	case SortName:
		if _, ok := c.Value.(string); !ok || c.Sort != string(k) {
			return nil
		}
	default:
		if c.Sort != "" || c.Value != nil {
			return nil
		}
	}
	return c
}
