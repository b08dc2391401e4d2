package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// ---------- Errores de dominio ----------
var (
	ErrFarmNotFound        = errors.New("farm not found")
	ErrFarmAlreadyExists   = errors.New("farm already exists")
	ErrInvalidFarm         = errors.New("invalid farm")
	ErrFarmForbidden       = errors.New("farm belongs to another user")
	ErrInvalidListingQuery = errors.New("invalid listing query")
)

// ---------- Interfaces (Ports) ----------

// FarmRepository define las operaciones persistentes para Farm.
type FarmRepository interface {
	// Debe devolver ErrFarmAlreadyExists si ya existe una granja con ese id.
	Create(ctx context.Context, f *Farm, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrFarmNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Farm, error)

	// Debe devolver ErrFarmNotFound si no existe.
	Update(ctx context.Context, f *Farm, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrFarmNotFound si no existe.
	DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error

	// ListPage devuelve como mucho seek.Limit granjas que cumplen criteria,
	// ordenadas por seek.Sort (con id como desempate) y estrictamente
	// posteriores a seek.After. Un criteria vacío no filtra nada.
	ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*Farm, error)
}

// ListingLog es una entrada de analítica por cada listado servido.
type ListingLog struct {
	Search      string
	Category    string
	PriceTier   string
	Delivery    string
	MinRating   float64
	Sort        string
	WithCursor  bool
	ResultCount int
	HasMore     bool
	Success     bool
	Duration    time.Duration
	RequestedAt time.Time
}

// SearchTermCount agrega las búsquedas de un mismo término.
type SearchTermCount struct {
	Term       string  `json:"term"`
	Hits       int     `json:"hits"`
	AvgResults float64 `json:"avgResults"`
}

// ListingAnalyticsRepository guarda lotes de entradas de analítica.
type ListingAnalyticsRepository interface {
	LogBatch(ctx context.Context, entries []ListingLog) error
}

// ListingAnalyticsReader consulta la analítica ya agregada.
type ListingAnalyticsReader interface {
	TopSearches(ctx context.Context, start, end time.Time, limit int) ([]SearchTermCount, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// FarmCacheKeyByID forma una key consistente para cache usando el id estable.
func FarmCacheKeyByID(id string) string {
	return fmt.Sprintf("farm:id:%s", id)
}
