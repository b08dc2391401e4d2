package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// InMemoryFarmRepo implementa FarmRepository evaluando en memoria los mismos
// criterios neutrales que traducen los adaptadores SQL y Mongo.
type InMemoryFarmRepo struct {
	mu     sync.RWMutex
	farms  map[string]*farmDomain.Farm
	Events []sharedDomain.OutboxEvent

	// Si no es nil, ListPage y GetByID devuelven este error.
	Err error
	// ListCalls cuenta las llamadas a ListPage.
	ListCalls int
	// GetCalls cuenta las llamadas a GetByID.
	GetCalls int
}

var _ farmDomain.FarmRepository = (*InMemoryFarmRepo)(nil)

func NewInMemoryFarmRepo(farms ...*farmDomain.Farm) *InMemoryFarmRepo {
	r := &InMemoryFarmRepo{farms: make(map[string]*farmDomain.Farm)}
	for _, f := range farms {
		r.farms[f.ID] = clone(f)
	}
	return r
}

func clone(f *farmDomain.Farm) *farmDomain.Farm {
	c := *f
	c.ImageURLs = append([]string{}, f.ImageURLs...)
	c.Categories = append([]string{}, f.Categories...)
	c.DeliveryOptions = append([]string{}, f.DeliveryOptions...)
	return &c
}

func (r *InMemoryFarmRepo) Create(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.farms[f.ID]; ok {
		return farmDomain.ErrFarmAlreadyExists
	}
	r.farms[f.ID] = clone(f)
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryFarmRepo) GetByID(ctx context.Context, id string) (*farmDomain.Farm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.GetCalls++
	if r.Err != nil {
		return nil, r.Err
	}
	f, ok := r.farms[id]
	if !ok {
		return nil, farmDomain.ErrFarmNotFound
	}
	return clone(f), nil
}

func (r *InMemoryFarmRepo) Update(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.farms[f.ID]; !ok {
		return farmDomain.ErrFarmNotFound
	}
	r.farms[f.ID] = clone(f)
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryFarmRepo) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.farms[id]; !ok {
		return farmDomain.ErrFarmNotFound
	}
	delete(r.farms, id)
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryFarmRepo) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*farmDomain.Farm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListCalls++
	if r.Err != nil {
		return nil, r.Err
	}

	var conds []sharedDomain.Criterion
	if criteria != nil {
		conds = criteria.ToConditions()
	}

	var out []*farmDomain.Farm
	for _, f := range r.farms {
		ok, err := matchAll(farmField(f), conds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return compareKeys(sortKey(farmField(out[i]), seek.Sort), out[i].ID, sortKey(farmField(out[j]), seek.Sort), out[j].ID, seek.Sort.Desc) < 0
	})

	result := make([]*farmDomain.Farm, 0, len(out))
	for _, f := range out {
		if seek.After != nil {
			if compareKeys(sortKey(farmField(f), seek.Sort), f.ID, seek.SeekValue(), seek.After.ID, seek.Sort.Desc) <= 0 {
				continue
			}
		}
		result = append(result, clone(f))
		if seek.Limit > 0 && len(result) == seek.Limit {
			break
		}
	}
	return result, nil
}

// Len devuelve el número de granjas guardadas.
func (r *InMemoryFarmRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.farms)
}

// EventTypes devuelve los tipos de los eventos de outbox en orden.
func (r *InMemoryFarmRepo) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.EventType)
	}
	return types
}

// farmField devuelve el valor de un campo lógico de la granja y si está presente.
func farmField(f *farmDomain.Farm) fieldGetter {
	return func(name string) (interface{}, bool, error) {
		return farmValue(f, name)
	}
}

func farmValue(f *farmDomain.Farm, name string) (interface{}, bool, error) {
	switch name {
	case farmDomain.FieldID:
		return f.ID, true, nil
	case farmDomain.FieldUserID:
		return f.UserID, true, nil
	case farmDomain.FieldName:
		return f.Name, true, nil
	case farmDomain.FieldCity:
		return f.City, true, nil
	case farmDomain.FieldState:
		return f.State, true, nil
	case farmDomain.FieldDescription:
		return f.Description, true, nil
	case farmDomain.FieldGeohash:
		return f.Geohash, true, nil
	case farmDomain.FieldCategories:
		return f.Categories, true, nil
	case farmDomain.FieldDeliveryOptions:
		return f.DeliveryOptions, true, nil
	case farmDomain.FieldPricePerWeek:
		if f.PricePerWeek == nil {
			return nil, false, nil
		}
		return *f.PricePerWeek, true, nil
	case farmDomain.FieldRating:
		if f.Rating == nil {
			return nil, false, nil
		}
		return *f.Rating, true, nil
	case farmDomain.FieldCreatedAt:
		return f.CreatedAt, true, nil
	default:
		return nil, false, fmt.Errorf("unknown field %q", name)
	}
}

