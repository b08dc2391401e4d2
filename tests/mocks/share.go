package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// InMemoryShareRepo implementa ShareRepository en memoria.
type InMemoryShareRepo struct {
	mu     sync.RWMutex
	shares map[string]*shareDomain.Share
	Events []sharedDomain.OutboxEvent

	// Si no es nil, ListPage devuelve este error.
	Err error
}

var _ shareDomain.ShareRepository = (*InMemoryShareRepo)(nil)

func NewInMemoryShareRepo(shares ...*shareDomain.Share) *InMemoryShareRepo {
	r := &InMemoryShareRepo{shares: make(map[string]*shareDomain.Share)}
	for _, s := range shares {
		c := *s
		r.shares[s.ID] = &c
	}
	return r
}

func (r *InMemoryShareRepo) Create(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[s.ID]; ok {
		return shareDomain.ErrShareAlreadyExists
	}
	c := *s
	r.shares[s.ID] = &c
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryShareRepo) GetByID(ctx context.Context, id string) (*shareDomain.Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, shareDomain.ErrShareNotFound
	}
	c := *s
	return &c, nil
}

func (r *InMemoryShareRepo) Update(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[s.ID]; !ok {
		return shareDomain.ErrShareNotFound
	}
	c := *s
	r.shares[s.ID] = &c
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryShareRepo) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[id]; !ok {
		return shareDomain.ErrShareNotFound
	}
	delete(r.shares, id)
	r.Events = append(r.Events, evt)
	return nil
}

func (r *InMemoryShareRepo) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*shareDomain.Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var conds []sharedDomain.Criterion
	if criteria != nil {
		conds = criteria.ToConditions()
	}

	var out []*shareDomain.Share
	for _, s := range r.shares {
		ok, err := matchAll(shareField(s), conds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return compareKeys(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID, seek.Sort.Desc) < 0
	})

	result := make([]*shareDomain.Share, 0, len(out))
	for _, s := range out {
		if seek.After != nil && compareKeys(s.CreatedAt, s.ID, seek.SeekValue(), seek.After.ID, seek.Sort.Desc) <= 0 {
			continue
		}
		c := *s
		result = append(result, &c)
		if seek.Limit > 0 && len(result) == seek.Limit {
			break
		}
	}
	return result, nil
}

// Len devuelve el número de cuotas guardadas.
func (r *InMemoryShareRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shares)
}

// EventTypes devuelve los tipos de los eventos de outbox en orden.
func (r *InMemoryShareRepo) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.EventType)
	}
	return types
}

func shareField(s *shareDomain.Share) fieldGetter {
	return func(name string) (interface{}, bool, error) {
		switch name {
		case shareDomain.FieldID:
			return s.ID, true, nil
		case shareDomain.FieldFarmID:
			return s.FarmID, true, nil
		case shareDomain.FieldAvailable:
			return s.Available, true, nil
		case shareDomain.FieldCreatedAt:
			return s.CreatedAt, true, nil
		default:
			return nil, false, fmt.Errorf("unknown field %q", name)
		}
	}
}

// StubFarmDirectory resuelve la propiedad desde un mapa granja → dueño.
type StubFarmDirectory struct {
	Owners map[string]string
	Err    error
}

var _ shareDomain.FarmDirectory = StubFarmDirectory{}

func (d StubFarmDirectory) OwnerOf(ctx context.Context, farmID string) (string, error) {
	if d.Err != nil {
		return "", d.Err
	}
	owner, ok := d.Owners[farmID]
	if !ok {
		return "", shareDomain.ErrFarmNotFound
	}
	return owner, nil
}

func (d StubFarmDirectory) FarmIDsOf(ctx context.Context, userID string) ([]string, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	ids := make([]string, 0)
	for farmID, owner := range d.Owners {
		if owner == userID {
			ids = append(ids, farmID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
