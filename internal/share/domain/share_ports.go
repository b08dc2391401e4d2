package domain

import (
	"context"
	"errors"
	"fmt"

	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// ---------- Errores de dominio ----------
var (
	ErrShareNotFound      = errors.New("share not found")
	ErrShareAlreadyExists = errors.New("share already exists")
	ErrInvalidShare       = errors.New("invalid share")
	// ErrFarmNotOwned se devuelve al crear cuotas en una granja ajena.
	ErrFarmNotOwned = errors.New("farm not owned by user")
	ErrFarmNotFound = errors.New("farm not found")
)

// ---------- Interfaces (Ports) ----------

// ShareRepository define las operaciones persistentes para Share.
type ShareRepository interface {
	// Debe devolver ErrShareAlreadyExists si el id ya existe.
	Create(ctx context.Context, s *Share, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrShareNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Share, error)

	// Debe devolver ErrShareNotFound si no existe.
	Update(ctx context.Context, s *Share, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrShareNotFound si no existe.
	DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error

	// ListPage devuelve como mucho seek.Limit cuotas que cumplen criteria en
	// el orden canónico, estrictamente posteriores a seek.After.
	ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*Share, error)
}

// FarmDirectory resuelve la propiedad de las granjas sin acoplar el dominio
// de cuotas al de granjas.
type FarmDirectory interface {
	// OwnerOf devuelve el usuario dueño de la granja o ErrFarmNotFound si no existe.
	OwnerOf(ctx context.Context, farmID string) (string, error)
	// FarmIDsOf devuelve los ids de las granjas del usuario.
	FarmIDsOf(ctx context.Context, userID string) ([]string, error)
}

// ---------- Helpers comunes ----------

func ShareCacheKeyByID(id string) string {
	return fmt.Sprintf("share:id:%s", id)
}
