package application

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedCache "github.com/davicafu/csamarket/internal/shared/infra/platform/cache"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
	sharedUtils "github.com/davicafu/csamarket/internal/shared/infra/utils"
)

const (
	shareIDPrefix = "share_"
	cacheTTLSecs  = 120
)

// ShareService define los casos de uso de las cuotas CSA. La propiedad de una
// cuota es la de su granja.
type ShareService struct {
	repo  shareDomain.ShareRepository
	farms shareDomain.FarmDirectory
	cache sharedCache.Cache
	log   *zap.Logger

	now   func() time.Time
	newID func() (string, error)
}

func NewShareService(repo shareDomain.ShareRepository, farms shareDomain.FarmDirectory, cache sharedCache.Cache, log *zap.Logger) *ShareService {
	return &ShareService{
		repo:  repo,
		farms: farms,
		cache: cache,
		log:   log,
		now:   time.Now,
		newID: func() (string, error) { return gonanoid.New() },
	}
}

func (s *ShareService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func shareCursor(sh *shareDomain.Share) sharedQuery.Cursor {
	return sharedQuery.Cursor{CreatedAt: sh.CreatedAt, ID: sh.ID}
}

// CreateShare crea una cuota en una granja del usuario. Nace disponible salvo
// que la entrada diga lo contrario.
func (s *ShareService) CreateShare(ctx context.Context, userID, farmID string, in shareDomain.ShareInput) (*shareDomain.Share, error) {
	owner, err := s.farms.OwnerOf(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, shareDomain.ErrFarmNotOwned
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	share := &shareDomain.Share{
		ID:        shareIDPrefix + id,
		FarmID:    farmID,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	share.Apply(in)
	if err := share.Validate(); err != nil {
		return nil, err
	}

	evt := sharedDomain.NewOutboxEvent(shareDomain.ShareTopic, share.ID, shareDomain.ShareCreated, share)
	if err := s.repo.Create(ctx, share, evt); err != nil {
		s.log.Error("Failed to create share", zap.String("farm_id", farmID), zap.Error(err))
		return nil, err
	}

	s.log.Info("🧺 Share created", zap.String("share_id", share.ID), zap.String("farm_id", farmID))
	sharedCache.AsyncCacheSet(ctx, s.cache, shareDomain.ShareCacheKeyByID(share.ID), share, cacheTTLSecs, s.log)
	return share, nil
}

// GetShare obtiene una cuota usando cache-aside.
func (s *ShareService) GetShare(ctx context.Context, id string) (*shareDomain.Share, error) {
	key := shareDomain.ShareCacheKeyByID(id)
	if s.cache != nil {
		var sh shareDomain.Share
		if hit, _ := s.cache.Get(ctx, key, &sh); hit {
			return &sh, nil
		}
	}

	var share *shareDomain.Share
	err := sharedUtils.RetryIf(ctx, 3, 100*time.Millisecond,
		func(err error) bool { return !errors.Is(err, shareDomain.ErrShareNotFound) },
		func() error {
			var errRetry error
			share, errRetry = s.repo.GetByID(ctx, id)
			return errRetry
		})
	if err != nil {
		if !errors.Is(err, shareDomain.ErrShareNotFound) {
			s.log.Error("Failed to fetch share", zap.String("share_id", id), zap.Error(err))
		}
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, key, share, cacheTTLSecs, s.log)
	return share, nil
}

func (s *ShareService) list(ctx context.Context, criteria sharedDomain.Criteria) ([]*shareDomain.Share, error) {
	fetch := func(ctx context.Context, after *sharedQuery.Cursor, limit int) ([]*shareDomain.Share, error) {
		return s.repo.ListPage(ctx, criteria, sharedQuery.Seek{After: after, Sort: sharedQuery.CreationOrder, Limit: limit})
	}
	shares, err := sharedQuery.CollectAll(ctx, fetch, shareCursor)
	if err != nil {
		s.log.Error("Failed to list shares", zap.Error(err))
		return nil, err
	}
	return shares, nil
}

// ListShares devuelve todas las cuotas; available nil no filtra.
func (s *ShareService) ListShares(ctx context.Context, available *bool) ([]*shareDomain.Share, error) {
	return s.list(ctx, shareDomain.AvailableCriteria{Available: available})
}

// ListByFarm devuelve las cuotas de una granja.
func (s *ShareService) ListByFarm(ctx context.Context, farmID string) ([]*shareDomain.Share, error) {
	return s.list(ctx, shareDomain.FarmCriteria{FarmID: farmID})
}

// ListByOwner devuelve las cuotas de todas las granjas del usuario.
func (s *ShareService) ListByOwner(ctx context.Context, userID string) ([]*shareDomain.Share, error) {
	farmIDs, err := s.farms.FarmIDsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(farmIDs) == 0 {
		return []*shareDomain.Share{}, nil
	}
	return s.list(ctx, shareDomain.FarmsCriteria{FarmIDs: farmIDs})
}

// ownedShare devuelve ErrShareNotFound tanto si no existe como si la granja
// es de otro usuario.
func (s *ShareService) ownedShare(ctx context.Context, userID, id string) (*shareDomain.Share, error) {
	share, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.farms.OwnerOf(ctx, share.FarmID)
	if err != nil {
		if errors.Is(err, shareDomain.ErrFarmNotFound) {
			return nil, shareDomain.ErrShareNotFound
		}
		return nil, err
	}
	if owner != userID {
		s.log.Warn("Share ownership check failed", zap.String("share_id", id), zap.String("user_id", userID))
		return nil, shareDomain.ErrShareNotFound
	}
	return share, nil
}

// UpdateShare aplica los cambios si la cuota es del usuario.
func (s *ShareService) UpdateShare(ctx context.Context, userID, id string, in shareDomain.ShareInput) (*shareDomain.Share, error) {
	share, err := s.ownedShare(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	share.Apply(in)
	if err := share.Validate(); err != nil {
		return nil, err
	}
	return share, s.save(ctx, share)
}

// SetAvailability abre o cierra la cuota a nuevas suscripciones.
func (s *ShareService) SetAvailability(ctx context.Context, userID, id string, available bool) (*shareDomain.Share, error) {
	share, err := s.ownedShare(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	share.Available = available
	return share, s.save(ctx, share)
}

func (s *ShareService) save(ctx context.Context, share *shareDomain.Share) error {
	share.UpdatedAt = s.timestamp()
	evt := sharedDomain.NewOutboxEvent(shareDomain.ShareTopic, share.ID, shareDomain.ShareUpdated, share)
	if err := s.repo.Update(ctx, share, evt); err != nil {
		s.log.Error("Failed to update share", zap.String("share_id", share.ID), zap.Error(err))
		return err
	}
	sharedCache.AsyncCacheSet(ctx, s.cache, shareDomain.ShareCacheKeyByID(share.ID), share, cacheTTLSecs, s.log)
	return nil
}

// DeleteShare elimina la cuota si es del usuario.
func (s *ShareService) DeleteShare(ctx context.Context, userID, id string) error {
	share, err := s.ownedShare(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, share)
}

func (s *ShareService) delete(ctx context.Context, share *shareDomain.Share) error {
	evt := sharedDomain.NewOutboxEvent(shareDomain.ShareTopic, share.ID, shareDomain.ShareDeleted, share)
	if err := s.repo.DeleteByID(ctx, share.ID, evt); err != nil {
		return err
	}
	sharedCache.AsyncCacheDelete(ctx, s.cache, shareDomain.ShareCacheKeyByID(share.ID), s.log)
	return nil
}

// DeleteByFarm elimina las cuotas de una granja que ya no existe. Es
// idempotente: las cuotas ya borradas se ignoran.
func (s *ShareService) DeleteByFarm(ctx context.Context, farmID string) (int, error) {
	shares, err := s.ListByFarm(ctx, farmID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, share := range shares {
		if err := s.delete(ctx, share); err != nil {
			if errors.Is(err, shareDomain.ErrShareNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
