package application

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedCache "github.com/davicafu/csamarket/internal/shared/infra/platform/cache"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
	sharedUtils "github.com/davicafu/csamarket/internal/shared/infra/utils"
)

const (
	farmIDPrefix  = "farm_"
	cacheTTLSecs  = 120
	retryAttempts = 3
	retryDelay    = 100 * time.Millisecond
)

// ListingRecorder recibe una entrada de analítica por cada listado servido.
// Record no debe bloquear.
type ListingRecorder interface {
	Record(entry farmDomain.ListingLog)
}

type noopRecorder struct{}

func (noopRecorder) Record(farmDomain.ListingLog) {}

// ListFarmsQuery es la petición del listado público.
type ListFarmsQuery struct {
	Params farmDomain.ListingParams
	Cursor string
	Limit  int
}

// FarmService define los casos de uso relacionados con Farm.
// Incorpora repositorio, caché, analítica y logger.
type FarmService struct {
	repo     farmDomain.FarmRepository
	cache    sharedCache.Cache
	recorder ListingRecorder
	log      *zap.Logger

	now   func() time.Time
	newID func() (string, error)
}

// NewFarmService es el constructor del servicio de granjas. cache y recorder pueden ser nil.
func NewFarmService(repo farmDomain.FarmRepository, cache sharedCache.Cache, recorder ListingRecorder, log *zap.Logger) *FarmService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &FarmService{
		repo:     repo,
		cache:    cache,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		newID:    func() (string, error) { return gonanoid.New() },
	}
}

// timestamp en UTC a microsegundos, la precisión de SQLite y Postgres. El adaptador
// de Mongo recorta a milisegundos al escribir.
func (s *FarmService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateFarm publica una granja nueva del usuario junto a su evento de outbox.
func (s *FarmService) CreateFarm(ctx context.Context, userID string, in farmDomain.FarmInput) (*farmDomain.Farm, error) {
	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	farm := &farmDomain.Farm{
		ID:        farmIDPrefix + id,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	farm.Apply(in)
	if err := farm.Validate(); err != nil {
		return nil, err
	}

	evt := sharedDomain.NewOutboxEvent(farmDomain.FarmTopic, farm.ID, farmDomain.FarmCreated, farm)
	if err := s.repo.Create(ctx, farm, evt); err != nil {
		s.log.Error("Failed to create farm", zap.String("farm_id", farm.ID), zap.Error(err))
		return nil, err
	}

	s.log.Info("🌱 Farm created", zap.String("farm_id", farm.ID), zap.String("user_id", userID))
	sharedCache.AsyncCacheSet(ctx, s.cache, farmDomain.FarmCacheKeyByID(farm.ID), farm, cacheTTLSecs, s.log)

	return farm, nil
}

// UpdateFarm aplica los cambios si la granja es del usuario.
func (s *FarmService) UpdateFarm(ctx context.Context, userID, id string, in farmDomain.FarmInput) (*farmDomain.Farm, error) {
	farm, err := s.ownedFarm(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	farm.Apply(in)
	if err := farm.Validate(); err != nil {
		return nil, err
	}
	farm.UpdatedAt = s.timestamp()

	evt := sharedDomain.NewOutboxEvent(farmDomain.FarmTopic, farm.ID, farmDomain.FarmUpdated, farm)
	if err := s.repo.Update(ctx, farm, evt); err != nil {
		s.log.Error("Failed to update farm", zap.String("farm_id", id), zap.Error(err))
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, farmDomain.FarmCacheKeyByID(farm.ID), farm, cacheTTLSecs, s.log)
	return farm, nil
}

// DeleteFarm elimina la granja si es del usuario y limpia la caché.
func (s *FarmService) DeleteFarm(ctx context.Context, userID, id string) error {
	farm, err := s.ownedFarm(ctx, userID, id)
	if err != nil {
		return err
	}

	evt := sharedDomain.NewOutboxEvent(farmDomain.FarmTopic, farm.ID, farmDomain.FarmDeleted, farm)
	if err := s.repo.DeleteByID(ctx, id, evt); err != nil {
		s.log.Error("Failed to delete farm", zap.String("farm_id", id), zap.Error(err))
		return err
	}

	s.log.Info("🗑️ Farm deleted", zap.String("farm_id", id), zap.String("user_id", userID))
	sharedCache.AsyncCacheDelete(ctx, s.cache, farmDomain.FarmCacheKeyByID(id), s.log)
	return nil
}

// ownedFarm lee siempre del repositorio: las escrituras no parten de la caché.
func (s *FarmService) ownedFarm(ctx context.Context, userID, id string) (*farmDomain.Farm, error) {
	farm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if farm.UserID != userID {
		s.log.Warn("Farm ownership check failed", zap.String("farm_id", id), zap.String("user_id", userID))
		return nil, farmDomain.ErrFarmForbidden
	}
	return farm, nil
}

// GetFarm obtiene una granja usando el patrón cache-aside con reintentos.
func (s *FarmService) GetFarm(ctx context.Context, id string) (*farmDomain.Farm, error) {
	key := farmDomain.FarmCacheKeyByID(id)

	// 1. Intentar obtener de la caché
	if s.cache != nil {
		var f farmDomain.Farm
		if hit, _ := s.cache.Get(ctx, key, &f); hit {
			return &f, nil
		}
	}

	// 2. Si es 'miss', ir al repositorio; "no encontrado" no se reintenta
	var farm *farmDomain.Farm
	err := sharedUtils.RetryIf(ctx, retryAttempts, retryDelay,
		func(err error) bool { return !errors.Is(err, farmDomain.ErrFarmNotFound) },
		func() error {
			var errRetry error
			farm, errRetry = s.repo.GetByID(ctx, id)
			return errRetry
		})
	if err != nil {
		if errors.Is(err, farmDomain.ErrFarmNotFound) {
			s.log.Warn("Farm not found", zap.String("farm_id", id))
		} else {
			s.log.Error("Failed to fetch farm", zap.String("farm_id", id), zap.Error(err))
		}
		return nil, err
	}

	// 3. Actualizar caché en segundo plano para la próxima vez
	sharedCache.AsyncCacheSet(ctx, s.cache, key, farm, cacheTTLSecs, s.log)
	return farm, nil
}

// ListFarms sirve una página del listado público. Los parámetros inválidos
// devuelven ErrInvalidListingQuery; un cursor corrupto o de otro orden se
// ignora y el listado empieza desde el principio.
func (s *FarmService) ListFarms(ctx context.Context, q ListFarmsQuery) (sharedQuery.Page[*farmDomain.Farm], error) {
	start := s.now()

	filter, err := farmDomain.ParseListingParams(q.Params)
	if err != nil {
		return sharedQuery.FailedPage[*farmDomain.Farm](), err
	}

	after := sharedQuery.DecodeCursor(q.Cursor)
	if q.Cursor != "" && after == nil {
		s.log.Debug("Ignoring malformed cursor", zap.String("cursor", q.Cursor))
	}
	if accepted := filter.Sort.AcceptCursor(after); accepted == nil && after != nil {
		s.log.Debug("Ignoring cursor from another sort order",
			zap.String("cursor_sort", after.Sort),
			zap.String("sort", string(filter.Sort)))
		after = nil
	}

	criteria := filter.Criteria()
	order := filter.Sort.Order()
	fetch := func(ctx context.Context, after *sharedQuery.Cursor, limit int) ([]*farmDomain.Farm, error) {
		return s.repo.ListPage(ctx, criteria, sharedQuery.Seek{After: after, Sort: order, Limit: limit})
	}

	page, err := sharedQuery.Paginate(ctx, after, q.Limit, fetch, filter.Sort.CursorFor)
	if err != nil {
		s.log.Error("Failed to list farms",
			zap.String("search", filter.Search),
			zap.String("sort", string(filter.Sort)),
			zap.Bool("with_cursor", after != nil),
			zap.Error(err))
	}

	s.recorder.Record(listingLog(filter, after != nil, page, s.now().Sub(start), start))
	return page, err
}

func listingLog(f farmDomain.ListingFilter, withCursor bool, page sharedQuery.Page[*farmDomain.Farm], took time.Duration, at time.Time) farmDomain.ListingLog {
	entry := farmDomain.ListingLog{
		Search:      f.Search,
		Category:    f.Category,
		PriceTier:   string(f.PriceTier),
		Delivery:    f.Delivery,
		Sort:        string(f.Sort),
		WithCursor:  withCursor,
		ResultCount: len(page.Items),
		HasMore:     page.HasMore,
		Success:     page.Success,
		Duration:    took,
		RequestedAt: at.UTC(),
	}
	if f.MinRating != nil {
		entry.MinRating = *f.MinRating
	}
	return entry
}

// ListMyFarms devuelve todas las granjas del usuario, más recientes primero.
func (s *FarmService) ListMyFarms(ctx context.Context, userID string) ([]*farmDomain.Farm, error) {
	criteria := farmDomain.OwnerCriteria{UserID: userID}
	fetch := func(ctx context.Context, after *sharedQuery.Cursor, limit int) ([]*farmDomain.Farm, error) {
		return s.repo.ListPage(ctx, criteria, sharedQuery.Seek{After: after, Sort: sharedQuery.CreationOrder, Limit: limit})
	}

	farms, err := sharedQuery.CollectAll(ctx, fetch, farmDomain.SortDistance.CursorFor)
	if err != nil {
		s.log.Error("Failed to list user farms", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return farms, nil
}
