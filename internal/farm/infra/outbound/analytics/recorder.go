package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
)

// Recorder acumula entradas de analítica en memoria y las vuelca por lotes.
// Record nunca bloquea la petición: si el buffer está lleno la entrada se descarta.
type Recorder struct {
	repo      farmDomain.ListingAnalyticsRepository
	entries   chan farmDomain.ListingLog
	interval  time.Duration
	batchSize int
	log       *zap.Logger

	mu      sync.Mutex
	pending []farmDomain.ListingLog
}

func NewRecorder(repo farmDomain.ListingAnalyticsRepository, interval time.Duration, batchSize int, log *zap.Logger) *Recorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Recorder{
		repo:      repo,
		entries:   make(chan farmDomain.ListingLog, batchSize*4),
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Record encola una entrada.
func (r *Recorder) Record(entry farmDomain.ListingLog) {
	select {
	case r.entries <- entry:
	default:
		r.log.Warn("⚠️ Buffer de analítica lleno, entrada descartada")
	}
}

// Start consume el buffer hasta que se cancela el contexto. Al parar vuelca
// lo que quede pendiente.
func (r *Recorder) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("🚀 Recorder de analítica iniciado", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.drain()
			// el contexto ya está cancelado
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.Flush(flushCtx)
			cancel()
			r.log.Info("🛑 Recorder de analítica detenido.")
			return
		case entry := <-r.entries:
			r.add(entry)
			if r.size() >= r.batchSize {
				r.Flush(ctx)
			}
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

func (r *Recorder) add(entry farmDomain.ListingLog) {
	r.mu.Lock()
	r.pending = append(r.pending, entry)
	r.mu.Unlock()
}

func (r *Recorder) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Recorder) drain() {
	for {
		select {
		case entry := <-r.entries:
			r.add(entry)
		default:
			return
		}
	}
}

// Flush envía el lote pendiente. Si falla, el lote se pierde: la analítica
// no justifica reintentos.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := r.repo.LogBatch(ctx, batch); err != nil {
		r.log.Warn("⚠️ No se pudo volcar la analítica de listados",
			zap.Int("entries", len(batch)),
			zap.Error(err),
		)
		return
	}
	r.log.Debug("📊 Analítica de listados volcada", zap.Int("entries", len(batch)))
}

// NoopRepository descarta las entradas; se usa cuando no hay ClickHouse.
type NoopRepository struct{}

func (NoopRepository) LogBatch(context.Context, []farmDomain.ListingLog) error { return nil }

var _ farmDomain.ListingAnalyticsRepository = NoopRepository{}
