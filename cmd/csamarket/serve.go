package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	farmApp "github.com/davicafu/csamarket/internal/farm/application"
	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	farmHttp "github.com/davicafu/csamarket/internal/farm/infra/inbound/http"
	farmAnalytics "github.com/davicafu/csamarket/internal/farm/infra/outbound/analytics"
	farmClickHouse "github.com/davicafu/csamarket/internal/farm/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/csamarket/internal/config"
	shareApp "github.com/davicafu/csamarket/internal/share/application"
	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	shareEvents "github.com/davicafu/csamarket/internal/share/infra/inbound/events"
	shareHttp "github.com/davicafu/csamarket/internal/share/infra/inbound/http"
	shareFarms "github.com/davicafu/csamarket/internal/share/infra/outbound/farms"
	sharedEvents "github.com/davicafu/csamarket/internal/shared/domain/events"
	infraEvents "github.com/davicafu/csamarket/internal/shared/infra/events"
	sharedBus "github.com/davicafu/csamarket/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/csamarket/internal/shared/infra/platform/cache"
	"github.com/davicafu/csamarket/internal/shared/infra/relayer"
	"github.com/davicafu/csamarket/pkg/logger"
)

const (
	shareConsumerGroup = "csamarket-share-service"
	analyticsBatchSize = 100
	shutdownTimeout    = 10 * time.Second
)

func serve(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- DB ----------------
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	if err := st.migrate(ctx); err != nil {
		return err
	}

	// ---------------- Cache ----------------
	var cache sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		mem := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer mem.Stop()
		cache = mem
	} else {
		cache = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	var wg sync.WaitGroup
	background := func(run func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run()
		}()
	}

	// ---------------- Analítica ----------------
	var analyticsRepo farmDomain.ListingAnalyticsRepository = farmAnalytics.NoopRepository{}
	var analyticsReader farmDomain.ListingAnalyticsReader
	if cfg.ClickHouseAddr != "" {
		ch, err := farmClickHouse.NewListingAnalyticsRepo(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica desactivada", zap.Error(err))
		} else if err := ch.InitSchema(ctx); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de analítica", zap.Error(err))
			ch.Close()
		} else {
			defer ch.Close()
			analyticsRepo, analyticsReader = ch, ch
			log.Info("📊 Analítica de listados en ClickHouse")
		}
	}
	recorder := farmAnalytics.NewRecorder(analyticsRepo, cfg.AnalyticsFlush, analyticsBatchSize, log)
	background(func() { recorder.Start(ctx) })

	// --------------- Servicios --------------
	farmService := farmApp.NewFarmService(st.farms, cache, recorder, log)
	shareService := shareApp.NewShareService(st.shares, shareFarms.NewDirectory(farmService), cache, log)
	farmConsumer := shareEvents.NewFarmConsumer(shareService, log)

	// ---------------- Eventos ---------------
	var publisher sharedBus.EventBus
	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")
		kafkaPublisher := infraEvents.NewKafkaPublisher(infraEvents.NewKafkaWriter(cfg.KafkaBrokers), log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		reader := infraEvents.NewKafkaReader(cfg.KafkaBrokers, farmDomain.FarmTopic, shareConsumerGroup)
		done := infraEvents.NewConsumerAdapter(reader, farmConsumer, log).Start(ctx)
		background(func() { <-done })
	} else {
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")
		bus := infraEvents.NewInMemoryEventBus()
		defer bus.Close()
		publisher = bus

		done := infraEvents.NewChannelConsumer(bus.Subscribe(farmDomain.FarmTopic, 64), farmConsumer).Start(ctx)
		background(func() { <-done })
	}

	// ------------ Outbox Worker ------------
	registry := sharedEvents.MergeRegistries(farmDomain.NewEventRegistry(), shareDomain.NewEventRegistry())
	worker := relayer.NewOutboxWorker(st.outbox, publisher, registry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
	background(func() { worker.Start(ctx) })

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logger.GinMiddleware(log), gin.Recovery())

	health := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/health", health)
	api := router.Group("/api")
	api.GET("/health", health)
	farmHttp.RegisterFarmRoutes(api, farmHttp.NewFarmHandler(farmService, analyticsReader))
	shareHttp.RegisterShareRoutes(api, shareHttp.NewShareHandler(shareService))

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	}

	log.Info("🛑 Apagando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error en el apagado HTTP", zap.Error(err))
	}
	stop()
	wg.Wait()
	return nil
}
