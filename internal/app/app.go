package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/config"
	"github.com/plughub/core/internal/database"
	"github.com/plughub/core/internal/middleware"
	"github.com/plughub/core/internal/modules/backup"
	"github.com/plughub/core/internal/modules/catalog/index"
	"github.com/plughub/core/internal/modules/catalog/parser"
	"github.com/plughub/core/internal/modules/catalog/store"
	catalogsync "github.com/plughub/core/internal/modules/catalog/sync"
	pkgcron "github.com/plughub/core/internal/pkg/cron"
	pkgredis "github.com/plughub/core/internal/pkg/redis"
	"github.com/plughub/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// invalidateChannel carries cross-process cache invalidation signals.
const invalidateChannel = "ph:catalog:invalidate"

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	index   *index.Service
	syncSvc *catalogsync.Service
	taskSvc *taskqueue.Service
	backupH *backup.Handler
}

// New initializes the application: config → DB → Redis → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	entryStore := store.NewGormStore(db)
	idx := index.NewService(entryStore,
		index.WithLogger(logger),
		index.WithWriteHook(func() {
			purgeCtx, purgeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer purgeCancel()
			_, _ = middleware.PurgeHTTPCache(purgeCtx, rc.Raw())
			_ = rc.Publish(purgeCtx, invalidateChannel, "1")
		}),
	)
	go watchInvalidations(ctx, rc, idx, logger)

	postParser := parser.New(categoriesFromConfig(cfg))
	source := catalogsync.NewExportSource(cfg.Sync.ExportDir)
	syncSvc := catalogsync.NewService(source, entryStore, idx, postParser, channelsFromConfig(cfg),
		catalogsync.WithLogger(logger),
		catalogsync.WithRunRecorder(db),
	)

	taskSvc := taskqueue.NewService(rc)
	backupHandler := backup.NewHandler(entryStore, idx, cfg)

	sched := pkgcron.New()
	registerCronJobs(sched, cfg, syncSvc, backupHandler, taskSvc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		logger:  logger,
		cancel:  cancel,
		sched:   sched,
		index:   idx,
		syncSvc: syncSvc,
		taskSvc: taskSvc,
		backupH: backupHandler,
	}
	app.registerRoutes(rc)

	return app, nil
}

// watchInvalidations drops the local index cache when another process writes
// the catalog.
func watchInvalidations(ctx context.Context, rc *pkgredis.Client, idx *index.Service, logger *zap.Logger) {
	sub := rc.Subscribe(ctx, invalidateChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = msg
			idx.Invalidate()
			logger.Debug("catalog index invalidated by peer")
		}
	}
}

func buildCORSConfig(cfg *config.AppConfig) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-ph-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsConfig
}

func categoriesFromConfig(cfg *config.AppConfig) []parser.Category {
	if len(cfg.Categories) == 0 {
		return nil
	}
	categories := make([]parser.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, parser.Category{Key: c.Key, TagRU: c.TagRU, TagEN: c.TagEN})
	}
	return categories
}

func channelsFromConfig(cfg *config.AppConfig) []catalogsync.Channel {
	channels := make([]catalogsync.Channel, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		channels = append(channels, catalogsync.Channel{Handle: ch.Handle, ChatID: ch.ChatID, Limit: ch.Limit})
	}
	return channels
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
