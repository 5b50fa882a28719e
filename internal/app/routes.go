package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/middleware"
	"github.com/plughub/core/internal/modules/catalog/index"
	catalogsync "github.com/plughub/core/internal/modules/catalog/sync"
	"github.com/plughub/core/internal/modules/render"
	"github.com/plughub/core/internal/modules/tasks/crontask"
	pkgredis "github.com/plughub/core/internal/pkg/redis"
	"github.com/plughub/core/internal/pkg/response"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	a.router.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	a.router.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	a.router.GET("/", a.appInfo)
	a.router.GET("/health", a.health)

	adminMW := middleware.AdminAuth(a.cfg.AdminToken)

	api := a.router.Group(apiPrefix)
	api.Use(middleware.Idempotence(rc.Raw()))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL: 30 * time.Second,
		SkipPaths: []string{
			apiPrefix + "/sync",
			apiPrefix + "/backups",
			apiPrefix + "/cron-task",
		},
	}))

	api.GET("", a.appInfo)

	index.NewHandler(a.index).RegisterRoutes(api, adminMW)
	catalogsync.NewHandler(a.syncSvc, a.taskSvc, a.db, a.logger).RegisterRoutes(api, adminMW)
	a.backupH.RegisterRoutes(api, adminMW)
	crontask.NewHandler(a.sched, a.taskSvc).RegisterRoutes(api, adminMW)
	render.NewHandler(a.index).RegisterRoutes(api)
}

func (a *App) appInfo(c *gin.Context) {
	response.OK(c, gin.H{
		"name":     "plughub-core",
		"env":      a.cfg.Env,
		"channels": len(a.cfg.Channels),
		"uptime":   humanizeDuration(time.Since(processStart)),
	})
}

func (a *App) health(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
