package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studieren/mindjournal/auth"
	"github.com/studieren/mindjournal/config"
	"github.com/studieren/mindjournal/insights"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/middleware"
)

type RouterDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	Reflections ReflectionService
	Auth        AuthService
	Tokens      *auth.TokenIssuer
	Store       Store
	Metrics     *middleware.Metrics
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Config.Telemetry.Enabled {
		r.Use(otelgin.Middleware(d.Config.Telemetry.ServiceName))
	}
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middleware.CORS(d.Config.Server.CORSOrigins))

	am := middleware.NewAuthMiddleware(d.Log, d.Tokens)

	// 1) 运维接口，不做鉴权
	ops := NewOpsHandler(d.Store, d.Log)
	r.GET("/healthz", ops.Health)
	r.GET("/stats", ops.Stats)
	if d.Metrics != nil {
		r.GET("/metrics", d.Metrics.Handler())
	}

	// 2) 注册/登录，按 IP 限流；只有 /auth/me 解析 token
	ah := NewAuthHandler(d.Auth, d.Log)
	authGroup := r.Group("/auth", middleware.RateLimit(middleware.NewKeyedRateLimiter(d.Config.Auth.LoginRPS, d.Config.Auth.LoginBurst)))
	authGroup.POST("/signup", ah.Signup)
	authGroup.POST("/login", ah.Login)
	authGroup.GET("/me", am.Authenticate(), am.RequireAuth(), ah.Me)

	// 3) 日记 CRUD、标签、日历和洞察
	journalGroup := r.Group("", am.Authenticate())
	if d.Config.Auth.Required {
		journalGroup.Use(am.RequireAuth())
	}
	NewReflectionHandler(d.Reflections, d.Log).Register(journalGroup)
	NewInsightsHandler(d.Reflections, d.Log, insights.Options{}).Register(journalGroup)

	return r
}
