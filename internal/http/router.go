package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/config"
	"github.com/geocoder89/eduai/internal/domain/user"
	"github.com/geocoder89/eduai/internal/http/handlers"
	"github.com/geocoder89/eduai/internal/http/middlewares"
	"github.com/geocoder89/eduai/internal/observability"
	"github.com/geocoder89/eduai/internal/ratelimit"
)

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Gate   *auth.Gate
	Bridge handlers.Assistant

	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Limits   ratelimit.Store
	Checks   map[string]handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Limits == nil {
		d.Limits = ratelimit.NewMemoryStore()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.Config.OTELServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))

	// ops
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	var onLimited func(string)
	if d.Prom != nil {
		onLimited = d.Prom.ObserveRateLimited
	}
	window := d.Config.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	authLimiter := middlewares.NewRateLimiter(d.Limits, "auth", d.Config.RateLimitAuth, window, onLimited)
	aiLimiter := middlewares.NewRateLimiter(d.Limits, "ai", d.Config.RateLimitAI, window, onLimited)

	am := middlewares.NewAuthMiddleware(d.Gate)
	authHandler := handlers.NewAuthHandler(d.Gate, d.Log)
	aiHandler := handlers.NewAIHandler(d.Bridge, d.Log)

	api := r.Group("/api", middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))

	authGroup := api.Group("/auth", middlewares.RequireJSON())
	{
		authGroup.POST("/register", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
		authGroup.POST("/login", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)

		authGroup.GET("/me", am.RequireAuth(), authHandler.Me)
		authGroup.PUT("/me", am.RequireAuth(), authHandler.UpdateMe)
		authGroup.POST("/change-password", am.RequireAuth(), authLimiter.Middleware(middlewares.KeyByUserOrIP), authHandler.ChangePassword)
	}

	users := api.Group("/users", am.RequireAuth(), am.RequireRole(user.RoleAdmin))
	{
		users.GET("", authHandler.ListUsers)
		users.GET("/:id", authHandler.GetUser)
	}

	// authentication runs before any body checks
	aiGroup := api.Group("/ai", am.RequireAuth(), middlewares.RequireJSON(), aiLimiter.Middleware(middlewares.KeyByUserOrIP))
	{
		aiGroup.POST("/generate-questions", aiHandler.GenerateQuestions)
		aiGroup.POST("/analyze-code", aiHandler.AnalyzeCode)
		aiGroup.POST("/generate-exam", aiHandler.GenerateExam)
		aiGroup.POST("/validate-code", aiHandler.ValidateCode)
		aiGroup.POST("/generate-image", aiHandler.GenerateImage)
	}

	return r
}
