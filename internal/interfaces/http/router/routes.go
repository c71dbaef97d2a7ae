package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appidentity "github.com/floworx/backend/internal/application/identity"
	appmailbox "github.com/floworx/backend/internal/application/mailbox"
	apponboarding "github.com/floworx/backend/internal/application/onboarding"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/config"
	"github.com/floworx/backend/internal/infrastructure/logger"
	"github.com/floworx/backend/internal/interfaces/http/handler"
	"github.com/floworx/backend/internal/interfaces/http/middleware"
)

// Dependencies carries everything the HTTP layer needs. It is assembled
// once in main and handed to New.
type Dependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	Version        string
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist

	AuthService     *appidentity.AuthService
	ResetService    *appidentity.PasswordResetService
	StateService    *apponboarding.StateService
	CategoryService *apponboarding.CategoryService
	MailboxService  *appmailbox.Service
	ConnectService  *appmailbox.ConnectService
}

// New builds the gin engine with the full middleware stack and route table.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.TokenBlacklist
	jwtCfg.Logger = deps.Logger
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	systemHandler := handler.NewSystemHandler(deps.DB, deps.Version)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(authRoutes(deps))
	r.Register(passwordResetRoutes(deps))
	r.Register(onboardingRoutes(deps))
	r.Register(mailboxRoutes(deps))
	r.Register(oauthRoutes(deps))
	r.Register(systemRoutes(systemHandler))
	r.Setup()

	return engine
}

func authRoutes(deps Dependencies) *DomainGroup {
	authHandler := handler.NewAuthHandler(deps.AuthService)
	resetHandler := handler.NewPasswordResetHandler(deps.ResetService, deps.Logger)
	onboardingHandler := handler.NewOnboardingHandler(deps.StateService)

	group := NewDomainGroup("auth", "/auth")
	if deps.Config.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(
			deps.Config.HTTP.AuthRateLimitRequests, deps.Config.HTTP.AuthRateLimitWindow)
		group.Use(middleware.AuthRateLimit(limiter))
	}

	group.POST("/register", authHandler.Register)
	group.POST("/login", authHandler.Login)
	group.POST("/refresh", authHandler.Refresh)
	group.POST("/logout", authHandler.Logout)
	group.GET("/me", authHandler.Me)
	group.PUT("/password", authHandler.ChangePassword)
	group.POST("/forgot-password", resetHandler.Request)
	group.POST("/complete-onboarding", onboardingHandler.Complete)
	return group
}

func passwordResetRoutes(deps Dependencies) *DomainGroup {
	resetHandler := handler.NewPasswordResetHandler(deps.ResetService, deps.Logger)

	group := NewDomainGroup("password-reset", "/password-reset")
	group.POST("/reset", resetHandler.Confirm)
	return group
}

func onboardingRoutes(deps Dependencies) *DomainGroup {
	onboardingHandler := handler.NewOnboardingHandler(deps.StateService)
	categoryHandler := handler.NewCategoryHandler(deps.CategoryService)

	group := NewDomainGroup("onboarding", "/onboarding")
	group.GET("/status", onboardingHandler.GetStatus)
	group.POST("/step/:step", onboardingHandler.SetStep)
	group.GET("/categories", categoryHandler.List)
	group.POST("/categories", categoryHandler.Add)
	group.DELETE("/categories/:name", categoryHandler.Remove)
	return group
}

func mailboxRoutes(deps Dependencies) *DomainGroup {
	mailboxHandler := handler.NewMailboxHandler(deps.MailboxService)

	group := NewDomainGroup("mailbox", "/mailbox")
	group.GET("/discover", mailboxHandler.Discover)
	group.POST("/provision", mailboxHandler.Provision)
	group.GET("/statistics", mailboxHandler.Statistics)
	return group
}

func oauthRoutes(deps Dependencies) *DomainGroup {
	oauthHandler := handler.NewOAuthHandler(deps.ConnectService)

	group := NewDomainGroup("oauth", "/oauth")
	group.GET("/:provider", oauthHandler.Connect)
	// Callback is reached by the provider redirect, not by our frontend,
	// so it sits on the JWT middleware skip list.
	group.GET("/:provider/callback", oauthHandler.Callback)
	group.GET("/:provider/status", oauthHandler.Status)
	group.DELETE("/:provider", oauthHandler.Disconnect)
	return group
}

func systemRoutes(systemHandler *handler.SystemHandler) *DomainGroup {
	group := NewDomainGroup("system", "")
	group.GET("/health", systemHandler.Health)
	return group
}
