package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loopchat_backend/database"
	"loopchat_backend/internal/cache"
	"loopchat_backend/internal/config"
	"loopchat_backend/internal/email"
	"loopchat_backend/internal/handlers"
	"loopchat_backend/internal/logger"
	"loopchat_backend/internal/middleware"
	"loopchat_backend/internal/routes"
	"loopchat_backend/internal/services"
	chatService "loopchat_backend/internal/services/chat"
	"loopchat_backend/internal/validator"
	"loopchat_backend/internal/workers"
	"loopchat_backend/ws"
)

// App wires the database, services, realtime manager and HTTP router.
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Manager   *ws.Manager
	Scheduler *workers.SchedulerWorker
	Presence  *cache.PresenceCache
}

// New builds the whole application graph from the loaded config.
func New() (*App, error) {
	cfg := config.GetConfig()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	manager := ws.NewManager()
	presenceCache := cache.NewPresenceCache(cfg.Redis)

	var mailProvider email.Provider
	if cfg.Email.SMTPHost != "" && cfg.Email.SMTPUsername != "" {
		mailProvider = email.NewSMTPProvider(cfg.Email)
	} else {
		mailProvider = email.NewMockProvider()
		logger.Info("smtp not configured, using mock email provider")
	}

	chats := chatService.NewChatService(db, manager, mailProvider)
	messages := chatService.NewMessageService(db, manager)
	reactions := chatService.NewReactionService(db, manager)
	polls := chatService.NewPollService(db, manager)
	presence := chatService.NewPresenceService(db, chats, presenceCache, manager)
	users := services.NewUserService(db, manager)
	authSvc := services.NewAuthService(db)
	scheduler := workers.NewSchedulerWorker(db, manager)

	wsServices := &ws.Services{
		Presence:  presence,
		Chats:     chats,
		Messages:  messages,
		Reactions: reactions,
		Polls:     polls,
		Scheduler: scheduler,
		Users:     users,
	}

	v := validator.New()
	base := handlers.NewBaseHandler(v)
	appHandlers := &handlers.AppHandlers{
		Auth: handlers.NewAuthHandler(base, authSvc),
		User: handlers.NewUserHandler(base, users),
		Chat: handlers.NewChatHandler(base, chats, messages),
		Poll: handlers.NewPollHandler(base, polls),
		WS:   handlers.NewWSHandler(base, manager, wsServices),
	}

	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())

	routes.RegisterRoutes(router, appHandlers)

	return &App{
		Router:    router,
		DB:        db,
		Manager:   manager,
		Scheduler: scheduler,
		Presence:  presenceCache,
	}, nil
}

// Run starts the scheduler and serves HTTP until the context ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	cfg := config.GetConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server listening", "addr", addr, "env", cfg.Server.Env)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Router.Run(addr)
	}()

	select {
	case <-ctx.Done():
		if err := a.Presence.Close(); err != nil {
			logger.Warn("presence cache close failed", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}
