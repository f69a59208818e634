// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/eventbus"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/sessiondelivery"
	"github.com/go-petr/pet-ledger/internal/sessionrepo"
	"github.com/go-petr/pet-ledger/internal/sessionservice"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/transactionservice"
	"github.com/go-petr/pet-ledger/internal/txcache"
	"github.com/go-petr/pet-ledger/internal/userdelivery"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/internal/userservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
	Redis  *redis.Client
	Nats   *nats.Conn
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the optional redis and nats connections. The db is owned by the caller.
func (s *Server) Close() error {
	if s.Nats != nil {
		s.Nats.Close()
	}

	if s.Redis != nil {
		return s.Redis.Close()
	}

	return nil
}

// New creates Server type with instantiated domains and routes.
//
// Redis and NATS are used only when REDIS_ADDR and NATS_URL are set.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	server := &Server{
		DB:     conn,
		Config: config,
	}

	userRepo := userrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)

	var transactionRepo transactionservice.Repo = transactionrepo.NewRepoPGS(conn)

	if config.RedisAddress != "" {
		server.Redis = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		transactionRepo = txcache.New(transactionRepo, server.Redis, config.IdempotencyCacheTTL)

		logger.Info().Str("addr", config.RedisAddress).Msg("idempotency cache enabled")
	}

	var publisher transactionservice.Publisher

	nc, err := eventbus.Connect(config.NatsURL)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("cannot connect to nats: %w", err)
	}

	if nc != nil {
		server.Nats = nc
		publisher = eventbus.NewPublisher(nc)

		logger.Info().Str("url", config.NatsURL).Msg("transaction events enabled")
	}

	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userService := userservice.New(userRepo)
	accountService := accountservice.New(accountRepo)
	transactionService := transactionservice.New(transactionRepo, accountRepo, publisher)

	sessionService, err := sessionservice.New(sessionRepo, config, tokenMaker)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("cannot initialize session service: %w", err)
	}

	userHandler := userdelivery.NewHandler(userService, sessionService)
	accountHandler := accountdelivery.NewHandler(accountService)
	transactionHandler := transactiondelivery.NewHandler(transactionService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	engine.GET("/health", func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)
	engine.POST("/sessions", sessionHandler.RenewAccessToken)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/users/me", userHandler.Me)

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts/:id", accountHandler.Get)
	authRoutes.GET("/accounts", accountHandler.List)

	authRoutes.POST("/transactions", transactionHandler.Create)
	authRoutes.GET("/accounts/:id/transactions", transactionHandler.List)
	authRoutes.GET("/accounts/:id/audit", transactionHandler.Audit)

	server.Engine = engine

	return server, nil
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("account_kind", accountdelivery.ValidAccountKind); err != nil {
		return fmt.Errorf("cannot register account_kind validator: %w", err)
	}

	if err := v.RegisterValidation("transaction_kind", transactiondelivery.ValidTransactionKind); err != nil {
		return fmt.Errorf("cannot register transaction_kind validator: %w", err)
	}

	return nil
}
