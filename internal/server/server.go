package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/config"
	"anoa.com/pharmatrade/internal/middleware"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/validator"

	contactHttp "anoa.com/pharmatrade/internal/modules/contact/delivery/http"
	contactService "anoa.com/pharmatrade/internal/modules/contact/service"

	pharmacyHttp "anoa.com/pharmatrade/internal/modules/pharmacy/delivery/http"
	pharmacyService "anoa.com/pharmatrade/internal/modules/pharmacy/service"

	searchService "anoa.com/pharmatrade/internal/modules/search/service"

	recordHttp "anoa.com/pharmatrade/internal/modules/traderecord/delivery/http"
	recordService "anoa.com/pharmatrade/internal/modules/traderecord/service"

	userHttp "anoa.com/pharmatrade/internal/modules/user/delivery/http"
	userRepo "anoa.com/pharmatrade/internal/modules/user/repository"
	userService "anoa.com/pharmatrade/internal/modules/user/service"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer wires every module over one transaction manager. redisClient may
// be nil, which turns rate limiting off.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, search searchService.Service) *Server {
	tx := store.NewTxManager(db)
	users := userRepo.NewUserRepository(db)

	userSvc := userService.NewUserService(tx, search)
	authSvc := userService.NewAuthService(tx, cfg.JWTSecret, cfg.JWTTTL)
	userHandler := userHttp.NewUserHandler(userSvc, authSvc)

	pharmacySvc := pharmacyService.NewPharmacyService(tx, search)
	pharmacyHandler := pharmacyHttp.NewPharmacyHandler(pharmacySvc)

	contactSvc := contactService.NewContactService(tx)
	contactHandler := contactHttp.NewContactHandler(contactSvc)

	recordSvc := recordService.NewTradeRecordService(tx)
	recordHandler := recordHttp.NewRecordHandler(recordSvc)

	if err := validator.Register(); err != nil {
		log.Printf("custom validators not registered: %v", err)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(users, cfg.JWTSecret)
	write := func(action string) gin.HandlerFunc {
		return middleware.RateLimit(redisClient, action, cfg.RateLimitWrite)
	}

	api := router.Group("/api")

	// Public routes (no auth required)
	api.POST("/auth/login", middleware.RateLimit(redisClient, "login", cfg.RateLimitLogin), userHandler.Login)
	api.POST("/users", write("register"), userHandler.Register)
	api.GET("/users/exists", userHandler.CheckExists)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// User routes
		protected.GET("/users", userHandler.GetUsers)
		protected.GET("/users/by-username/:username", userHandler.GetUserByUsername)
		protected.GET("/users/:id", userHandler.GetUser)
		protected.PUT("/users/:id", write("user"), userHandler.UpdateUser)
		protected.DELETE("/users/:id", authMiddleware.RequireAdmin(), userHandler.DeleteUser)
		protected.GET("/users/:id/pharmacies", userHandler.GetUserPharmacies)
		protected.GET("/users/:id/contacts", userHandler.GetUserContacts)

		// Pharmacy routes
		protected.POST("/pharmacies", write("pharmacy"), pharmacyHandler.CreatePharmacy)
		protected.GET("/pharmacies", pharmacyHandler.GetPharmacies)
		protected.GET("/pharmacies/search", pharmacyHandler.SearchPharmacies)
		protected.GET("/pharmacies/count", pharmacyHandler.CountPharmacies)
		protected.GET("/pharmacies/exists", pharmacyHandler.CheckName)
		protected.GET("/pharmacies/by-name/:name", pharmacyHandler.GetPharmacyByName)
		protected.GET("/pharmacies/:id", pharmacyHandler.GetPharmacy)
		protected.PUT("/pharmacies/:id", write("pharmacy"), pharmacyHandler.UpdatePharmacy)
		protected.DELETE("/pharmacies/:id", pharmacyHandler.DeletePharmacy)

		// Contact routes
		protected.POST("/contacts", write("contact"), contactHandler.CreateContact)
		protected.GET("/contacts", contactHandler.GetContacts)
		protected.GET("/contacts/exists", contactHandler.CheckContact)
		protected.GET("/contacts/:id", contactHandler.GetContact)
		protected.PUT("/contacts/:id", write("contact"), contactHandler.UpdateContact)
		protected.DELETE("/contacts/:id", contactHandler.DeleteContact)

		// Trade record routes
		protected.POST("/records", write("record"), recordHandler.CreateRecord)
		protected.GET("/records", recordHandler.GetRecords)
		protected.GET("/records/count", recordHandler.CountRecords)
		protected.GET("/records/recent", recordHandler.GetRecentRecords)
		protected.GET("/records/between", recordHandler.GetRecordsBetween)
		protected.GET("/records/balance", recordHandler.GetBalance)
		protected.GET("/records/balances", recordHandler.GetBalances)
		protected.GET("/records/:id", recordHandler.GetRecord)
		protected.PUT("/records/:id", write("record"), recordHandler.UpdateRecord)
		protected.DELETE("/records/:id", recordHandler.DeleteRecord)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
