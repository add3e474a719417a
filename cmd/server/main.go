package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/config"
	"github.com/Agastya221/society-gate-backend/internal/database"
	"github.com/Agastya221/society-gate-backend/internal/gate"
	"github.com/Agastya221/society-gate-backend/internal/handler"
	"github.com/Agastya221/society-gate-backend/internal/logger"
	"github.com/Agastya221/society-gate-backend/internal/middleware"
	"github.com/Agastya221/society-gate-backend/internal/queue"
	"github.com/Agastya221/society-gate-backend/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	cfg := config.Load()
	slogger := logger.Setup(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	repos := database.NewRepositories(db)
	store := repos.GateStore
	engine := gate.NewEngine(store, slogger)
	matcher := gate.NewMatcher(store, slogger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	authH := handler.NewAuthHandler(cfg, repos.Users, repos.Tokens, repos.Flats)
	guardH := handler.NewGuardHandler(engine, matcher, repos.Entries, repos.Flats)
	passH := handler.NewPassHandler(repos.Passes, repos.Rules, repos.Deliveries, repos.Entries, repos.Users)
	adminH := handler.NewAdminHandler(repos.Passes, repos.Entries)

	rlCfg := config.LoadRateLimitConfig()
	limiter := middleware.NewTokenBucket(rlCfg, config.NewRedisClient())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterGuard(e, guardH, cfg.JWTSecret, limiter)
	router.RegisterResident(e, passH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// Background consumer writing the gate log from entry.admitted events.
	go func() {
		if err := queue.StartEntryConsumer(); err != nil {
			slogger.Error("entry consumer stopped", "err", err)
		}
	}()

	addr := ":" + cfg.Port
	slogger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
