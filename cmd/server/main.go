package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/jiseti/reporting-api/internal/config"
	"github.com/jiseti/reporting-api/internal/database"
	"github.com/jiseti/reporting-api/internal/handler"
	"github.com/jiseti/reporting-api/internal/repository"
	"github.com/jiseti/reporting-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; caching and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	records := repository.NewRecordRepo(db)

	e := echo.New()
	router.Register(e, router.Deps{
		Cfg:     cfg,
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Records: handler.NewRecordHandler(records),
		Users:   handler.NewUserHandler(users),
		Rdb:     rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
