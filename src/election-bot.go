package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/aprp/electionbot/src/bot"
	"github.com/aprp/electionbot/src/config"
	"github.com/aprp/electionbot/src/data"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/webserver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg := config.Load()

	var store ledger.Ledger
	var rdb *redis.Client
	if cfg.DryRun {
		log.Printf("DRY_RUN set: using in-memory ledger, no MySQL/Redis")
		store = ledger.NewMemory()
	} else {
		db := data.MustMySQL(cfg.MySQLDSN)
		mysqlStore, err := ledger.NewMySQL(db)
		if err != nil {
			log.Fatalf("ledger: %v", err)
		}
		store = mysqlStore
		rdb = data.MustRedis(cfg.RedisURL)
	}

	b, err := bot.New(bot.Config{
		Token:        cfg.Token,
		GuildID:      cfg.GuildID,
		AdminRoleID:  cfg.AdminRoleID,
		Ledger:       store,
		Redis:        rdb,
		TickInterval: cfg.TickInterval,
	})
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	if err := b.Start(); err != nil {
		log.Fatalf("bot start: %v", err)
	}

	clock, candidacies, tallies, polls := b.Components()
	router := webserver.New(cfg, clock, candidacies, tallies, polls)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("Election API listening on %s", cfg.APIPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
	b.Stop()
}
