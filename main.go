package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"eventmart/config"
	"eventmart/handlers"
	"eventmart/internal/bus"
	"eventmart/internal/store"
	"eventmart/services/cart"
	"eventmart/services/catalog"
	"eventmart/services/facade"
	"eventmart/services/session"
	"eventmart/services/users"
	"eventmart/utils"
)

func main() {
	log.Println("[main] starting eventmart...")

	configPath := os.Getenv("EVENTMART_CONFIG")
	if configPath == "" {
		configPath = "eventmart.yml"
	}

	manager := config.NewManager(afero.NewOsFs(), configPath)
	settings, err := manager.Load()
	if err != nil {
		log.Fatalf("[main] failed to load settings: %v", err)
	}

	setupLogging(settings.Log)

	st, err := openStore(settings)
	if err != nil {
		log.Fatalf("[main] failed to open store: %v", err)
	}
	defer st.Close()
	log.Printf("[main] store backend=%s dataDir=%s", settings.Store.Backend, settings.DataDir)

	changeBus := bus.New()

	if settings.Redis.Enabled {
		relay, err := bus.NewRedisRelay(settings.Redis.Address, settings.Redis.Channel, changeBus)
		if err != nil {
			// The relay is best-effort reconciliation; run without it.
			log.Printf("[main] redis relay unavailable, continuing without cross-process sync: %v", err)
		} else {
			relay.Start()
			defer relay.Stop()
			log.Printf("[main] redis relay connected addr=%s channel=%s", settings.Redis.Address, settings.Redis.Channel)
		}
	}

	sess := session.NewManager(st, changeBus, settings.Session.Secret,
		time.Duration(settings.Session.TokenTTLMinutes)*time.Minute)

	catalogSvc, err := catalog.NewService(settings.Catalog)
	if err != nil {
		log.Fatalf("[main] failed to build catalog client: %v", err)
	}

	usersSvc := users.NewService(st, changeBus, sess, catalogSvc.Languages())
	cartSvc := cart.NewService(st, changeBus)

	cartFacade := facade.NewCartFacade(sess, cartSvc, changeBus)
	defer cartFacade.Close()
	profileFacade := facade.NewProfileFacade(sess, changeBus)
	defer profileFacade.Close()

	router := utils.NewRouter()
	handlers.Register(router, handlers.Deps{
		Store:   st,
		Bus:     changeBus,
		Session: sess,
		Users:   usersSvc,
		Cart:    cartFacade,
		Profile: profileFacade,
		Catalog: catalogSvc,
	})

	srv := &http.Server{
		Addr:         settings.Listen,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", settings.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[main] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}

func openStore(settings *config.Settings) (store.Store, error) {
	if settings.Store.Backend == "sqlite" {
		return store.NewSQLiteStore(settings.Store.SQLitePath)
	}
	return store.NewFileStore(afero.NewOsFs(), settings.DataDir)
}

func setupLogging(cfg config.LogSettings) {
	if cfg.File == "" {
		return
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotated))
}
