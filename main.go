package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_office/api"
	"estate_office/broker"
	"estate_office/config"
	"estate_office/logging"
	"estate_office/models"
	"estate_office/scheduler"
	"estate_office/services"
	"estate_office/storage"
	"estate_office/workers"
)

var (
	migrateOnly = flag.Bool("migrate", false, "Apply the schema and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting estate_office...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	if *migrateOnly {
		log.Println("Schema up to date")
		return
	}

	templates := notificationTemplates(cfg.Engine)
	engine := services.NewEngine(store, templates)
	log.Printf("Engine initialized (%d custom notification templates)", len(templates))

	sched := scheduler.New()
	if cfg.Broker.URL != "" {
		publisher, err := broker.NewPublisher(broker.PublisherConfig{
			URL:          cfg.Broker.URL,
			ExchangeName: cfg.Broker.Exchange,
		})
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()

		relay := workers.NewNotificationRelay(store, publisher, cfg.Relay.Batch)
		go relay.Run(ctx)
		sched.Register("notification relay", cfg.Relay.Cron, relay)
		log.Printf("Notification relay publishing to exchange %s", cfg.Broker.Exchange)
	} else {
		log.Println("RABBITMQ_URL not set, notifications stay in-app only")
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}
	engine.Drain()
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// openStore connects the configured backend and applies its schema
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func()) {
	switch cfg.Database.Driver {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to open SQLite: %v", err)
		}
		log.Printf("SQLite database: %s", cfg.Database.Path)
		return s, func() { s.Close() }
	default:
		s, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Database.URL))
		if err := s.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
		return s, func() { s.Close() }
	}
}

func notificationTemplates(f config.EngineFile) map[models.NotificationType]services.Template {
	out := make(map[models.NotificationType]services.Template, len(f.Templates))
	for name, t := range f.Templates {
		typ := models.NotificationType(name)
		if typ != models.NotifFileUpdated && typ != models.NotifFileAssigned {
			log.Printf("Warning: ignoring template for unknown notification type %q", name)
			continue
		}
		out[typ] = services.Template{Title: t.Title, Message: t.Message}
	}
	return out
}

// maskConnectionString hides the password of a URL-style DSN for logging.
// Anything without credentials is returned as is.
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
