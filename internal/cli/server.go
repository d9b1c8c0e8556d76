package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizhall/internal/app"
	"quizhall/internal/config"
	"quizhall/internal/domain"
	filebank "quizhall/internal/infra/file"
	"quizhall/internal/infra/memory"
	pgbank "quizhall/internal/infra/postgres"
	redissession "quizhall/internal/infra/redis"
	transport "quizhall/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var bankLoader app.BankLoader
	switch {
	case pool != nil:
		bankLoader = pgbank.NewBankLoader(pool)
	case cfg.Bank.Path != "":
		bankLoader = filebank.NewBankLoader(cfg.Bank.Path)
	default:
		bankLoader = memory.NewStaticBankLoader(sampleBankKeys(), sampleBank())
	}
	bank := app.NewBankService(bankLoader)

	var soloStore app.SessionStore
	if redisClient != nil {
		soloStore = redissession.NewSoloStore(redisClient, domain.SessionTTL)
	} else {
		soloStore = memory.NewSoloStore()
	}
	solo := app.NewSoloService(soloStore, bank)
	rooms := app.NewRoomService(bank)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Rooms.IdleTTL != "" {
		idleTTL := config.Duration(cfg.Rooms.IdleTTL, 2*time.Hour)
		interval := config.Duration(cfg.Rooms.SweepInterval, 10*time.Minute)
		rooms.StartSweeper(sweepCtx, interval, idleTTL)
	}

	api := transport.NewAPIHandler(solo, bank)
	wsHandler := transport.NewWSHandler(rooms)
	router := transport.NewRouter(api, wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizhall on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBank provides minimal demo content when neither Postgres nor a bank
// file is configured.
func sampleBank() map[string][]domain.Question {
	return map[string][]domain.Question{
		"demo": {
			{
				Number:        1,
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4", "5"},
				CorrectAnswer: 1,
			},
			{
				Number:        2,
				Text:          "Which planet is known as the red planet?",
				Options:       []string{"Venus", "Jupiter", "Mars", "Saturn"},
				CorrectAnswer: 2,
			},
		},
	}
}

func sampleBankKeys() []string {
	return []string{"demo"}
}
