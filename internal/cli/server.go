package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"examprep-engine/internal/app"
	"examprep-engine/internal/config"
	"examprep-engine/internal/domain"
	"examprep-engine/internal/infra/memory"
	pgstore "examprep-engine/internal/infra/postgres"
	redisstore "examprep-engine/internal/infra/redis"
	"examprep-engine/internal/selection"
	transport "examprep-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleTopics())
	if pool != nil {
		loader = pgstore.NewContentStore(pool)
	}

	var content app.ContentStore
	if redisClient != nil {
		content = redisstore.NewContentStore(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentStore(loader, contentTTL)
	}

	var attempts app.AttemptRepository
	var profiles app.ProfileRepository
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		attempts = pgstore.NewAttemptRepository(db)
		profiles = pgstore.NewProfileRepository(db)
	} else {
		attempts = memory.NewAttemptRepository()
		profiles = memory.NewProfileRepository()
	}
	if redisClient != nil {
		attempts = redisstore.NewAttemptRepository(attempts, redisClient, redisTTL)
	}

	engine := app.NewEngine(content, attempts, profiles, selection.New(), gameRules(cfg))
	wsHandler := transport.NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting examprep engine on :%s", finalPort)
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

func gameRules(cfg config.Config) domain.GameRules {
	rules := domain.DefaultGameRules()
	if cfg.Game.Lives > 0 {
		rules.StartingLives = cfg.Game.Lives
	}
	if cfg.Game.BasePoints > 0 {
		rules.BasePoints = cfg.Game.BasePoints
	}
	if cfg.Game.StreakBonusStep > 0 {
		rules.StreakBonusStep = cfg.Game.StreakBonusStep
	}
	if cfg.Game.StreakBonusCap > 0 {
		rules.StreakBonusCap = cfg.Game.StreakBonusCap
	}
	return rules
}

// sampleTopics provides minimal content for demo mode; production loads
// questions from Postgres.
func sampleTopics() map[string][]domain.QuestionSnapshot {
	return map[string][]domain.QuestionSnapshot{
		"anatomy-basics": {
			{
				ID:       "q1",
				Category: "skeletal",
				Prompt:   "How many bones does the adult human body have?",
				Options: []domain.Option{
					{Label: domain.LabelA, Text: "196"},
					{Label: domain.LabelB, Text: "206"},
					{Label: domain.LabelC, Text: "216"},
				},
				CorrectAnswer: domain.LabelB,
				Explanation:   "Adults have 206 bones; infants are born with about 270.",
			},
			{
				ID:       "q2",
				Category: "muscular",
				Prompt:   "Which muscle is the primary mover in elbow flexion?",
				Options: []domain.Option{
					{Label: domain.LabelA, Text: "Biceps brachii"},
					{Label: domain.LabelB, Text: "Triceps brachii"},
					{Label: domain.LabelC, Text: "Deltoid"},
				},
				CorrectAnswer: domain.LabelA,
			},
		},
	}
}
