package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/catalog"
	"ms-festbuzz/internal/catalog/catalog_api"
	"ms-festbuzz/internal/certificates"
	"ms-festbuzz/internal/certificates/certificate_api"
	"ms-festbuzz/internal/config"
	"ms-festbuzz/internal/database/migrations"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/kafka"
	"ms-festbuzz/internal/lock"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/personal"
	"ms-festbuzz/internal/personal/personal_api"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/registration"
	"ms-festbuzz/internal/registration/registration_api"
	"ms-festbuzz/internal/roles"
	"ms-festbuzz/internal/roles/role_api"
	"ms-festbuzz/internal/teams"
	"ms-festbuzz/internal/teams/team_api"
	"ms-festbuzz/internal/utils"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := cfg.ConnectRetry
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

// connectRedis returns nil when Redis is disabled or unreachable. Locks and
// the role cache then degrade to no-ops.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled || cfg.Addr == "" {
		log.Warn("REDIS", "Redis disabled, registration locks and role cache are off")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis connection error, continuing without it: %v", err))
		_ = client.Close()
		return nil
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
		log.Info("AUTH", fmt.Sprintf("Verifying tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return v
	}
	if cfg.JWTSecret == "" {
		log.Fatal("CONFIG", "JWT_SECRET or OIDC_ISSUER must be set")
	}
	log.Info("AUTH", "Verifying HS256 tokens with the shared secret")
	return auth.NewHMACVerifier(cfg.JWTSecret)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("[CONFIG] .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[CONFIG] %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[LOGGER] %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	log.Info("APP", "Starting FestBuzz registration service")
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Migrations.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Migrations.Dir,
			AutoMigrate:   true,
			SeedData:      cfg.Migrations.Seed,
		}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", err.Error())
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	var roleCache *roles.RedisRoleCache
	if redisClient != nil {
		defer redisClient.Close()
		roleCache = roles.NewRedisRoleCache(redisClient, cfg.Redis.RoleCacheTTL)
	}
	locker := lock.NewLocker(redisClient, cfg.Redis.LockTTL, log)

	var publisher *kafka.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopicsExist(topicCtx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		cancel()

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = kafka.NewEventPublisher(producer, cfg.Kafka.Topics, log)
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Warn("KAFKA", "Kafka disabled, domain events are dropped")
	}

	qrGen, err := qr.NewGenerator(cfg.QR.SecretKey, cfg.QR.Size)
	if err != nil {
		log.Fatal("QR", err.Error())
	}

	verifier := buildVerifier(ctx, cfg.Auth, log)
	store := db.New(bunDB)

	roleService := roles.NewService(store, roleCache, log)
	catalogService := catalog.NewService(store, roleService, log)
	registrationService := registration.NewService(store, roleService, qrGen, locker, publisher, log, registration.Options{
		RequireFestRegistration: cfg.Registration.RequireFestRegistration,
		CancelCutoff:            cfg.Registration.CancelCutoff,
	})
	teamService := teams.NewService(store, qrGen, locker, publisher, log, teams.Options{
		DefaultTeamSize: cfg.Registration.DefaultTeamSize,
		CodeLength:      cfg.Registration.TeamCodeLength,
	})
	personalService := personal.NewService(store)
	certificateService := certificates.NewService(store, roleService, publisher, log)

	catalogHandler := catalog_api.NewHandler(catalogService, log)
	registrationHandler := registration_api.NewHandler(registrationService, log)
	teamHandler := team_api.NewHandler(teamService, log)
	roleHandler := role_api.NewHandler(roleService, log)
	personalHandler := personal_api.NewHandler(personalService, log)
	certificateHandler := certificate_api.NewHandler(certificateService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalMiddleware(verifier, log))
			catalogHandler.RegisterPublicRoutes(r)
		})
		log.Info("ROUTER", "Public festival and event routes registered under /api")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, log))
			log.Info("AUTH", "JWT middleware applied to protected API routes")

			catalogHandler.RegisterRoutes(r)
			registrationHandler.RegisterRoutes(r)
			teamHandler.RegisterRoutes(r)
			roleHandler.RegisterRoutes(r)
			personalHandler.RegisterRoutes(r)
			certificateHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Registration, team, role, personal and certificate routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 FestBuzz service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ FestBuzz service shutdown complete")
	}
}
