package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"card-battle-service/handlers"
	"card-battle-service/models"
	"card-battle-service/services"
	"card-battle-service/utils"
	"card-battle-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		ReadBufferSize: 8192,
	})

	// CORS for the WebSocket handshake and history endpoints
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Player{},
		&models.Card{},
		&models.Battle{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Engine wiring: every collaborator is injected at construction
	store := services.NewGormBattleStore(db)
	connections := services.NewConnectionRegistry()
	battleService := services.NewBattleService(store)
	lobbyService := services.NewLobbyService(battleService)
	playerService := services.NewPlayerService(db)

	finalizeWorker := workers.NewFinalizeWorker(store)
	battleService.FinalizeQueue = finalizeWorker

	// Replay archives are optional; without R2 the battle record alone is
	// the durable history.
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		battleService.Archiver = utils.BattleArchiver{}
		log.Println("✅ Replay archiving to R2 enabled")
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set — replay archiving disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go finalizeWorker.Run(ctx, 30*time.Second)

	playerSyncClient := workers.NewPlayerSyncClient(db)
	go workers.PollPlayers(ctx, playerSyncClient, 10*time.Second)

	sched := services.StartBattleSchedulers(
		lobbyService,
		battleService,
		connections,
		envDuration("MATCHMAKING_INTERVAL_SECONDS", 5, time.Second),
		envDuration("BATTLE_IDLE_TIMEOUT_MINUTES", 10, time.Minute),
	)

	handlers.SetupBattleRoutes(app, lobbyService, battleService, connections, playerService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Battle finalize retry worker running (every 30s)")
	log.Println("✅ Player profile polling running (every 10s)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = sched.Shutdown()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

func envDuration(name string, def int, unit time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return time.Duration(def) * unit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %d", name, raw, def)
		return time.Duration(def) * unit
	}
	return time.Duration(n) * unit
}
