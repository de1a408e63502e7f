package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/handlers"
	"github.com/damione1/paginated-grid/internal/services"
)

func main() {

	pb := pocketbase.New()

	// load/store config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	pb.Store().Set("cfg", cfg)

	// optional snapshot fan-out
	var publisher services.SnapshotPublisher = services.NoopPublisher{}
	if cfg.RedisURL != "" {
		redisPub, err := services.NewRedisSnapshotPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		publisher = redisPub
		log.Printf("✓ Publishing call snapshots to redis")
	}

	calls := services.NewCallManager(services.NewMetrics())

	mediaHandler := handlers.NewMediaHandler(calls, cfg, publisher)
	callHandlers := handlers.NewCallHandlers(calls)

	// Add HTTP routes
	pb.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/ws/calls/{callId}", mediaHandler.HandleWebSocket)

		se.Router.GET("/api/calls/{callId}", callHandlers.GetCall)
		se.Router.POST("/api/calls/{callId}/page", callHandlers.SetPage)
		se.Router.POST("/api/calls/{callId}/resize", callHandlers.Resize)
		se.Router.POST("/api/calls/{callId}/layers", callHandlers.SetAutoLayers)
		se.Router.POST("/api/calls/{callId}/participants/{participantId}/layer", callHandlers.SetParticipantLayer)

		se.Router.GET("/api/metrics", handlers.HandleMetrics(calls))
		se.Router.GET("/api/health", handlers.HandleHealth(calls))

		return se.Next()
	})

	pb.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		calls.CloseAll()
		if err := publisher.Close(); err != nil {
			log.Printf("⚠️  Snapshot publisher close failed: %v", err)
		}
		return te.Next()
	})

	if err := pb.Start(); err != nil {
		log.Fatal(err)
	}
}
