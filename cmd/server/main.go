// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/outboundhq/outreach-backend/internal/config"
	"github.com/outboundhq/outreach-backend/internal/controller"
	"github.com/outboundhq/outreach-backend/internal/db"
	"github.com/outboundhq/outreach-backend/internal/handler"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/observe"
	"github.com/outboundhq/outreach-backend/internal/platform"
	"github.com/outboundhq/outreach-backend/internal/queue"
	"github.com/outboundhq/outreach-backend/internal/repository"
	"github.com/outboundhq/outreach-backend/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	obs := observe.NewHook(logger)
	q := queue.NewInMemoryQueue(logger)

	sequenceRepo := &repository.SequenceRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	touchpointRepo := &repository.TouchpointRepository{DB: conn}
	targetRepo := &repository.TargetRepository{DB: conn}

	aggregator := &service.Aggregator{
		TouchpointRepo: touchpointRepo,
		CampaignRepo:   campaignRepo,
	}

	campaignService := &service.CampaignService{
		CampaignRepo:   campaignRepo,
		SequenceRepo:   sequenceRepo,
		TouchpointRepo: touchpointRepo,
		TargetRepo:     targetRepo,
		Platform:       platform.NewClient(cfg.Platform),
		Agg:            aggregator,
		Obs:            obs,
	}

	reconciler := &service.Reconciler{
		CampaignRepo:   campaignRepo,
		TouchpointRepo: touchpointRepo,
		TargetRepo:     targetRepo,
		Obs:            obs,
	}
	queue.StartPlatformEventSubscriber(q, reconciler, logger)

	touchpointService := &service.TouchpointService{
		TouchpointRepo: touchpointRepo,
		TargetRepo:     targetRepo,
		Obs:            obs,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Reconciler:      reconciler,
	}
	touchpointHandler := &handler.TouchpointHandler{
		Touchpoints: touchpointService,
		Aggregator:  aggregator,
		Queue:       q,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Post("/campaigns/{id}/sync", campaignController.SyncCampaign)

	// Touchpoint and reporting routes
	r.Post("/touchpoints", touchpointHandler.ScheduleTouchpoint)
	r.Post("/touchpoints/{id}/complete", touchpointHandler.CompleteTouchpoint)
	r.Get("/leads/{id}/touchpoints", touchpointHandler.EntityTouchpoints(model.EntityLead))
	r.Get("/contacts/{id}/touchpoints", touchpointHandler.EntityTouchpoints(model.EntityContact))
	r.Get("/calendar", touchpointHandler.Calendar)

	// Inbound platform webhook
	r.Post("/webhooks/platform", touchpointHandler.PlatformWebhook)

	logger.Info("server running", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
