package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecristovao/pagbot/internal/alert"
	"github.com/ecristovao/pagbot/internal/api"
	"github.com/ecristovao/pagbot/internal/claim"
	"github.com/ecristovao/pagbot/internal/config"
	"github.com/ecristovao/pagbot/internal/conversation"
	"github.com/ecristovao/pagbot/internal/extract"
	"github.com/ecristovao/pagbot/internal/gateway"
	"github.com/ecristovao/pagbot/internal/orders"
	"github.com/ecristovao/pagbot/internal/proof"
	"github.com/ecristovao/pagbot/internal/retry"
	"github.com/ecristovao/pagbot/internal/store"
	"github.com/ecristovao/pagbot/internal/whatsapp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Connect to database
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	// Run migrations
	if err := st.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Operator alerts (optional)
	notifier, err := alert.New(cfg.DiscordToken, cfg.DiscordOpsChannel)
	if err != nil {
		log.Fatalf("Failed to connect operator alerts: %v", err)
	}
	defer notifier.Close()

	// Collaborator clients
	sender := whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	orderClient := orders.NewClient(cfg.OrdersBaseURL)
	extractor := extract.NewClient(cfg.OpenAIKey, sender)
	// Card links are optional; without gateway credentials the button
	// degrades to a PIX-only message.
	var psp conversation.ChargeLinker
	if cfg.GatewayClientID != "" {
		psp = gateway.NewClient(ctx, gateway.Config{
			ClientID:     cfg.GatewayClientID,
			ClientSecret: cfg.GatewayClientSecret,
			TokenURL:     cfg.GatewayTokenURL,
			BaseURL:      cfg.GatewayBaseURL,
		})
	}

	arbiter := claim.New(cfg.ClaimInactivity)

	engine := conversation.NewEngine(conversation.Deps{
		Store:     st,
		Sender:    sender,
		Orders:    orderClient,
		Extractor: extractor,
		Gateway:   psp,
		Attendant: notifier,
		Arbiter:   arbiter,
		Retrier:   retry.New(cfg.RetryAttempts, cfg.RetryDelay, notifier),
		PixKey:    cfg.PixKey,
		Beneficiary: proof.Beneficiary{
			LegalName: cfg.BeneficiaryName,
			Document:  cfg.BeneficiaryDocument,
		},
		PaymentReminderAfter: cfg.PaymentReminderAfter,
	})

	// Payment reminder sweep
	reminders := conversation.NewReminderWorker(engine)
	reminders.Start()
	defer reminders.Stop()

	// API server (webhook + ops)
	apiServer := api.New(cfg, engine, st, arbiter)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
