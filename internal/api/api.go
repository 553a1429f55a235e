// Package api exposes the WhatsApp webhook and a small JWT-protected
// operations surface for the restaurant staff.
package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ecristovao/pagbot/internal/claim"
	"github.com/ecristovao/pagbot/internal/config"
	"github.com/ecristovao/pagbot/internal/conversation"
	"github.com/ecristovao/pagbot/internal/store"
)

type API struct {
	router    *mux.Router
	engine    *conversation.Engine
	store     *store.Store
	arbiter   *claim.Arbiter
	config    *config.Config
	jwtSecret []byte
}

func New(cfg *config.Config, engine *conversation.Engine, st *store.Store, arbiter *claim.Arbiter) *API {
	api := &API{
		router:    mux.NewRouter(),
		engine:    engine,
		store:     st,
		arbiter:   arbiter,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// WhatsApp Cloud API webhook
	a.router.HandleFunc("/webhook", a.handleWebhookVerify).Methods("GET")
	a.router.HandleFunc("/webhook", a.handleWebhookReceive).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/auth/token", a.handleToken).Methods("POST")
	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/claims", a.handleListClaims).Methods("GET")
	protected.HandleFunc("/conversations", a.handleListConversations).Methods("GET")
	protected.HandleFunc("/claims/{order_id}", a.handleForceRelease).Methods("DELETE")
	protected.HandleFunc("/orders/{order_id}/conversations", a.handleOrderConversations).Methods("GET")
	protected.HandleFunc("/conversations/{user_id}", a.handleDropConversation).Methods("DELETE")
}

// Handler returns the routed handler; exposed for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
