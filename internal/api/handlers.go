package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ecristovao/pagbot/internal/conversation"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Protected handlers

func (a *API) handleListClaims(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.arbiter.Snapshot())
}

// handleForceRelease frees a stuck order claim so another guest can pay.
// The previous holder's conversation is dropped with it: a conversation
// without the claim could double-settle the order.
func (a *API) handleForceRelease(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	userID, held := a.arbiter.ForceRelease(orderID)
	if held {
		if err := a.store.Delete(r.Context(), userID); err != nil {
			http.Error(w, "failed to drop holder conversation", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"order_id": orderID,
		"released": held,
		"user_id":  userID,
	})
}

type conversationSummary struct {
	UserID      string    `json:"user_id"`
	OrderID     string    `json:"order_id"`
	CurrentStep string    `json:"current_step"`
	UserAmount  string    `json:"user_amount"`
	PaidTotal   string    `json:"paid_total"`
	Proofs      int       `json:"proofs"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *API) handleListConversations(w http.ResponseWriter, r *http.Request) {
	states, err := a.store.ListActive(r.Context())
	if err != nil {
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	writeSummaries(w, states)
}

func (a *API) handleOrderConversations(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	states, err := a.store.ListByOrder(r.Context(), orderID)
	if err != nil {
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	writeSummaries(w, states)
}

func writeSummaries(w http.ResponseWriter, states []*conversation.State) {
	out := make([]conversationSummary, 0, len(states))
	for _, st := range states {
		out = append(out, conversationSummary{
			UserID:      st.UserID,
			OrderID:     st.OrderID,
			CurrentStep: string(st.CurrentStep),
			UserAmount:  st.UserAmount.StringFixed(2),
			PaidTotal:   st.PaidTotal.StringFixed(2),
			Proofs:      len(st.PaymentProofs),
			UpdatedAt:   st.UpdatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (a *API) handleDropConversation(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	st, err := a.store.Load(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	if st.OrderID != "" {
		a.arbiter.Release(st.OrderID, userID)
	}
	if err := a.store.Delete(r.Context(), userID); err != nil {
		http.Error(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
