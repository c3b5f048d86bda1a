package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/subscription"
	"github.com/reviewlink/reviewlink/web/auth"
)

type subscriptionStatus struct {
	Status        subscription.Status `json:"status"`
	Plan          subscription.Plan   `json:"plan,omitempty"`
	Active        bool                `json:"active"`
	BusinessLimit int                 `json:"businessLimit"`
}

type subscriptionResponse struct {
	Success bool                `json:"success"`
	Data    *subscriptionStatus `json:"data"`
}

// Subscription handles GET /api/subscription for the authenticated user.
func (h *AccountHandlers) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		renderError(w, http.StatusUnauthorized, "User not authenticated")

		return
	}

	sub, err := h.Deps.Subscriptions.Get(r.Context(), userID)
	if err != nil {
		h.Deps.Logger.Error("failed to get subscription", zap.String("user_id", userID), zap.Error(err))
		renderError(w, http.StatusInternalServerError, "Failed to get subscription status")

		return
	}

	renderJSON(w, http.StatusOK, subscriptionResponse{
		Success: true,
		Data: &subscriptionStatus{
			Status:        sub.Status,
			Plan:          sub.Plan,
			Active:        sub.Active(),
			BusinessLimit: sub.BusinessLimit(),
		},
	})
}
