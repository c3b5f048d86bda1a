package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/places"
	"github.com/reviewlink/reviewlink/review"
)

const msgPlaceIDRequired = "Place ID required"

type autocompleteResponse struct {
	Success     bool                `json:"success"`
	Predictions []places.Prediction `json:"predictions,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type linksResponse struct {
	Success bool          `json:"success"`
	Data    *review.Links `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Resolve handles GET /api/places/resolve?input=...
func (h *PlaceHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.URL.Query().Get("input"))
}

// Details handles GET /api/places/{placeId}. The path value may also be a
// URL encoded link.
func (h *PlaceHandlers) Details(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["placeId"]

	input, err := url.PathUnescape(raw)
	if err != nil {
		input = raw
	}

	h.lookup(w, r, input)
}

func (h *PlaceHandlers) lookup(w http.ResponseWriter, r *http.Request, input string) {
	if strings.TrimSpace(input) == "" {
		renderJSON(w, http.StatusBadRequest, review.Response{Error: msgPlaceIDRequired})

		return
	}

	info, err := h.Deps.Review.ResolveAndLookup(r.Context(), input)

	renderJSON(w, review.StatusCode(err), review.Respond(info, err))
}

// Autocomplete handles GET /api/places/autocomplete?input=...
func (h *PlaceHandlers) Autocomplete(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")

	predictions, err := h.Deps.Places.Autocomplete(r.Context(), input)
	if err != nil {
		h.Deps.Logger.Error("autocomplete failed", zap.String("input", input), zap.Error(err))
		renderJSON(w, http.StatusInternalServerError, autocompleteResponse{Error: "Failed to fetch suggestions"})

		return
	}

	if predictions == nil {
		predictions = []places.Prediction{}
	}

	renderJSON(w, http.StatusOK, autocompleteResponse{Success: true, Predictions: predictions})
}

// Links handles GET /api/links?input=...
func (h *PlaceHandlers) Links(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if strings.TrimSpace(input) == "" {
		renderJSON(w, http.StatusBadRequest, linksResponse{Error: msgPlaceIDRequired})

		return
	}

	links, err := h.Deps.Review.Links(r.Context(), input)
	if err != nil {
		renderJSON(w, review.StatusCode(err), linksResponse{Error: review.Message(err)})

		return
	}

	renderJSON(w, http.StatusOK, linksResponse{Success: true, Data: links})
}

type templatesResponse struct {
	Success   bool              `json:"success"`
	Templates []review.Template `json:"templates"`
}

// Templates handles GET /api/templates?category=...
func (h *PlaceHandlers) Templates(w http.ResponseWriter, r *http.Request) {
	category := review.TemplateCategory(r.URL.Query().Get("category"))

	if category == "" {
		renderJSON(w, http.StatusOK, templatesResponse{Success: true, Templates: review.Templates()})

		return
	}

	if !review.ValidCategory(category) {
		renderError(w, http.StatusBadRequest, "Unknown template category")

		return
	}

	renderJSON(w, http.StatusOK, templatesResponse{Success: true, Templates: review.TemplatesByCategory(category)})
}
