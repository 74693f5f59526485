package handlers

import (
	"net/http"

	"github.com/openbaduk/award-system/services"
)

type PreferenceHandler struct {
	preferenceService services.PreferenceService
}

func NewPreferenceHandler(ps services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: ps}
}

// ListHandler обрабатывает GET /players/{playerID}/preferences
func (h *PreferenceHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prefs, err := h.preferenceService.ListPreferences(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"preferences": prefs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReplaceHandler обрабатывает PUT /players/{playerID}/preferences:
// заменяет весь список предпочтений игрока на присланный.
func (h *PreferenceHandler) ReplaceHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		AwardIDs []int `json:"award_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prefs, err := h.preferenceService.ReplacePreferences(r.Context(), playerID, input.AwardIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"preferences": prefs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
