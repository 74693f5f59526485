package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/services"
)

type ResultHandler struct {
	resultService     services.ResultService
	allocationService services.AllocationService
}

func NewResultHandler(rs services.ResultService, as services.AllocationService) *ResultHandler {
	return &ResultHandler{
		resultService:     rs,
		allocationService: as,
	}
}

// CreateHandler обрабатывает POST /results
func (h *ResultHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.resultService.CreateResult(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /results/{resultID}
func (h *ResultHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.resultService.GetResultByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"result":           result,
		"allocation_state": result.AllocationState(),
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /results
func (h *ResultHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := 0, 0
	query := r.URL.Query()
	if limitStr := query.Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
			limit = v
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	results, err := h.resultService.ListResults(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReplaceWinnersHandler обрабатывает PUT /results/{resultID}/winners
func (h *ResultHandler) ReplaceWinnersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Winners []models.Winner `json:"winners"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.resultService.ReplaceWinners(r.Context(), id, input.Winners)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /results/{resultID}
func (h *ResultHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.resultService.DeleteResult(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AllocateHandler обрабатывает GET /results/{resultID}/allocateAwards:
// захватывает блокировку и возвращает рекомендации.
func (h *ResultHandler) AllocateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	proposal, err := h.allocationService.GetRecommendations(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, proposal, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FinalizeHandler обрабатывает POST /results/{resultID}/allocateAwards:
// фиксирует присланный оператором список назначений.
func (h *ResultHandler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Awards []models.ResultAward `json:"awards"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.allocationService.Finalize(r.Context(), id, input.Awards)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeallocateHandler обрабатывает GET /results/{resultID}/deallocateAwards:
// освобождает награды и снимает блокировку. Идемпотентен.
func (h *ResultHandler) DeallocateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	proposal, err := h.allocationService.Deallocate(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, proposal, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
