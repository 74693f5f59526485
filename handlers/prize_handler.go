package handlers

import (
	"errors"
	"net/http"

	"github.com/openbaduk/award-system/services"
)

const maxPhotoSize = 10 << 20 // 10MB

type PrizeHandler struct {
	prizeService services.PrizeService
}

func NewPrizeHandler(ps services.PrizeService) *PrizeHandler {
	return &PrizeHandler{prizeService: ps}
}

// CreateHandler обрабатывает POST /prizes
func (h *PrizeHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePrizeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prize, err := h.prizeService.CreatePrize(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"prize": prize}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /prizes/{prizeID}
func (h *PrizeHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "prizeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prize, err := h.prizeService.GetPrizeByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /prizes
func (h *PrizeHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	prizes, err := h.prizeService.ListPrizes(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prizes": prizes}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /prizes/{prizeID}
func (h *PrizeHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "prizeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdatePrizeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prize, err := h.prizeService.UpdatePrize(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /prizes/{prizeID}
func (h *PrizeHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "prizeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.prizeService.DeletePrize(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhotoHandler обрабатывает POST /prizes/{prizeID}/photo
// (multipart/form-data, поле "photo").
func (h *PrizeHandler) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "prizeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	prize, err := h.prizeService.UploadPhoto(r.Context(), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize": prize}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
