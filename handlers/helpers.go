package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openbaduk/award-system/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: в Decode передан не указатель.
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s URL parameter", param)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Не найдено
	case errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrPlayerNotFound),
		errors.Is(err, services.ErrPrizeNotFound),
		errors.Is(err, services.ErrResultNotFound),
		errors.Is(err, services.ErrAwardNotFound),
		errors.Is(err, services.ErrWinnerPlayerUnknown):
		notFoundResponse(w, r)

	// Конфликты
	case errors.Is(err, services.ErrAllocationInProgress),
		errors.Is(err, services.ErrAwardAlreadyAssigned),
		errors.Is(err, services.ErrResultEventConflict),
		errors.Is(err, services.ErrPlayerEmailConflict),
		errors.Is(err, services.ErrPlayerExternalIDConflict),
		errors.Is(err, services.ErrPrizeInUse),
		errors.Is(err, services.ErrPlayerInUse),
		errors.Is(err, services.ErrEventInUse):
		conflictResponse(w, r, err.Error())

	// Невалидные данные / бизнес-правила
	case errors.Is(err, services.ErrAllocationNotLocked),
		errors.Is(err, services.ErrAllocationFinalized),
		errors.Is(err, services.ErrNoAwardsSubmitted),
		errors.Is(err, services.ErrUnknownAwardSubmitted),
		errors.Is(err, services.ErrUnknownPlayerSubmitted),
		errors.Is(err, services.ErrDuplicateAwardSubmitted),
		errors.Is(err, services.ErrEventTitleRequired),
		errors.Is(err, services.ErrEventInvalidDateRange),
		errors.Is(err, services.ErrPlayerNameRequired),
		errors.Is(err, services.ErrPlayerEmailRequired),
		errors.Is(err, services.ErrPlayerExternalIDRequired),
		errors.Is(err, services.ErrPrizeTitleRequired),
		errors.Is(err, services.ErrPrizeInvalidValue),
		errors.Is(err, services.ErrPrizeInvalidQuantity),
		errors.Is(err, services.ErrWinnerInvalid),
		errors.Is(err, services.ErrPreferenceDuplicateAward),
		errors.Is(err, services.ErrPreferenceUnknownAward),
		errors.Is(err, services.ErrResultFinalizedDelete),
		errors.Is(err, services.ErrResultLockedDelete):
		badRequestResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}
