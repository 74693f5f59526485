package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbaduk/award-system/models"
	"github.com/openbaduk/award-system/services"
)

type stubAllocationService struct {
	proposal *services.AllocationProposal
	result   *models.Result
	err      error

	finalizedWith []models.ResultAward
}

func (s *stubAllocationService) GetRecommendations(ctx context.Context, resultID int) (*services.AllocationProposal, error) {
	return s.proposal, s.err
}

func (s *stubAllocationService) Finalize(ctx context.Context, resultID int, awards []models.ResultAward) (*models.Result, error) {
	s.finalizedWith = awards
	return s.result, s.err
}

func (s *stubAllocationService) Deallocate(ctx context.Context, resultID int) (*services.AllocationProposal, error) {
	return s.proposal, s.err
}

type stubResultService struct {
	result *models.Result
	err    error
}

func (s *stubResultService) CreateResult(ctx context.Context, input services.CreateResultInput) (*models.Result, error) {
	return s.result, s.err
}

func (s *stubResultService) GetResultByID(ctx context.Context, id int) (*models.Result, error) {
	return s.result, s.err
}

func (s *stubResultService) ListResults(ctx context.Context, limit, offset int) ([]models.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Result{*s.result}, nil
}

func (s *stubResultService) ReplaceWinners(ctx context.Context, id int, winners []models.Winner) (*models.Result, error) {
	return s.result, s.err
}

func (s *stubResultService) DeleteResult(ctx context.Context, id int) error {
	return s.err
}

func newResultRouter(rs services.ResultService, as services.AllocationService) http.Handler {
	h := NewResultHandler(rs, as)
	r := chi.NewRouter()
	r.Route("/results", func(r chi.Router) {
		r.Get("/{resultID}", h.GetByIDHandler)
		r.Route("/{resultID}/allocateAwards", func(r chi.Router) {
			r.Get("/", h.AllocateHandler)
			r.Post("/", h.FinalizeHandler)
		})
		r.Get("/{resultID}/deallocateAwards", h.DeallocateHandler)
	})
	return r
}

func TestResultHandler_AllocateHandler(t *testing.T) {
	t.Run("returns proposal", func(t *testing.T) {
		stub := &stubAllocationService{
			proposal: &services.AllocationProposal{
				Recommendations: models.ResultAwardList{
					{PlayerID: 101, AwardID: 10, Kind: models.AllocationKindPreference},
				},
				Locked: true,
			},
		}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/1/allocateAwards", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got services.AllocationProposal
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Locked)
		require.Len(t, got.Recommendations, 1)
		assert.Equal(t, 10, got.Recommendations[0].AwardID)
	})

	t.Run("busy lock maps to 409", func(t *testing.T) {
		stub := &stubAllocationService{err: services.ErrAllocationInProgress}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/1/allocateAwards", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown winner maps to 404", func(t *testing.T) {
		stub := &stubAllocationService{err: services.ErrWinnerPlayerUnknown}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/1/allocateAwards", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		router := newResultRouter(&stubResultService{}, &stubAllocationService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/abc/allocateAwards", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResultHandler_FinalizeHandler(t *testing.T) {
	t.Run("passes submitted awards through", func(t *testing.T) {
		now := time.Now()
		stub := &stubAllocationService{
			result: &models.Result{ID: 1, EventID: 1, AllocationFinalizedAt: &now},
		}
		router := newResultRouter(&stubResultService{}, stub)

		body := `{"awards":[{"player_id":101,"award_id":10,"allocation_kind":"PREFERENCE"}]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, stub.finalizedWith, 1)
		assert.Equal(t, 101, stub.finalizedWith[0].PlayerID)
		assert.Equal(t, models.AllocationKindPreference, stub.finalizedWith[0].Kind)
	})

	t.Run("unlocked allocation maps to 400", func(t *testing.T) {
		stub := &stubAllocationService{err: services.ErrAllocationNotLocked}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(`{"awards":[]}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already owned award maps to 409", func(t *testing.T) {
		stub := &stubAllocationService{err: services.ErrAwardAlreadyAssigned}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(`{"awards":[{"player_id":1,"award_id":1}]}`)))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("duplicate award submission maps to 400", func(t *testing.T) {
		stub := &stubAllocationService{err: services.ErrDuplicateAwardSubmitted}
		router := newResultRouter(&stubResultService{}, stub)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(`{"awards":[]}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newResultRouter(&stubResultService{}, &stubAllocationService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(`{"awards":`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown body key rejected", func(t *testing.T) {
		router := newResultRouter(&stubResultService{}, &stubAllocationService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/results/1/allocateAwards", strings.NewReader(`{"extra":1}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResultHandler_DeallocateHandler(t *testing.T) {
	stub := &stubAllocationService{
		proposal: &services.AllocationProposal{Recommendations: models.ResultAwardList{}},
	}
	router := newResultRouter(&stubResultService{}, stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/1/deallocateAwards", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got services.AllocationProposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Locked)
	assert.NotNil(t, got.Recommendations)
}

func TestResultHandler_GetByIDHandler(t *testing.T) {
	t.Run("includes allocation state", func(t *testing.T) {
		now := time.Now()
		rs := &stubResultService{result: &models.Result{ID: 1, EventID: 1, AllocationLockedAt: &now}}
		router := newResultRouter(rs, &stubAllocationService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var envelope struct {
			AllocationState models.AllocationState `json:"allocation_state"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, models.AllocationStateLocked, envelope.AllocationState)
	})

	t.Run("missing result", func(t *testing.T) {
		rs := &stubResultService{err: services.ErrResultNotFound}
		router := newResultRouter(rs, &stubAllocationService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/7", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
