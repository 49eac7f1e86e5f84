package refund

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventTicketing/internal/http-server/handlers/event/refund/mocks"
	"eventTicketing/internal/lib/logger/handlers/slogdiscard"
	"eventTicketing/internal/models"
	"eventTicketing/internal/refund"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRefundHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	event := &models.Event{ID: "ev-1", OrganiserID: "org-1"}

	amountIs := func(want int64) any {
		return mock.MatchedBy(func(r refund.Request) bool {
			return r.EventID == "ev-1" && r.RegistrationID == "reg-1" && r.Amount != nil && *r.Amount == want
		})
	}

	type testCase struct {
		name           string
		userID         string
		requestBody    string
		mockSetup      func(e *mocks.EventGetter, r *mocks.Refunder)
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}

	testCases := []testCase{
		{
			name:        "Partial refund",
			userID:      "org-1",
			requestBody: `{"amount":"5.00","reason":"requested_by_customer"}`,
			mockSetup: func(e *mocks.EventGetter, r *mocks.Refunder) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(event, nil)
				r.On("Refund", mock.Anything, amountIs(500)).Return(refund.Outcome{RefundID: "re_1", Amount: 500}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"refund_id":"re_1"`)
				assert.Contains(t, body, `"amount":500`)
				assert.Contains(t, body, `"full":false`)
			},
		},
		{
			name:        "Full refund with empty body",
			userID:      "org-1",
			requestBody: ``,
			mockSetup: func(e *mocks.EventGetter, r *mocks.Refunder) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(event, nil)
				r.On("Refund", mock.Anything, mock.MatchedBy(func(r refund.Request) bool {
					return r.Amount == nil
				})).Return(refund.Outcome{
					RefundID:              "re_2",
					Amount:                1000,
					Full:                  true,
					RegistrationCancelled: true,
					Warnings:              []string{"failed to notify payer: smtp down"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"registration_cancelled":true`)
				assert.Contains(t, body, `"warnings":["failed to notify payer: smtp down"]`)
			},
		},
		{
			name:           "Missing identity",
			requestBody:    `{}`,
			mockSetup:      func(e *mocks.EventGetter, r *mocks.Refunder) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:        "Not the organiser",
			userID:      "u-9",
			requestBody: `{}`,
			mockSetup: func(e *mocks.EventGetter, r *mocks.Refunder) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(event, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Negative amount",
			userID:         "org-1",
			requestBody:    `{"amount":"-1"}`,
			mockSetup:      func(e *mocks.EventGetter, r *mocks.Refunder) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Too many decimals",
			userID:         "org-1",
			requestBody:    `{"amount":"5.001"}`,
			mockSetup:      func(e *mocks.EventGetter, r *mocks.Refunder) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			userID:         "org-1",
			requestBody:    `{"amount":`,
			mockSetup:      func(e *mocks.EventGetter, r *mocks.Refunder) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	errorCases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("op: %w", storage.ErrRegistrationNotFound), http.StatusNotFound},
		{refund.ErrAlreadyRefunded, http.StatusConflict},
		{refund.ErrNotRefundable, http.StatusConflict},
		{refund.ErrAmountExceedsRemaining, http.StatusBadRequest},
		{fmt.Errorf("%w: 502", refund.ErrProvider), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, ec := range errorCases {
		ec := ec
		testCases = append(testCases, testCase{
			name:        "Error " + ec.err.Error(),
			userID:      "org-1",
			requestBody: `{"amount":"1"}`,
			mockSetup: func(e *mocks.EventGetter, r *mocks.Refunder) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(event, nil)
				r.On("Refund", mock.Anything, amountIs(100)).Return(refund.Outcome{}, ec.err)
			},
			expectedStatus: ec.status,
		})
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events := mocks.NewEventGetter(t)
			refunds := mocks.NewRefunder(t)
			tc.mockSetup(events, refunds)

			req, err := http.NewRequest(http.MethodPost, "/events/ev-1/registrations/reg-1/refund", bytes.NewBufferString(tc.requestBody))
			require.NoError(t, err)
			if tc.userID != "" {
				req.Header.Set(HeaderUserID, tc.userID)
			}

			router := chi.NewRouter()
			router.Post("/events/{id}/registrations/{registrationID}/refund", New(logger, events, refunds))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.checkBody != nil {
				tc.checkBody(t, rr.Body.String())
			}
		})
	}
}
