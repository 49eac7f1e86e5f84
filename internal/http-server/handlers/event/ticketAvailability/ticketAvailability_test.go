package ticketAvailability

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventTicketing/internal/http-server/handlers/event/ticketAvailability/mocks"
	"eventTicketing/internal/lib/logger/handlers/slogdiscard"
	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTicketAvailabilityHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()

	testCases := []struct {
		name           string
		mockSetup      func(e *mocks.EventGetter, l *mocks.Ledger)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Success",
			mockSetup: func(e *mocks.EventGetter, l *mocks.Ledger) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(&models.Event{ID: "ev-1"}, nil)
				l.On("EventAvailability", mock.Anything, "ev-1").Return([]models.Availability{
					{TierID: "t-1", Name: "Early bird", Price: 500, Currency: "gbp", Sold: 10, Remaining: 0, Status: models.TicketSoldOut},
					{TierID: "t-2", Name: "Standard", Price: 800, Currency: "gbp", Sold: 3, Remaining: -1, Unlimited: true, Status: models.TicketAvailable},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","event_id":"ev-1","tickets":[
				{"tier_id":"t-1","name":"Early bird","price":500,"currency":"gbp","sold":10,"remaining":0,"unlimited":false,"status":"sold_out"},
				{"tier_id":"t-2","name":"Standard","price":800,"currency":"gbp","sold":3,"remaining":-1,"unlimited":true,"status":"available"}
			]}`,
		},
		{
			name: "No tiers",
			mockSetup: func(e *mocks.EventGetter, l *mocks.Ledger) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(&models.Event{ID: "ev-1"}, nil)
				l.On("EventAvailability", mock.Anything, "ev-1").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","event_id":"ev-1","tickets":[]}`,
		},
		{
			name: "Event not found",
			mockSetup: func(e *mocks.EventGetter, l *mocks.Ledger) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(nil, fmt.Errorf("op: %w", storage.ErrEventNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"event not found"}`,
		},
		{
			name: "Ledger failure",
			mockSetup: func(e *mocks.EventGetter, l *mocks.Ledger) {
				e.On("GetEvent", mock.Anything, "ev-1").Return(&models.Event{ID: "ev-1"}, nil)
				l.On("EventAvailability", mock.Anything, "ev-1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to get ticket availability"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events := mocks.NewEventGetter(t)
			ledger := mocks.NewLedger(t)
			tc.mockSetup(events, ledger)

			router := chi.NewRouter()
			router.Get("/events/{id}/tickets", New(logger, events, ledger))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/ev-1/tickets", nil))

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}
