package horizonScan

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventTicketing/internal/http-server/handlers/cron/horizonScan/mocks"
	"eventTicketing/internal/lib/logger/handlers/slogdiscard"
	"eventTicketing/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHorizonScanHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()

	testCases := []struct {
		name           string
		summary        scheduler.ScanSummary
		err            error
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}{
		{
			name: "Partial success",
			summary: scheduler.ScanSummary{
				EventsFound:        2,
				EventsSucceeded:    1,
				RemindersScheduled: 7,
				Errors:             []string{"ev-2: organiser summary: smtp down"},
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"OK"`)
				assert.Contains(t, body, `"events_found":2`)
				assert.Contains(t, body, `"events_succeeded":1`)
				assert.Contains(t, body, `"reminders_scheduled":7`)
				assert.Contains(t, body, "smtp down")
			},
		},
		{
			name:           "Overlapping run",
			err:            scheduler.ErrScanInProgress,
			expectedStatus: http.StatusConflict,
			checkBody: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"status":"Error","error":"scan already in progress"}`, body)
			},
		},
		{
			name:           "Store unavailable",
			err:            errors.New("db down"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scanner := mocks.NewScanner(t)
			scanner.On("HorizonScan", mock.Anything).Return(tc.summary, tc.err)

			rr := httptest.NewRecorder()
			New(logger, scanner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cron/reminders", nil))

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.checkBody != nil {
				tc.checkBody(t, rr.Body.String())
			}
		})
	}
}
