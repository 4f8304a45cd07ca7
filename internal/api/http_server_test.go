package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rentbook/internal/config"
	"rentbook/internal/domain"
	"rentbook/internal/models"
	"rentbook/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Pagination *pagination     `json:"pagination"`
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, MaxBodyBytes: 1 << 20},
	}
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig, svc BookingAPI) (*HTTPServer, *security.TokenManager) {
	t.Helper()
	tokens := security.NewTokenManager(testSecret, "rentbook", "arbiter", time.Hour)
	srv := NewHTTPServer(cfg, svc, tokens, nil)
	srv.now = func() time.Time { return time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC) }
	return srv, tokens
}

func tokenFor(t *testing.T, tokens *security.TokenManager, userID string, roles ...string) string {
	t.Helper()
	tok, err := tokens.GenerateAccessToken(userID, roles)
	require.NoError(t, err)
	return tok
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func sampleBooking(status models.BookingStatus) *models.Booking {
	return &models.Booking{
		ID:          "b-1",
		ItemID:      "cam-1",
		RenterID:    "renter-1",
		OwnerID:     "owner-1",
		StartDate:   time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2030, 3, 12, 0, 0, 0, 0, time.UTC),
		TotalDays:   2,
		TotalAmount: 200,
		Status:      status,
		Version:     1,
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestHTTPServer(t, testAPIConfig(), new(mockBookings))
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestReadyz(t *testing.T) {
	svc := new(mockBookings)
	svc.On("Ping", mock.Anything).Return(nil).Once()
	svc.On("Ping", mock.Anything).Return(assert.AnError).Once()
	srv, _ := newTestHTTPServer(t, testAPIConfig(), svc)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, codeUnavailable, decodeResponse(t, rec).Error)
}

func TestAuthRequired(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, security.ErrInvalidToken.Error(), decodeResponse(t, rec).Message)

	other := security.NewTokenManager("other-secret", "rentbook", "arbiter", time.Hour)
	rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", tokenFor(t, other, "renter-1"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything, mock.Anything)

	svc.On("GetBooking", mock.Anything, "b-1", models.Actor{UserID: "renter-1"}).Return(sampleBooking(models.StatusPending), nil)
	rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", tokenFor(t, tokens, "renter-1"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArbiterRoleFromToken(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)

	arbiter := models.Actor{UserID: "judge", IsArbiter: true}
	svc.On("GetBooking", mock.Anything, "b-1", arbiter).Return(sampleBooking(models.StatusDisputed), nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", tokenFor(t, tokens, "judge", "arbiter"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateBooking(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "renter-1")

	amount := int64(250)
	want := domain.CreateBookingInput{
		ItemID:       "cam-1",
		RenterID:     "renter-1",
		StartDate:    time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2030, 3, 12, 0, 0, 0, 0, time.UTC),
		ClientAmount: &amount,
		Notes:        "handle with care",
	}
	svc.On("CreateBooking", mock.Anything, want).Return(sampleBooking(models.StatusPending), nil)

	body := `{"item_id":"cam-1","start_date":"2030-03-10","end_date":"2030-03-12","total_amount":250,"notes":"handle with care"}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bookings", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	var got models.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "b-1", got.ID)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCreateBooking_BadRequests(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "renter-1")

	cases := map[string]string{
		"empty body":     "",
		"not json":       "{",
		"unknown field":  `{"item_id":"cam-1","start_date":"2030-03-10","end_date":"2030-03-12","owner_id":"x"}`,
		"missing item":   `{"start_date":"2030-03-10","end_date":"2030-03-12"}`,
		"bad date":       `{"item_id":"cam-1","start_date":"10/03/2030","end_date":"2030-03-12"}`,
		"end before":     `{"item_id":"cam-1","start_date":"2030-03-12","end_date":"2030-03-10"}`,
		"negative total": `{"item_id":"cam-1","start_date":"2030-03-10","end_date":"2030-03-12","total_amount":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, srv.Handler(), http.MethodPost, "/bookings", token, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, codeValidation, decodeResponse(t, rec).Error)
		})
	}
	svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_BodyLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.HTTP.MaxBodyBytes = 16
	srv, tokens := newTestHTTPServer(t, cfg, new(mockBookings))

	body := `{"item_id":"cam-1","start_date":"2030-03-10","end_date":"2030-03-12"}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bookings", tokenFor(t, tokens, "renter-1"), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_Conflict(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)

	conflict := &models.Conflict{
		BookingID: "b-0",
		StartDate: time.Date(2030, 3, 9, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 3, 11, 0, 0, 0, 0, time.UTC),
		Status:    models.StatusConfirmed,
	}
	svc.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, domain.NewDateConflictError("cam-1", conflict, models.DateRange{}))

	body := `{"item_id":"cam-1","start_date":"2030-03-10","end_date":"2030-03-12"}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bookings", tokenFor(t, tokens, "renter-2"), body)
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, codeDateConflict, resp.Error)

	var details struct {
		ItemID   string `json:"item_id"`
		Conflict struct {
			StartDate time.Time `json:"start_date"`
			EndDate   time.Time `json:"end_date"`
			Status    string    `json:"status"`
			BookingID string    `json:"booking_id"`
		} `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &details))
	assert.Equal(t, "cam-1", details.ItemID)
	assert.Equal(t, "confirmed", details.Conflict.Status)
	assert.True(t, details.Conflict.StartDate.Equal(conflict.StartDate))
	assert.Empty(t, details.Conflict.BookingID, "other renters' booking ids are not exposed")
}

func TestTransitionRoutes(t *testing.T) {
	owner := models.Actor{UserID: "owner-1"}

	tests := []struct {
		name   string
		path   string
		body   string
		target models.BookingStatus
		notes  string
	}{
		{"confirm without body", "/bookings/b-1/confirm", "", models.StatusConfirmed, ""},
		{"start", "/bookings/b-1/start", `{}`, models.StatusActive, ""},
		{"complete", "/bookings/b-1/complete", `{"notes":"returned"}`, models.StatusCompleted, "returned"},
		{"cancel", "/bookings/b-1/cancel", `{"notes":"no show"}`, models.StatusCancelled, "no show"},
		{"dispute", "/bookings/b-1/dispute", "", models.StatusDisputed, ""},
		{"generic status", "/bookings/b-1/status", `{"status":"confirmed","notes":"ok"}`, models.StatusConfirmed, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockBookings)
			srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
			svc.On("Transition", mock.Anything, "b-1", owner, tt.target, tt.notes).Return(sampleBooking(tt.target), nil)

			rec := doRequest(t, srv.Handler(), http.MethodPut, tt.path, tokenFor(t, tokens, "owner-1"), tt.body)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestTransitionRoutes_Errors(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "renter-1")

	rec := doRequest(t, srv.Handler(), http.MethodPut, "/bookings/b-1/status", token, `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPut, "/bookings/b-1/archive", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.On("Transition", mock.Anything, "b-1", mock.Anything, models.StatusConfirmed, "").
		Return(nil, fmt.Errorf("%w: owner only", domain.ErrNotAuthorized)).Once()
	rec = doRequest(t, srv.Handler(), http.MethodPut, "/bookings/b-1/confirm", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ErrNotAuthorized.Error(), decodeResponse(t, rec).Message)

	svc.On("Transition", mock.Anything, "b-1", mock.Anything, models.StatusActive, "").
		Return(nil, fmt.Errorf("%w: pending -> active", domain.ErrInvalidTransition)).Once()
	rec = doRequest(t, srv.Handler(), http.MethodPut, "/bookings/b-1/start", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.On("Transition", mock.Anything, "b-1", mock.Anything, models.StatusCancelled, "").
		Return(nil, domain.ErrConcurrentModification).Once()
	rec = doRequest(t, srv.Handler(), http.MethodPut, "/bookings/b-1/cancel", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeConcurrent, decodeResponse(t, rec).Error)
}

func TestRate(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	renter := models.Actor{UserID: "renter-1"}
	token := tokenFor(t, tokens, "renter-1")

	rated := sampleBooking(models.StatusCompleted)
	five := 5
	rated.Rating = &five
	svc.On("Rate", mock.Anything, "b-1", renter, 5, "great").Return(rated, nil).Once()
	svc.On("Rate", mock.Anything, "b-1", renter, 7, "").Return(nil, domain.ErrInvalidRatingValue).Once()
	svc.On("Rate", mock.Anything, "b-1", renter, 4, "").Return(nil, domain.ErrAlreadyRated).Once()
	svc.On("Rate", mock.Anything, "b-1", renter, 3, "").Return(nil, domain.ErrNotCompleted).Once()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bookings/b-1/rating", token, `{"rating":5,"feedback":"great"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/bookings/b-1/rating", token, `{"rating":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/bookings/b-1/rating", token, `{"rating":4}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeAlreadyRated, decodeResponse(t, rec).Error)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/bookings/b-1/rating", token, `{"rating":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/bookings/b-1/rating", token, `{"feedback":"no score"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestListMyBookings(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "owner-1")

	filter := models.BookingFilter{
		UserID:      "owner-1",
		Perspective: models.PerspectiveOwner,
		Status:      models.StatusPending,
		Limit:       5,
		Offset:      5,
	}
	svc.On("ListBookings", mock.Anything, filter).
		Return([]*models.Booking{sampleBooking(models.StatusPending)}, 12, nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/my?role=owner&status=pending&page=2&limit=5", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, pagination{Page: 2, Limit: 5, Total: 12, TotalPages: 3}, *resp.Pagination)

	var list []models.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
	svc.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMyBookings_Defaults(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "renter-1")

	svc.On("ListBookings", mock.Anything, models.BookingFilter{
		UserID:      "renter-1",
		Perspective: models.PerspectiveBoth,
		Limit:       models.MaxPageSize,
	}).Return(nil, 0, nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/my?limit=1000", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeResponse(t, rec).Data))

	for _, q := range []string{"role=landlord", "status=archived", "page=0", "limit=abc"} {
		rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/my?"+q, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestMyStats(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)

	stats := &models.BookingStats{
		UserID:      "renter-1",
		Perspective: models.PerspectiveRenter,
		Total:       3,
		ByStatus:    map[models.BookingStatus]int{models.StatusPending: 1, models.StatusCompleted: 2},
	}
	svc.On("GetStats", mock.Anything, "renter-1", models.PerspectiveRenter).Return(stats, nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/my/stats?role=renter", tokenFor(t, tokens, "renter-1"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.BookingStats
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.ByStatus[models.StatusCompleted])
}

func TestExportMyBookings(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)

	svc.On("ExportBookings", mock.Anything, "renter-1", models.PerspectiveBoth).
		Return([]*models.Booking{sampleBooking(models.StatusCompleted)}, nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/my/export", tokenFor(t, tokens, "renter-1"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings_20300301.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestAvailabilityAndQuote(t *testing.T) {
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, testAPIConfig(), svc)
	token := tokenFor(t, tokens, "renter-1")

	rng := models.DateRange{
		Start: time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2030, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	svc.On("CheckAvailability", mock.Anything, "cam-1", rng, "b-1").
		Return(&models.Availability{ItemID: "cam-1", StartDate: rng.Start, EndDate: rng.End, Available: true}, nil)
	svc.On("Quote", mock.Anything, "cam-1", rng).
		Return(&models.Quote{ItemID: "cam-1", StartDate: rng.Start, EndDate: rng.End, TotalDays: 2, TotalAmount: 200}, nil)
	svc.On("Quote", mock.Anything, "missing", rng).Return(nil, domain.ErrNotFound)

	rec := doRequest(t, srv.Handler(), http.MethodGet,
		"/items/cam-1/availability?start_date=2030-03-10&end_date=2030-03-12&exclude_booking_id=b-1", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var avail models.Availability
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &avail))
	assert.True(t, avail.Available)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/items/cam-1/quote?start_date=2030-03-10&end_date=2030-03-12", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote models.Quote
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &quote))
	assert.Equal(t, int64(200), quote.TotalAmount)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/items/missing/quote?start_date=2030-03-10&end_date=2030-03-12", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/items/cam-1/availability?start_date=2030-03-10", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	svc := new(mockBookings)
	srv, tokens := newTestHTTPServer(t, cfg, svc)
	svc.On("GetBooking", mock.Anything, "b-1", mock.Anything).Return(sampleBooking(models.StatusPending), nil)

	alice := tokenFor(t, tokens, "renter-1")
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", alice, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", alice, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/bookings/b-1", tokenFor(t, tokens, "owner-1"), "")
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per user")
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validationf("bad"), http.StatusBadRequest, codeValidation},
		{domain.ErrInvalidRatingValue, http.StatusBadRequest, codeValidation},
		{domain.ErrUnauthenticated, http.StatusUnauthorized, codeUnauthorized},
		{fmt.Errorf("%w: not a party", domain.ErrNotAuthorized), http.StatusForbidden, codeForbidden},
		{fmt.Errorf("booking b-9: %w", domain.ErrNotFound), http.StatusNotFound, codeNotFound},
		{domain.NewDateConflictError("cam-1", nil, models.DateRange{}), http.StatusConflict, codeDateConflict},
		{domain.ErrConcurrentModification, http.StatusConflict, codeConcurrent},
		{domain.ErrAlreadyRated, http.StatusConflict, codeAlreadyRated},
		{domain.ErrInvalidTransition, http.StatusUnprocessableEntity, codeInvalidStatus},
		{domain.ErrNotCompleted, http.StatusUnprocessableEntity, codeNotCompleted},
		{domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited},
		{assert.AnError, http.StatusInternalServerError, codeInternal},
	}

	srv, _ := newTestHTTPServer(t, testAPIConfig(), new(mockBookings))
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, srv.logger, tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())

		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, tt.code, resp.Error)
	}

	rec := httptest.NewRecorder()
	writeServiceError(rec, srv.logger, fmt.Errorf("%w: booking b-1 owned by owner-1", domain.ErrNotFound))
	assert.Equal(t, "not found", decodeResponse(t, rec).Message, "not-found details are not leaked")

	rec = httptest.NewRecorder()
	writeServiceError(rec, srv.logger, fmt.Errorf("db path /var/lib/x: %w", assert.AnError))
	assert.Equal(t, "internal server error", decodeResponse(t, rec).Message)
}

func TestPageParams(t *testing.T) {
	page, limit, err := pageParams("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, models.DefaultPageSize, limit)

	_, limit, err = pageParams("3", "0")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPageSize, limit)

	_, _, err = pageParams("-1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 0, newPagination(1, 20, 0).TotalPages)
	assert.Equal(t, 1, newPagination(1, 20, 20).TotalPages)
	assert.Equal(t, 2, newPagination(1, 20, 21).TotalPages)
}
