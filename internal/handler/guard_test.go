package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agastya221/society-gate-backend/internal/gate"
	"github.com/Agastya221/society-gate-backend/internal/middleware"
	"github.com/Agastya221/society-gate-backend/internal/model"
	"github.com/Agastya221/society-gate-backend/internal/repository"
)

type stubRedeemer struct {
	res *gate.RedemptionResult
	err error
}

func (s *stubRedeemer) Redeem(ctx context.Context, secret string, guard gate.Identity) (*gate.RedemptionResult, error) {
	return s.res, s.err
}

type stubMatcher struct {
	reason  string
	matched bool
	err     error
}

func (s *stubMatcher) Match(ctx context.Context, flatID uint64, companyTag string, now time.Time) (string, bool, error) {
	return s.reason, s.matched, s.err
}

func guardContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(9))
	c.Set(middleware.CtxRole, model.RoleGuard)
	c.Set(middleware.CtxSocietyID, uint64(1))
	return c, rec
}

func TestScanSuccess(t *testing.T) {
	passID := uint64(1)
	entry := &model.Entry{
		ID: 5, SocietyID: 1, FlatID: 7, PassID: &passID,
		VisitorName: "Ravi Kumar", Status: model.EntryStatusAdmitted,
		GuardID: 9, ApprovalReason: "Pre-approval pass",
		CheckInAt: time.Now().UTC(),
	}
	h := &GuardHandler{Engine: &stubRedeemer{res: &gate.RedemptionResult{Entry: entry, RemainingUses: 2}}}

	c, rec := guardContext(t, http.MethodPost, "/v1/guard/scan", `{"secret":"s3cret"}`)
	require.NoError(t, h.Scan(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"remaining_uses":2`)
	assert.Contains(t, rec.Body.String(), `"Pre-approval pass"`)
}

func TestScanErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", gate.ErrPassNotFound, http.StatusNotFound},
		{"tenant mismatch", gate.ErrTenantMismatch, http.StatusForbidden},
		{"invalid state", fmt.Errorf("%w: pass was cancelled", gate.ErrInvalidState), http.StatusConflict},
		{"quota exhausted", gate.ErrQuotaExhausted, http.StatusConflict},
		{"not yet valid", gate.ErrNotYetValid, http.StatusUnprocessableEntity},
		{"expired", gate.ErrExpired, http.StatusGone},
		{"transient", fmt.Errorf("%w: deadlock", gate.ErrTransient), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &GuardHandler{Engine: &stubRedeemer{err: tc.err}}
			c, rec := guardContext(t, http.MethodPost, "/v1/guard/scan", `{"secret":"s3cret"}`)
			require.NoError(t, h.Scan(c))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestScanMissingSecret(t *testing.T) {
	h := &GuardHandler{Engine: &stubRedeemer{}}
	c, _ := guardContext(t, http.MethodPost, "/v1/guard/scan", `{}`)
	err := h.Scan(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func newEntryFlatRepos(t *testing.T) (*repository.EntryRepo, *repository.FlatRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewEntryRepo(db), repository.NewFlatRepo(db), mock
}

func TestCreateEntryAutoApproved(t *testing.T) {
	entries, flats, mock := newEntryFlatRepos(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT society_id FROM flats WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"society_id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	h := &GuardHandler{
		Matcher: &stubMatcher{reason: model.ReasonExpectedDelivery, matched: true},
		Entries: entries,
		Flats:   flats,
	}
	body := `{"flat_id":7,"visitor_name":"Courier","company":"Amazon"}`
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/entries", body)
	require.NoError(t, h.CreateEntry(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ADMITTED"`)
	assert.Contains(t, rec.Body.String(), `"auto_approved":true`)
	assert.Contains(t, rec.Body.String(), `"Expected delivery"`)
}

func TestCreateEntryPendingWithoutMatch(t *testing.T) {
	entries, flats, mock := newEntryFlatRepos(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT society_id FROM flats WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"society_id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	h := &GuardHandler{
		Matcher: &stubMatcher{},
		Entries: entries,
		Flats:   flats,
	}
	body := `{"flat_id":7,"visitor_name":"Stranger"}`
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/entries", body)
	require.NoError(t, h.CreateEntry(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)
	assert.Contains(t, rec.Body.String(), `"auto_approved":false`)
}

func TestCreateEntryForeignFlatRejected(t *testing.T) {
	entries, flats, mock := newEntryFlatRepos(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT society_id FROM flats WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"society_id"}).AddRow(2))

	h := &GuardHandler{Matcher: &stubMatcher{}, Entries: entries, Flats: flats}
	body := `{"flat_id":7,"visitor_name":"Stranger"}`
	c, rec := guardContext(t, http.MethodPost, "/v1/guard/entries", body)
	require.NoError(t, h.CreateEntry(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
