package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/gate"
	"github.com/Agastya221/society-gate-backend/internal/model"
	"github.com/Agastya221/society-gate-backend/internal/queue"
	"github.com/Agastya221/society-gate-backend/internal/repository"
	queuepublisher "github.com/Agastya221/society-gate-backend/internal/service"
)

// Redeemer consumes one use of a pass and records the admission.
// Satisfied by *gate.Engine.
type Redeemer interface {
	Redeem(ctx context.Context, secret string, guard gate.Identity) (*gate.RedemptionResult, error)
}

// AutoMatcher evaluates auto-approval for a visitor without a pass.
// Satisfied by *gate.Matcher.
type AutoMatcher interface {
	Match(ctx context.Context, flatID uint64, companyTag string, now time.Time) (string, bool, error)
}

// GuardHandler serves the gate devices: scanning pass QR codes,
// recording manual visitor entries, listing the day's entries and
// stamping checkouts.  JWT and role middleware run before any of
// these; the handler trusts the identity in the context.
type GuardHandler struct {
	Engine  Redeemer
	Matcher AutoMatcher
	Entries *repository.EntryRepo
	Flats   *repository.FlatRepo
}

// NewGuardHandler constructs a GuardHandler.  All dependencies must be
// non-nil.
func NewGuardHandler(engine Redeemer, matcher AutoMatcher, entries *repository.EntryRepo, flats *repository.FlatRepo) *GuardHandler {
	if engine == nil || matcher == nil || entries == nil || flats == nil {
		panic("nil dependency passed to NewGuardHandler")
	}
	return &GuardHandler{Engine: engine, Matcher: matcher, Entries: entries, Flats: flats}
}

type scanReq struct {
	Secret string `json:"secret" validate:"required"`
}

type manualEntryReq struct {
	FlatID       uint64 `json:"flat_id" validate:"required"`
	VisitorName  string `json:"visitor_name" validate:"required"`
	VisitorPhone string `json:"visitor_phone"`
	Purpose      string `json:"purpose"`
	Company      string `json:"company"`
}

// Scan handles POST /v1/guard/scan.  The body carries the QR secret;
// the engine does all validation and the atomic transition.  On
// success it returns 201 with the admission and the remaining uses;
// every engine failure maps to exactly one status code so guard apps
// can branch on it.
func (h *GuardHandler) Scan(c echo.Context) error {
	guard, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.Engine.Redeem(c.Request().Context(), req.Secret, guard)
	if err != nil {
		return scanError(c, err)
	}

	go publishAdmission(res.Entry, res.RemainingUses)

	return c.JSON(http.StatusCreated, echo.Map{
		"entry":          res.Entry,
		"remaining_uses": res.RemainingUses,
	})
}

// scanError translates the gate error taxonomy to HTTP.  Transient
// storage contention gets 503 with Retry-After so devices back off
// before retrying; everything else is a final business answer.
func scanError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, gate.ErrPassNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, gate.ErrTenantMismatch):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, gate.ErrInvalidState), errors.Is(err, gate.ErrQuotaExhausted):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, gate.ErrNotYetValid):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, gate.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, gate.ErrTransient):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan failed"})
}

// CreateEntry handles POST /v1/guard/entries for visitors arriving
// without a pass.  The matcher runs first; a match admits the visitor
// immediately with the reason recorded, otherwise the entry is created
// PENDING for the resident to resolve.
func (h *GuardHandler) CreateEntry(c echo.Context) error {
	guard, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req manualEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	societyID, err := h.Flats.SocietyOf(ctx, req.FlatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "flat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if societyID != guard.SocietyID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "flat belongs to another society"})
	}

	now := time.Now().UTC()
	reason, matched, err := h.Matcher.Match(ctx, req.FlatID, req.Company, now)
	if err != nil {
		if errors.Is(err, gate.ErrTransient) {
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "match failed"})
	}

	entry := &model.Entry{
		SocietyID:    guard.SocietyID,
		FlatID:       req.FlatID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
		Status:       model.EntryStatusPending,
		GuardID:      guard.UserID,
		CheckInAt:    now,
	}
	if matched {
		entry.Status = model.EntryStatusAdmitted
		entry.AutoApproved = true
		entry.ApprovalReason = reason
	}
	if err := h.Entries.Create(ctx, entry); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create entry"})
	}

	if matched {
		go publishAdmission(entry, 0)
	}
	return c.JSON(http.StatusCreated, echo.Map{"entry": entry})
}

// ListEntries handles GET /v1/guard/entries.  It returns the society's
// entries since midnight UTC, or since the RFC3339 timestamp in the
// optional ?since query parameter.
func (h *GuardHandler) ListEntries(c echo.Context) error {
	guard, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	since := time.Now().UTC().Truncate(24 * time.Hour)
	if s := c.QueryParam("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since parameter"})
		}
		since = t.UTC()
	}
	entries, err := h.Entries.ListBySociety(c.Request().Context(), guard.SocietyID, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

// Checkout handles POST /v1/guard/entries/:id/checkout.  It stamps the
// checkout time; the originating pass is never touched.
func (h *GuardHandler) Checkout(c echo.Context) error {
	guard, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Entries.Checkout(c.Request().Context(), id, guard.SocietyID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry not admitted or already checked out"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// publishAdmission emits the entry.admitted event.  Failures are
// logged inside the publisher and never affect the request.
func publishAdmission(e *model.Entry, remaining uint32) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = queuepublisher.PublishEntryAdmitted(ctx, queue.NewEntryAdmittedEvent(e, remaining))
}
