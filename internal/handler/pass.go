package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/model"
	"github.com/Agastya221/society-gate-backend/internal/repository"
	"github.com/Agastya221/society-gate-backend/internal/utils"
)

// maxPassWindow caps how far in the future a resident can keep a pass
// valid.  Longer standing arrangements belong in auto-approve rules.
const maxPassWindow = 30 * 24 * time.Hour

// PassHandler serves the resident surface: issuing pre-approvals,
// requesting gate passes, expected deliveries, auto-approve rules and
// resolving pending manual entries for the resident's flat.
type PassHandler struct {
	Passes     *repository.PassRepo
	Rules      *repository.RuleRepo
	Deliveries *repository.DeliveryRepo
	Entries    *repository.EntryRepo
	Users      *repository.UserRepo
}

func NewPassHandler(p *repository.PassRepo, r *repository.RuleRepo, d *repository.DeliveryRepo, e *repository.EntryRepo, u *repository.UserRepo) *PassHandler {
	return &PassHandler{Passes: p, Rules: r, Deliveries: d, Entries: e, Users: u}
}

// residentFlat resolves the caller's flat from the users table.  The
// access token carries user and society but not the flat, so resident
// endpoints pay one indexed lookup per request.
func (h *PassHandler) residentFlat(c echo.Context) (uint64, error) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, err
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return 0, err
	}
	if u.FlatID == nil || *u.FlatID == 0 {
		return 0, errors.New("no flat on account")
	}
	return *u.FlatID, nil
}

type createPassReq struct {
	VisitorName  string    `json:"visitor_name" validate:"required"`
	VisitorPhone string    `json:"visitor_phone"`
	Purpose      string    `json:"purpose"`
	MaxUses      uint32    `json:"max_uses"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidUntil   time.Time `json:"valid_until" validate:"required"`
}

// buildPass validates the shared request fields and assembles a pass
// shell; the caller fills in Kind, Status and MaxUses policy.
func (h *PassHandler) buildPass(c echo.Context, req *createPassReq) (*model.Pass, error) {
	caller, err := callerIdentity(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	flatID, err := h.residentFlat(c)
	if err != nil {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}

	now := time.Now().UTC()
	from := req.ValidFrom.UTC()
	if req.ValidFrom.IsZero() {
		from = now
	}
	until := req.ValidUntil.UTC()
	if !until.After(from) {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_until must be after valid_from"})
	}
	if until.Sub(from) > maxPassWindow {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "validity window too long"})
	}

	secret, err := utils.NewPassSecret()
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue secret"})
	}
	return &model.Pass{
		Secret:       secret,
		FlatID:       flatID,
		SocietyID:    caller.SocietyID,
		VisitorName:  strings.TrimSpace(req.VisitorName),
		VisitorPhone: strings.TrimSpace(req.VisitorPhone),
		Purpose:      strings.TrimSpace(req.Purpose),
		ValidFrom:    from,
		ValidUntil:   until,
		CreatedBy:    caller.UserID,
	}, nil
}

// CreatePreApproval handles POST /v1/passes/preapprovals.  The pass is
// ACTIVE immediately; max_uses defaults to 1 when omitted.
func (h *PassHandler) CreatePreApproval(c echo.Context) error {
	var req createPassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.buildPass(c, &req)
	if p == nil {
		return err
	}
	p.Kind = model.PassKindPreApproval
	p.Status = model.PassStatusActive
	p.MaxUses = req.MaxUses
	if p.MaxUses == 0 {
		p.MaxUses = 1
	}
	if err := h.Passes.Create(c.Request().Context(), p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create pass"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"pass": p})
}

// RequestGatePass handles POST /v1/passes/gatepasses.  The pass starts
// PENDING and only becomes scannable once an admin approves it.  Gate
// passes are always single use; a max_uses in the body is ignored.
func (h *PassHandler) RequestGatePass(c echo.Context) error {
	var req createPassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.buildPass(c, &req)
	if p == nil {
		return err
	}
	p.Kind = model.PassKindGatePass
	p.Status = model.PassStatusPending
	p.MaxUses = 1
	if err := h.Passes.Create(c.Request().Context(), p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create pass"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"pass": p})
}

// ListPasses handles GET /v1/passes for the caller's flat.
func (h *PassHandler) ListPasses(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	passes, err := h.Passes.ListByFlat(c.Request().Context(), flatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load passes"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": passes})
}

// CancelPass handles POST /v1/passes/:id/cancel.  Cancellation only
// succeeds while the pass is still live; already-redeemed quota and
// recorded entries are never undone.
func (h *PassHandler) CancelPass(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Passes.Cancel(c.Request().Context(), id, flatID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "pass not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "pass is not cancellable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type deliveryReq struct {
	Company     string `json:"company" validate:"required"`
	ExpectedOn  string `json:"expected_on" validate:"required"` // YYYY-MM-DD
	AutoApprove bool   `json:"auto_approve"`
}

// CreateDelivery handles POST /v1/deliveries.
func (h *PassHandler) CreateDelivery(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	var req deliveryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	day, err := time.Parse("2006-01-02", req.ExpectedOn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expected_on must be YYYY-MM-DD"})
	}
	d := &model.ExpectedDelivery{
		FlatID:      flatID,
		Company:     strings.TrimSpace(req.Company),
		ExpectedOn:  day,
		AutoApprove: req.AutoApprove,
	}
	if err := h.Deliveries.Create(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create delivery"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"delivery": d})
}

// ListDeliveries handles GET /v1/deliveries.
func (h *PassHandler) ListDeliveries(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	items, err := h.Deliveries.ListByFlat(c.Request().Context(), flatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load deliveries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type ruleReq struct {
	Companies []string `json:"companies" validate:"required,min=1,dive,required"`
	Days      []string `json:"days" validate:"dive,oneof=MON TUE WED THU FRI SAT SUN"`
	TimeFrom  string   `json:"time_from"`
	TimeUntil string   `json:"time_until"`
}

// CreateRule handles POST /v1/rules.
func (h *PassHandler) CreateRule(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	var req ruleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if (req.TimeFrom == "") != (req.TimeUntil == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time_from and time_until must be set together"})
	}
	for _, hm := range []string{req.TimeFrom, req.TimeUntil} {
		if hm == "" {
			continue
		}
		if _, err := time.Parse("15:04", hm); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "time window must be HH:MM"})
		}
	}
	rule := &model.AutoApproveRule{
		FlatID:    flatID,
		Companies: req.Companies,
		Days:      req.Days,
		TimeFrom:  req.TimeFrom,
		TimeUntil: req.TimeUntil,
		Active:    true,
	}
	if err := h.Rules.Create(c.Request().Context(), rule); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create rule"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"rule": rule})
}

// ListRules handles GET /v1/rules.
func (h *PassHandler) ListRules(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	rules, err := h.Rules.ListByFlat(c.Request().Context(), flatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load rules"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rules})
}

type ruleActiveReq struct {
	Active *bool `json:"active" validate:"required"`
}

// SetRuleActive handles PATCH /v1/rules/:id/active.
func (h *PassHandler) SetRuleActive(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req ruleActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Rules.SetActive(c.Request().Context(), id, flatID, *req.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPendingEntries handles GET /v1/entries/pending: manual entries
// waiting for the caller's decision.
func (h *PassHandler) ListPendingEntries(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	entries, err := h.Entries.ListPendingByFlat(c.Request().Context(), flatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

type resolveReq struct {
	Admit *bool `json:"admit" validate:"required"`
}

// ResolveEntry handles POST /v1/entries/:id/resolve.  Only PENDING
// entries for the caller's own flat can be admitted or denied.
func (h *PassHandler) ResolveEntry(c echo.Context) error {
	flatID, err := h.residentFlat(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no flat on account"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Entries.Resolve(c.Request().Context(), id, flatID, *req.Admit); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry already resolved"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
