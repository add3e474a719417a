package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/repository"
)

// AdminHandler serves the society office: reviewing gate pass requests
// and auditing the entry log.
type AdminHandler struct {
	Passes  *repository.PassRepo
	Entries *repository.EntryRepo
}

func NewAdminHandler(p *repository.PassRepo, e *repository.EntryRepo) *AdminHandler {
	return &AdminHandler{Passes: p, Entries: e}
}

// ListPendingPasses handles GET /v1/admin/passes/pending: gate pass
// requests awaiting review, oldest first.
func (h *AdminHandler) ListPendingPasses(c echo.Context) error {
	admin, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	passes, err := h.Passes.ListPendingBySociety(c.Request().Context(), admin.SocietyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load passes"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": passes})
}

type reviewReq struct {
	Approve *bool `json:"approve" validate:"required"`
}

// ReviewPass handles POST /v1/admin/passes/:id/review.  Approval moves
// a PENDING gate pass to APPROVED, making it scannable; rejection is
// terminal.  Reviewing a pass in any other state is a conflict.
func (h *AdminHandler) ReviewPass(c echo.Context) error {
	admin, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Passes.Review(c.Request().Context(), id, admin.SocietyID, *req.Approve); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "pass not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "pass is not pending review"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "review failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEntries handles GET /v1/admin/entries: the society's entry log
// since the optional RFC3339 ?since parameter, defaulting to the last
// seven days.
func (h *AdminHandler) ListEntries(c echo.Context) error {
	admin, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	since := time.Now().UTC().AddDate(0, 0, -7)
	if s := c.QueryParam("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since parameter"})
		}
		since = t.UTC()
	}
	entries, err := h.Entries.ListBySociety(c.Request().Context(), admin.SocietyID, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}
