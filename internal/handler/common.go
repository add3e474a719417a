package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/gate"
	"github.com/Agastya221/society-gate-backend/internal/middleware"
)

// getUserID extracts the user_id placed in the context by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	return ctxUint64(c, middleware.CtxUserID)
}

// getSocietyID extracts the caller's society (tenant) id.
func getSocietyID(c echo.Context) (uint64, error) {
	return ctxUint64(c, middleware.CtxSocietyID)
}

// callerIdentity assembles the gate.Identity the engine trusts.  It
// fails when the JWT middleware did not run.
func callerIdentity(c echo.Context) (gate.Identity, error) {
	uid, err := getUserID(c)
	if err != nil {
		return gate.Identity{}, err
	}
	sid, err := getSocietyID(c)
	if err != nil {
		return gate.Identity{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return gate.Identity{UserID: uid, Role: role, SocietyID: sid}, nil
}

func ctxUint64(c echo.Context, key string) (uint64, error) {
	switch t := c.Get(key).(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid " + key + " in context")
}

// pathID parses a numeric path parameter; zero is invalid.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
