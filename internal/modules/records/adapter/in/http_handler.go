package in

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"notegenius/internal/modules/records/dto"
	recordsin "notegenius/internal/modules/records/port/in"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/logger"
)

// ClaimQuery selects insert-or-get-active semantics on POST /v1/sessions.
const ClaimQuery = "active"

type HTTPHandler struct {
	usecase recordsin.Usecase
	log     logger.Logger
}

func NewHTTPHandler(usecase recordsin.Usecase, log logger.Logger) HTTPHandler {
	return HTTPHandler{usecase: usecase, log: log}
}

// NewServer builds the echo app for the records API. extra routes (metrics,
// health) are registered by the caller through mount.
func NewServer(h HTTPHandler, requestLogs bool, mount func(e *echo.Echo)) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.RemoveTrailingSlash())
	if requestLogs {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = h.errorHandler
	h.Register(e.Group("/v1"))
	if mount != nil {
		mount(e)
	}
	return e
}

func (h HTTPHandler) Register(g *echo.Group) {
	g.POST("/sessions", h.create)
	g.PATCH("/sessions/:id", h.update)
	g.POST("/sessions/:id/counters", h.counters)
	g.GET("/users/:user/sessions/active", h.active)
	g.GET("/users/:user/sessions", h.list)
}

func (h HTTPHandler) create(c echo.Context) error {
	var input dto.CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session payload")
	}
	ctx := c.Request().Context()
	if c.QueryParam("claim") == ClaimQuery {
		out, err := h.usecase.Claim(ctx, input)
		if err != nil {
			return err
		}
		status := http.StatusCreated
		if out.Adopted {
			status = http.StatusOK
		}
		return c.JSON(status, out)
	}
	out, err := h.usecase.Insert(ctx, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h HTTPHandler) update(c echo.Context) error {
	var input dto.UpdateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patch payload")
	}
	out, err := h.usecase.Update(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h HTTPHandler) counters(c echo.Context) error {
	var input dto.CountersInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid counters payload")
	}
	out, err := h.usecase.IncrementCounters(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h HTTPHandler) active(c echo.Context) error {
	out, err := h.usecase.FindActive(c.Request().Context(), c.Param("user"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h HTTPHandler) list(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	out, err := h.usecase.ListByUser(c.Request().Context(), c.Param("user"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// errorHandler maps application errors onto status codes; anything it does
// not recognise is logged and reported as a 500.
func (h HTTPHandler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(http.StatusInternalServerError)

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = http.StatusText(code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	case errors.Is(err, apperrors.ErrNoActiveSession), errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrUnknownUser):
		code = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, apperrors.ErrActiveSessionExists):
		code = http.StatusConflict
		message = err.Error()
	default:
		h.log.Error("records api request failed", err, c.Request().Method+" "+c.Path())
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": message})
}
