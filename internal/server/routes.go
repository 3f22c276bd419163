package server

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	coreactor "heatpump2mqtt/internal/core/actor"
	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/input"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type stateResponse struct {
	Mode      string             `json:"mode"`
	Signals   map[string]float64 `json:"signals"`
	Setpoints map[string]float64 `json:"setpoints"`
}

type commandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/state", s.StateHandler)
	e.POST("/command/:name", s.CommandHandler)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	if s.deps.Health == nil {
		return c.String(http.StatusOK, "health_check: OK")
	}
	if err := s.deps.Health(); err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	return c.String(http.StatusOK, "health_check: OK")
}

func (s *Server) StateHandler(c echo.Context) error {
	snap, ok := s.deps.State.State()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no state yet")
	}
	res := stateResponse{
		Mode:      snap.Mode.String(),
		Signals:   make(map[string]float64, len(snap.Readings)),
		Setpoints: make(map[string]float64, len(snap.Setpoints)),
	}
	for _, r := range snap.Readings {
		if r.Valid {
			res.Signals[r.Signal.String()] = r.Value()
		}
	}
	for _, sp := range snap.Setpoints {
		res.Setpoints[sp.Kind.String()] = sp.Value()
	}
	return c.JSON(http.StatusOK, res)
}

// CommandHandler enqueues a command given by name ("ch_setpoint_up") or by
// its console token ("u").
func (s *Server) CommandHandler(c echo.Context) error {
	name := c.Param("name")
	cmd, ok := parseCommand(name)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown command "+name)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.commandTimeout)
	defer cancel()
	if err := s.deps.Commands.Enqueue(ctx, cmd); err != nil {
		s.logger.Warn("http: command dropped", zap.Stringer("command", cmd), zap.Error(err))
		if errors.Is(err, coreactor.ErrCommandsClosed) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "command queue closed")
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "command not accepted")
	}
	return c.JSON(http.StatusAccepted, commandResponse{Command: cmd.String(), Status: "queued"})
}

func parseCommand(name string) (domain.Command, bool) {
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return input.ParseToken(r)
	}
	return domain.ParseCommandName(name)
}
