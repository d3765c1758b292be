package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	commandTimeout = 15 * time.Second
)

type deviceView struct {
	Id     string            `json:"id"`
	Name   string            `json:"name"`
	Info   domain.DeviceInfo `json:"info"`
	Status domain.Status     `json:"status"`
}

type meterView struct {
	deviceView
	Reading domain.MeterReading `json:"reading"`
}

type switchView struct {
	deviceView
	Bank domain.CoilBank `json:"bank"`
}

type hubView struct {
	Id      string     `json:"id"`
	Name    string     `json:"name"`
	Running bool       `json:"running"`
	Meter   meterView  `json:"meter"`
	Switch  switchView `json:"switch"`
}

type switchResult struct {
	Coil  int    `json:"coil"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/devices", s.DevicesHandler)
	e.POST("/api/switch/:coil/:state", s.SwitchHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.bridgeActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DevicesHandler(c echo.Context) error {
	meter := s.hub.Meter()
	switcher := s.hub.Switch()
	return c.JSON(http.StatusOK, hubView{
		Id:      s.hub.Id(),
		Name:    s.hub.Name(),
		Running: s.hub.Running(),
		Meter: meterView{
			deviceView: view(meter),
			Reading:    meter.Reading(),
		},
		Switch: switchView{
			deviceView: view(switcher),
			Bank:       switcher.Bank(),
		},
	})
}

func (s *Server) SwitchHandler(c echo.Context) error {
	coil, err := strconv.Atoi(c.Param("coil"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, switchResult{State: c.Param("state"), Error: "invalid coil index"})
	}
	var on bool
	switch c.Param("state") {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return c.JSON(http.StatusBadRequest, switchResult{Coil: coil, State: c.Param("state"), Error: "state must be on or off"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), commandTimeout)
	defer cancel()

	err = s.hub.SetCoil(ctx, coil, on)
	result := switchResult{Coil: coil, State: c.Param("state")}
	if err != nil {
		result.Error = err.Error()
		var rangeErr *hub.CoilRangeError
		if errors.As(err, &rangeErr) {
			return c.JSON(http.StatusBadRequest, result)
		}
		s.logger.Warn("http: set coil failed", zap.Int("coil", coil), zap.Bool("on", on), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func view(d hub.Device) deviceView {
	return deviceView{
		Id:     d.Id(),
		Name:   d.Name(),
		Info:   d.Info(),
		Status: d.Status(),
	}
}
