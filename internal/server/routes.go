package server

import (
	"errors"
	"net/http"
	"strconv"

	adactor "github.com/nemotek/counters2mqtt/internal/adapter/actor"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/mqtt"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type meterReadingView struct {
	CounterId   int                           `json:"counter_id"`
	CounterName string                        `json:"counter_name"`
	Model       string                        `json:"model"`
	Available   bool                          `json:"available"`
	Record      *energy_counters.OutputRecord `json:"record"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/meters", s.MetersHandler)
	e.GET("/meters/:id", s.MeterHandler)
	e.POST("/meters/:id/collect", s.CommandHandler(mqtt.MQTT_COMMAND_COLLECT))
	e.POST("/meters/:id/reconnect", s.CommandHandler(mqtt.MQTT_COMMAND_RECONNECT))
	if s.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) MetersHandler(c echo.Context) error {
	readings, err := s.readings(0)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	views := make([]meterReadingView, 0, len(readings))
	for _, r := range readings {
		views = append(views, toView(r))
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) MeterHandler(c echo.Context) error {
	counterId, err := counterIdParam(c)
	if err != nil {
		return err
	}
	readings, err := s.readings(counterId)
	if errors.Is(err, domain.ErrUnknownMeter) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if len(readings) == 0 {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, toView(readings[0]))
}

// CommandHandler forwards a command to the master the same way an MQTT command topic does.
func (s *Server) CommandHandler(command string) echo.HandlerFunc {
	return func(c echo.Context) error {
		counterId, err := counterIdParam(c)
		if err != nil {
			return err
		}
		if _, err := s.readings(counterId); errors.Is(err, domain.ErrUnknownMeter) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		s.rootContext.Send(s.masterActor, adactor.ParsedCommand{
			Command: &mqtt.ParsedMQTTCommand{
				DeviceId:  strconv.Itoa(counterId),
				CounterId: counterId,
				Command:   "meter",
				Payload:   command,
			},
		})
		return c.NoContent(http.StatusAccepted)
	}
}

func (s *Server) readings(counterId int) ([]domain.MeterReading, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetReadingsRequest{CounterId: counterId}, s.requestTimeout).Result()
	if err != nil {
		return nil, err
	}
	response, ok := res.(domain.GetReadingsResponse)
	if !ok {
		return nil, errors.New("unexpected response")
	}
	if response.HasResponseError() {
		return nil, response.GetResponseError()
	}
	return response.Readings, nil
}

func counterIdParam(c echo.Context) (int, error) {
	counterId, err := strconv.Atoi(c.Param("id"))
	if err != nil || counterId <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid meter id")
	}
	return counterId, nil
}

func toView(r domain.MeterReading) meterReadingView {
	return meterReadingView{
		CounterId:   r.CounterId,
		CounterName: r.CounterName,
		Model:       r.Model,
		Available:   r.Available,
		Record:      r.Record,
	}
}
