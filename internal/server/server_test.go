package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreactor "heatpump2mqtt/internal/core/actor"
	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/service"
	"heatpump2mqtt/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(deps Deps) http.Handler {
	s := &Server{
		commandTimeout: 20 * time.Millisecond,
		deps:           deps,
		logger:         zap.NewNop(),
	}
	return s.RegisterRoutes()
}

type fakeSink struct {
	commands []domain.Command
	err      error
}

func (s *fakeSink) Enqueue(ctx context.Context, cmd domain.Command) error {
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.commands = append(s.commands, cmd)
	return nil
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)

	var healthErr error
	h := newTestServer(Deps{Health: func() error { return healthErr }, State: service.NewStateStore()})

	rec := do(h, http.MethodGet, "/healthcheck")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())

	healthErr = errors.New("loop stopped")
	rec = do(h, http.MethodGet, "/healthcheck")
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestStateHandler(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := service.NewStateStore()
	h := newTestServer(Deps{State: store})

	assert.Equal(http.StatusServiceUnavailable, do(h, http.MethodGet, "/state").Code)

	st := domain.NewDeviceState(domain.DefaultRegisterMap())
	st.ApplyRead(domain.SignalIndoorTemp, 205)
	st.ApplyRead(domain.SignalHotWaterSetpoint, 48)
	st.ApplyRead(domain.SignalModeStatus, 1)
	store.PublishState(st.Snapshot())

	rec := do(h, http.MethodGet, "/state")
	require.Equal(http.StatusOK, rec.Code)

	var res stateResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal("domestic_hot_water", res.Mode)
	assert.InDelta(20.5, res.Signals[domain.SIGNAL_ID_INDOOR_TEMP], 0.001)
	assert.NotContains(res.Signals, domain.SIGNAL_ID_RETURN_TEMP)
	assert.InDelta(48, res.Setpoints["hot_water"], 0.001)
}

func TestCommandHandler(t *testing.T) {
	assert := assert.New(t)

	sink := &fakeSink{}
	h := newTestServer(Deps{State: service.NewStateStore(), Commands: sink})

	rec := do(h, http.MethodPost, "/command/u")
	assert.Equal(http.StatusAccepted, rec.Code)
	assert.Contains(rec.Body.String(), "set(ch_setpoint_up)")

	rec = do(h, http.MethodPost, "/command/get_all")
	assert.Equal(http.StatusAccepted, rec.Code)

	rec = do(h, http.MethodPost, "/command/nonsense")
	assert.Equal(http.StatusBadRequest, rec.Code)

	assert.Equal([]domain.Command{domain.Set(domain.InstructionCHUp), domain.Get(domain.GroupAll)}, sink.commands)

	sink.err = coreactor.ErrCommandsClosed
	rec = do(h, http.MethodPost, "/command/mode_hot_water")
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
	assert.Contains(rec.Body.String(), "closed")

	sink.err = context.DeadlineExceeded
	rec = do(h, http.MethodPost, "/command/mode_hot_water")
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
	assert.Contains(rec.Body.String(), "not accepted")
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	h := newTestServer(Deps{State: service.NewStateStore(), Metrics: m.Handler()})

	rec := do(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
