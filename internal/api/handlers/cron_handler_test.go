package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCronService struct {
	mock.Mock
}

func (m *MockCronService) ProcessDue(ctx context.Context) (*transfer.CronResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.CronResult), args.Error(1)
}

func TestProcessScheduledHandler(t *testing.T) {
	s := new(MockCronService)
	s.On("ProcessDue", mock.Anything).Return(&transfer.CronResult{OK: true, Processed: 2, Errors: []string{"p3: boom"}}, nil).Once()
	s.On("ProcessDue", mock.Anything).Return(nil, errors.New("db down")).Once()

	app := fiber.New()
	app.Post("/cron", NewCronHandler(s).ProcessScheduled)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/cron", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(2), out["processed"])
	assert.Equal(t, []any{"p3: boom"}, out["errors"])

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/cron", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["ok"])
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/health", Health)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
