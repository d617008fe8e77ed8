package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/models"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := actions.New(actions.WithClock(func() time.Time { return now }))
	return New(catalog, zaptest.NewLogger(t))
}

func TestDispatchGeneralIsUnhandled(t *testing.T) {
	d := newDispatcher(t)
	resp, ok := d.Dispatch(models.GeneralIntent())
	assert.False(t, ok)
	assert.Nil(t, resp)

	resp, ok = d.Dispatch(models.Intent{Kind: models.Kind("teleport")})
	assert.False(t, ok)
	assert.Nil(t, resp)
}

func TestDispatchMergesDefaults(t *testing.T) {
	d := newDispatcher(t)

	resp, ok := d.Dispatch(models.Intent{
		Kind:       models.KindPay,
		Parameters: map[string]any{"amount": nil, "type": "donation"},
	})
	require.True(t, ok)
	require.NotNil(t, resp.Action)
	assert.Equal(t, models.KindPay, *resp.Action)
	assert.Equal(t, "/payment", *resp.Target)

	pm := resp.Data.(actions.Payment)
	assert.Equal(t, actions.DefaultAmount, pm.Amount)
	assert.Equal(t, "donation", pm.Type)
}

func TestDispatchEveryKindHasActionAndTarget(t *testing.T) {
	d := newDispatcher(t)
	for _, kind := range models.Kinds {
		resp, ok := d.Dispatch(models.Intent{Kind: kind})
		if kind == models.KindGeneral {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok, kind)
		assert.NotEmpty(t, resp.Message, kind)
		require.NotNil(t, resp.Action, kind)
		require.NotNil(t, resp.Target, kind)
		assert.Equal(t, kind, *resp.Action)
		assert.NotEmpty(t, *resp.Target, kind)
	}
}

func TestDispatchNavigateTarget(t *testing.T) {
	d := newDispatcher(t)
	resp, ok := d.Dispatch(models.Intent{Kind: models.KindNavigate, Parameters: map[string]any{"page": "maps"}})
	require.True(t, ok)
	assert.Equal(t, "/maps", *resp.Target)
}

func TestDispatchTool(t *testing.T) {
	d := newDispatcher(t)

	resp, err := d.DispatchTool("book_tickets", map[string]any{"eventId": "losar", "quantity": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, models.KindBook, *resp.Action)
	assert.Equal(t, 3, resp.Data.(actions.Booking).Quantity)

	_, err = d.DispatchTool("launch_rocket", nil)
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "launch_rocket", unknown.Name)
}

func TestDispatchDoesNotMutateInput(t *testing.T) {
	d := newDispatcher(t)
	params := map[string]any{"query": "golden"}
	_, ok := d.Dispatch(models.Intent{Kind: models.KindSearch, Parameters: params})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"query": "golden"}, params)
}
