package job

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/internal/shared/utils"
)

type fakePush struct {
	recipients []string
	bodies     []string
	err        error
}

func (f *fakePush) SendPush(_ context.Context, recipient, _, body string, _ map[string]interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.recipients = append(f.recipients, recipient)
	f.bodies = append(f.bodies, body)
	return "msg-1", nil
}

func task(t *testing.T, p model.StatusChangedPayload) *asynq.Task {
	t.Helper()
	task, err := utils.NewJSONTask(shared.TypeOrderStatusChanged, p)
	require.NoError(t, err)
	return task
}

func TestStatusChanged_NotifiesCustomer(t *testing.T) {
	push := &fakePush{}
	h := NewStatusChangedHandler(push)
	customer := uuid.New()

	err := h.ProcessTask(context.Background(), task(t, model.StatusChangedPayload{
		OrderID:    "o-1",
		CustomerID: customer.String(),
		Channel:    model.ChannelDelivery,
		FromStatus: model.OrderStatusPending,
		ToStatus:   model.OrderStatusOnTheWay,
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{customer.String()}, push.recipients)
	assert.Equal(t, []string{"Your order o-1 is on the way"}, push.bodies)
}

func TestStatusChanged_Skips(t *testing.T) {
	tests := []struct {
		name    string
		payload model.StatusChangedPayload
	}{
		{"no customer", model.StatusChangedPayload{OrderID: "o-1", ToStatus: model.OrderStatusCompleted}},
		{"kitchen-only status", model.StatusChangedPayload{OrderID: "o-1", CustomerID: uuid.NewString(), ToStatus: model.OrderStatusPreparing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			push := &fakePush{}
			require.NoError(t, NewStatusChangedHandler(push).ProcessTask(context.Background(), task(t, tt.payload)))
			assert.Empty(t, push.recipients)
		})
	}
}

func TestStatusChanged_BadPayloadSkipsRetry(t *testing.T) {
	h := NewStatusChangedHandler(&fakePush{})

	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeOrderStatusChanged, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = h.ProcessTask(context.Background(), task(t, model.StatusChangedPayload{OrderID: "o-1", CustomerID: "nope"}))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestStatusChanged_PushFailureRetries(t *testing.T) {
	h := NewStatusChangedHandler(&fakePush{err: errors.New("provider down")})

	err := h.ProcessTask(context.Background(), task(t, model.StatusChangedPayload{
		OrderID:    "o-1",
		CustomerID: uuid.NewString(),
		ToStatus:   model.OrderStatusCancelled,
	}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
