package event_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/event"
	mock_event "github.com/RoyceAzure/lab/storefront/internal/infra/event/mock"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testOrder() *model.Order {
	return &model.Order{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		OrderNumber: "ORD-20240101-ABCDEF12",
		UserID:      uuid.New(),
		Status:      model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(1310),
	}
}

func TestKafkaOrderPublisherPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := mock_event.NewMockWriter(ctrl)
	publisher := event.NewKafkaOrderPublisher(writer)
	order := testOrder()
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	evt := event.NewOrderEvent(event.OrderCreated, order, at)

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			require.Equal(t, order.ID.String(), string(msgs[0].Key))
			require.Equal(t, "event_type", msgs[0].Headers[0].Key)
			require.Equal(t, string(event.OrderCreated), string(msgs[0].Headers[0].Value))

			var got event.OrderEvent
			require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
			require.Equal(t, evt.EventID, got.EventID)
			require.Equal(t, order.OrderNumber, got.OrderNumber)
			require.Equal(t, model.OrderStatusPending, got.Status)
			require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1310)))
			require.True(t, got.OccurredAt.Equal(at))
			return nil
		})

	require.NoError(t, publisher.Publish(context.Background(), evt))
}

func TestKafkaOrderPublisherWriteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := mock_event.NewMockWriter(ctrl)
	publisher := event.NewKafkaOrderPublisher(writer)
	boom := errors.New("leader not available")

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(boom)

	err := publisher.Publish(context.Background(), event.NewOrderEvent(event.OrderCancelled, testOrder(), time.Now()))
	require.ErrorIs(t, err, boom)
}

func TestKafkaOrderPublisherClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := mock_event.NewMockWriter(ctrl)
	publisher := event.NewKafkaOrderPublisher(writer)

	// 重複 Close 只會關閉一次 writer
	writer.EXPECT().Close().Return(nil).Times(1)
	require.NoError(t, publisher.Close())
	require.NoError(t, publisher.Close())

	err := publisher.Publish(context.Background(), event.NewOrderEvent(event.OrderCreated, testOrder(), time.Now()))
	require.ErrorIs(t, err, event.ErrPublisherClosed)
}

func TestNopPublisher(t *testing.T) {
	var p event.IOrderEventPublisher = event.NopPublisher{}
	require.NoError(t, p.Publish(context.Background(), event.NewOrderEvent(event.OrderCreated, testOrder(), time.Now())))
	require.NoError(t, p.Close())
}
