package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_PublishesToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventCustomerCreated, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), New(EventCustomerCreated, Actor{}, nil)))
	assert.NoError(t, d.Publish(context.Background(), New(EventCustomerDeleted, Actor{}, nil)))

	assert.Equal(t, []EventType{EventCustomerCreated}, got)
}

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	boom := errors.New("boom")
	d.Subscribe(EventRatingSet, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventRatingSet, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), New(EventRatingSet, Actor{UserID: 1}, RatingSetPayload{Rating: 4}))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestNew_StampsIDAndTime(t *testing.T) {
	e := New(EventUserRegistered, Actor{UserID: 3, Role: "admin"}, UserPayload{Username: "john"})

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, int64(3), e.Actor.UserID)
}
