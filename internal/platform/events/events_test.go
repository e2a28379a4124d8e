package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestNew_MarshalsPayload(t *testing.T) {
	e := New(TypeCallCreated, TopicEmergency, "abc", map[string]string{"triagePriority": "Urgent"})

	assert.Equal(t, TypeCallCreated, e.Type)
	assert.Equal(t, TopicEmergency, e.Topic)
	assert.Equal(t, "abc", e.ResourceID)
	assert.False(t, e.Timestamp.IsZero())

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Equal(t, "Urgent", data["triagePriority"])
}

func TestNew_UnmarshalablePayload(t *testing.T) {
	e := New(TypeCallCreated, TopicEmergency, "abc", make(chan int))
	assert.Nil(t, e.Data)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}

func TestRedisBus_Forward(t *testing.T) {
	bus := NewRedisBus(nil, "", zerolog.Nop())
	assert.Equal(t, DefaultChannel, bus.channel)

	sink := &recordingSink{}
	payload, _ := json.Marshal(New(TypeCallAssigned, TopicEmergency, "id-1", nil))
	bus.forward(context.Background(), sink, string(payload))
	bus.forward(context.Background(), sink, "{not json")

	require.Len(t, sink.events, 1)
	assert.Equal(t, TypeCallAssigned, sink.events[0].Type)
	assert.Equal(t, "id-1", sink.events[0].ResourceID)
}

func TestRedisBus_ForwardSinkError(t *testing.T) {
	bus := NewRedisBus(nil, "custom", zerolog.Nop())
	sink := &recordingSink{err: errors.New("closed")}
	payload, _ := json.Marshal(New(TypeCallCreated, TopicEmergency, "id-2", nil))

	assert.NotPanics(t, func() { bus.forward(context.Background(), sink, string(payload)) })
	assert.Len(t, sink.events, 1)
}
