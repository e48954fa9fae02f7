package service

import (
	"testing"
	"time"

	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe()
	b := hub.Subscribe()
	require.Equal(t, 2, hub.Count())

	ev := model.IncidentEvent{Type: model.EventTypeIncidentUpdate, IncidentID: "1_x_i", Status: model.StatusExecuting}
	hub.Publish(ev)

	for _, sub := range []*Subscription{a, b} {
		select {
		case got := <-sub.Events():
			assert.Equal(t, ev, got)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHubPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe()
	defer slow.Close()
	before := testutil.ToFloat64(observability.NotifierDropped)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(model.IncidentEvent{IncidentID: "1_x_i", Status: model.StatusExecuting})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Len(t, slow.Events(), 1)
	assert.Equal(t, before+9, testutil.ToFloat64(observability.NotifierDropped))
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe()
	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Count())
	_, ok := <-sub.Events()
	assert.False(t, ok)
	hub.Publish(model.IncidentEvent{IncidentID: "1_x_i"})
}

func TestHubClose(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe()
	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()

	late := hub.Subscribe()
	_, ok = <-late.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}
