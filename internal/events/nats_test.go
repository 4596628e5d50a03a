//go:build integration

package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestNATSPublish(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("test.recruit.completed", msgs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Unsubscribe() })
	require.NoError(t, sub.Flush())

	pub, err := NewNATS(url, "", "test.recruit.completed", nil)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	require.NoError(t, pub.PublishCompleted(context.Background(), ApplicationCompleted{Phone: "51999", Eligible: true}))

	select {
	case msg := <-msgs:
		var ev ApplicationCompleted
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		require.Equal(t, "51999", ev.Phone)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}
