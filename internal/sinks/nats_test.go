package sinks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egv/cmdverify/internal/contracts"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSSinkPublishesEventsBySubject(t *testing.T) {
	srv := runNATSServer(t)

	subscriber, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer subscriber.Close()
	messages := make(chan *nats.Msg, 4)
	_, err = subscriber.ChanSubscribe("ci.verify.>", messages)
	require.NoError(t, err)
	require.NoError(t, subscriber.Flush())

	sink, err := NewNATSSink(NATSOptions{URL: srv.ClientURL(), Subject: "ci.verify."})
	require.NoError(t, err)

	err = sink.Emit(context.Background(), contracts.Event{
		Type:      contracts.EventTypeCheckFinished,
		RunID:     "run-9",
		CheckName: "unit",
		Result:    &contracts.CheckResult{Name: "unit", Status: contracts.CheckStatusPassed},
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	select {
	case msg := <-messages:
		assert.Equal(t, "ci.verify.check_finished", msg.Subject)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, "run-9", payload["run_id"])
		assert.Equal(t, "unit", payload["check"])
		assert.NotEmpty(t, payload["ts"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published event")
	}
}

func TestNATSSinkDefaultsSubject(t *testing.T) {
	srv := runNATSServer(t)

	sink, err := NewNATSSink(NATSOptions{URL: srv.ClientURL()})
	require.NoError(t, err)
	defer sink.Close()

	assert.Equal(t, "cmdverify.events.run_started", sink.SubjectFor(contracts.EventTypeRunStarted))
}

func TestNewNATSSinkReportsConnectFailure(t *testing.T) {
	_, err := NewNATSSink(NATSOptions{URL: "nats://127.0.0.1:1"})
	assert.ErrorContains(t, err, "nats connect nats://127.0.0.1:1")
}
