package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ruleapp "outofbound/internal/rules/application"
)

func TestSSEBroker_DropsWhenFull(t *testing.T) {
	broker := NewSSEBroker(1)
	ch := broker.Subscribe()
	broker.Notify(context.Background(), ruleapp.StateEvent{Instance: "a", Reason: "triggered"})
	broker.Notify(context.Background(), ruleapp.StateEvent{Instance: "a", Reason: "cleared"})

	payload := <-ch
	assert.Contains(t, string(payload), `"reason":"triggered"`)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected payload %s", extra)
	default:
	}

	broker.Unsubscribe(ch)
	broker.Unsubscribe(ch)
	assert.Zero(t, broker.Clients())
}

func TestStreamHandler_DeliversEvents(t *testing.T) {
	broker := NewSSEBroker(4)
	server := httptest.NewServer(NewStreamHandler(broker))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ready\n", line)

	require.Eventually(t, func() bool { return broker.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	broker.Notify(context.Background(), ruleapp.StateEvent{Instance: "flow-alarm", Reason: "triggered", Previous: "cleared"})

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {\"instance\"") {
			data = line
			break
		}
	}
	assert.Contains(t, data, `"instance":"flow-alarm"`)
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	resp := httptest.NewRecorder()
	NewStreamHandler(NewSSEBroker(0)).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/rules/stream", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
