package pushprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

func newTestClient(url string) *Client {
	return NewClient(config.Push{
		PushAPIURL:      url,
		PushServerKey:   "server-key",
		PushIcon:        "/icons/icon-192x192.png",
		PushBadge:       "/icons/badge-72x72.png",
		PushClickAction: "/",
		PushTimeout:     2 * time.Second,
	})
}

func TestSendBatch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))

		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, []string{"t1", "t2"}, msg.RegistrationIDs)
		assert.Equal(t, "XAUUSD buy", msg.Notification.Title)
		assert.Equal(t, "/icons/icon-192x192.png", msg.Notification.Icon)
		assert.Equal(t, "signal", msg.Data["type"])

		_, _ = w.Write([]byte(`{"multicast_id":1,"success":1,"failure":1,"results":[]}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	res, err := c.SendBatch(context.Background(), []string{"t1", "t2"},
		c.Decorate("XAUUSD buy", "entry 2350"), map[string]string{"type": "signal"})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Success: 1, Failure: 1}, res)
}

func TestSendBatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SendBatch(context.Background(), []string{"t1"}, Notification{}, nil)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestSendBatch_TooLarge(t *testing.T) {
	tokens := make([]string, MaxBatchSize+1)
	_, err := newTestClient("http://127.0.0.1:1").SendBatch(context.Background(), tokens, Notification{}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
