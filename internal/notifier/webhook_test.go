package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/notifier"
)

func TestWebhookSenderPostsTextPayload(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := notifier.NewWebhookSender(srv.URL)
	err := sender.Send(context.Background(), "ignored-target", "arbitrage signal", "600519 -> 510300")
	require.NoError(t, err)

	assert.Contains(t, received["text"], "arbitrage signal")
	assert.Contains(t, received["text"], "600519 -> 510300")
}

func TestWebhookSenderReportsDependencyErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := notifier.NewWebhookSender(srv.URL)
	err := sender.Send(context.Background(), "target", "subject", "content")
	assert.Error(t, err)
}

func TestDispatcherCanFanOutToWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := notifier.NewDispatcher("ops-channel")
	d.Register("webhook", notifier.NewWebhookSender(srv.URL))
	assert.Equal(t, []string{"webhook"}, d.SenderNames())
}
