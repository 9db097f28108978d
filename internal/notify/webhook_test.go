package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, nil)
	err := s.Send(context.Background(), Message{From: "a@x.test", To: "b@x.test", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"from": "a@x.test", "to": "b@x.test", "subject": "Hi", "body": "Hello"}, got)
}

func TestWebhookSenderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, srv.Client()).Send(context.Background(), Message{To: "b@x.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
