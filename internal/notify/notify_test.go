package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordSendPostsContentField(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	require.NoError(t, d.Send(context.Background(), "dead search: all workers panicked"))
	assert.Contains(t, gotBody, "dead search: all workers panicked")
}

func TestDiscordSendWithoutWebhookIsNoop(t *testing.T) {
	d := NewDiscord("")
	assert.NoError(t, d.Send(context.Background(), "anything"))
}

func TestTidbytPushSetsAuthHeaderAndPath(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tb := NewTidbyt("dev1", "secrettoken")
	tb.baseURL = srv.URL
	tb.client = srv.Client()

	require.NoError(t, tb.Push(context.Background(), "d2VicA==", "tetrisbot", false))
	assert.Equal(t, "Bearer secrettoken", gotAuth)
	assert.Equal(t, "/devices/dev1/push", gotPath)
}

func TestTidbytPushErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tb := NewTidbyt("dev1", "badtoken")
	tb.baseURL = srv.URL
	tb.client = srv.Client()

	assert.Error(t, tb.Push(context.Background(), "d2VicA==", "tetrisbot", false))
}

func TestClientPushSnapshotNoopWithoutTidbyt(t *testing.T) {
	c := &Client{}
	assert.NoError(t, c.PushSnapshot(context.Background(), "x", "tetrisbot", false))
}

func TestClientAlertDeadSearchNoopWithoutDiscord(t *testing.T) {
	var c *Client
	assert.NoError(t, c.AlertDeadSearch(context.Background(), "panic"))
}
