package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/core"
)

type received struct {
	payload Payload
	event   string
	sig     string
}

func collectOne(t *testing.T) (*httptest.Server, chan received) {
	t.Helper()
	ch := make(chan received, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var p Payload
		require.NoError(t, json.Unmarshal(body, &p))
		ch <- received{
			payload: p,
			event:   r.Header.Get("X-Webhook-Event"),
			sig:     r.Header.Get("X-Webhook-Signature"),
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func testQueuedJob() *core.QueuedJob {
	return &core.QueuedJob{
		ID: "job-1",
		Job: &core.PrintJob{
			FileURL:        "http://orders.local/files/a.pdf",
			DisplayName:    "a.pdf",
			DeliveryNumber: "A2025011511",
		},
		PrinterIndex: 1,
		Attempts:     2,
	}
}

func TestSender_DeliversSignedEvent(t *testing.T) {
	srv, ch := collectOne(t)

	s := NewSender([]config.WebhookConfig{{URL: srv.URL, Secret: "shh"}})
	s.Start()
	defer s.Stop()

	s.JobCompleted(testQueuedJob())

	var got received
	select {
	case got = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}

	assert.Equal(t, "job_completed", got.event)
	assert.Equal(t, "job-1", got.payload.Data.JobID)
	assert.Equal(t, "A2025011511", got.payload.Data.DeliveryNumber)
	assert.Equal(t, 2, got.payload.Data.Attempts)

	dataBytes, err := json.Marshal(got.payload.Data)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte("shh"))
	mac.Write(dataBytes)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got.sig)
}

func TestSender_EventFiltering(t *testing.T) {
	srv, ch := collectOne(t)

	s := NewSender([]config.WebhookConfig{
		{URL: srv.URL, Events: []string{"job_completed"}},
	})
	s.Start()
	defer s.Stop()

	s.JobQueued(testQueuedJob())
	s.JobAttemptFailed(testQueuedJob(), "printer offline")
	s.JobCompleted(testQueuedJob())

	select {
	case got := <-ch:
		assert.Equal(t, "job_completed", got.event)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed event was not delivered")
	}

	select {
	case got := <-ch:
		t.Fatalf("unsubscribed event delivered: %s", got.event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSender_FailureEventCarriesMessage(t *testing.T) {
	srv, ch := collectOne(t)

	s := NewSender([]config.WebhookConfig{{URL: srv.URL}})
	s.Start()
	defer s.Stop()

	s.JobAttemptFailed(testQueuedJob(), "printer is not connected")

	select {
	case got := <-ch:
		assert.Equal(t, "job_attempt_failed", got.event)
		assert.Equal(t, "printer is not connected", got.payload.Data.ErrorMessage)
		assert.Empty(t, got.sig, "no secret means no signature")
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestSubscribed(t *testing.T) {
	assert.True(t, subscribed(nil, EventJobQueued))
	assert.True(t, subscribed([]string{"job_queued"}, EventJobQueued))
	assert.False(t, subscribed([]string{"job_completed"}, EventJobQueued))
}
