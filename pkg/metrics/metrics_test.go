package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegisterAndServe(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(WithRegistry(registry), WithNamespace("testns"))

	m.RecordRequest("fetch_feed", "ok", 42*time.Millisecond)
	m.RecordMutation("toggle_like", "confirmed")
	m.RecordCacheMerge("cache")
	m.MutationStarted()
	m.ChannelOpened()
	m.RecordChatMessage("sent")

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`testns_requests_total{operation="fetch_feed",status="ok"} 1`,
		`testns_optimistic_mutations_total{kind="toggle_like",outcome="confirmed"} 1`,
		`testns_like_cache_merge_total{winner="cache"} 1`,
		`testns_inflight_mutations 1`,
		`testns_open_chat_channels 1`,
		`testns_chat_messages_total{direction="sent"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition output missing %q", want)
		}
	}

	m.MutationFinished()
	m.ChannelClosed()

	rec = httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "testns_inflight_mutations 0") {
		t.Error("inflight gauge did not return to zero")
	}
	if !strings.Contains(body, "testns_open_chat_channels 0") {
		t.Error("channel gauge did not return to zero")
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	// Every method must tolerate a nil receiver so components can run
	// uninstrumented.
	m.RecordRequest("fetch_feed", "ok", time.Second)
	m.RecordMutation("create_post", "rolled_back")
	m.RecordCacheMerge("fetch")
	m.MutationStarted()
	m.MutationFinished()
	m.ChannelOpened()
	m.ChannelClosed()
	m.RecordChatMessage("received")
}
