package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpage/internal/cache"
	"eventpage/internal/model"
)

const scheduleJSON = `[
  {"id":"t4","time":"12:15 - 13:00","category":"AI/ML","title":"Machine Learning con Vertex AI",
   "description":"ML.","speakers":["s3"],
   "speaker_details":[{"name":"María Rodríguez","role":"ML Specialist","linkedin":"https://linkedin.com/in/fake-maria-rodriguez"}]},
  {"id":"lunch","time":"13:00 - 14:00","category":"Break","title":"Almuerzo","description":"Comer.","speaker_details":[]},
  {"id":"t9","time":"18:00 - 18:30","category":"General","title":"Extra","description":"Sin ponentes."}
]`

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestFetchSpeakersPassesQueryThrough(t *testing.T) {
	var gotURI string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Ana García","role":"Cloud Architect","linkedin":"https://linkedin.com/in/fake-ana-garcia"}]`))
	}), Options{})

	out := c.FetchSpeakers(context.Background(), "AI")
	require.True(t, out.OK(), out.Err)
	assert.Equal(t, "/api/speakers?q=AI", gotURI)
	assert.Equal(t, []model.Speaker{{
		Name:     "Ana García",
		Role:     "Cloud Architect",
		LinkedIn: "https://linkedin.com/in/fake-ana-garcia",
	}}, out.Value)
}

func TestFetchWithoutQueryOmitsParam(t *testing.T) {
	var gotURI string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		_, _ = w.Write([]byte(`[]`))
	}), Options{})

	out := c.FetchSchedule(context.Background(), "")
	require.True(t, out.OK())
	assert.Equal(t, "/api/schedule", gotURI)
	assert.Empty(t, out.Value)
}

func TestFetchEncodesQuery(t *testing.T) {
	var raw, decoded string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
		decoded = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[]`))
	}), Options{})

	c.FetchSpeakers(context.Background(), " AI/ML & más ")
	assert.Equal(t, "q=+AI%2FML+%26+m%C3%A1s+", raw)
	assert.Equal(t, " AI/ML & más ", decoded)
}

func TestFetchScheduleDecodesOptionalSpeakerDetails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(scheduleJSON))
	}), Options{})

	out := c.FetchSchedule(context.Background(), "")
	require.True(t, out.OK(), out.Err)
	require.Len(t, out.Value, 3)

	want := []model.ScheduleItem{
		{
			ID: "t4", Time: "12:15 - 13:00", Category: "AI/ML", Title: "Machine Learning con Vertex AI", Description: "ML.",
			SpeakerDetails: []model.Speaker{{Name: "María Rodríguez", Role: "ML Specialist", LinkedIn: "https://linkedin.com/in/fake-maria-rodriguez"}},
		},
		{ID: "lunch", Time: "13:00 - 14:00", Category: "Break", Title: "Almuerzo", Description: "Comer.", SpeakerDetails: []model.Speaker{}},
		{ID: "t9", Time: "18:00 - 18:30", Category: "General", Title: "Extra", Description: "Sin ponentes."},
	}
	if diff := cmp.Diff(want, out.Value); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, out.Value[0].HasSpeakers())
	assert.False(t, out.Value[1].HasSpeakers())
	assert.False(t, out.Value[2].HasSpeakers())
}

func TestFetchEvent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathEvent, r.URL.Path)
		_, _ = w.Write([]byte(`{"title":"Google Cloud Tech Day 2025","date":"15 de Noviembre, 2025","location":"CDMX","description":"Un día."}`))
	}), Options{})

	out := c.FetchEvent(context.Background())
	require.True(t, out.OK())
	assert.Equal(t, model.Event{
		Title:       "Google Cloud Tech Day 2025",
		Description: "Un día.",
		Date:        "15 de Noviembre, 2025",
		Location:    "CDMX",
	}, out.Value)
}

func TestDecodeFailureCollapsesToEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"not a list"}`))
	}), Options{})

	out := c.FetchSpeakers(context.Background(), "x")
	assert.Equal(t, StatusDecodeFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Nil(t, out.OrEmpty())
}

func TestNon2xxIsNetworkFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}), Options{})

	out := c.FetchSchedule(context.Background(), "")
	assert.Equal(t, StatusNetworkFailed, out.Status)
	assert.True(t, errors.Is(out.Err, ErrStatus))
	assert.Empty(t, out.OrEmpty())
}

func TestUnreachableBackendIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	out := c.FetchEvent(context.Background())
	assert.Equal(t, StatusNetworkFailed, out.Status)
	assert.Equal(t, model.Event{}, out.OrEmpty())
}

func TestCanceledContextIsNetworkFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := c.FetchSpeakers(ctx, "")
	assert.Equal(t, StatusNetworkFailed, out.Status)
	assert.True(t, errors.Is(out.Err, context.Canceled))
}

func TestCacheServesRepeatReads(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"name":"Carlos López","role":"Data Engineer","linkedin":"https://linkedin.com/in/fake-carlos-lopez"}]`))
	}), Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})

	first := c.FetchSpeakers(context.Background(), "carlos")
	second := c.FetchSpeakers(context.Background(), "carlos")
	other := c.FetchSpeakers(context.Background(), "ana")

	require.True(t, first.OK())
	assert.Equal(t, first.Value, second.Value)
	assert.True(t, other.OK())
	assert.EqualValues(t, 2, hits.Load())
}

func TestFailuresAreNotCached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}), Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})

	assert.Equal(t, StatusDecodeFailed, c.FetchSchedule(context.Background(), "").Status)
	assert.Equal(t, StatusOK, c.FetchSchedule(context.Background(), "").Status)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)
	_, err = NewClient(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = NewClient(Options{BaseURL: "://bad"})
	assert.Error(t, err)
}

func TestEndpointKeepsBasePath(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://example.com/backend/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/backend/api/speakers?q=AI", c.Endpoint(PathSpeakers, "AI"))
	assert.Equal(t, "https://example.com/backend/api/event", c.Endpoint(PathEvent, ""))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "network_failed", StatusNetworkFailed.String())
	assert.Equal(t, "decode_failed", StatusDecodeFailed.String())
}
