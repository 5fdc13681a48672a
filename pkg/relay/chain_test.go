package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/hookchat/pkg/attempts"
)

// fakeNet serves the webhook and three relays from one httptest server and
// records every hit in order.
type fakeNet struct {
	srv *httptest.Server

	mu       sync.Mutex
	hits     []string
	bodies   map[string][]byte
	queries  map[string]url.Values
	handlers map[string]http.HandlerFunc
}

func newFakeNet(t *testing.T) *fakeNet {
	t.Helper()
	f := &fakeNet{
		bodies:   map[string][]byte{},
		queries:  map[string]url.Values{},
		handlers: map[string]http.HandlerFunc{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.hits = append(f.hits, r.Method+" "+r.URL.Path)
		f.bodies[r.URL.Path] = body
		f.queries[r.URL.Path] = r.URL.Query()
		h := f.handlers[r.URL.Path]
		f.mu.Unlock()
		if h == nil {
			http.Error(w, "no handler", http.StatusBadGateway)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNet) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeNet) hitList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hits...)
}

func (f *fakeNet) endpoint() Endpoint {
	return Endpoint(f.srv.URL + "/webhook/abc")
}

func (f *fakeNet) strategies(t *testing.T) []Strategy {
	t.Helper()
	s1, err := NewPrefixStrategy("relay1", f.srv.URL+"/relay1?url=", http.MethodPost)
	require.NoError(t, err)
	s2, err := NewPrefixStrategy("relay2", f.srv.URL+"/relay2?url=", http.MethodGet)
	require.NoError(t, err)
	s3, err := NewPrefixStrategy("relay3", f.srv.URL+"/relay3?quest=", http.MethodPost)
	require.NoError(t, err)
	return []Strategy{s1, s2, s3}
}

func (f *fakeNet) chain(t *testing.T, opts ...ChainOption) *Chain {
	t.Helper()
	base := []ChainOption{
		WithHTTPClient(f.srv.Client()),
		WithStrategies(f.strategies(t)),
		WithAttemptTimeout(2 * time.Second),
		WithLogger(zerolog.Nop()),
		WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }),
	}
	return NewChain(append(base, opts...)...)
}

func jsonReply(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func failWith(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", status)
	}
}

func TestDeliver_DirectSuccessMakesOneCall(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/webhook/abc", jsonReply(map[string]any{"output": "hi"}))
	f.handle("/relay1", jsonReply(map[string]any{"output": "relay"}))

	reply, err := f.chain(t).Deliver(context.Background(), "hello", f.endpoint())
	require.NoError(t, err)
	require.Equal(t, "hi", reply)
	require.Equal(t, []string{"POST /webhook/abc"}, f.hitList())

	var p OutboundPayload
	require.NoError(t, json.Unmarshal(f.bodies["/webhook/abc"], &p))
	require.Equal(t, "hello", p.ChatInput)
	require.Equal(t, "hello", p.Message)
	require.Equal(t, "2025-01-02T03:04:05.006Z", p.Timestamp)
}

func TestDeliver_FallsBackToFirstSuccessfulRelay(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/webhook/abc", failWith(http.StatusForbidden))
	f.handle("/relay1", failWith(http.StatusInternalServerError))
	f.handle("/relay2", jsonReply(map[string]any{"contents": `{"message":"via relay2"}`}))
	f.handle("/relay3", jsonReply(map[string]any{"output": "relay3"}))

	reply, err := f.chain(t).Deliver(context.Background(), "ping me", f.endpoint())
	require.NoError(t, err)
	require.Equal(t, "via relay2", reply)
	require.Equal(t, []string{
		"POST /webhook/abc",
		"POST /relay1",
		"GET /relay2",
	}, f.hitList())

	q := f.queries["/relay2"]
	require.Equal(t, string(f.endpoint()), q.Get("url"))
	require.Equal(t, "ping me", q.Get(GetMessageParam))
	require.Empty(t, f.bodies["/relay2"])

	var p OutboundPayload
	require.NoError(t, json.Unmarshal(f.bodies["/relay1"], &p))
	require.Equal(t, "ping me", p.Message)
	require.Equal(t, string(f.endpoint()), f.queries["/relay1"].Get("url"))
}

func TestDeliver_AllStrategiesFailed(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/webhook/abc", failWith(http.StatusBadGateway))
	f.handle("/relay1", failWith(http.StatusTooManyRequests))
	f.handle("/relay2", failWith(http.StatusNotFound))
	f.handle("/relay3", failWith(http.StatusServiceUnavailable))

	_, err := f.chain(t).Deliver(context.Background(), "x", f.endpoint())
	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	require.Len(t, f.hitList(), 4)
}

func TestDeliver_TransportErrorsAdvanceTheChain(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/relay3", jsonReply([]any{map[string]any{"reply": "third time"}}))

	dead, err := NewPrefixStrategy("dead", "http://127.0.0.1:1/nothing?url=", http.MethodPost)
	require.NoError(t, err)
	strategies := f.strategies(t)
	strategies[0] = dead
	f.handle("/relay2", failWith(http.StatusInternalServerError))

	c := f.chain(t, WithStrategies(strategies))
	reply, err := c.Deliver(context.Background(), "x", Endpoint("http://127.0.0.1:1/webhook"))
	require.NoError(t, err)
	require.Equal(t, "third time", reply)
	require.Equal(t, []string{"GET /relay2", "POST /relay3"}, f.hitList())
}

func TestDeliver_TimeoutIsTreatedAsFailure(t *testing.T) {
	f := newFakeNet(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f.handle("/webhook/abc", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	f.handle("/relay1", jsonReply(map[string]any{"text": "fallback"}))

	c := f.chain(t, WithAttemptTimeout(50*time.Millisecond))
	reply, err := c.Deliver(context.Background(), "x", f.endpoint())
	require.NoError(t, err)
	require.Equal(t, "fallback", reply)
}

func TestDeliver_CancelledContextStopsTheChain(t *testing.T) {
	f := newFakeNet(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.handle("/webhook/abc", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	})
	f.handle("/relay1", jsonReply(map[string]any{"output": "should not be reached"}))

	_, err := f.chain(t).Deliver(ctx, "x", f.endpoint())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrAllStrategiesFailed)
	require.Equal(t, []string{"POST /webhook/abc"}, f.hitList())
}

func TestDeliver_NonJSONSuccessBodyIsReturnedVerbatim(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/webhook/abc", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Workflow was started")
	})

	reply, err := f.chain(t).Deliver(context.Background(), "x", f.endpoint())
	require.NoError(t, err)
	require.Equal(t, "Workflow was started", reply)
}

func collectEvents() (attempts.Observer, func() []attempts.Event) {
	var mu sync.Mutex
	var got []attempts.Event
	obs := attempts.ObserverFunc(func(_ context.Context, e attempts.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	return obs, func() []attempts.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]attempts.Event(nil), got...)
	}
}

func TestDeliver_EmitsOneEventPerAttempt(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/webhook/abc", failWith(http.StatusForbidden))
	f.handle("/relay1", failWith(http.StatusForbidden))
	f.handle("/relay2", jsonReply(map[string]any{"output": "ok"}))

	obs, events := collectEvents()
	_, err := f.chain(t, WithObserver(obs)).Deliver(context.Background(), "my secret password", f.endpoint())
	require.NoError(t, err)

	got := events()
	require.Len(t, got, 3)
	require.Equal(t, StrategyDirect, got[0].Strategy)
	require.Equal(t, attempts.OutcomeStatus, got[0].Outcome)
	require.Equal(t, http.StatusForbidden, got[0].StatusCode)
	require.Equal(t, "relay1", got[1].Strategy)
	require.Equal(t, attempts.OutcomeStatus, got[1].Outcome)
	require.Equal(t, "relay2", got[2].Strategy)
	require.Equal(t, http.MethodGet, got[2].Method)
	require.Equal(t, attempts.OutcomeSuccess, got[2].Outcome)
	require.Equal(t, got[0].DeliveryID, got[2].DeliveryID)

	// the relay still receives the message, the event only the rewritten URL
	require.Equal(t, "my secret password", f.queries["/relay2"].Get(GetMessageParam))
	require.Equal(t, f.srv.URL+"/relay2?url="+url.QueryEscape(string(f.endpoint())), got[2].URL)
	for _, e := range got {
		require.NotContains(t, e.URL, "secret")
		require.NotContains(t, e.URL, GetMessageParam)
	}
}

func TestDeliver_GetRelayTransportErrorOmitsMessage(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/relay3", jsonReply(map[string]any{"output": "ok"}))

	deadGet, err := NewPrefixStrategy("deadget", "http://127.0.0.1:1/get?url=", http.MethodGet)
	require.NoError(t, err)
	strategies := f.strategies(t)
	strategies[1] = deadGet
	f.handle("/relay1", failWith(http.StatusForbidden))

	var logs bytes.Buffer
	obs, events := collectEvents()
	c := f.chain(t,
		WithStrategies(strategies),
		WithObserver(obs),
		WithLogger(zerolog.New(&logs)),
	)
	_, err = c.Deliver(context.Background(), "my secret password", Endpoint("http://127.0.0.1:1/webhook"))
	require.NoError(t, err)

	got := events()
	require.Len(t, got, 4)
	require.Equal(t, "deadget", got[2].Strategy)
	require.Equal(t, attempts.OutcomeTransport, got[2].Outcome)
	require.NotEmpty(t, got[2].Error)
	for _, e := range got {
		require.NotContains(t, e.URL, "secret")
		require.NotContains(t, e.Error, "secret")
	}
	require.Contains(t, logs.String(), "deadget")
	require.NotContains(t, logs.String(), "secret")
}

func TestRedactURL(t *testing.T) {
	err := redactURL(&url.Error{Op: "Get", URL: "http://r/get?url=x&chatInput=pw", Err: io.EOF}, "http://r/get?url=x")
	var ue *url.Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "http://r/get?url=x", ue.URL)
	require.ErrorIs(t, err, io.EOF)

	plain := io.ErrUnexpectedEOF
	require.Equal(t, plain, redactURL(plain, "ignored"))
}

func TestDeliver_StrategyOrderIsStableAcrossCalls(t *testing.T) {
	f := newFakeNet(t)
	f.handle("/relay3", jsonReply(map[string]any{"output": "ok"}))
	c := f.chain(t)

	for i := 0; i < 3; i++ {
		_, err := c.Deliver(context.Background(), "x", f.endpoint())
		require.NoError(t, err)
	}
	hits := f.hitList()
	require.Len(t, hits, 12)
	for i := 0; i < 3; i++ {
		require.Equal(t, []string{"POST /webhook/abc", "POST /relay1", "GET /relay2", "POST /relay3"}, hits[i*4:i*4+4])
	}
}

func TestAppendQueryParam(t *testing.T) {
	require.Equal(t, "https://r/get?url=x&chatInput=a+b", appendQueryParam("https://r/get?url=x", "chatInput", "a b"))
	require.Equal(t, "https://r/get?chatInput=%26", appendQueryParam("https://r/get", "chatInput", "&"))
	require.Equal(t, "https://r/get?chatInput=z", appendQueryParam("https://r/get?", "chatInput", "z"))
}
