package client_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glossahq/glossa/internal/session"
	"github.com/glossahq/glossa/pkg/client"
	"github.com/glossahq/glossa/pkg/protocol"
)

type dispatchCall struct {
	clientID string
	env      protocol.Envelope
}

// stubDispatcher records every dispatch and replies with a fixed response.
// With started/release set it signals entry and then blocks, so tests can
// interrupt a request mid-flight.
type stubDispatcher struct {
	mu       sync.Mutex
	response protocol.Response
	calls    []dispatchCall
	started  chan struct{}
	release  chan struct{}
}

func (d *stubDispatcher) Dispatch(_ context.Context, clientID string, env protocol.Envelope) protocol.Response {
	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{clientID: clientID, env: env})
	started, release := d.started, d.release
	resp := d.response
	d.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return resp
}

func (d *stubDispatcher) all() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatchCall, len(d.calls))
	copy(out, d.calls)
	return out
}

type fixture struct {
	hub  *session.Hub
	disp *stubDispatcher
	url  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	disp := &stubDispatcher{response: protocol.OK(true)}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	hub, err := session.NewHub(session.Config{
		Dispatcher: disp,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewHub() error = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleSession))
	t.Cleanup(srv.Close)

	return &fixture{hub: hub, disp: disp, url: srv.URL}
}

func (f *fixture) dial(ctx context.Context, t *testing.T) *client.Client {
	t.Helper()
	cli, err := client.Dial(ctx, client.Config{
		URL:    f.url,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func recvEnvelope(t *testing.T, ch <-chan protocol.Envelope) protocol.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
		return protocol.Envelope{}
	}
}

func TestClient_SendRoundTrip(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	fx.disp.response = protocol.OK(map[string]string{"translatedText": "hola"})
	cli := fx.dial(ctx, t)

	resp := cli.Send(ctx, protocol.TypeTranslate, protocol.TranslateRequest{
		Text:           "hello",
		TargetLanguage: "Spanish",
	})
	if !resp.Success {
		t.Fatalf("Send() = %+v, want success", resp)
	}
	if !strings.Contains(string(resp.Data), "hola") {
		t.Errorf("response data = %s, want translated text", resp.Data)
	}

	calls := fx.disp.all()
	if len(calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(calls))
	}
	if calls[0].env.Type != protocol.TypeTranslate {
		t.Errorf("dispatched type = %q, want %q", calls[0].env.Type, protocol.TypeTranslate)
	}
	if calls[0].env.ID == "" {
		t.Error("dispatched envelope has no request id")
	}
	if !strings.Contains(string(calls[0].env.Payload), "Spanish") {
		t.Errorf("dispatched payload = %s, want request fields", calls[0].env.Payload)
	}
}

func TestClient_SendAssignsDistinctRequestIDs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)

	cli.Send(ctx, protocol.TypeTestConnection, nil)
	cli.Send(ctx, protocol.TypeTestConnection, nil)

	calls := fx.disp.all()
	if len(calls) != 2 {
		t.Fatalf("dispatch calls = %d, want 2", len(calls))
	}
	if calls[0].env.ID == calls[1].env.ID {
		t.Errorf("both requests used id %q, want distinct ids", calls[0].env.ID)
	}
}

func TestClient_SendAfterCloseIsNoRuntime(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)
	if err := cli.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	resp := cli.Send(ctx, protocol.TypeTestConnection, nil)
	if resp.Success {
		t.Fatalf("Send() after Close = %+v, want failure", resp)
	}
	if resp.Error.Code != protocol.CodeNoRuntime {
		t.Errorf("error code = %q, want %q", resp.Error.Code, protocol.CodeNoRuntime)
	}

	if calls := fx.disp.all(); len(calls) != 0 {
		t.Errorf("dispatch calls = %d, want 0", len(calls))
	}
}

func TestClient_SendRejectsReplyTypes(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)

	for _, typ := range []protocol.MessageType{protocol.TypeResponse, protocol.TypeStreamToken} {
		resp := cli.Send(ctx, typ, nil)
		if resp.Success {
			t.Fatalf("Send(%q) = %+v, want failure", typ, resp)
		}
		if resp.Error.Code != protocol.CodeMessagingError {
			t.Errorf("Send(%q) code = %q, want %q", typ, resp.Error.Code, protocol.CodeMessagingError)
		}
	}

	if calls := fx.disp.all(); len(calls) != 0 {
		t.Errorf("dispatch calls = %d, want 0 (reply types must not reach the daemon)", len(calls))
	}
}

func TestClient_ServerCloseMidRequestIsNoResponse(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	fx.disp.started = make(chan struct{}, 1)
	fx.disp.release = make(chan struct{})
	t.Cleanup(func() { close(fx.disp.release) })
	cli := fx.dial(ctx, t)

	result := make(chan protocol.Response, 1)
	go func() {
		result <- cli.Send(ctx, protocol.TypeTestConnection, nil)
	}()

	<-fx.disp.started
	fx.hub.Close()

	resp := <-result
	if resp.Success {
		t.Fatalf("Send() = %+v, want failure", resp)
	}
	if resp.Error.Code != protocol.CodeNoResponse {
		t.Errorf("error code = %q, want %q", resp.Error.Code, protocol.CodeNoResponse)
	}
}

func TestClient_AbandonedContextIsCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	fx.disp.started = make(chan struct{}, 1)
	fx.disp.release = make(chan struct{})
	t.Cleanup(func() { close(fx.disp.release) })
	cli := fx.dial(ctx, t)

	sendCtx, abandon := context.WithCancel(ctx)
	defer abandon()

	result := make(chan protocol.Response, 1)
	go func() {
		result <- cli.Send(sendCtx, protocol.TypeTestConnection, nil)
	}()

	<-fx.disp.started
	abandon()

	resp := <-result
	if resp.Success {
		t.Fatalf("Send() = %+v, want failure", resp)
	}
	if resp.Error.Code != protocol.CodeCancelled {
		t.Errorf("error code = %q, want %q", resp.Error.Code, protocol.CodeCancelled)
	}
}

func TestClient_SubscribeReceivesOwnStreamOnly(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)

	// A first round trip reveals the id the hub assigned this connection.
	cli.Send(ctx, protocol.TypeTestConnection, nil)
	clientID := fx.disp.all()[0].clientID

	events := cli.Subscribe("gen-1")
	defer cli.Unsubscribe("gen-1")

	fx.hub.Notify(clientID, protocol.TypeStreamToken, map[string]string{
		"requestId": "gen-1",
		"token":     "Hel",
	})
	fx.hub.Notify(clientID, protocol.TypeStreamToken, map[string]string{
		"requestId": "gen-other",
		"token":     "zzz",
	})
	fx.hub.Notify(clientID, protocol.TypeStreamComplete, map[string]string{
		"requestId": "gen-1",
	})

	first := recvEnvelope(t, events)
	if first.Type != protocol.TypeStreamToken {
		t.Errorf("first notification type = %q, want %q", first.Type, protocol.TypeStreamToken)
	}
	if !strings.Contains(string(first.Payload), "Hel") {
		t.Errorf("first notification payload = %s, want token content", first.Payload)
	}
	second := recvEnvelope(t, events)
	if second.Type != protocol.TypeStreamComplete {
		t.Errorf("second notification type = %q, want %q", second.Type, protocol.TypeStreamComplete)
	}

	// The gen-other token was written between the two delivered frames, so
	// by now it has been routed and dropped.
	if len(events) != 0 {
		t.Error("subscriber received a notification for another request id")
	}
}

func TestClient_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)

	cli.Send(ctx, protocol.TypeTestConnection, nil)
	clientID := fx.disp.all()[0].clientID

	events := cli.Subscribe("gen-1")
	cli.Unsubscribe("gen-1")

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("received a notification from an unsubscribed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}

	fx.hub.Notify(clientID, protocol.TypeStreamToken, map[string]string{
		"requestId": "gen-1",
		"token":     "Hel",
	})

	// A round trip after the notification proves the read loop processed and
	// dropped it: frames arrive in order on one connection.
	cli.Send(ctx, protocol.TypeTestConnection, nil)
}

func TestClient_CloseEndsSubscriptions(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	cli := fx.dial(ctx, t)

	events := cli.Subscribe("gen-1")
	if err := cli.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("received a notification after Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after Close")
	}

	// Subscribing on a closed client hands back an already closed channel.
	late := cli.Subscribe("gen-2")
	if _, ok := <-late; ok {
		t.Fatal("Subscribe after Close returned a live channel")
	}
}

func TestClient_DialRequiresRunningDaemon(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := client.Dial(ctx, client.Config{URL: url}); err == nil {
		t.Fatal("Dial() against a closed server: want error, got nil")
	}
}

func TestClient_DialSendsBearerToken(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fx := newFixture(t)
	authed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer super-secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fx.hub.HandleSession(w, r)
	}))
	t.Cleanup(authed.Close)

	if _, err := client.Dial(ctx, client.Config{URL: authed.URL}); err == nil {
		t.Fatal("Dial() without token: want handshake error, got nil")
	}

	cli, err := client.Dial(ctx, client.Config{URL: authed.URL, Token: "super-secret"})
	if err != nil {
		t.Fatalf("Dial() with token error = %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	if resp := cli.Send(ctx, protocol.TypeTestConnection, nil); !resp.Success {
		t.Fatalf("Send() = %+v, want success", resp)
	}
}

func TestGenerateRequestID_IsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id := client.GenerateRequestID()
		if id == "" {
			t.Fatal("GenerateRequestID() returned an empty id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("GenerateRequestID() repeated %q", id)
		}
		seen[id] = struct{}{}
	}
}
