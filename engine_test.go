package flutterhost

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinefabric/flutterhost-go/codec"
	"github.com/machinefabric/flutterhost-go/embedder"
)

type sentMessage struct {
	channel string
	message []byte
	token   embedder.ResponseToken
}

type sentResponse struct {
	token   embedder.ResponseToken
	message []byte
}

// fakeRawEngine is an in-process transport double. Outbound messages and
// responses are recorded; replies to outbound messages are injected with
// deliverReply.
type fakeRawEngine struct {
	mu        sync.Mutex
	sent      []sentMessage
	responses []sentResponse
	replies   map[embedder.ResponseToken]func([]byte)
	released  []embedder.ResponseToken
	nextToken uintptr
}

func newFakeRawEngine() *fakeRawEngine {
	return &fakeRawEngine{replies: make(map[embedder.ResponseToken]func([]byte))}
}

func (f *fakeRawEngine) SendPlatformMessage(channel string, message []byte, token embedder.ResponseToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channel: channel, message: append([]byte(nil), message...), token: token})
	return nil
}

func (f *fakeRawEngine) CreateResponseHandle(onReply func(message []byte)) (embedder.ResponseToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextToken++
	token := embedder.ResponseToken(f.nextToken + 1000)
	f.replies[token] = onReply
	return token, nil
}

func (f *fakeRawEngine) ReleaseResponseHandle(token embedder.ResponseToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, token)
	return nil
}

func (f *fakeRawEngine) SendPlatformMessageResponse(token embedder.ResponseToken, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, sentResponse{token: token, message: append([]byte(nil), message...)})
	return nil
}

func (f *fakeRawEngine) deliverReply(token embedder.ResponseToken, message []byte) {
	f.mu.Lock()
	onReply := f.replies[token]
	delete(f.replies, token)
	f.mu.Unlock()
	if onReply != nil {
		onReply(message)
	}
}

func (f *fakeRawEngine) lastSent(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeRawEngine) lastResponse(t *testing.T) sentResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1]
}

func (f *fakeRawEngine) responseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses)
}

func TestEngineDispatchesMethodCallAndRepliesSuccess(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	ch := NewMethodChannel(engine, "battery", codec.StandardMethod)
	ch.SetMethodHandler(func(call codec.MethodCall, responder *MethodResponder) {
		require.Equal(t, "getLevel", call.Method)
		require.NoError(t, responder.Success(codec.Int32(42)))
	})
	engine.Registry().Register(ch)

	request, err := codec.StandardMethod.EncodeMethodCall(codec.MethodCall{Method: "getLevel", Arguments: codec.Null()})
	require.NoError(t, err)

	engine.HandlePlatformMessage("battery", request, embedder.ResponseToken(7))

	resp := raw.lastResponse(t)
	assert.Equal(t, embedder.ResponseToken(7), resp.token)

	result, err := codec.StandardMethod.DecodeEnvelope(resp.message)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.True(t, result.Value().Equal(codec.Int32(42)))
}

func TestEngineAnswersUnknownChannelNotImplemented(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	request, err := codec.StandardMethod.EncodeMethodCall(codec.MethodCall{Method: "boo", Arguments: codec.Null()})
	require.NoError(t, err)

	engine.HandlePlatformMessage("ghost", request, embedder.ResponseToken(9))

	resp := raw.lastResponse(t)
	assert.Equal(t, embedder.ResponseToken(9), resp.token)
	assert.Empty(t, resp.message)
}

func TestEngineDropsUnknownChannelWithoutToken(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	engine.HandlePlatformMessage("ghost", []byte{1, 2, 3}, 0)

	assert.Zero(t, raw.responseCount())
}

func TestEngineSecondResponseFails(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	handle := newResponseHandle("once", embedder.ResponseToken(4), engine.sendResponse)
	require.NoError(t, handle.Respond([]byte{0}))
	assert.True(t, handle.Responded())
	assert.ErrorIs(t, handle.Respond([]byte{0}), ErrAlreadyResponded)
	assert.ErrorIs(t, handle.NotImplemented(), ErrAlreadyResponded)
	assert.Equal(t, 1, raw.responseCount())
}

func TestEngineHandlerPanicIsContained(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	ch := NewMethodChannel(engine, "volatile", codec.StandardMethod)
	ch.SetMethodHandler(func(call codec.MethodCall, responder *MethodResponder) {
		panic("handler exploded")
	})
	engine.Registry().Register(ch)

	request, err := codec.StandardMethod.EncodeMethodCall(codec.MethodCall{Method: "go", Arguments: codec.Null()})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		engine.HandlePlatformMessage("volatile", request, embedder.ResponseToken(5))
	})

	resp := raw.lastResponse(t)
	assert.Empty(t, resp.message)
}

func TestEnginePanicAfterResponseDoesNotReplyTwice(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	ch := NewMethodChannel(engine, "volatile", codec.StandardMethod)
	ch.SetMethodHandler(func(call codec.MethodCall, responder *MethodResponder) {
		require.NoError(t, responder.Success(codec.Bool(true)))
		panic("after reply")
	})
	engine.Registry().Register(ch)

	request, err := codec.StandardMethod.EncodeMethodCall(codec.MethodCall{Method: "go", Arguments: codec.Null()})
	require.NoError(t, err)

	engine.HandlePlatformMessage("volatile", request, embedder.ResponseToken(6))

	assert.Equal(t, 1, raw.responseCount())
	result, err := codec.StandardMethod.DecodeEnvelope(raw.lastResponse(t).message)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
}

func TestEngineSendWithReplyCorrelatesOutOfOrder(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	var mu sync.Mutex
	got := map[string]string{}
	reply := func(tag string) func([]byte) {
		return func(message []byte) {
			mu.Lock()
			got[tag] = string(message)
			mu.Unlock()
		}
	}

	require.NoError(t, engine.SendWithReply("chan", []byte("first"), reply("first")))
	tokenFirst := raw.lastSent(t).token
	require.NoError(t, engine.SendWithReply("chan", []byte("second"), reply("second")))
	tokenSecond := raw.lastSent(t).token
	require.NotEqual(t, tokenFirst, tokenSecond)

	// Replies land in reverse order; correlation must still hold.
	raw.deliverReply(tokenSecond, []byte("reply-2"))
	raw.deliverReply(tokenFirst, []byte("reply-1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "reply-1", got["first"])
	assert.Equal(t, "reply-2", got["second"])
}

func TestEngineShutdownResolvesPendingReplies(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	done := make(chan []byte, 1)
	require.NoError(t, engine.SendWithReply("chan", []byte("hello"), func(message []byte) {
		done <- message
	}))

	engine.Shutdown()

	select {
	case message := <-done:
		assert.Empty(t, message)
	case <-time.After(time.Second):
		t.Fatal("pending reply was not resolved by shutdown")
	}

	assert.ErrorIs(t, engine.Send("chan", []byte("late")), ErrEngineShutDown)
	assert.ErrorIs(t, engine.SendWithReply("chan", nil, func([]byte) {}), ErrEngineShutDown)
}

func TestEngineShutdownIsIdempotent(t *testing.T) {
	engine := NewEngine(newFakeRawEngine())
	engine.Shutdown()
	assert.NotPanics(t, engine.Shutdown)
}

func TestEngineRepliesNotImplementedAfterShutdown(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)
	engine.Shutdown()

	engine.HandlePlatformMessage("any", []byte{1}, embedder.ResponseToken(11))

	resp := raw.lastResponse(t)
	assert.Empty(t, resp.message)
}

func TestEngineMessageObserverSeesTraffic(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	obs := &recordingObserver{}
	engine.SetMessageObserver(obs)

	require.NoError(t, engine.Send("out", []byte("o")))
	engine.HandlePlatformMessage("in", []byte("i"), 0)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"out"}, obs.outbound)
	assert.Equal(t, []string{"in"}, obs.inbound)
}

type recordingObserver struct {
	mu       sync.Mutex
	inbound  []string
	outbound []string
}

func (o *recordingObserver) ObserveInbound(channel string, payload []byte) {
	o.mu.Lock()
	o.inbound = append(o.inbound, channel)
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveOutbound(channel string, payload []byte) {
	o.mu.Lock()
	o.outbound = append(o.outbound, channel)
	o.mu.Unlock()
}

func TestMethodChannelCallRoundTrip(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)
	ch := NewMethodChannel(engine, "remote", codec.StandardMethod)

	go func() {
		for {
			raw.mu.Lock()
			var token embedder.ResponseToken
			if len(raw.sent) > 0 {
				token = raw.sent[len(raw.sent)-1].token
			}
			raw.mu.Unlock()
			if token != 0 {
				env, _ := codec.StandardMethod.EncodeSuccessEnvelope(codec.String("pong"))
				raw.deliverReply(token, env)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := ch.Call(ctx, "ping", codec.Null())
	require.NoError(t, err)
	assert.True(t, value.Equal(codec.String("pong")))
}

func TestMethodChannelCallSurfacesErrorEnvelope(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)
	ch := NewMethodChannel(engine, "remote", codec.StandardMethod)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := ch.Call(ctx, "fail", codec.Null())
		done <- err
	}()

	var token embedder.ResponseToken
	require.Eventually(t, func() bool {
		raw.mu.Lock()
		defer raw.mu.Unlock()
		if len(raw.sent) == 0 {
			return false
		}
		token = raw.sent[0].token
		return true
	}, time.Second, time.Millisecond)

	env, err := codec.StandardMethod.EncodeErrorEnvelope("NO", "nope", codec.Null())
	require.NoError(t, err)
	raw.deliverReply(token, env)

	callErr := <-done
	var methodErr *MethodError
	require.ErrorAs(t, callErr, &methodErr)
	assert.Equal(t, "NO", methodErr.Code)
	assert.Equal(t, "nope", methodErr.Message)
}

func TestMethodChannelCallNotImplementedReply(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)
	ch := NewMethodChannel(engine, "remote", codec.StandardMethod)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := ch.Call(ctx, "missing", codec.Null())
		done <- err
	}()

	var token embedder.ResponseToken
	require.Eventually(t, func() bool {
		raw.mu.Lock()
		defer raw.mu.Unlock()
		if len(raw.sent) == 0 {
			return false
		}
		token = raw.sent[0].token
		return true
	}, time.Second, time.Millisecond)

	raw.deliverReply(token, nil)
	assert.ErrorIs(t, <-done, ErrMethodNotImplemented)
}

func TestPluginLifecycle(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	p := &testPlugin{name: "demo", channel: "demo/channel"}
	require.NoError(t, engine.AddPlugin(p))

	_, registered := engine.Registry().Lookup("demo/channel")
	assert.True(t, registered)

	err := engine.AddPlugin(&testPlugin{name: "demo"})
	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Equal(t, "demo", pluginErr.Plugin)

	engine.RemovePlugin("demo")
	_, registered = engine.Registry().Lookup("demo/channel")
	assert.False(t, registered)
	assert.True(t, p.deinitialized)
}

func TestPluginInitFailureLeavesNoChannels(t *testing.T) {
	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	p := &testPlugin{name: "broken", channel: "broken/channel", initErr: fmt.Errorf("boom")}
	err := engine.AddPlugin(p)
	require.Error(t, err)

	_, registered := engine.Registry().Lookup("broken/channel")
	assert.False(t, registered)
	_, added := engine.PluginNamed("broken")
	assert.False(t, added)
}

type testPlugin struct {
	name          string
	channel       string
	initErr       error
	deinitialized bool
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) InitPlugin(registrar *Registrar) error {
	if p.channel != "" {
		ch := NewMethodChannel(registrar.Messenger(), p.channel, codec.StandardMethod)
		registrar.RegisterChannel(ch)
	}
	return p.initErr
}

func (p *testPlugin) DeinitPlugin() { p.deinitialized = true }
