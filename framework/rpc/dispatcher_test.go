package rpc

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kaguyact/majsoul-api/framework/protocol"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	kind protocol.MessageType
	data []byte
}

type fakeTransport struct {
	in   chan protocol.Message
	sent chan sentFrame
	err  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan protocol.Message, 16),
		sent: make(chan sentFrame, 16),
	}
}

func (f *fakeTransport) Send(kind protocol.MessageType, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent <- sentFrame{kind: kind, data: append([]byte(nil), data...)}
	return nil
}

func (f *fakeTransport) Messages() <-chan protocol.Message {
	return f.in
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeTransport, *protocol.Codec) {
	t.Helper()
	raw, err := os.ReadFile("../protocol/testdata/liqi_min.json")
	require.NoError(t, err)
	schema, err := protocol.LoadSchema(raw)
	require.NoError(t, err)
	codec := protocol.NewCodec(schema)
	tr := newFakeTransport()
	d := NewDispatcher(codec, tr)
	t.Cleanup(d.Close)
	return d, tr, codec
}

// nextRequest 取出客户端发出的下一个请求
func nextRequest(t *testing.T, tr *fakeTransport, codec *protocol.Codec) *protocol.Frame {
	t.Helper()
	select {
	case s := <-tr.sent:
		require.Equal(t, protocol.Request, s.kind)
		f, err := codec.DecodeBody(s.kind, s.data)
		require.NoError(t, err)
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("没有发出请求")
		return nil
	}
}

func respond(t *testing.T, tr *fakeTransport, codec *protocol.Codec, req *protocol.Frame, value any) {
	t.Helper()
	body, err := codec.EncodeBody(protocol.Response, req.RequestID, req.Name, value)
	require.NoError(t, err)
	tr.in <- protocol.Message{Type: protocol.Response, Data: body}
}

type gameRecordRes struct {
	Head struct {
		UUID string `json:"uuid"`
	} `json:"head"`
}

func TestCallsMatchedByRequestID(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)

	uuids := []string{"game-a", "game-b", "game-c"}
	var wg sync.WaitGroup
	results := make([]string, len(uuids))
	errs := make([]error, len(uuids))
	for i, id := range uuids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			var res gameRecordRes
			errs[i] = d.Call(context.Background(), ".lq.Lobby.fetchGameRecord", map[string]any{"game_uuid": id}, &res)
			results[i] = res.Head.UUID
		}(i, id)
	}

	reqs := make([]*protocol.Frame, 0, len(uuids))
	for range uuids {
		reqs = append(reqs, nextRequest(t, tr, codec))
	}
	seen := make(map[uint16]bool)
	for _, r := range reqs {
		require.NotZero(t, r.RequestID)
		require.False(t, seen[r.RequestID], "请求 ID 重复: %d", r.RequestID)
		seen[r.RequestID] = true
	}

	// 倒序响应，每个调用仍然拿到自己的结果
	for i := len(reqs) - 1; i >= 0; i-- {
		var req struct {
			GameUUID string `json:"game_uuid"`
		}
		require.NoError(t, protocol.Convert(reqs[i].Message, &req))
		respond(t, tr, codec, reqs[i], map[string]any{"head": map[string]any{"uuid": req.GameUUID}})
	}
	wg.Wait()

	for i := range uuids {
		require.NoError(t, errs[i])
		require.Equal(t, uuids[i], results[i])
	}
}

func TestNotificationsAreNotMatched(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)

	done := make(chan error, 1)
	go func() {
		done <- d.Call(context.Background(), ".lq.Lobby.heatbeat", map[string]any{"no_operation_counter": 1}, nil)
	}()
	req := nextRequest(t, tr, codec)

	body, err := codec.EncodeBody(protocol.Notify, 0, "lq.NotifyCustomContestSystemMsg", map[string]any{"unique_id": 42})
	require.NoError(t, err)
	tr.in <- protocol.Message{Type: protocol.Notify, Data: body}

	select {
	case n := <-d.Notifications():
		require.True(t, n.Is("lq.NotifyCustomContestSystemMsg"))
		var msg struct {
			UniqueID uint32 `json:"unique_id"`
		}
		require.NoError(t, n.Decode(&msg))
		require.EqualValues(t, 42, msg.UniqueID)
	case <-time.After(2 * time.Second):
		t.Fatalf("没有收到通知")
	}

	select {
	case err := <-done:
		t.Fatalf("通知不应该完成调用: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	respond(t, tr, codec, req, nil)
	require.NoError(t, <-done)
}

func TestAbortRejectsPendingCalls(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)
	boom := errors.New("socket closed")

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			done <- d.Call(context.Background(), ".lq.Lobby.heatbeat", nil, nil)
		}()
	}
	nextRequest(t, tr, codec)
	nextRequest(t, tr, codec)

	d.Abort(boom)
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-done, boom)
	}
}

func TestCanceledCallIsForgotten(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Call(ctx, ".lq.Lobby.heatbeat", nil, nil)
	}()
	stale := nextRequest(t, tr, codec)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// 迟到的响应被丢弃，不影响后续调用
	respond(t, tr, codec, stale, nil)

	go func() {
		done <- d.Call(context.Background(), ".lq.Lobby.heatbeat", nil, nil)
	}()
	req := nextRequest(t, tr, codec)
	require.NotEqual(t, stale.RequestID, req.RequestID)
	respond(t, tr, codec, req, nil)
	require.NoError(t, <-done)
}

func TestCallTimeout(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.Call(ctx, ".lq.Lobby.heatbeat", nil, nil)
	}()
	nextRequest(t, tr, codec)

	err := <-done
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResponseErrorCode(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)

	done := make(chan error, 1)
	go func() {
		done <- d.Call(context.Background(), ".lq.Lobby.fetchGameRecord", map[string]any{"game_uuid": "x"}, nil)
	}()
	req := nextRequest(t, tr, codec)
	respond(t, tr, codec, req, map[string]any{"error": map[string]any{"code": 1203}})

	var resErr *ResponseError
	require.ErrorAs(t, <-done, &resErr)
	require.EqualValues(t, 1203, resErr.Code)
	require.Equal(t, "lq.Lobby.fetchGameRecord", resErr.Method)
}

func TestSendFailureAndEncodeFailure(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)

	err := d.Call(context.Background(), ".lq.Lobby.heatbeat", map[string]any{"no_such_field": 1}, nil)
	require.ErrorIs(t, err, protocol.ErrEncode)

	err = d.Call(context.Background(), ".lq.Lobby.noSuchMethod", nil, nil)
	require.ErrorIs(t, err, protocol.ErrEncode)

	notConnected := errors.New("not connected")
	tr.err = notConnected
	err = d.Call(context.Background(), ".lq.Lobby.heatbeat", nil, nil)
	require.ErrorIs(t, err, notConnected)
}

func TestServiceView(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)
	lobby := d.Service("Lobby")
	require.Equal(t, "lq.Lobby", lobby.Name())

	done := make(chan error, 1)
	var res struct {
		HasAccount bool `json:"has_account"`
	}
	go func() {
		done <- lobby.Call(context.Background(), "oauth2Check", map[string]any{"type": 8, "access_token": "t"}, &res)
	}()
	req := nextRequest(t, tr, codec)
	require.Equal(t, ".lq.Lobby.oauth2Check", req.Name)
	respond(t, tr, codec, req, map[string]any{"has_account": true})
	require.NoError(t, <-done)
	require.True(t, res.HasAccount)
}

func TestCloseFailsPendingCalls(t *testing.T) {
	d, tr, codec := newTestDispatcher(t)

	done := make(chan error, 1)
	go func() {
		done <- d.Call(context.Background(), ".lq.Lobby.heatbeat", nil, nil)
	}()
	nextRequest(t, tr, codec)
	d.Close()
	require.ErrorIs(t, <-done, ErrClosed)
	require.ErrorIs(t, d.Call(context.Background(), ".lq.Lobby.heatbeat", nil, nil), ErrClosed)

	_, open := <-d.Notifications()
	require.False(t, open)
}

func TestNextRequestID(t *testing.T) {
	pending := map[uint16]*pendingCall{}
	id, ok := nextRequestID(0, pending)
	require.True(t, ok)
	require.EqualValues(t, 1, id)

	// 回绕时跳过 0 和仍然挂起的 ID
	pending[1] = &pendingCall{}
	id, ok = nextRequestID(65535, pending)
	require.True(t, ok)
	require.EqualValues(t, 2, id)

	full := make(map[uint16]*pendingCall, 65535)
	for i := 1; i <= 65535; i++ {
		full[uint16(i)] = &pendingCall{}
	}
	_, ok = nextRequestID(100, full)
	require.False(t, ok)
}
