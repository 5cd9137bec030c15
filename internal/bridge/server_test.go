package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/f503i/internal/f503i"
)

type fakeHandset struct {
	mu     sync.Mutex
	leds   [f503i.LEDCount]int
	notes  []f503i.Note
	keys   f503i.KeyState
	light  uint16
	state  f503i.ConnState
	linkUp bool
}

func newFakeHandset() *fakeHandset {
	h := &fakeHandset{state: f503i.StateReady, linkUp: true, light: 77}
	for i := range h.leds {
		h.leds[i] = -1
	}
	return h
}

func (h *fakeHandset) SetLEDBrightness(led f503i.LED, b uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leds[led] = int(b)
}

func (h *fakeHandset) TurnOnBuzzer(n f503i.Note) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, n)
}

func (h *fakeHandset) TurnOffBuzzer() { h.TurnOnBuzzer(f503i.NoteOff) }

func (h *fakeHandset) KeyValue() f503i.KeyState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keys
}

func (h *fakeHandset) LightSensorValue() uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.light
}

func (h *fakeHandset) State() f503i.ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHandset) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.linkUp
}

func (h *fakeHandset) Address() string { return "AA:BB:CC:DD:EE:FF" }

func (h *fakeHandset) led(l f503i.LED) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leds[l]
}

func (h *fakeHandset) Notes() []f503i.Note {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]f503i.Note(nil), h.notes...)
}

var _ Handset = (*f503i.Device)(nil)

// rawEvent keeps the payload undecoded so each test picks its type.
type rawEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startBridge(t *testing.T) (*Server, *fakeHandset, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := newFakeHandset()
	srv := NewServer(h, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return srv, h, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The server greets every client with a state snapshot.
	ev := readEvent(t, conn)
	require.Equal(t, EventState, ev.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestSnapshotOnConnect(t *testing.T) {
	_, _, ts := startBridge(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	require.Equal(t, EventState, ev.Type)
	var p StatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, "ready", p.State)
	assert.True(t, p.Connected)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", p.Address)
	assert.Equal(t, uint16(77), p.Light)
}

func TestKeyEventsBroadcast(t *testing.T) {
	srv, _, ts := startBridge(t)
	a := dial(t, ts)
	b := dial(t, ts)
	require.Equal(t, 2, srv.Hub().Count())

	srv.OnKeys(f503i.KeyMaskTable[f503i.Key5] | f503i.KeyMaskTable[f503i.KeySharp])

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		require.Equal(t, EventKeys, ev.Type)
		var p KeysPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.Equal(t, uint16(0x820), p.Mask)
		assert.Equal(t, []string{"5", "#"}, p.Keys)
		assert.Equal(t, []string{"5", "#"}, p.Pressed)
		assert.Empty(t, p.Released)
	}

	srv.OnKeys(f503i.KeyMaskTable[f503i.KeySharp])
	ev := readEvent(t, a)
	var p KeysPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, []string{"5"}, p.Released)
	assert.Empty(t, p.Pressed)
}

func TestLightAndStateEvents(t *testing.T) {
	srv, _, ts := startBridge(t)
	conn := dial(t, ts)

	srv.OnLight(512)
	ev := readEvent(t, conn)
	require.Equal(t, EventLight, ev.Type)
	var lp LightPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &lp))
	assert.Equal(t, uint16(512), lp.Level)

	srv.OnState(f503i.StateConnecting)
	ev = readEvent(t, conn)
	require.Equal(t, EventState, ev.Type)
	var sp StatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &sp))
	assert.Equal(t, "connecting", sp.State)
}

func TestLEDCommand(t *testing.T) {
	_, h, ts := startBridge(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "led", "led": "center", "brightness": 40}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "led", "led": "right"}))

	assert.Eventually(t, func() bool {
		return h.led(f503i.LEDCenter) == 40 && h.led(f503i.LEDRight) == 255
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, -1, h.led(f503i.LEDLeft))
}

func TestBuzzerCommands(t *testing.T) {
	_, h, ts := startBridge(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(Command{Type: CommandBuzzer, Note: "C4"}))
	require.NoError(t, conn.WriteJSON(Command{Type: CommandBuzzerOff}))

	assert.Eventually(t, func() bool {
		return len(h.Notes()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []f503i.Note{f503i.NoteC4, f503i.NoteOff}, h.Notes())
}

func TestPlayCommand(t *testing.T) {
	_, h, ts := startBridge(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(Command{Type: CommandPlay, Melody: "A4:5 C4:5"}))

	assert.Eventually(t, func() bool {
		n := h.Notes()
		return len(n) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []f503i.Note{f503i.NoteA4, f503i.NoteC4, f503i.NoteOff}, h.Notes())
}

func TestBadCommandsReportErrors(t *testing.T) {
	_, h, ts := startBridge(t)
	conn := dial(t, ts)

	for _, msg := range []string{
		`{"type":"led","led":"top"}`,
		`{"type":"led","led":"left","brightness":300}`,
		`{"type":"buzzer","note":"H9"}`,
		`{"type":"play","melody":""}`,
		`{"type":"dance"}`,
		`not json`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		ev := readEvent(t, conn)
		assert.Equal(t, EventError, ev.Type, "message %s", msg)
	}

	// The connection survives bad commands.
	require.NoError(t, conn.WriteJSON(Command{Type: CommandBuzzerOff}))
	assert.Eventually(t, func() bool { return len(h.Notes()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestClientRemovedOnClose(t *testing.T) {
	srv, _, ts := startBridge(t)
	conn := dial(t, ts)
	require.Equal(t, 1, srv.Hub().Count())

	conn.Close()
	assert.Eventually(t, func() bool { return srv.Hub().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestStateEndpoint(t *testing.T) {
	_, h, ts := startBridge(t)
	h.mu.Lock()
	h.keys = f503i.KeyMaskTable[f503i.Key1]
	h.mu.Unlock()

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var p StatePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "ready", p.State)
	assert.Equal(t, []string{"1"}, p.Keys)

	post, err := http.Post(ts.URL+"/state", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestPublishDoesNotBlock(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	srv := NewServer(newFakeHandset(), logger)

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventQueueSize*2; i++ {
			srv.OnLight(uint16(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running broadcaster")
	}
}
