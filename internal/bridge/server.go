// Package bridge exposes a handset over a local websocket: key, light and
// connection events are pushed to clients, and clients can drive the LEDs
// and the buzzer.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/chaz8081/f503i/internal/f503i"
	"github.com/chaz8081/f503i/internal/melody"
)

// Handset is the part of f503i.Device the bridge uses.
type Handset interface {
	SetLEDBrightness(led f503i.LED, brightness uint8)
	TurnOnBuzzer(note f503i.Note)
	TurnOffBuzzer()
	KeyValue() f503i.KeyState
	LightSensorValue() uint16
	State() f503i.ConnState
	IsConnected() bool
	Address() string
}

const eventQueueSize = 64

// Server bridges one handset to websocket clients.
type Server struct {
	handset  Handset
	hub      *Hub
	log      *logrus.Entry
	upgrader websocket.Upgrader
	events   chan Event

	mu         sync.Mutex
	prevKeys   f503i.KeyState
	cancelPlay context.CancelFunc
}

// NewServer creates a Server. Wire OnKeys, OnLight and OnState into the
// device options and call Run to start delivering events.
func NewServer(h Handset, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		handset: h,
		hub:     NewHub(),
		log:     logger.WithField("component", "bridge"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // clients are local tools and pages
			},
		},
		events: make(chan Event, eventQueueSize),
	}
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the bridge's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

// Run broadcasts queued events until ctx is done.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.stopPlay()
			s.hub.Close()
			return
		case ev := <-s.events:
			s.hub.Broadcast(ev)
		}
	}
}

// ListenAndServe serves Handler on addr and runs the broadcaster until ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("bridge listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge: serve: %w", err)
	}
	return nil
}

// OnKeys queues a keys event; it matches f503i.Options.OnKeys.
func (s *Server) OnKeys(keys f503i.KeyState) {
	s.mu.Lock()
	prev := s.prevKeys
	s.prevKeys = keys
	s.mu.Unlock()

	s.publish(Event{Type: EventKeys, Payload: KeysPayload{
		Mask:     uint16(keys),
		Keys:     keyNames(keys.Keys()),
		Pressed:  keyNames(keys.Pressed(prev)),
		Released: keyNames(keys.Released(prev)),
	}})
}

// OnLight queues a light event; it matches f503i.Options.OnLight.
func (s *Server) OnLight(level uint16) {
	s.publish(Event{Type: EventLight, Payload: LightPayload{Level: level}})
}

// OnState queues a state event; it matches f503i.Options.OnState.
func (s *Server) OnState(state f503i.ConnState) {
	p := s.snapshot()
	p.State = state.String()
	s.publish(Event{Type: EventState, Payload: p})
}

// publish never blocks the device callbacks; a full queue drops the event.
func (s *Server) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.WithField("type", ev.Type).Debug("event queue full, dropping")
	}
}

func (s *Server) snapshot() StatePayload {
	return StatePayload{
		State:     s.handset.State().String(),
		Connected: s.handset.IsConnected(),
		Address:   s.handset.Address(),
		Keys:      keyNames(s.handset.KeyValue().Keys()),
		Light:     s.handset.LightSensorValue(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(ErrorPayload{Error: "method not allowed"})
		return
	}
	json.NewEncoder(w).Encode(s.snapshot())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := s.hub.AddClient(conn)
	if err := c.writeJSON(Event{Type: EventState, Payload: s.snapshot()}); err != nil {
		s.hub.RemoveClient(conn)
		return
	}
	s.log.WithField("remote", r.RemoteAddr).Debug("client connected")

	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.hub.RemoveClient(c.conn)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if uerr := json.Unmarshal(data, &cmd); uerr != nil {
			err = fmt.Errorf("bad command: %w", uerr)
		} else {
			err = s.apply(cmd)
		}
		if err != nil {
			s.log.WithError(err).WithField("type", cmd.Type).Debug("rejected command")
			if werr := c.writeJSON(errorEvent(err)); werr != nil {
				return
			}
		}
	}
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Error: err.Error()}}
}

// apply runs one client command against the handset.
func (s *Server) apply(cmd Command) error {
	switch cmd.Type {
	case CommandLED:
		led, ok := f503i.ParseLED(cmd.LED)
		if !ok {
			return fmt.Errorf("unknown led %q", cmd.LED)
		}
		brightness := int(f503i.BrightnessMax)
		if cmd.Brightness != nil {
			brightness = *cmd.Brightness
		}
		if brightness < 0 || brightness > 255 {
			return fmt.Errorf("brightness %d out of range 0..255", brightness)
		}
		s.handset.SetLEDBrightness(led, uint8(brightness))

	case CommandBuzzer:
		note, err := f503i.ParseNote(cmd.Note)
		if err != nil {
			return err
		}
		s.stopPlay()
		s.handset.TurnOnBuzzer(note)

	case CommandBuzzerOff:
		s.stopPlay()
		s.handset.TurnOffBuzzer()

	case CommandPlay:
		m, err := melody.Parse(cmd.Melody)
		if err != nil {
			return err
		}
		s.startPlay(m)

	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

// startPlay replaces any melody still playing.
func (s *Server) startPlay(m melody.Melody) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.cancelPlay != nil {
		s.cancelPlay()
	}
	s.cancelPlay = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := melody.Play(ctx, s.handset, m); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Debug("melody stopped")
		}
	}()
}

func (s *Server) stopPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelPlay != nil {
		s.cancelPlay()
		s.cancelPlay = nil
	}
}

func keyNames(keys []f503i.Key) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
