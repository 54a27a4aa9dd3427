// Package relay implements bridge.Globals over a WebSocket connection to a
// browser page. The page enumerates the wallet objects injected into window,
// announces them in a hello frame, then executes call frames against them.
//
// One page session is live at a time. A new hello replaces the previous
// session; objects obtained from the old one fail with ErrBridgeClosed.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Fantasim/btcconnect/internal/bridge"
	"github.com/Fantasim/btcconnect/internal/config"
)

// Relay is an http.Handler accepting the page socket and a bridge.Globals
// resolving objects through it.
type Relay struct {
	upgrader websocket.Upgrader
	origins  map[string]bool

	mu      sync.RWMutex
	sess    *session
	waiters []chan struct{}
}

var _ bridge.Globals = (*Relay)(nil)

// New builds a Relay. Pages served from the same host are always accepted;
// origins lists any other origin allowed to connect.
func New(origins []string) *Relay {
	r := &Relay{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		r.origins[strings.TrimRight(o, "/")] = true
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     r.checkOrigin,
	}
	return r
}

func (r *Relay) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if r.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	ok := strings.EqualFold(u.Host, req.Host)
	if !ok {
		slog.Warn("bridge connection from foreign origin rejected", "origin", origin, "host", req.Host)
	}
	return ok
}

// ServeHTTP upgrades the request and serves the page session until the
// socket closes.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Warn("bridge upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(config.BridgeMaxMessageBytes)

	hello, err := readHello(conn)
	if err != nil {
		slog.Warn("bridge hello failed", "remoteAddr", req.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}

	s := newSession(conn, hello)
	r.install(s)

	go s.writePump()
	s.send <- mustMarshal(Frame{Type: FrameReady, ID: s.id})
	s.readPump()

	r.remove(s)
}

func readHello(conn *websocket.Conn) (Frame, error) {
	if err := conn.SetReadDeadline(time.Now().Add(config.BridgeHelloTimeout)); err != nil {
		return Frame{}, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return Frame{}, fmt.Errorf("read hello: %w", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode hello: %w", err)
	}
	if f.Type != FrameHello {
		return Frame{}, fmt.Errorf("expected hello frame, got %q", f.Type)
	}
	return f, nil
}

func (r *Relay) install(s *session) {
	r.mu.Lock()
	old := r.sess
	r.sess = s
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	if old != nil {
		old.close("replaced by a new page session")
	}
	slog.Info("bridge session started",
		"session", s.id,
		"objects", len(s.objectPaths()),
		"replaced", old != nil,
	)
}

func (r *Relay) remove(s *session) {
	s.close("page disconnected")
	r.mu.Lock()
	if r.sess == s {
		r.sess = nil
	}
	r.mu.Unlock()
	slog.Info("bridge session ended", "session", s.id)
}

func (r *Relay) current() *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sess
}

// Connected reports whether a page session is live.
func (r *Relay) Connected() bool {
	return r.current() != nil
}

// WaitConnected blocks until a page session is live or ctx is done.
func (r *Relay) WaitConnected(ctx context.Context) error {
	r.mu.Lock()
	if r.sess != nil {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.waiters = append(r.waiters, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup implements bridge.Globals.
func (r *Relay) Lookup(path string) (bridge.Object, bool) {
	s := r.current()
	if s == nil {
		return nil, false
	}
	return s.object(strings.Join(bridge.SplitPath(path), "."))
}

// Registry implements bridge.Globals.
func (r *Relay) Registry() []bridge.RegistryEntry {
	s := r.current()
	if s == nil {
		return nil
	}
	return s.registryEntries()
}

// Close ends the live session, if any.
func (r *Relay) Close() {
	if s := r.current(); s != nil {
		s.close("relay closed")
	}
}

// session is one connected page.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	objects  map[string]ObjectInfo
	registry []RegistryInfo
	pending  map[string]chan Frame
	closed   bool
	once     sync.Once
}

func newSession(conn *websocket.Conn, hello Frame) *session {
	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, config.BridgeSendBuffer),
		done:    make(chan struct{}),
		pending: make(map[string]chan Frame),
	}
	s.announce(hello)
	return s
}

// announce replaces the object table. Pages resend hello when an extension
// injects itself late.
func (s *session) announce(hello Frame) {
	objects := make(map[string]ObjectInfo, len(hello.Objects))
	for _, o := range hello.Objects {
		o.Path = strings.Join(bridge.SplitPath(o.Path), ".")
		if o.Path != "" {
			objects[o.Path] = o
		}
	}
	s.mu.Lock()
	s.objects = objects
	s.registry = append([]RegistryInfo(nil), hello.Registry...)
	s.mu.Unlock()
}

func (s *session) objectPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	return out
}

func (s *session) object(path string) (bridge.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.objects[path]
	if !ok {
		return nil, false
	}
	return &object{sess: s, info: info}, true
}

func (s *session) registryEntries() []bridge.RegistryEntry {
	s.mu.Lock()
	reg := append([]RegistryInfo(nil), s.registry...)
	s.mu.Unlock()

	out := make([]bridge.RegistryEntry, 0, len(reg))
	for _, e := range reg {
		obj, ok := s.object(e.Path)
		if !ok {
			continue
		}
		out = append(out, bridge.RegistryEntry{ID: e.ID, Name: e.Name, Object: obj})
	}
	return out
}

func (s *session) close(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		pending := len(s.pending)
		s.mu.Unlock()
		close(s.done)
		_ = s.conn.Close()
		slog.Debug("bridge session closed", "session", s.id, "reason", reason, "pendingCalls", pending)
	})
}

// call sends a call frame and waits for the matching result.
func (s *session) call(ctx context.Context, path, method string, args []any) (json.RawMessage, error) {
	encoded := make([]json.RawMessage, len(args))
	for i, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal arg %d of %s.%s: %w", i, path, method, err)
		}
		encoded[i] = raw
	}

	id := uuid.NewString()
	ch := make(chan Frame, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", config.ErrBridgeClosed, s.id)
	}
	s.pending[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	data, err := json.Marshal(Frame{Type: FrameCall, ID: id, Path: path, Method: method, Args: encoded})
	if err != nil {
		return nil, fmt.Errorf("marshal call frame: %w", err)
	}

	slog.Debug("bridge call", "session", s.id, "id", id, "path", path, "method", method)

	select {
	case s.send <- data:
	case <-s.done:
		return nil, fmt.Errorf("%w: session %s", config.ErrBridgeClosed, s.id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case f := <-ch:
		if f.Error != nil {
			return nil, f.Error
		}
		if len(f.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return f.Result, nil
	case <-s.done:
		return nil, fmt.Errorf("%w: session %s closed during %s", config.ErrBridgeClosed, s.id, method)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *session) readPump() {
	defer s.close("read loop ended")

	_ = s.conn.SetReadDeadline(time.Now().Add(config.BridgePongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(config.BridgePongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("bridge read error", "session", s.id, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("bridge frame malformed", "session", s.id, "error", err)
			continue
		}

		switch f.Type {
		case FrameResult:
			s.mu.Lock()
			ch, ok := s.pending[f.ID]
			s.mu.Unlock()
			if !ok {
				slog.Debug("bridge result for unknown call", "session", s.id, "id", f.ID)
				continue
			}
			select {
			case ch <- f:
			default:
				slog.Debug("bridge duplicate result dropped", "session", s.id, "id", f.ID)
			}
		case FrameHello:
			s.announce(f)
			slog.Info("bridge objects re-announced", "session", s.id, "objects", len(f.Objects))
		default:
			slog.Debug("bridge frame ignored", "session", s.id, "type", f.Type)
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(config.BridgePingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(config.BridgeWriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("bridge write failed", "session", s.id, "error", err)
				s.close("write failed")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(config.BridgeWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close("ping failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// object is a bridge.Object backed by a page session.
type object struct {
	sess *session
	info ObjectInfo
}

// SameAs implements bridge.Identifiable: same page session, same path.
func (o *object) SameAs(other bridge.Object) bool {
	x, ok := other.(*object)
	return ok && x.sess == o.sess && x.info.Path == o.info.Path
}

func (o *object) Has(method string) bool {
	for _, m := range o.info.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func (o *object) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	return o.sess.call(ctx, o.info.Path, method, args)
}

func (o *object) Prop(name string) (json.RawMessage, bool) {
	v, ok := o.info.Props[name]
	return v, ok
}

func (o *object) Child(name string) (bridge.Object, bool) {
	return o.sess.object(o.info.Path + "." + name)
}

func mustMarshal(f Frame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		panic(fmt.Sprintf("relay: marshal %s frame: %v", f.Type, err))
	}
	return data
}
