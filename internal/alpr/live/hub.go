// Package live streams committed plate reads to websocket clients and
// serves the most recent reads over HTTP while a run is in progress.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/httputil"
	"github.com/banshee-data/plate.report/internal/monitoring"
	"github.com/banshee-data/plate.report/internal/timeutil"
)

var logf = monitoring.Component("live")

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second

	// DefaultRecent is how many reads Hub keeps for /api/results.
	DefaultRecent = 500
)

// Message types sent over the websocket.
const (
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
)

// Read is the wire form of one stored plate read.
type Read struct {
	Frame      int      `json:"frame"`
	TrackID    int      `json:"track_id"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Box        alpr.Box `json:"box"`
}

// Message is one websocket message.
type Message struct {
	Type      string `json:"type"`
	Frame     int    `json:"frame,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Reads     []Read `json:"reads,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans committed frames out to connected clients. It implements the
// pipeline Sink interface. Slow clients miss messages rather than stall
// the pipeline.
type Hub struct {
	clock        timeutil.Clock
	pingInterval time.Duration
	recentLimit  int

	mu        sync.RWMutex
	clients   map[*client]struct{}
	recent    []Read
	lastFrame int
	frames    int
	dropped   int
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock sets the clock used for timestamps and pings.
func WithClock(c timeutil.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// WithPingInterval sets how often idle clients are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingInterval = d }
}

// WithRecent sets how many reads are kept for /api/results.
func WithRecent(n int) Option {
	return func(h *Hub) { h.recentLimit = n }
}

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clock:        timeutil.RealClock{},
		pingInterval: 30 * time.Second,
		recentLimit:  DefaultRecent,
		clients:      make(map[*client]struct{}),
		lastFrame:    -1,
	}
	for _, o := range opts {
		o(h)
	}
	if h.recentLimit <= 0 {
		h.recentLimit = DefaultRecent
	}
	return h
}

// FrameCommitted broadcasts the frame's stored entries and records them
// for /api/results.
func (h *Hub) FrameCommitted(_ context.Context, frame int, entries []results.Entry) error {
	reads := make([]Read, len(entries))
	for i, e := range entries {
		reads[i] = Read{
			Frame:      e.Frame,
			TrackID:    e.TrackID,
			Text:       e.Outcome.Text,
			Confidence: e.Outcome.Confidence,
			Box:        e.Outcome.Plate.Box,
		}
	}

	msg, err := json.Marshal(Message{
		Type:      TypeFrame,
		Frame:     frame,
		Timestamp: h.clock.Now().UnixMilli(),
		Reads:     reads,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	h.lastFrame = frame
	h.recent = append(h.recent, reads...)
	if over := len(h.recent) - h.recentLimit; over > 0 {
		h.recent = append(h.recent[:0], h.recent[over:]...)
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped++
			logf("client send buffer full, dropping frame %d", frame)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Recent returns a copy of the most recent reads, oldest first.
func (h *Hub) Recent() []Read {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Read, len(h.recent))
	copy(out, h.recent)
	return out
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logf("client connected, total %d", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.close()
		logf("client disconnected, total %d", n)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams frame messages until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	welcome, _ := json.Marshal(Message{Type: TypeWelcome, Timestamp: h.clock.Now().UnixMilli(), Reads: h.Recent()})
	c.send <- welcome
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logf("websocket read: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := h.clock.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Status is the body of /api/status.
type Status struct {
	Clients   int `json:"clients"`
	Frames    int `json:"frames"`
	LastFrame int `json:"last_frame"`
	Recent    int `json:"recent"`
	Dropped   int `json:"dropped"`
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !httputil.AllowMethods(w, r, http.MethodGet) {
		return
	}
	h.mu.RLock()
	st := Status{
		Clients:   len(h.clients),
		Frames:    h.frames,
		LastFrame: h.lastFrame,
		Recent:    len(h.recent),
		Dropped:   h.dropped,
	}
	h.mu.RUnlock()
	httputil.WriteJSON(w, http.StatusOK, st)
}

// handleResults serves recent reads. ?since=N keeps reads with frame >= N,
// ?text=T keeps reads whose text equals T.
func (h *Hub) handleResults(w http.ResponseWriter, r *http.Request) {
	if !httputil.AllowMethods(w, r, http.MethodGet) {
		return
	}
	since := -1
	if s := r.URL.Query().Get("since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = n
	}
	text := r.URL.Query().Get("text")

	out := make([]Read, 0)
	for _, rd := range h.Recent() {
		if rd.Frame < since {
			continue
		}
		if text != "" && rd.Text != text {
			continue
		}
		out = append(out, rd)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// Handler returns the hub's HTTP routes: /ws, /api/results and /api/status.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/api/results", h.handleResults)
	mux.HandleFunc("/api/status", h.handleStatus)
	return mux
}
