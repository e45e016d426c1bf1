// Package agent implements the HTTP and WebSocket backend the dashboard talks
// to. It serves host metrics gathered by a Collector and terminates processes
// on request.
package agent

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultListen       = ":3000"
	DefaultInterval     = 2 * time.Second
	DefaultProcessLimit = 200
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 4096
	collectTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes a Collector over HTTP.
type Server struct {
	collector    Collector
	hub          *Hub
	prom         *promMetrics
	log          logger.Logger
	interval     time.Duration
	processLimit int
	upgrader     websocket.Upgrader
	engine       *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithInterval sets how often metrics frames are pushed to feed clients.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithProcessLimit caps process lists. Zero means no cap.
func WithProcessLimit(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.processLimit = n
		}
	}
}

// WithLogger sets the server's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer builds a server and its routes around c.
func NewServer(c Collector, opts ...Option) *Server {
	s := &Server{
		collector:    c,
		hub:          NewHub(),
		prom:         newPromMetrics(),
		log:          logger.NewEnvLogger("[agent]"),
		interval:     DefaultInterval,
		processLimit: DefaultProcessLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog(), cors())

	engine.GET("/healthz", s.handleHealth)
	engine.GET(metrics.FeedPath, s.handleFeed)
	engine.DELETE("/process/:pid", s.handleKill)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.prom.registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	api.GET("/metrics", s.handleSnapshot)
	api.GET("/processes", s.handleProcesses)
	api.GET("/disks", s.handleDisks)

	s.engine = engine
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the feed client hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run listens on addr and serves until ctx is done. It pushes a metrics frame
// to feed clients every interval.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	go s.broadcastLoop(ctx)

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapWithCode(err, errors.ErrAgent,
				"Couldn't start the agent on "+addr,
				"Check that nothing else is listening there, or pass --listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	s.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Agent shutdown failed")
	}
	return nil
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.BroadcastMetrics(ctx)
		}
	}
}

// BroadcastMetrics collects one snapshot and pushes it to every feed client.
func (s *Server) BroadcastMetrics(ctx context.Context) {
	frame, err := s.metricsFrame(ctx)
	if err != nil {
		s.log.Warn("collecting metrics: %v", err)
		return
	}
	if _, err := s.hub.Broadcast(frame); err != nil {
		s.log.Warn("broadcasting metrics: %v", err)
	}
}

func (s *Server) metricsFrame(ctx context.Context) (metrics.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	snap, err := s.collector.Snapshot(ctx)
	if err != nil {
		return metrics.Frame{}, err
	}
	s.prom.observeSnapshot(snap)
	return metrics.NewFrame(metrics.FrameMetrics, snap)
}

func (s *Server) processesFrame(ctx context.Context) (metrics.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	procs, err := s.collector.Processes(ctx, s.processLimit)
	if err != nil {
		return metrics.Frame{}, err
	}
	return metrics.NewFrame(metrics.FrameProcesses, procs)
}

func (s *Server) disksFrame(ctx context.Context) (metrics.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	disks, err := s.collector.Disks(ctx)
	if err != nil {
		return metrics.Frame{}, err
	}
	s.prom.observeDisks(disks)
	return metrics.NewFrame(metrics.FrameDisks, disks)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), collectTimeout)
	defer cancel()

	snap, err := s.collector.Snapshot(ctx)
	if err != nil {
		s.log.Error("snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.prom.observeSnapshot(snap)
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleProcesses(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), collectTimeout)
	defer cancel()

	procs, err := s.collector.Processes(ctx, s.processLimit)
	if err != nil {
		s.log.Error("processes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, procs)
}

func (s *Server) handleDisks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), collectTimeout)
	defer cancel()

	disks, err := s.collector.Disks(ctx)
	if err != nil {
		s.log.Error("disks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.prom.observeDisks(disks)
	c.JSON(http.StatusOK, disks)
}

// handleKill terminates the process named in the path and tells every feed
// client about it.
func (s *Server) handleKill(c *gin.Context) {
	raw := c.Param("pid")
	pid, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || pid <= 0 {
		s.prom.kills.WithLabelValues(killInvalid).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid: " + raw})
		return
	}

	err = s.collector.Terminate(c.Request.Context(), int32(pid))
	switch {
	case stderrors.Is(err, ErrProcessNotFound):
		s.prom.kills.WithLabelValues(killNotFound).Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "process not found", "pid": pid})
		return
	case err != nil:
		s.prom.kills.WithLabelValues(killFailed).Inc()
		s.log.Error("terminating %d: %v", pid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "pid": pid})
		return
	}

	s.prom.kills.WithLabelValues(killOK).Inc()
	s.log.Info("terminated process %d", pid)

	frame, err := metrics.NewFrame(metrics.FrameProcessKilled, metrics.KilledPayload{PID: int32(pid)})
	if err == nil {
		_, err = s.hub.Broadcast(frame)
	}
	if err != nil {
		s.log.Warn("announcing kill of %d: %v", pid, err)
	}

	c.JSON(http.StatusOK, gin.H{"pid": pid, "status": "terminated"})
}

// handleFeed upgrades to a WebSocket and serves one feed client until it
// disconnects.
func (s *Server) handleFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade: %v", err)
		return
	}

	cl := newClient(conn)
	s.hub.add(cl)
	s.prom.feedClients.Set(float64(s.hub.Count()))
	s.log.Debug("feed client connected: %s", conn.RemoteAddr())

	go s.writePump(cl)

	ctx := c.Request.Context()
	if frame, err := s.metricsFrame(ctx); err == nil {
		s.sendTo(cl, frame)
	}

	s.readPump(ctx, cl)

	s.hub.remove(cl)
	s.prom.feedClients.Set(float64(s.hub.Count()))
	s.log.Debug("feed client disconnected: %s", conn.RemoteAddr())
}

func (s *Server) sendTo(cl *client, frame metrics.Frame) {
	data, err := jsonFrame(frame)
	if err != nil {
		s.log.Warn("encoding %s frame: %v", frame.Type, err)
		return
	}
	if !cl.enqueue(data) {
		s.log.Debug("dropping %s frame for slow client", frame.Type)
	}
}

// readPump answers request frames from one client. It returns when the
// connection fails.
func (s *Server) readPump(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in metrics.Frame
		if err := cl.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("feed read: %v", err)
			}
			return
		}

		var (
			out metrics.Frame
			err error
		)
		switch in.Type {
		case metrics.FrameRequestProcesses:
			out, err = s.processesFrame(ctx)
		case metrics.FrameRequestDisks:
			out, err = s.disksFrame(ctx)
		default:
			s.log.Debug("ignoring %q frame from client", in.Type)
			continue
		}
		if err != nil {
			s.log.Warn("answering %s: %v", in.Type, err)
			continue
		}
		s.sendTo(cl, out)
	}
}

// writePump is the only writer on the client's connection.
func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
