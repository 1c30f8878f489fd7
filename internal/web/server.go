package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/countdown"
	"github.com/nhle/tempmail/internal/logger"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
	"github.com/nhle/tempmail/internal/render"
	"github.com/nhle/tempmail/internal/session"
	"github.com/nhle/tempmail/internal/store"
)

//go:embed static
var staticFiles embed.FS

const (
	requestTimeout = 30 * time.Second
	historyLimit   = 50
	maxGoroutines  = 2000
)

// Dependencies wires the server to the rest of the application. Manager is
// required.
type Dependencies struct {
	Manager *session.Manager
	History store.Store
	Logger  *zap.Logger
}

// Server owns the gin engine and the websocket hub.
type Server struct {
	manager *session.Manager
	history store.Store
	hub     *Hub
	health  healthcheck.Handler
	log     *zap.Logger
}

// NewServer creates a server. Call Run to start the hub and event
// forwarding, then serve Router.
func NewServer(deps Dependencies) *Server {
	log := logger.OrNop(deps.Logger)
	s := &Server{
		manager: deps.Manager,
		history: deps.History,
		hub:     NewHub(log.Named("ws")),
		health:  healthcheck.NewHandler(),
		log:     log,
	}
	s.addChecks()
	return s
}

func (s *Server) addChecks() {
	s.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	s.health.AddReadinessCheck("session", func() error {
		snap := s.manager.Snapshot()
		if snap.State == session.Idle && !snap.Generating {
			return errors.New("no mailbox allocated")
		}
		return nil
	})
}

// Run starts the websocket hub and forwards session events to it until
// ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.hub.Run(ctx)
	s.forward(ctx, s.manager.Events())
}

// forward converts session events into websocket frames.
func (s *Server) forward(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if msg, ok := s.frameFor(e); ok {
				s.hub.Broadcast(msg)
			}
		}
	}
}

// frameFor renders one event as a websocket frame.
func (s *Server) frameFor(e session.Event) (Message, bool) {
	switch e := e.(type) {
	case session.GeneratingEvent:
		return Message{Type: MessageTypeGenerating, InProgress: e.InProgress}, true

	case session.SessionStartedEvent:
		expires := e.Session.ExpiresAt
		return Message{
			Type:      MessageTypeSession,
			Address:   e.Session.Address,
			Provider:  string(e.Session.Provider),
			Display:   countdown.Format(e.Session.ExpiresAt.Sub(e.Session.CreatedAt)),
			HTML:      mustListHTML(nil),
			ExpiresAt: &expires,
		}, true

	case session.AllocationFailedEvent:
		return Message{Type: MessageTypeFailed, Error: "Failed to generate address"}, true

	case session.TickEvent:
		return Message{Type: MessageTypeTick, Address: e.Address, Display: e.Display}, true

	case session.MessagesEvent:
		fragment, err := render.ListHTML(e.Messages)
		if err != nil {
			s.log.Error("rendering message list failed", zap.Error(err))
			return Message{}, false
		}
		return Message{Type: MessageTypeMessages, Address: e.Address, HTML: fragment}, true

	case session.ExpiredEvent:
		return Message{Type: MessageTypeExpired, Address: e.Address, Display: e.Display}, true
	}
	return Message{}, false
}

func mustListHTML(msgs []model.MessageSummary) string {
	out, err := render.ListHTML(msgs)
	if err != nil {
		return ""
	}
	return out
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log.Named("http")))

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		panic(err)
	}
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	router.StaticFS("/static", http.FS(assets))

	api := router.Group("/api")
	api.POST("/generate", s.generate)
	api.POST("/refresh", s.refresh)
	api.GET("/session", s.snapshot)
	api.GET("/messages", s.listMessages)
	api.GET("/messages/:id", s.openMessage)
	api.GET("/history", s.listHistory)

	router.GET("/ws", s.hub.handleWebSocket)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health/live", gin.WrapF(s.health.LiveEndpoint))
	router.GET("/health/ready", gin.WrapF(s.health.ReadyEndpoint))

	return router
}

// sessionResponse is the JSON shape of the current mailbox.
type sessionResponse struct {
	State      string         `json:"state"`
	Generating bool           `json:"generating"`
	Provider   string         `json:"provider"`
	Session    *model.Session `json:"session,omitempty"`
	Display    string         `json:"display"`
	Messages   int            `json:"messages"`
}

func toSessionResponse(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{
		State:      snap.State.String(),
		Generating: snap.Generating,
		Provider:   string(snap.Provider),
		Session:    snap.Session,
		Display:    countdown.Format(snap.Remaining),
		Messages:   len(snap.Messages),
	}
	if snap.State == session.Expired {
		resp.Display = countdown.ExpiredLabel
	}
	return resp
}

func (s *Server) generate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	_, err := s.manager.Generate(ctx)
	switch {
	case errors.Is(err, session.ErrGenerateInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		status := http.StatusInternalServerError
		if provider.IsAllocationError(err) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": "Failed to generate address"})
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(s.manager.Snapshot()))
}

func (s *Server) refresh(c *gin.Context) {
	s.manager.Refresh()
	c.Status(http.StatusAccepted)
}

func (s *Server) snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, toSessionResponse(s.manager.Snapshot()))
}

func (s *Server) listMessages(c *gin.Context) {
	fragment, err := render.ListHTML(s.manager.Snapshot().Messages)
	if err != nil {
		s.log.Error("rendering message list failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}

func (s *Server) openMessage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	d, err := s.manager.OpenMessage(ctx, c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, session.ErrStaleSession):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not load message"})
		return
	}

	fragment, err := render.DetailHTML(d)
	if err != nil {
		s.log.Error("rendering message failed", zap.String("id", d.ID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "mailboxes": []model.MailboxRecord{}})
		return
	}

	limit := historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, historyLimit)
	}

	recs, err := s.history.RecentMailboxes(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("reading history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read history"})
		return
	}
	if recs == nil {
		recs = []model.MailboxRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "mailboxes": recs})
}

// requestLogger logs one line per request, at a level chosen by status.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case status >= 500:
			log.Error("server error", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
