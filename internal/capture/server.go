package capture

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipcontext/internal/config"
	"clipcontext/internal/logging"
	"clipcontext/internal/session"
)

//go:embed web/index.html
var indexPage []byte

const shutdownTimeout = 5 * time.Second

// Server receives the single recording of one capture session.
type Server struct {
	engine              *gin.Engine
	session             *session.Session
	bind                string
	maxRecordingSeconds int
	logger              *slog.Logger
}

// NewServer builds the upload server for sess.
func NewServer(cfg *config.Config, sess *session.Session, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "capture")

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(MaxBodySize(cfg.MaxUploadBytes()))
	engine.Use(CORS(cfg.Capture.AllowedOrigins))

	s := &Server{
		engine:              engine,
		session:             sess,
		bind:                cfg.Capture.Bind,
		maxRecordingSeconds: cfg.Capture.MaxRecordingSeconds,
		logger:              logger,
	}
	s.registerRoutes(engine)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until the session is
// terminal or ctx ends. ready, when set, receives the page URL once the
// listener is open.
func (s *Server) Run(ctx context.Context, ready func(url string)) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	url := "http://" + listener.Addr().String() + "/"

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.session.Context(context.Background()) },
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()

	s.logger.Info("capture server listening",
		logging.String("url", url),
		logging.String(logging.FieldEventType, "capture_listening"),
	)
	if ready != nil {
		ready(url)
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-s.session.Done():
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Debug("capture server stopped")
	return nil
}
