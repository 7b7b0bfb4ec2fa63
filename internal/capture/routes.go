package capture

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipcontext/internal/logging"
	"clipcontext/internal/session"
)

// UploadField is the multipart field carrying the recording.
const UploadField = "video"

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/", s.handleIndex)
	r.POST("/upload", s.handleUpload)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/session", s.handleSession)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSession(c *gin.Context) {
	snap := s.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session_id":            snap.ID,
		"state":                 snap.State,
		"error":                 snap.Error,
		"error_kind":            snap.ErrorKind,
		"max_recording_seconds": s.maxRecordingSeconds,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	if state := s.session.Snapshot().State; state != session.StateAwaitingUpload {
		respondMessage(c, http.StatusConflict, "session is not accepting uploads (state: "+string(state)+")")
		return
	}

	fileHeader, err := c.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(c, http.StatusRequestEntityTooLarge, "recording exceeds the upload limit")
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing video file")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		s.logger.Warn("unable to open uploaded recording",
			logging.Error(err),
			logging.String(logging.FieldEventType, "upload_open_failed"),
			logging.String(logging.FieldErrorHint, "retry the upload"),
			logging.String(logging.FieldImpact, "session remains armed"),
		)
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	if err := s.session.Accept(c.Request.Context(), upload); err != nil {
		if errors.Is(err, session.ErrUploadRejected) {
			respondMessage(c, http.StatusConflict, "session is not accepting uploads")
			return
		}
		respondMessage(c, http.StatusInternalServerError, "unable to store recording")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Video received, processing started",
		"session_id": s.session.ID,
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
