package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/gridcast/internal/adapters/export"
	"github.com/okian/gridcast/internal/domain/timeline"
	"github.com/okian/gridcast/pkg/logger"
)

// DocumentProvider builds the annotated window document.
type DocumentProvider interface {
	Document(interval time.Duration) (export.Document, error)
}

// WindowsHandler serves the window document.
type WindowsHandler struct {
	docs       DocumentProvider
	timelines  TimelineProvider
	interval   time.Duration
	maxWindows int
	logger     logger.Logger
}

// NewWindowsHandler creates a new windows handler. interval is used when the
// request does not name one; requests that would produce more than maxWindows
// windows are refused.
func NewWindowsHandler(docs DocumentProvider, timelines TimelineProvider, interval time.Duration, maxWindows int, l logger.Logger) *WindowsHandler {
	return &WindowsHandler{docs: docs, timelines: timelines, interval: interval, maxWindows: maxWindows, logger: l}
}

// HandleGetWindows handles GET /windows?interval=5s&format=json requests.
func (h *WindowsHandler) HandleGetWindows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	interval, err := parseInterval(q.Get("interval"), h.interval)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	format := export.FormatJSON
	if raw := q.Get("format"); raw != "" {
		if format, err = export.ParseFormat(raw); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if tl := h.timelines.Timeline(); tl != nil {
		if n := timeline.WindowCount(tl, interval); n > int64(h.maxWindows) {
			writeDomainError(w, fmt.Errorf("%w: %s gives %d windows, limit is %d", timeline.ErrTooManyWindows, interval, n, h.maxWindows))
			return
		}
	}

	doc, err := h.docs.Document(interval)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, doc, format); err != nil {
		h.logger.Error(r.Context(), "failed to encode window document", logger.Error(err))
		writeDomainError(w, err)
		return
	}
	contentType := "application/json; charset=utf-8"
	if format == export.FormatYAML {
		contentType = "application/yaml; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
