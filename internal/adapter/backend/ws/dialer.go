// Package ws opens progress streams over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

const (
	// handshakeTimeout bounds the upgrade when ctx has no deadline.
	handshakeTimeout = 10 * time.Second

	// maxMessageBytes bounds a single progress frame; completed frames carry
	// the waveform and spectrum.
	maxMessageBytes = 32 << 20
)

// Dialer opens /api/progress/{task_id} streams against the backend.
type Dialer struct {
	logger *slog.Logger
	base   *url.URL
	dialer *websocket.Dialer
}

// NewDialer creates a dialer for the backend at baseURL (http or https).
func NewDialer(logger *slog.Logger, baseURL string) (*Dialer, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, domain.NewValidationError("backend.url", baseURL, err.Error())
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, domain.NewValidationError("backend.url", baseURL, "unsupported scheme")
	}

	return &Dialer{
		logger: logger.With(slog.String("component", "progress_ws")),
		base:   base,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}, nil
}

// StreamURL returns the stream address for a task.
func (d *Dialer) StreamURL(taskID string) string {
	return d.base.JoinPath("api", "progress", taskID).String()
}

// Dial implements ports.StreamDialer.
func (d *Dialer) Dial(ctx context.Context, taskID string) (ports.MessageStream, error) {
	target := d.StreamURL(taskID)
	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, domain.NewTransportError("dial", target, err)
	}
	conn.SetReadLimit(maxMessageBytes)

	d.logger.Debug("progress stream opened", slog.String("task_id", taskID))
	return &stream{conn: conn}, nil
}

// stream adapts a websocket connection to ports.MessageStream.
type stream struct {
	conn     *websocket.Conn
	once     sync.Once
	closeErr error
}

// ReadMessage returns the next text or binary frame.
func (s *stream) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// Close sends a close frame and closes the connection. Safe to call twice.
func (s *stream) Close() error {
	s.once.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

var _ ports.StreamDialer = (*Dialer)(nil)
