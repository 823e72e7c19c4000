package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/logger"
	"github.com/uapsignal/signalscope/internal/testutil"
)

// Helper to create a backend that replays frames on /api/progress/{id}
func newProgressServer(t *testing.T, frames ...string) (*httptest.Server, func() string) {
	t.Helper()
	var (
		mu   sync.Mutex
		path string
	)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() string {
		mu.Lock()
		defer mu.Unlock()
		return path
	}
}

func TestNewDialer_Schemes(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:5000", "ws://localhost:5000/api/progress/t1"},
		{"https://signals.example/", "wss://signals.example/api/progress/t1"},
		{"ws://h:1", "ws://h:1/api/progress/t1"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			d, err := NewDialer(logger.NewTestLogger(), tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.StreamURL("t1"))
		})
	}

	_, err := NewDialer(logger.NewTestLogger(), "ftp://h")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDial_ReadsFramesInOrder(t *testing.T) {
	srv, path := newProgressServer(t,
		`{"status":"progress","progress":10,"message":"a"}`,
		`{"status":"progress","progress":20,"message":"b"}`,
	)
	d, err := NewDialer(logger.NewTestLogger(), srv.URL)
	require.NoError(t, err)

	s, err := d.Dial(context.Background(), "task-42")
	require.NoError(t, err)

	first, err := s.ReadMessage()
	require.NoError(t, err)
	second, err := s.ReadMessage()
	require.NoError(t, err)

	assert.Contains(t, string(first), `"message":"a"`)
	assert.Contains(t, string(second), `"message":"b"`)
	assert.Equal(t, "/api/progress/task-42", path())

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close is a no-op")

	_, err = s.ReadMessage()
	assert.Error(t, err)
}

func TestDial_CloseUnblocksRead(t *testing.T) {
	srv, _ := newProgressServer(t)
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreCurrent())

	d, err := NewDialer(logger.NewTestLogger(), srv.URL)
	require.NoError(t, err)

	s, err := d.Dial(context.Background(), "idle")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.ReadMessage()
		errCh <- err
	}()

	require.NoError(t, s.Close())
	assert.Error(t, <-errCh)
}

func TestDial_Failure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d, err := NewDialer(logger.NewTestLogger(), srv.URL)
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "t1")

	var terr *domain.TransportError
	assert.ErrorAs(t, err, &terr)
}
