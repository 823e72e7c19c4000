// Package httpapi is the HTTP adapter for the generation backend: task
// submission, the music catalog, presets and generated artifacts.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/observability/metrics"
	"github.com/uapsignal/signalscope/internal/ports"
)

// maxReplyBytes caps a decoded reply; waveform payloads are the largest.
const maxReplyBytes = 64 << 20

const (
	cacheKeyPresets = "presets"
	cacheKeyMusic   = "music"
)

// Config holds backend client settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns settings for a backend on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:5000",
		Timeout:  30 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// Client talks to the backend REST API.
// Thread-safety: This implementation is thread-safe.
type Client struct {
	logger     *slog.Logger
	baseURL    *url.URL
	httpClient *http.Client
	cache      *cache.Cache
	metrics    *metrics.ClientMetrics
}

// NewClient creates a backend client. A nil httpClient gets one with cfg.Timeout.
func NewClient(logger *slog.Logger, cfg Config, httpClient *http.Client, m *metrics.ClientMetrics) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, domain.NewValidationError("backend.url", cfg.BaseURL, err.Error())
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, domain.NewValidationError("backend.url", cfg.BaseURL, "scheme must be http or https")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultConfig().CacheTTL
	}

	return &Client{
		logger:     logger.With(slog.String("component", "backend_http")),
		baseURL:    base,
		httpClient: httpClient,
		cache:      cache.New(ttl, ttl*2),
		metrics:    m,
	}, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// envelope is the common part of every reply.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// rejection is a reply the backend marked as an error.
type rejection struct {
	code    int
	message string
}

func (r *rejection) Error() string {
	return fmt.Sprintf("backend replied %d: %s", r.code, r.message)
}

type submitReply struct {
	envelope
	TaskID string `json:"task_id"`
}

// Submit implements ports.GenerationBackend.
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.NewValidationError("request", nil, err.Error())
	}

	var reply submitReply
	if err := c.do(ctx, "generate", http.MethodPost, "/api/generate", bytes.NewReader(body), "application/json", &reply); err != nil {
		return "", asValidation(err)
	}
	if reply.TaskID == "" {
		return "", domain.NewProtocolError("", "submit reply has no task_id", nil)
	}

	c.logger.Debug("generation accepted", slog.String("task_id", reply.TaskID))
	return reply.TaskID, nil
}

type listReply struct {
	envelope
	Files []domain.CatalogEntry `json:"files"`
}

// ListMusic implements ports.MusicCatalog.
func (c *Client) ListMusic(ctx context.Context) ([]domain.CatalogEntry, error) {
	if cached, found := c.cache.Get(cacheKeyMusic); found {
		return cloneEntries(cached.([]domain.CatalogEntry)), nil
	}

	var reply listReply
	if err := c.do(ctx, "list_music", http.MethodGet, "/api/list_music", nil, "", &reply); err != nil {
		return nil, asValidation(err)
	}
	files := reply.Files
	if files == nil {
		files = []domain.CatalogEntry{}
	}
	for i := range files {
		if files[i].DurationSeconds == 0 && files[i].DurationMs > 0 {
			files[i].DurationSeconds = float64(files[i].DurationMs) / 1000
		}
	}

	c.cache.Set(cacheKeyMusic, files, cache.DefaultExpiration)
	return cloneEntries(files), nil
}

// UploadMusic implements ports.MusicCatalog. The file goes up as the
// multipart field "file"; a missing title is filled from the file's tags.
func (c *Client) UploadMusic(ctx context.Context, path string) (domain.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadResult{}, domain.NewValidationError("file", path, err.Error())
	}
	defer f.Close()

	title := readTitle(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return domain.UploadResult{}, domain.NewTransportError("upload", "rewind file", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return domain.UploadResult{}, domain.NewTransportError("upload", "build form", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return domain.UploadResult{}, domain.NewTransportError("upload", "read file", err)
	}
	if err := mw.Close(); err != nil {
		return domain.UploadResult{}, domain.NewTransportError("upload", "build form", err)
	}

	var result domain.UploadResult
	if err := c.do(ctx, "upload_music", http.MethodPost, "/api/upload_music", &buf, mw.FormDataContentType(), &result); err != nil {
		return domain.UploadResult{}, asValidation(err)
	}
	c.cache.Delete(cacheKeyMusic)

	if result.Title == "" {
		result.Title = title
	}
	c.logger.Info("music uploaded",
		slog.String("filename", result.Filename),
		slog.Float64("duration_seconds", result.DurationSeconds))
	return result, nil
}

// IngestMusic implements ports.MusicCatalog.
func (c *Client) IngestMusic(ctx context.Context, sourceURL string) (domain.UploadResult, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.UploadResult{}, domain.NewValidationError("url", sourceURL, "must be an http(s) URL")
	}
	body, _ := json.Marshal(map[string]string{"url": sourceURL})

	var result domain.UploadResult
	if err := c.do(ctx, "ingest_music", http.MethodPost, "/api/ingest_music", bytes.NewReader(body), "application/json", &result); err != nil {
		return domain.UploadResult{}, asValidation(err)
	}
	c.cache.Delete(cacheKeyMusic)

	c.logger.Info("music ingested",
		slog.String("filename", result.Filename),
		slog.Bool("cached", result.Cached))
	return result, nil
}

// ListPresets implements ports.PresetCatalog. Presets come back sorted by key.
func (c *Client) ListPresets(ctx context.Context) ([]domain.Preset, error) {
	if cached, found := c.cache.Get(cacheKeyPresets); found {
		return append([]domain.Preset(nil), cached.([]domain.Preset)...), nil
	}

	var reply map[string]domain.Preset
	if err := c.do(ctx, "presets", http.MethodGet, "/api/presets", nil, "", &reply); err != nil {
		return nil, asValidation(err)
	}

	presets := make([]domain.Preset, 0, len(reply))
	for key, p := range reply {
		p.Key = key
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Key < presets[j].Key })

	c.cache.Set(cacheKeyPresets, presets, cache.DefaultExpiration)
	return append([]domain.Preset(nil), presets...), nil
}

// GetPreset implements ports.PresetCatalog.
func (c *Client) GetPreset(ctx context.Context, name string) (domain.Preset, error) {
	key := "preset:" + name
	if cached, found := c.cache.Get(key); found {
		return cached.(domain.Preset), nil
	}

	var preset domain.Preset
	err := c.do(ctx, "preset", http.MethodGet, "/api/preset/"+url.PathEscape(name), nil, "", &preset)
	var rej *rejection
	if errors.As(err, &rej) && rej.code == http.StatusNotFound {
		return domain.Preset{}, fmt.Errorf("preset %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Preset{}, asValidation(err)
	}
	preset.Key = name

	c.cache.Set(key, preset, cache.DefaultExpiration)
	return preset, nil
}

// DownloadURL implements ports.ResultStore.
func (c *Client) DownloadURL(filename string) string {
	return c.baseURL.JoinPath("api", "download", filename).String()
}

type waveformReply struct {
	envelope
	Waveform   []float64 `json:"waveform"`
	DurationMs int       `json:"duration_ms"`
}

// FetchWaveform implements ports.ResultStore.
func (c *Client) FetchWaveform(ctx context.Context, filename string) ([]float64, int, error) {
	var reply waveformReply
	err := c.do(ctx, "waveform", http.MethodGet, "/api/waveform/"+url.PathEscape(filename), nil, "", &reply)
	var rej *rejection
	if errors.As(err, &rej) && rej.code == http.StatusNotFound {
		return nil, 0, fmt.Errorf("waveform %q: %w", filename, domain.ErrNotFound)
	}
	if err != nil {
		return nil, 0, asValidation(err)
	}
	return reply.Waveform, reply.DurationMs, nil
}

// do performs one request and decodes the JSON reply into out.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	err := c.roundTrip(ctx, op, method, path, body, contentType, out)
	c.metrics.RecordBackendRequest(op, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return domain.NewTransportError(op, "build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTransportError(op, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return domain.NewTransportError(op, "read reply", err)
	}

	c.logger.Debug("backend call",
		slog.String("op", op),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Not an envelope: only the HTTP status is left to judge the reply.
		env = envelope{}
		c.logger.Debug("backend reply is not JSON",
			slog.String("op", op),
			slog.String("request_id", requestID),
			slog.Any("error", err))
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Status == "error" {
		if text := env.text(); text != "" {
			return &rejection{code: resp.StatusCode, message: text}
		}
		if resp.StatusCode == http.StatusNotFound {
			return &rejection{code: resp.StatusCode, message: http.StatusText(resp.StatusCode)}
		}
		return domain.NewTransportError(op, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewTransportError(op, "decode reply", err)
	}
	return nil
}

// asValidation turns a backend rejection into a ValidationError carrying the
// backend text verbatim. Other errors pass through.
func asValidation(err error) error {
	var rej *rejection
	if errors.As(err, &rej) {
		return domain.NewValidationError("", nil, rej.message)
	}
	return err
}

// readTitle returns the tagged title of an audio file, or "".
func readTitle(f io.ReadSeeker) string {
	metadata, err := tag.ReadFrom(f)
	if err != nil || metadata == nil {
		return ""
	}
	return strings.TrimSpace(metadata.Title())
}

func cloneEntries(in []domain.CatalogEntry) []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), in...)
}

var (
	_ ports.GenerationBackend = (*Client)(nil)
	_ ports.MusicCatalog      = (*Client)(nil)
	_ ports.PresetCatalog     = (*Client)(nil)
	_ ports.ResultStore       = (*Client)(nil)
)
