package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

const (
	defaultProbeTimeout   = 2 * time.Second
	defaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 4096
)

// Options tunes a Client. Zero values select defaults.
type Options struct {
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// ProbeTimeout bounds a single health probe.
	ProbeTimeout time.Duration
	// RequestTimeout bounds every other request, including audio downloads.
	RequestTimeout time.Duration
}

// Client talks to the inference backend's HTTP API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	log            zerolog.Logger
	probeTimeout   time.Duration
	requestTimeout time.Duration
}

// NewClient returns a Client rooted at baseURL (e.g. http://localhost:8000).
func NewClient(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		// Timeout stays 0: every call carries its own context deadline.
		hc = &http.Client{Timeout: 0}
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     hc,
		log:            opts.Logger,
		probeTimeout:   opts.ProbeTimeout,
		requestTimeout: opts.RequestTimeout,
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = defaultProbeTimeout
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	return c
}

// BaseURL returns the endpoint the client was built for.
func (c *Client) BaseURL() string { return c.baseURL }

// Health performs one health probe.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	var out HealthResponse
	if err := c.getJSON(ctx, "health", "/health", &out); err != nil {
		return HealthResponse{}, err
	}
	return out, nil
}

// Probe reports whether the backend has finished loading its models.
func (c *Client) Probe(ctx context.Context) (bool, error) {
	h, err := c.Health(ctx)
	if err != nil {
		return false, err
	}
	return h.VoiceClonerLoaded, nil
}

// Submit sends a generation request to the endpoint matching its variant.
// The request is normalized and validated first.
func (c *Client) Submit(ctx context.Context, req GenerationRequest) (SubmitResponse, error) {
	n, err := Normalize(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var out SubmitResponse
	switch r := n.(type) {
	case CloneRequest:
		err = c.postJSON(ctx, "clone", "/clone", r, &out)
	case UploadCloneRequest:
		err = c.postUploadClone(ctx, r, &out)
	case MultiSpeakerRequest:
		err = c.postJSON(ctx, "clone_multi_speaker", "/clone-multi-speaker", r, &out)
	case VoiceDesignRequest:
		err = c.postJSON(ctx, "voice_design", "/voice-design", r, &out)
	case CustomVoiceRequest:
		err = c.postJSON(ctx, "custom_voice", "/custom-voice", r, &out)
	default:
		return SubmitResponse{}, fmt.Errorf("unsupported generation request %T", req)
	}
	if err != nil {
		return SubmitResponse{}, err
	}
	if out.TaskID == "" {
		return SubmitResponse{}, fmt.Errorf("submit %s: backend returned no task id", n.Kind())
	}
	c.log.Debug().Str("event", "submit").Str("kind", string(n.Kind())).Str("task_id", out.TaskID).Msg("generation submitted")
	return out, nil
}

// TaskStatus polls a task once.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (TaskStatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out TaskStatusResponse
	if err := c.getJSON(ctx, "task_status", "/tasks/"+url.PathEscape(taskID), &out); err != nil {
		return TaskStatusResponse{}, err
	}
	return out, nil
}

// TaskAudio downloads the finished audio of a task.
func (c *Client) TaskAudio(ctx context.Context, taskID string) ([]byte, error) {
	b, err := c.getBytes(ctx, "task_audio", "/tasks/"+url.PathEscape(taskID)+"/audio")
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("event", "task_audio").Str("task_id", taskID).Str("size", humanize.Bytes(uint64(len(b)))).Msg("result fetched")
	return b, nil
}

// CancelTask asks the backend to stop a running task.
func (c *Client) CancelTask(ctx context.Context, taskID string) (CancelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out CancelResponse
	if err := c.postJSON(ctx, "cancel", "/tasks/"+url.PathEscape(taskID)+"/cancel", nil, &out); err != nil {
		return CancelResponse{}, err
	}
	return out, nil
}

// Capabilities lists the loaded model kinds and named speakers.
func (c *Client) Capabilities(ctx context.Context) (CapabilitiesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out CapabilitiesResponse
	err := c.getJSON(ctx, "capabilities", "/capabilities", &out)
	return out, err
}

// Languages lists the languages the backend accepts.
func (c *Client) Languages(ctx context.Context) (LanguagesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out LanguagesResponse
	err := c.getJSON(ctx, "languages", "/languages", &out)
	return out, err
}

// References lists uploaded reference clips.
func (c *Client) References(ctx context.Context) ([]ReferenceAudio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out []ReferenceAudio
	if err := c.getJSON(ctx, "references", "/references", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadReference stores a reference clip on the backend.
func (c *Client) UploadReference(ctx context.Context, filename string, audio []byte, refText string) (ReferenceAudio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	fields := map[string]string{}
	if refText != "" {
		fields["ref_text"] = refText
	}
	var out ReferenceAudio
	err := c.postMultipart(ctx, "upload_reference", "/upload-reference", filename, audio, fields, &out)
	return out, err
}

// DownloadReference downloads a stored reference clip.
func (c *Client) DownloadReference(ctx context.Context, id string) ([]byte, error) {
	return c.getBytes(ctx, "reference_audio", "/references/"+url.PathEscape(id)+"/audio")
}

// DeleteReference removes a stored reference clip.
func (c *Client) DeleteReference(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out DeleteResponse
	return c.doJSON(ctx, "delete_reference", http.MethodDelete, "/references/"+url.PathEscape(id), nil, &out)
}

// RenameReference sets the display name of a stored reference clip.
func (c *Client) RenameReference(ctx context.Context, id, name string) (RenameResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out RenameResponse
	err := c.doJSON(ctx, "rename_reference", http.MethodPut, "/references/"+url.PathEscape(id)+"/name", map[string]string{"name": name}, &out)
	return out, err
}

// Generated lists stored generation results.
func (c *Client) Generated(ctx context.Context) ([]GeneratedAudio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out []GeneratedAudio
	if err := c.getJSON(ctx, "generated", "/generated", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGenerated removes a stored generation result.
func (c *Client) DeleteGenerated(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var out DeleteResponse
	return c.doJSON(ctx, "delete_generated", http.MethodDelete, "/generated/"+url.PathEscape(id), nil, &out)
}

func (c *Client) postUploadClone(ctx context.Context, r UploadCloneRequest, out *SubmitResponse) error {
	fields := map[string]string{
		"text":     r.Text,
		"language": r.Language,
	}
	if r.RefText != "" {
		fields["ref_text"] = r.RefText
	}
	return c.postMultipart(ctx, "clone_with_upload", "/clone-with-upload", r.Filename, r.Audio, fields, out)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	return c.doJSON(ctx, op, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, op, out)
}

func (c *Client) postMultipart(ctx context.Context, op, path, filename string, audio []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "audio/wav")
	fw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := fw.Write(audio); err != nil {
		return fmt.Errorf("%s: build form: %w", op, err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("%s: build form: %w", op, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%s: build form: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.log.Debug().Str("event", "upload").Str("op", op).Str("size", humanize.Bytes(uint64(len(audio)))).Msg("uploading audio")
	return c.do(req, op, out)
}

func (c *Client) getBytes(ctx context.Context, op, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return b, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: detailOf(b)}
}

// detailOf extracts FastAPI's {"detail": "..."} message when present.
func detailOf(b []byte) string {
	var d struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(b, &d); err == nil {
		if s, ok := d.Detail.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(b))
}
