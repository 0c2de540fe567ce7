package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"qvox/internal/backend"
	"qvox/internal/orchestrator"
	"qvox/internal/supervisor"
	"qvox/internal/task"
	"qvox/pkg/types"
)

type mockService struct {
	mu         sync.Mutex
	status     types.StatusResponse
	ready      bool
	submitErr  error
	cancelErr  error
	dismissErr error
	audio      []byte
	audioErr   error
	cur        *task.Task
	cfg        supervisor.Config
	restarts   []supervisor.Config
	catalogue  orchestrator.Catalogue
	submitted  []backend.GenerationRequest
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) Submit(_ context.Context, req backend.GenerationRequest) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, req)
	if m.submitErr != nil {
		return task.Task{}, m.submitErr
	}
	segments := 0
	if ms, ok := req.(backend.MultiSpeakerRequest); ok {
		segments = len(ms.Segments)
	}
	t := task.New("t-1", req.Kind(), segments, time.Unix(1700000000, 0))
	m.cur = &t
	return t, nil
}

func (m *mockService) Cancel(context.Context) error { return m.cancelErr }
func (m *mockService) Dismiss() error               { return m.dismissErr }

func (m *mockService) Audio() ([]byte, error) {
	if m.audioErr != nil {
		return nil, m.audioErr
	}
	return m.audio, nil
}

func (m *mockService) Task() (task.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return task.Task{}, false
	}
	return m.cur.Clone(), true
}

func (m *mockService) BackendConfig() supervisor.Config { return m.cfg }

func (m *mockService) Restart(_ context.Context, cfg supervisor.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts = append(m.restarts, cfg)
	return nil
}

func (m *mockService) Catalogue() (orchestrator.Catalogue, error) {
	if m.catalogue == nil {
		return nil, orchestrator.ErrBackendNotReady
	}
	return m.catalogue, nil
}

type fakeCatalogue struct{ refsErr error }

func (fakeCatalogue) Capabilities(context.Context) (backend.CapabilitiesResponse, error) {
	return backend.CapabilitiesResponse{Models: []string{"base"}}, nil
}

func (fakeCatalogue) Languages(context.Context) (backend.LanguagesResponse, error) {
	return backend.LanguagesResponse{Languages: []string{"auto", "english"}}, nil
}

func (c fakeCatalogue) References(context.Context) ([]backend.ReferenceAudio, error) {
	if c.refsErr != nil {
		return nil, c.refsErr
	}
	return []backend.ReferenceAudio{{ID: "r1", Filename: "r1.wav"}}, nil
}

func (fakeCatalogue) Generated(context.Context) ([]backend.GeneratedAudio, error) {
	return nil, nil
}

func (fakeCatalogue) UploadReference(context.Context, string, []byte, string) (backend.ReferenceAudio, error) {
	return backend.ReferenceAudio{}, nil
}

func (fakeCatalogue) DownloadReference(context.Context, string) ([]byte, error) { return nil, nil }

func (fakeCatalogue) RenameReference(context.Context, string, string) (backend.RenameResponse, error) {
	return backend.RenameResponse{}, nil
}

func (fakeCatalogue) DeleteReference(context.Context, string) error { return nil }
func (fakeCatalogue) DeleteGenerated(context.Context, string) error { return nil }

// storeCatalogue keeps reference clips in memory so writes can be observed.
type storeCatalogue struct {
	fakeCatalogue
	mu        sync.Mutex
	refs      map[string][]byte
	names     map[string]string
	refTexts  map[string]string
	generated map[string]bool
}

func newStoreCatalogue() *storeCatalogue {
	return &storeCatalogue{
		refs:      map[string][]byte{"r1": []byte("RIFF-r1")},
		names:     map[string]string{},
		refTexts:  map[string]string{},
		generated: map[string]bool{"g1": true},
	}
}

func notFound(op string) error {
	return &backend.StatusError{Op: op, StatusCode: http.StatusNotFound, Body: `{"detail":"not found"}`}
}

func (c *storeCatalogue) UploadReference(_ context.Context, filename string, audio []byte, refText string) (backend.ReferenceAudio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := fmt.Sprintf("r%d", len(c.refs)+1)
	c.refs[id] = audio
	c.refTexts[id] = refText
	return backend.ReferenceAudio{ID: id, Filename: id + ".wav", OriginalName: filename}, nil
}

func (c *storeCatalogue) DownloadReference(_ context.Context, id string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.refs[id]
	if !ok {
		return nil, notFound("reference_audio")
	}
	return b, nil
}

func (c *storeCatalogue) RenameReference(_ context.Context, id, name string) (backend.RenameResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.refs[id]; !ok {
		return backend.RenameResponse{}, notFound("rename_reference")
	}
	c.names[id] = name
	return backend.RenameResponse{Message: "renamed", Name: name}, nil
}

func (c *storeCatalogue) DeleteReference(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.refs[id]; !ok {
		return notFound("delete_reference")
	}
	delete(c.refs, id)
	return nil
}

func (c *storeCatalogue) DeleteGenerated(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.generated[id] {
		return notFound("delete_generated")
	}
	delete(c.generated, id)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, ct string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil)
	if w := do(t, h, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz %d %q", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while loading: %d", w.Code)
	}
	svc.ready = true
	if w := do(t, h, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("readyz when ready: %d", w.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Backend: types.BackendStatus{State: "waiting", StatusText: "Loading models... (3s)"}}}
	w := do(t, NewMux(svc, nil), http.MethodGet, "/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	var got types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.Backend.StatusText != "Loading models... (3s)" || got.Task != nil {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestSubmitMultiSpeakerReturnsTaskView(t *testing.T) {
	svc := &mockService{}
	body := `{"segments":[{"text":"a","ref_audio_id":"r1"},{"text":"b","ref_audio_id":"r2"},{"text":"c","ref_audio_id":"r1"}]}`
	w := do(t, NewMux(svc, nil), http.MethodPost, "/tasks/multi-speaker", "application/json", []byte(body))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var v types.TaskView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v", err)
	}
	if v.ID != "t-1" || v.Kind != string(backend.KindMultiSpeaker) || v.Phase != "processing" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Segments == nil || v.Segments.Total != 3 || v.Label != "initializing multi-speaker" {
		t.Fatalf("unexpected segments/label: %+v", v)
	}
	if len(svc.submitted) != 1 {
		t.Fatalf("submitted %d", len(svc.submitted))
	}
	if _, ok := svc.submitted[0].(backend.MultiSpeakerRequest); !ok {
		t.Fatalf("wrong variant %T", svc.submitted[0])
	}
}

func TestSubmitRoutesEachVariant(t *testing.T) {
	cases := []struct {
		path string
		body string
		want backend.Kind
	}{
		{"/tasks/clone", `{"text":"hi","ref_audio_id":"r1"}`, backend.KindClone},
		{"/tasks/voice-design", `{"text":"hi","instruct":"warm"}`, backend.KindVoiceDesign},
		{"/tasks/custom-voice", `{"text":"hi","speaker":"Vivian"}`, backend.KindCustomVoice},
	}
	for _, c := range cases {
		svc := &mockService{}
		w := do(t, NewMux(svc, nil), http.MethodPost, c.path, "application/json", []byte(c.body))
		if w.Code != http.StatusAccepted {
			t.Fatalf("%s: status=%d", c.path, w.Code)
		}
		if got := svc.submitted[0].Kind(); got != c.want {
			t.Fatalf("%s: kind %s", c.path, got)
		}
	}
}

func TestSubmitRejectsBadBodies(t *testing.T) {
	h := NewMux(&mockService{}, nil)
	if w := do(t, h, http.MethodPost, "/tasks/clone", "text/plain", []byte(`{}`)); w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("content type: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/tasks/clone", "application/json", []byte(`{"text":`)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", w.Code)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: text required", orchestrator.ErrInvalidRequest), http.StatusBadRequest},
		{orchestrator.ErrTaskAlreadyActive, http.StatusConflict},
		{orchestrator.ErrBackendNotReady, http.StatusServiceUnavailable},
		{&orchestrator.SubmissionError{Kind: backend.KindClone, Err: errors.New("connection refused")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		svc := &mockService{submitErr: c.err}
		w := do(t, NewMux(svc, nil), http.MethodPost, "/tasks/clone", "application/json", []byte(`{"text":"hi","ref_audio_id":"r1"}`))
		if w.Code != c.want {
			t.Fatalf("%v: got %d want %d", c.err, w.Code, c.want)
		}
		if e := decodeError(t, w); e.Code != c.want || e.Error == "" {
			t.Fatalf("%v: body %+v", c.err, e)
		}
	}
}

func TestSubmitUpload(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "me.wav")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("RIFFdata"))
	_ = mw.WriteField("text", "hello")
	_ = mw.WriteField("ref_text", "reference words")
	_ = mw.WriteField("language", "english")
	_ = mw.Close()

	svc := &mockService{}
	w := do(t, NewMux(svc, nil), http.MethodPost, "/tasks/clone-with-upload", mw.FormDataContentType(), buf.Bytes())
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	req, ok := svc.submitted[0].(backend.UploadCloneRequest)
	if !ok {
		t.Fatalf("wrong variant %T", svc.submitted[0])
	}
	if string(req.Audio) != "RIFFdata" || req.Filename != "me.wav" || req.Text != "hello" || req.RefText != "reference words" || req.Language != "english" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestSubmitUploadRequiresFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("text", "hello")
	_ = mw.Close()
	w := do(t, NewMux(&mockService{}, nil), http.MethodPost, "/tasks/clone-with-upload", mw.FormDataContentType(), buf.Bytes())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil)
	if w := do(t, h, http.MethodGet, "/task", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get without task: %d", w.Code)
	}
	tk := task.New("abc", backend.KindClone, 0, time.Now())
	svc.cur = &tk
	if w := do(t, h, http.MethodGet, "/task", "", nil); w.Code != http.StatusOK {
		t.Fatalf("get task: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/task/cancel", "", nil); w.Code != http.StatusAccepted {
		t.Fatalf("cancel: %d", w.Code)
	}
	svc.cancelErr = orchestrator.ErrNoTask
	if w := do(t, h, http.MethodPost, "/task/cancel", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("cancel without task: %d", w.Code)
	}
	svc.dismissErr = orchestrator.ErrTaskStillRunning
	if w := do(t, h, http.MethodDelete, "/task", "", nil); w.Code != http.StatusConflict {
		t.Fatalf("dismiss running: %d", w.Code)
	}
	svc.dismissErr = nil
	if w := do(t, h, http.MethodDelete, "/task", "", nil); w.Code != http.StatusOK {
		t.Fatalf("dismiss: %d", w.Code)
	}
}

func TestAudioEndpoint(t *testing.T) {
	tk := task.New("abc", backend.KindClone, 0, time.Now())
	svc := &mockService{cur: &tk, audioErr: orchestrator.ErrNoAudio}
	h := NewMux(svc, nil)
	if w := do(t, h, http.MethodGet, "/task/audio", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no audio: %d", w.Code)
	}
	svc.audioErr = nil
	svc.audio = []byte("RIFFWAVE")
	w := do(t, h, http.MethodGet, "/task/audio", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audio: %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "audio/wav" || w.Body.String() != "RIFFWAVE" {
		t.Fatalf("unexpected audio response: %q %q", w.Header().Get("Content-Type"), w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "abc.wav") {
		t.Fatalf("disposition %q", w.Header().Get("Content-Disposition"))
	}
}

func TestRestartUsesCurrentConfig(t *testing.T) {
	svc := &mockService{cfg: supervisor.Config{Port: 8123, Models: []string{"base"}}}
	w := do(t, NewMux(svc, nil), http.MethodPost, "/backend/restart", "", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	if len(svc.restarts) != 1 || svc.restarts[0].Port != 8123 {
		t.Fatalf("restarts %+v", svc.restarts)
	}
}

func TestCatalogueEndpoints(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil)
	if w := do(t, h, http.MethodGet, "/backend/languages", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready: %d", w.Code)
	}
	svc.catalogue = fakeCatalogue{}
	w := do(t, h, http.MethodGet, "/backend/languages", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "english") {
		t.Fatalf("languages %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/backend/capabilities", "", nil); w.Code != http.StatusOK {
		t.Fatalf("capabilities %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/backend/generated", "", nil); w.Code != http.StatusOK {
		t.Fatalf("generated %d", w.Code)
	}
	svc.catalogue = fakeCatalogue{refsErr: &backend.StatusError{Op: "references", StatusCode: 500, Body: "db locked"}}
	if w := do(t, h, http.MethodGet, "/backend/references", "", nil); w.Code != http.StatusBadGateway {
		t.Fatalf("references upstream error: %d", w.Code)
	}
}

func TestReferenceWritesRequireReadyBackend(t *testing.T) {
	h := NewMux(&mockService{}, nil)
	cases := []struct{ method, path string }{
		{http.MethodPost, "/backend/references"},
		{http.MethodGet, "/backend/references/r1/audio"},
		{http.MethodPut, "/backend/references/r1/name"},
		{http.MethodDelete, "/backend/references/r1"},
		{http.MethodDelete, "/backend/generated/g1"},
	}
	for _, tc := range cases {
		if w := do(t, h, tc.method, tc.path, "", nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestReferenceUploadAndDownload(t *testing.T) {
	store := newStoreCatalogue()
	h := NewMux(&mockService{catalogue: store}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "alice.wav")
	_, _ = fw.Write([]byte("RIFF-alice"))
	_ = mw.WriteField("ref_text", "hello from alice")
	_ = mw.Close()
	w := do(t, h, http.MethodPost, "/backend/references", mw.FormDataContentType(), buf.Bytes())
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var ref backend.ReferenceAudio
	if err := json.Unmarshal(w.Body.Bytes(), &ref); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ref.ID == "" || ref.OriginalName != "alice.wav" || store.refTexts[ref.ID] != "hello from alice" {
		t.Fatalf("unexpected reference %+v", ref)
	}

	w = do(t, h, http.MethodGet, "/backend/references/"+ref.ID+"/audio", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "RIFF-alice" {
		t.Fatalf("download: %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("content type %q", ct)
	}
	if w := do(t, h, http.MethodGet, "/backend/references/nope/audio", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing reference: %d", w.Code)
	}
}

func TestReferenceUploadRejectsBadBodies(t *testing.T) {
	h := NewMux(&mockService{catalogue: newStoreCatalogue()}, nil)
	if w := do(t, h, http.MethodPost, "/backend/references", "application/json", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart: %d", w.Code)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("ref_text", "no file")
	_ = mw.Close()
	if w := do(t, h, http.MethodPost, "/backend/references", mw.FormDataContentType(), buf.Bytes()); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: %d", w.Code)
	}
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	_, _ = mw.CreateFormFile("file", "empty.wav")
	_ = mw.Close()
	w := do(t, h, http.MethodPost, "/backend/references", mw.FormDataContentType(), buf.Bytes())
	if w.Code != http.StatusBadRequest || !strings.Contains(decodeError(t, w).Error, "empty") {
		t.Fatalf("empty file: %d %s", w.Code, w.Body.String())
	}
}

func TestReferenceRenameAndDelete(t *testing.T) {
	store := newStoreCatalogue()
	h := NewMux(&mockService{catalogue: store}, nil)

	w := do(t, h, http.MethodPut, "/backend/references/r1/name", "application/json", []byte(`{"name":"  Narrator  "}`))
	if w.Code != http.StatusOK || store.names["r1"] != "Narrator" {
		t.Fatalf("rename: %d %s names=%v", w.Code, w.Body.String(), store.names)
	}
	if w := do(t, h, http.MethodPut, "/backend/references/r1/name", "application/json", []byte(`{"name":" "}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("blank name: %d", w.Code)
	}
	if w := do(t, h, http.MethodPut, "/backend/references/r1/name", "application/json", []byte(`{`)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", w.Code)
	}
	if w := do(t, h, http.MethodPut, "/backend/references/zz/name", "application/json", []byte(`{"name":"x"}`)); w.Code != http.StatusNotFound {
		t.Fatalf("rename missing: %d", w.Code)
	}

	if w := do(t, h, http.MethodDelete, "/backend/references/r1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if _, ok := store.refs["r1"]; ok {
		t.Fatal("reference still stored")
	}
	if w := do(t, h, http.MethodDelete, "/backend/references/r1", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", w.Code)
	}

	if w := do(t, h, http.MethodDelete, "/backend/generated/g1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("delete generated: %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/backend/generated/g1", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete generated: %d", w.Code)
	}
}

func TestCORSOnlyWhenConfigured(t *testing.T) {
	t.Cleanup(func() { SetCORSOrigins(nil) })
	req := func(h http.Handler) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}
	if got := req(NewMux(&mockService{}, nil)).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
	SetCORSOrigins([]string{"http://localhost:5173"})
	if got := req(NewMux(&mockService{}, nil)).Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin %q", got)
	}
}

func TestEventsNotEnabled(t *testing.T) {
	if w := do(t, NewMux(&mockService{}, nil), http.MethodGet, "/events", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestEventStream(t *testing.T) {
	b := orchestrator.NewBroadcaster(8)
	defer b.Close()
	srv := httptest.NewServer(NewMux(&mockService{}, b))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type %q", ct)
	}
	for b.Subscribers() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("stream never subscribed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	b.Publish(orchestrator.Event{ID: "e1", Name: orchestrator.EventTaskProgress, TaskID: "t-1", Time: time.UnixMilli(1700000000123), Fields: map[string]any{"progress": 45}})

	sc := bufio.NewScanner(resp.Body)
	var data string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if data == "" {
		t.Fatalf("no data line: %v", sc.Err())
	}
	var ev types.EventView
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("json: %v", err)
	}
	if ev.ID != "e1" || ev.Name != "task_progress" || ev.TaskID != "t-1" || ev.TimeUnixMs != 1700000000123 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Fields["progress"] != float64(45) {
		t.Fatalf("fields %+v", ev.Fields)
	}
}
