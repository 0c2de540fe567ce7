package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qvox/internal/backend"
	"qvox/internal/orchestrator"
	"qvox/pkg/types"
)

// sseKeepAlive is how often an idle event stream gets a comment line.
var sseKeepAlive = 15 * time.Second

type api struct {
	svc    Service
	events EventSource
}

// NewMux builds the control API router. events may be nil, in which case
// GET /events answers 404.
func NewMux(svc Service, events EventSource) http.Handler {
	a := &api{svc: svc, events: events}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(corsAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/status", a.status)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/clone", submitJSON[backend.CloneRequest](a))
		r.Post("/multi-speaker", submitJSON[backend.MultiSpeakerRequest](a))
		r.Post("/voice-design", submitJSON[backend.VoiceDesignRequest](a))
		r.Post("/custom-voice", submitJSON[backend.CustomVoiceRequest](a))
		r.Post("/clone-with-upload", a.submitUpload)
	})
	r.Route("/task", func(r chi.Router) {
		r.Get("/", a.getTask)
		r.Delete("/", a.dismiss)
		r.Post("/cancel", a.cancel)
		r.Get("/audio", a.audio)
	})
	r.Route("/backend", func(r chi.Router) {
		r.Post("/restart", a.restart)
		r.Get("/capabilities", catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
			return c.Capabilities(r.Context())
		}))
		r.Get("/languages", catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
			return c.Languages(r.Context())
		}))
		r.Get("/references", catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
			return c.References(r.Context())
		}))
		r.Post("/references", a.uploadReference)
		r.Get("/references/{id}/audio", a.referenceAudio)
		r.Put("/references/{id}/name", a.renameReference)
		r.Delete("/references/{id}", a.deleteReference)
		r.Get("/generated", catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
			return c.Generated(r.Context())
		}))
		r.Delete("/generated/{id}", a.deleteGenerated)
	})
	r.Get("/events", a.stream)

	MountSwagger(r)
	return r
}

// fail writes err with its mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusConflict:
		incrementRejection("busy")
	case http.StatusServiceUnavailable:
		incrementRejection("not_ready")
	}
	if debugEnabled(r) {
		zlog.Debug().Str("event", "http_error").Str("path", r.URL.Path).Int("status", status).Err(err).Msg("request failed")
	}
	writeJSONError(w, status, err.Error())
}

// status godoc
// @Summary      Backend and task status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Status())
}

// submitJSON decodes a JSON generation request of type T and submits it.
//
// @Summary      Start a generation task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Success      202  {object}  types.TaskView
// @Failure      400  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Failure      502  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /tasks/clone [post]
// @Router       /tasks/multi-speaker [post]
// @Router       /tasks/voice-design [post]
// @Router       /tasks/custom-voice [post]
func submitJSON[T backend.GenerationRequest](a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req T
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		a.submit(w, r, req)
	}
}

// submitUpload godoc
// @Summary      Start a voice-clone task with an uploaded reference
// @Tags         tasks
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true   "Reference audio"
// @Param        text      formData  string  true   "Text to synthesize"
// @Param        ref_text  formData  string  false  "Transcript of the reference"
// @Param        language  formData  string  false  "Language (default auto)"
// @Success      202  {object}  types.TaskView
// @Failure      400  {object}  types.ErrorResponse
// @Router       /tasks/clone-with-upload [post]
func (a *api) submitUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	a.submit(w, r, backend.UploadCloneRequest{
		Audio:    audio,
		Filename: hdr.Filename,
		Text:     r.FormValue("text"),
		RefText:  r.FormValue("ref_text"),
		Language: r.FormValue("language"),
	})
}

func (a *api) submit(w http.ResponseWriter, r *http.Request, req backend.GenerationRequest) {
	ctx, cancel := requestContext(r)
	defer cancel()
	t, err := a.svc.Submit(ctx, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orchestrator.TaskView(t))
}

// getTask godoc
// @Summary      Current task
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  types.TaskView
// @Failure      404  {object}  types.ErrorResponse
// @Router       /task [get]
func (a *api) getTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.svc.Task()
	if !ok {
		fail(w, r, orchestrator.ErrNoTask)
		return
	}
	writeJSON(w, http.StatusOK, orchestrator.TaskView(t))
}

// cancel godoc
// @Summary      Cancel the processing task
// @Tags         tasks
// @Produce      json
// @Success      202  {object}  types.MessageResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      502  {object}  types.ErrorResponse
// @Router       /task/cancel [post]
func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := a.svc.Cancel(ctx); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.MessageResponse{Message: "cancel requested"})
}

// dismiss godoc
// @Summary      Clear a finished task
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  types.MessageResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /task [delete]
func (a *api) dismiss(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Dismiss(); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "task dismissed"})
}

// audio godoc
// @Summary      Result audio of the current task
// @Tags         tasks
// @Produce      audio/wav
// @Success      200
// @Failure      404  {object}  types.ErrorResponse
// @Router       /task/audio [get]
func (a *api) audio(w http.ResponseWriter, r *http.Request) {
	b, err := a.svc.Audio()
	if err != nil {
		fail(w, r, err)
		return
	}
	name := "output.wav"
	if t, ok := a.svc.Task(); ok {
		name = t.ID + ".wav"
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// restart godoc
// @Summary      Restart the backend with its current launch configuration
// @Tags         backend
// @Produce      json
// @Success      202  {object}  types.MessageResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /backend/restart [post]
func (a *api) restart(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Restart(r.Context(), a.svc.BackendConfig()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.MessageResponse{Message: "backend restarting"})
}

// catalogueCall runs call against the backend catalogue and writes its
// result with status. It answers 503 until the backend is ready.
func catalogueCall(a *api, status int, call func(orchestrator.Catalogue, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := a.svc.Catalogue()
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx, cancel := requestContext(r)
		defer cancel()
		v, err := call(c, r.WithContext(ctx))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, status, v)
	}
}

// uploadReference godoc
// @Summary      Store a reference clip on the backend
// @Tags         backend
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true   "Reference audio"
// @Param        ref_text  formData  string  false  "Transcript of the reference"
// @Success      201  {object}  backend.ReferenceAudio
// @Failure      400  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /backend/references [post]
func (a *api) uploadReference(w http.ResponseWriter, r *http.Request) {
	catalogueCall(a, http.StatusCreated, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: invalid multipart body", orchestrator.ErrInvalidRequest)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: file is required", orchestrator.ErrInvalidRequest)
		}
		defer f.Close()
		audio, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("%w: could not read uploaded file", orchestrator.ErrInvalidRequest)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("%w: uploaded file is empty", orchestrator.ErrInvalidRequest)
		}
		return c.UploadReference(r.Context(), hdr.Filename, audio, r.FormValue("ref_text"))
	})(w, r)
}

// referenceAudio godoc
// @Summary      Download a stored reference clip
// @Tags         backend
// @Produce      audio/wav
// @Param        id   path  string  true  "Reference id"
// @Success      200
// @Failure      404  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /backend/references/{id}/audio [get]
func (a *api) referenceAudio(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.Catalogue()
	if err != nil {
		fail(w, r, err)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	b, err := c.DownloadReference(ctx, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".wav"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// renameReference godoc
// @Summary      Rename a stored reference clip
// @Tags         backend
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "Reference id"
// @Param        body  body  types.RenameReferenceRequest  true  "New display name"
// @Success      200  {object}  backend.RenameResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /backend/references/{id}/name [put]
func (a *api) renameReference(w http.ResponseWriter, r *http.Request) {
	catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.RenameReferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON body", orchestrator.ErrInvalidRequest)
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", orchestrator.ErrInvalidRequest)
		}
		return c.RenameReference(r.Context(), chi.URLParam(r, "id"), name)
	})(w, r)
}

// deleteReference godoc
// @Summary      Delete a stored reference clip
// @Tags         backend
// @Produce      json
// @Param        id   path  string  true  "Reference id"
// @Success      200  {object}  types.MessageResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /backend/references/{id} [delete]
func (a *api) deleteReference(w http.ResponseWriter, r *http.Request) {
	catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
		if err := c.DeleteReference(r.Context(), chi.URLParam(r, "id")); err != nil {
			return nil, err
		}
		return types.MessageResponse{Message: "reference deleted"}, nil
	})(w, r)
}

// deleteGenerated godoc
// @Summary      Delete a stored generation result
// @Tags         backend
// @Produce      json
// @Param        id   path  string  true  "Generated audio id"
// @Success      200  {object}  types.MessageResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /backend/generated/{id} [delete]
func (a *api) deleteGenerated(w http.ResponseWriter, r *http.Request) {
	catalogueCall(a, http.StatusOK, func(c orchestrator.Catalogue, r *http.Request) (any, error) {
		if err := c.DeleteGenerated(r.Context(), chi.URLParam(r, "id")); err != nil {
			return nil, err
		}
		return types.MessageResponse{Message: "generated audio deleted"}, nil
	})(w, r)
}

func eventView(e orchestrator.Event) types.EventView {
	return types.EventView{
		ID:         e.ID,
		Name:       e.Name,
		TaskID:     e.TaskID,
		TimeUnixMs: e.Time.UnixMilli(),
		Fields:     e.Fields,
	}
}

// stream godoc
// @Summary      Orchestrator event stream
// @Tags         status
// @Produce      text/event-stream
// @Success      200  {object}  types.EventView
// @Router       /events [get]
func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeJSONError(w, http.StatusNotFound, "event stream not enabled")
		return
	}
	rc := http.NewResponseController(w)
	ch, unsubscribe := a.events.Subscribe()
	defer unsubscribe()
	sseClients.Inc()
	defer sseClients.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	keepalive := time.NewTicker(sseKeepAlive)
	defer keepalive.Stop()
	debug := debugEnabled(r)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(eventView(e))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Name, data); err != nil {
				return
			}
			_ = rc.Flush()
			if debug {
				zlog.Debug().Str("event", "sse_sent").Str("name", e.Name).Str("task_id", e.TaskID).Msg("event streamed")
			}
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
