package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitescope/internal/domain"
	"sitescope/internal/metrics"
	"sitescope/internal/ports"
	scanrunner "sitescope/internal/workers/scanrunner"
)

const (
	defaultWaitTimeout = 30
	maxWaitTimeout     = 300
	maxBodyBytes       = 1 << 16
)

// Server exposes scans, profiles and tasks over JSON.
type Server struct {
	scanner   ports.Scanner
	profiles  ports.Profiles
	tasks     ports.Tasks
	jobs      ports.JobRepository
	processor scanrunner.ScanProcessor
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func New(scanner ports.Scanner, profiles ports.Profiles, tasks ports.Tasks, jobs ports.JobRepository, processor scanrunner.ScanProcessor, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{scanner: scanner, profiles: profiles, tasks: tasks, jobs: jobs, processor: processor, metrics: m, log: log}
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.getHealthz)
	r.Post("/scans", s.postScan)
	r.Get("/scans/{id}", s.getScan)
	r.Get("/profiles/{domain}", s.getProfile)
	r.Get("/domains/{domain}/tasks", s.listTasks)
	r.Post("/domains/{domain}/tasks/{taskId}/complete", s.completeTask)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

type ScanRequest struct {
	URL string `json:"url"`
}

type ScanAccepted struct {
	ScanID string `json:"scanId"`
}

type ScanResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Wait    *bool
		Timeout *int
	}
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "wait", q, &params.Wait); err != nil {
		writeError(w, http.StatusBadRequest, "invalid wait parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "timeout", q, &params.Timeout); err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeout parameter")
		return
	}

	var body ScanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "missing or malformed body")
		return
	}
	id, err := s.scanner.Enqueue(r.Context(), body.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if params.Wait == nil || !*params.Wait {
		writeJSON(w, http.StatusAccepted, ScanAccepted{ScanID: id})
		return
	}

	timeout := defaultWaitTimeout
	if params.Timeout != nil && *params.Timeout > 0 {
		timeout = min(*params.Timeout, maxWaitTimeout)
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Second)
	defer cancel()

	var failure string
	if err := scanrunner.ProcessInline(ctx, s.jobs, s.processor, id, s.log); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A background worker claimed it first; poll GET /scans/{id}.
			writeJSON(w, http.StatusAccepted, ScanAccepted{ScanID: id})
			return
		}
		failure = err.Error()
	}
	status, progress, err := s.scanner.Status(context.WithoutCancel(ctx), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{ID: id, Status: status, Progress: progress, Error: failure})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}
	status, progress, err := s.scanner.Status(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{ID: id, Status: status, Progress: progress})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	name, ok := bindDomain(w, r)
	if !ok {
		return
	}
	prof, err := s.profiles.GetLatest(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	name, ok := bindDomain(w, r)
	if !ok {
		return
	}
	var status *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}
	var filter domain.TaskStatus
	if status != nil {
		filter = domain.TaskStatus(*status)
		switch filter {
		case domain.TaskPending, domain.TaskCompleted, domain.TaskVerified, domain.TaskRegressed:
		default:
			writeError(w, http.StatusBadRequest, "unknown task status "+*status)
			return
		}
	}
	list, err := s.tasks.List(r.Context(), name, filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	name, ok := bindDomain(w, r)
	if !ok {
		return
	}
	var taskID string
	if err := runtime.BindStyledParameterWithOptions("simple", "taskId", chi.URLParam(r, "taskId"), &taskID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.tasks.Complete(r.Context(), name, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// bindDomain reads the {domain} path parameter and reduces it to the
// registrable domain, so "www.example.com" and "example.com" share state.
func bindDomain(w http.ResponseWriter, r *http.Request) (string, bool) {
	var raw string
	if err := runtime.BindStyledParameterWithOptions("simple", "domain", chi.URLParam(r, "domain"), &raw,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain")
		return "", false
	}
	target, err := domain.ParseTarget(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain")
		return "", false
	}
	return target.Registrable, true
}

// fail maps service errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
