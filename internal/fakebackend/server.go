package fakebackend

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Config configures the HTTP surface
type Config struct {
	// Token, when set, is required as "Bearer <token>" on every request
	Token string

	// RetryAfter is advertised on injected 503 responses
	RetryAfter time.Duration
}

// NewRouter creates the chi router serving the simulated endpoints
func NewRouter(b *Backend, logger *zap.SugaredLogger, cfgs ...Config) http.Handler {
	var cfg Config
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	if cfg.Token != "" {
		r.Use(bearerAuth(cfg.Token))
	}

	h := &handler{backend: b, retryAfter: cfg.RetryAfter}

	r.Post("/jobs/{studentID}", h.seed)
	r.Get("/ocr/{studentID}", h.ocr)
	r.Get("/admission/{studentID}", h.admission)
	r.Get("/prediction/{jobID}/status", h.predictionStatus)

	return r
}

type handler struct {
	backend    *Backend
	retryAfter time.Duration
}

// seed handles POST /jobs/{studentID}; an empty body uses DefaultSeed
func (h *handler) seed(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var seed Seed
	if len(body) > 0 {
		if !gjson.ValidBytes(body) {
			writeError(w, http.StatusBadRequest, "invalid JSON in request body")
			return
		}
		seed = parseSeed(gjson.ParseBytes(body))
	}

	jobID := h.backend.Seed(studentID, seed)
	writeJSON(w, http.StatusCreated, map[string]any{
		"student_id":        studentID,
		"prediction_job_id": jobID,
	})
}

func parseSeed(v gjson.Result) Seed {
	seed := Seed{
		OCRPolls:        int(v.Get("ocr_polls").Int()),
		Paged:           v.Get("paged").Bool(),
		AdmissionPolls:  int(v.Get("admission_polls").Int()),
		PredictionPolls: int(v.Get("prediction_polls").Int()),
		PredictionFails: v.Get("prediction_fails").Bool(),
		TransientErrors: int(v.Get("transient_errors").Int()),
	}
	for _, f := range v.Get("files").Array() {
		seed.Files = append(seed.Files, f.String())
	}
	for _, p := range v.Get("programs").Array() {
		seed.Programs = append(seed.Programs, p.String())
	}
	return seed
}

// ocr handles GET /ocr/{studentID}
func (h *handler) ocr(w http.ResponseWriter, r *http.Request) {
	docs, paged, failed, found := h.backend.pollOCR(chi.URLParam(r, "studentID"))
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "unknown student")
	case failed:
		h.unavailable(w)
	case paged:
		writeJSON(w, http.StatusOK, map[string]any{
			"content":       docs,
			"number":        0,
			"size":          len(docs),
			"totalElements": len(docs),
			"totalPages":    1,
			"last":          true,
		})
	default:
		writeJSON(w, http.StatusOK, docs)
	}
}

// admission handles GET /admission/{studentID}
func (h *handler) admission(w http.ResponseWriter, r *http.Request) {
	programs, failed, found := h.backend.pollAdmission(chi.URLParam(r, "studentID"))
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "unknown student")
	case failed:
		h.unavailable(w)
	default:
		data := make([]map[string]any, 0, len(programs))
		for i, name := range programs {
			data = append(data, map[string]any{
				"program_name": name,
				"university":   "University of Applied Sciences",
				"probability":  0.9 - 0.1*float64(i),
			})
		}
		status := "processing"
		if len(data) > 0 {
			status = "completed"
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "data": data})
	}
}

// predictionStatus handles GET /prediction/{jobID}/status
func (h *handler) predictionStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	status, failed, found := h.backend.pollPrediction(jobID)
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "unknown prediction job")
	case failed:
		h.unavailable(w)
	default:
		resp := map[string]any{"job_id": jobID, "status": status}
		if status == "failed" {
			resp["message"] = "prediction model rejected the submission"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *handler) unavailable(w http.ResponseWriter) {
	if h.retryAfter > 0 {
		w.Header().Set("Retry-After", formatSeconds(h.retryAfter))
	}
	writeError(w, http.StatusServiceUnavailable, "backend busy")
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	want := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != want {
				writeError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
