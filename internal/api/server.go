package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"studyrag/internal/config"
	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/storage"
	"studyrag/internal/util"
	"studyrag/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

const maxUploadBytes = 64 << 20

type Server struct {
	cfg      config.Config
	store    storage.Store
	services *rag.Services
	orch     Orchestrator
	log      *logger.Logger
}

func NewServer(cfg config.Config, store storage.Store, services *rag.Services, orch Orchestrator, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{cfg: cfg, store: store, services: services, orch: orch, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/materials", func(r chi.Router) {
		r.Get("/", s.handleListMaterials)
		r.Post("/", s.handleUpload)
		r.Route("/{materialID}", func(r chi.Router) {
			r.Get("/", s.handleGetMaterial)
			r.Delete("/", s.handleDeleteMaterial)
			r.Get("/questions", s.handleListQuestions)
			r.Get("/search", s.handleSearch)
		})
	})
	r.Post("/questions/generate", s.handleGenerate)
	r.Post("/questions/validate", s.handleValidate)
	r.Post("/flashcards/generate", s.handleFlashcards)
	r.Post("/chat", s.handleChat)
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.ListMaterials(r.Context())
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMaterial(r.Context(), chi.URLParam(r, "materialID"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMaterial(r.Context(), chi.URLParam(r, "materialID")); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: parse multipart: %v", util.ErrInvalidArgument, err))
		return
	}
	fh, ok := uploadedFile(r.MultipartForm)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: no file provided", util.ErrInvalidArgument))
		return
	}
	fileType, err := rag.FileTypeFor(fh.Filename)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	materialID := uuid.NewString()
	path := util.SafeJoin(filepath.Join(s.cfg.UploadDir, materialID), fh.Filename)
	src, err := fh.Open()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("open upload: %w", err))
		return
	}
	defer src.Close()
	size, err := util.WriteFileAtomic(path, src)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}
	m := models.Material{
		MaterialID:  materialID,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		FileType:    fileType,
		FilePath:    path,
		FileSize:    size,
		Status:      models.MaterialProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateMaterial(r.Context(), m); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	if err := s.orch.StartIngest(r.Context(), workflows.MaterialIngestInput{
		MaterialID: materialID,
		FilePath:   path,
		FileType:   fileType,
	}); err != nil {
		s.log.Error("start ingest failed", "material_id", materialID, "error", err)
		_ = s.store.UpdateMaterialStatus(r.Context(), materialID, models.MaterialFailed, "ingestion could not be started")
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if current, err := s.store.GetMaterial(r.Context(), materialID); err == nil {
		m = current
	}
	writeJSON(w, http.StatusAccepted, m)
}

func uploadedFile(form *multipart.Form) (*multipart.FileHeader, bool) {
	if form == nil {
		return nil, false
	}
	if files := form.File["file"]; len(files) > 0 {
		return files[0], true
	}
	for _, v := range form.File {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

type generateRequest struct {
	MaterialID  string `json:"material_id"`
	Count       int    `json:"count"`
	Topic       string `json:"topic"`
	LLMProvider string `json:"llm_provider"`
	Async       bool   `json:"async"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: invalid json: %v", util.ErrInvalidArgument, err))
		return
	}
	req.MaterialID = strings.TrimSpace(req.MaterialID)
	if req.MaterialID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: material_id is required", util.ErrInvalidArgument))
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}
	if s.cfg.MaxQuestions > 0 && req.Count > s.cfg.MaxQuestions {
		req.Count = s.cfg.MaxQuestions
	}

	if req.Async {
		id, err := s.orch.StartGeneration(r.Context(), workflows.QuestionGenerationInput{
			MaterialID:  req.MaterialID,
			Count:       req.Count,
			Topic:       req.Topic,
			LLMProvider: req.LLMProvider,
		})
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": id, "material_id": req.MaterialID})
		return
	}

	pipeline, err := s.services.PipelineFor(req.LLMProvider)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	qs, err := pipeline.GenerateForMaterial(r.Context(), req.MaterialID, req.Count)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	rag.TagTopic(qs, req.Topic)
	if err := s.store.SaveQuestions(r.Context(), qs); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"material_id": req.MaterialID,
		"requested":   req.Count,
		"questions":   qs,
	})
}

type validateRequest struct {
	MaterialID    string `json:"material_id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: invalid json: %v", util.ErrInvalidArgument, err))
		return
	}
	if strings.TrimSpace(req.MaterialID) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: material_id is required", util.ErrInvalidArgument))
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: question and answer are required", util.ErrInvalidArgument))
		return
	}
	res, err := s.services.Pipeline.ValidateAnswer(r.Context(), req.MaterialID, req.Question, req.Answer)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_correct": req.CorrectAnswer != "" && req.Answer == req.CorrectAnswer,
		"validation": res,
	})
}

type flashcardsRequest struct {
	MaterialID  string `json:"material_id"`
	Count       int    `json:"count"`
	LLMProvider string `json:"llm_provider"`
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	var req flashcardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: invalid json: %v", util.ErrInvalidArgument, err))
		return
	}
	req.MaterialID = strings.TrimSpace(req.MaterialID)
	if req.MaterialID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: material_id is required", util.ErrInvalidArgument))
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}
	pipeline, err := s.services.PipelineFor(req.LLMProvider)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	cards, err := pipeline.Flashcards(r.Context(), req.MaterialID, req.Count)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"material_id": req.MaterialID,
		"flashcards":  cards,
	})
}

type chatRequest struct {
	MaterialID  string `json:"material_id"`
	Question    string `json:"question"`
	K           int    `json:"k"`
	LLMProvider string `json:"llm_provider"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: invalid json: %v", util.ErrInvalidArgument, err))
		return
	}
	req.MaterialID = strings.TrimSpace(req.MaterialID)
	if req.MaterialID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: material_id is required", util.ErrInvalidArgument))
		return
	}
	if req.K < 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: k must be a positive integer", util.ErrInvalidArgument))
		return
	}
	pipeline, err := s.services.PipelineFor(req.LLMProvider)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	ans, err := pipeline.Answer(r.Context(), req.MaterialID, req.Question, min(req.K, 10))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	materialID := chi.URLParam(r, "materialID")
	if _, err := s.store.GetMaterial(r.Context(), materialID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	qs, err := s.store.ListQuestions(r.Context(), materialID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	topK := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: k must be a positive integer", util.ErrInvalidArgument))
			return
		}
		topK = min(n, 50)
	}
	results, err := s.services.Pipeline.Search(r.Context(), chi.URLParam(r, "materialID"), r.URL.Query().Get("q"), topK)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
