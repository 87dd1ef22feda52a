package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"studyrag/internal/util"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrInvalidArgument), errors.Is(err, util.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrMaterialNotFound), errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrMaterialNotReady):
		return http.StatusConflict
	case errors.Is(err, util.ErrEmbeddingUnavailable), errors.Is(err, util.ErrGenerationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "SR-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{Code: "SR-API-5020", Message: "Upstream provider unavailable. Retry shortly."}
	case status >= 500:
		switch {
		case strings.Contains(raw, "no such table"), strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{Code: "SR-DB-5001", Message: "Database schema is not initialized. Restart the service to migrate."}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "SR-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
		default:
			return apiError{Code: "SR-API-5000", Message: "Internal server error. Please retry or check service logs."}
		}
	case status == http.StatusBadRequest:
		code = "SR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "SR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "SR-API-4009"
		msg = "Material is not ready yet. Retry after ingestion completes."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "unsupported file type"):
			msg = "Only PDF and plain text files are supported."
		case strings.Contains(raw, "no file provided"):
			msg = "No file was provided."
		case strings.Contains(raw, "material_id is required"):
			msg = "material_id is required."
		case strings.Contains(raw, "question and answer are required"):
			msg = "Both question and answer are required."
		case strings.Contains(raw, "empty query"):
			msg = "Query parameter q is required."
		case strings.Contains(raw, "count must be positive"):
			msg = "count must be a positive number."
		case strings.Contains(raw, "flashcard count must be between"):
			msg = "count must be between 1 and 20."
		case strings.Contains(raw, "empty question"):
			msg = "question is required."
		case strings.Contains(raw, "question too long"):
			msg = "Question is too long (max 500 characters)."
		case strings.Contains(raw, "k must be a positive integer"):
			msg = "k must be a positive integer."
		case strings.Contains(raw, "llm provider not configured"):
			msg = "Requested LLM provider is not configured."
		case strings.Contains(raw, "async generation requires"):
			msg = "Async generation needs a Temporal worker."
		}
	}

	return apiError{Code: code, Message: msg}
}
