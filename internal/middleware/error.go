package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Response is the envelope of every JSON response
type Response struct {
	Success   bool              `json:"success"`
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Data      interface{}       `json:"data,omitempty"`
	Path      string            `json:"path,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

func writeResponse(w http.ResponseWriter, response Response) {
	response.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.Status)
	json.NewEncoder(w).Encode(response)
}

// RespondWithJSON sends a successful envelope carrying data
func RespondWithJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeResponse(w, Response{
		Success: true,
		Status:  statusCode,
		Message: message,
		Data:    data,
	})
}

// RespondWithError sends a failed envelope; the request path is echoed when r is given
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := Response{
		Success: false,
		Status:  statusCode,
		Message: message,
	}
	if r != nil {
		response.Path = r.URL.Path
	}
	writeResponse(w, response)
}

// RespondWithValidationErrors sends a 400 envelope listing the offending fields
func RespondWithValidationErrors(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	response := Response{
		Success: false,
		Status:  http.StatusBadRequest,
		Message: "validation failed",
		Errors:  errors,
	}
	if r != nil {
		response.Path = r.URL.Path
	}
	writeResponse(w, response)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
