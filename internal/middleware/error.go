package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"training-app/internal/apperr"
	"training-app/internal/logger"
)

// AppHandler is a handler that reports failures by returning an error.
type AppHandler func(http.ResponseWriter, *http.Request) error

// Error adapts an AppHandler to http.Handler. Returned errors and panics are
// written as {"message": ...} with the status apperr maps them to.
func Error(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					WriteError(w, r, log, err)
				}
			}()

			if err := next(w, r); err != nil {
				WriteError(w, r, log, err)
			}
		})
	}
}

// WriteError logs err as appropriate for its kind and writes the JSON error body.
func WriteError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status := apperr.Status(err)
	fields := map[string]interface{}{"method": r.Method, "path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		log.With(fields).Error(err, "Request failed")
	} else {
		log.With(fields).Debug(err.Error())
	}
	WriteJSON(w, status, map[string]string{"message": apperr.Message(err)})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
