package api

import (
	"errors"
	"log"
	"net/http"

	"estate_office/httputil"
	"estate_office/services"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{services.ErrConflict, http.StatusConflict, "CONFLICT"},
	{services.ErrTransactionFailed, http.StatusInternalServerError, "TRANSACTION_FAILED"},
}

// writeServiceError maps a classified service error onto its status code.
// Unclassified errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			httputil.WriteError(w, e.status, e.code, err.Error())
			return
		}
	}
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httputil.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}
