// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as {"error": ...} with the status of its kind.
// A non-empty prefix is prepended to server-side failures only.
func RespondError(w http.ResponseWriter, err error, prefix string) {
	status := StatusFor(err)
	msg := err.Error()
	if prefix != "" && status >= http.StatusInternalServerError {
		msg = prefix + msg
	}
	Error(w, status, msg)
}
