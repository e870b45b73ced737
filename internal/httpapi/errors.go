package httpapi

import (
	"encoding/json"
	"net/http"
)

// errorBody is the stable error contract: every failure a client sees is
// this exact shape, with code drawn from the closed taxonomy below and href
// pointing at the documentation for that code.
type errorBody struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Details string `json:"details"`
	Href    string `json:"href"`
}

// Error codes of the closed taxonomy.
const (
	codeDoorResponseNotOkay = "door_response_not_okay"
	codePassMismatch        = "pass_mismatch"
	codeEntriesTooOld       = "entries_too_old"
	codeInsufficientData    = "insufficient_data"
	codeUserNotFound        = "user_not_found"
	codeUserAlreadyHasPass  = "user_already_has_a_pass"
	codePassExists          = "pass_exists"
	codeNoPass              = "no_pass"
	codeTokenMissing        = "oauth_token_missing"
	codeTokenInvalid        = "oauth_token_invalid"
	codeAccessDenied        = "access_denied"
	codeBadJSON             = "bad_json"
	codeInternal            = "internal_error"

	codePassOkay = "pass_okay"
)

type errorInfo struct {
	title   string
	details string
}

var errorCatalog = map[string]errorInfo{
	codeDoorResponseNotOkay: {
		"Door controller unreachable",
		"The scan log of the door controller could not be read.",
	},
	codePassMismatch: {
		"Last two scans differ",
		"The two most recent denied scans were made with different passes. Scan the same pass twice in quick succession and retry.",
	},
	codeEntriesTooOld: {
		"Scans too old",
		"The most recent denied scans are more than ten minutes old. Scan the pass again and retry within ten minutes.",
	},
	codeInsufficientData: {
		"Not enough scans",
		"Fewer than two denied scans are on record. Scan the pass twice at the door first.",
	},
	codeUserNotFound: {
		"User not found",
		"No directory user exists with the given uid.",
	},
	codeUserAlreadyHasPass: {
		"User already has a pass",
		"The user already holds a pass. Remove it before enrolling a new one.",
	},
	codePassExists: {
		"Pass already registered",
		"This pass is already bound to another user.",
	},
	codeNoPass: {
		"No pass",
		"The user holds no pass to remove.",
	},
	codeTokenMissing: {
		"Access token missing",
		"Pass a valid OAuth2 token in the access_token query parameter.",
	},
	codeTokenInvalid: {
		"Access token invalid",
		"The presented token is invalid or lacks the required scope for this resource.",
	},
	codeAccessDenied: {
		"Access denied",
		"The scanned pass does not grant access right now.",
	},
	codeBadJSON: {
		"Invalid JSON",
		"The request body is not valid JSON.",
	},
	codeInternal: {
		"Internal error",
		"An unexpected server error occurred. Details are in the server log.",
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string) {
	info, ok := errorCatalog[code]
	if !ok {
		info = errorCatalog[codeInternal]
	}
	writeJSON(w, status, errorBody{
		Code:    code,
		Title:   info.title,
		Details: info.details,
		Href:    s.docsBaseURL + "#" + code,
	})
}
