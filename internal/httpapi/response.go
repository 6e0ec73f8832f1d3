// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/pkg/errutil"
)

// CodeOK is the envelope code of a successful response.
const CodeOK = "OK"

// Transport-level error codes.
const (
	CodeMalformedRequest = "REQUEST_MALFORMED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Envelope is the body of every response.
type Envelope struct {
	Code        string `json:"code"`
	Data        any    `json:"data"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch errutil.Code(err) {
	case account.CodeValidationFailed, CodeMalformedRequest:
		return http.StatusBadRequest
	case account.CodeNotFound, account.CodeNotLoggedIn:
		return http.StatusUnauthorized
	case account.CodeForbidden:
		return http.StatusForbidden
	case account.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorEnvelope builds the body for err. Server errors carry no detail.
func errorEnvelope(err error, status int) Envelope {
	code := errutil.Code(err)
	if code == "" {
		code = CodeInternal
	}
	env := Envelope{Code: code, Message: http.StatusText(status)}
	if status < http.StatusInternalServerError {
		env.Description = err.Error()
	}
	return env
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		return oops.Code(CodeMalformedRequest).Wrapf(err, "malformed request body")
	}
	return nil
}
