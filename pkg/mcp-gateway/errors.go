package mcpgateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/vikashloomba/mcp-tool-gateway/pkg/mcpmgr"
)

// clientErrorMarkers identify messages that describe a bad request or a bad
// configuration. Error text is part of the API contract, so the markers are
// anchored to messages the gateway and its adapters produce themselves.
var clientErrorMarkers = []string{
	"unknown server:",
	"requires url field",
	"requires command field",
	"unsupported transport",
	"unsupported provider",
	"missing request body",
	"invalid request body",
	"invalid limit",
	"invalid since timestamp",
	"invalid JSON in ",
	`invalid "`,
	"missing tool name for server",
	`missing "`,
	`missing required "`,
}

// providerCallError matches adapter failures such as
// `invalid openai call: expected object`.
var providerCallError = regexp.MustCompile(`^invalid [a-z]+ call: `)

// statusFor maps an error to 400 when it describes a client or
// configuration mistake and 500 otherwise.
func statusFor(err error) int {
	if errors.Is(err, mcpmgr.ErrUnknownServer) {
		return http.StatusBadRequest
	}
	msg := err.Error()
	for _, marker := range clientErrorMarkers {
		if strings.Contains(msg, marker) {
			return http.StatusBadRequest
		}
	}
	if providerCallError.MatchString(msg) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}
