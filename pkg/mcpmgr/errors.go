package mcpmgr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownServer matches any UnknownServerError via errors.Is.
var ErrUnknownServer = errors.New("unknown server")

// UnknownServerError names the requested server and every server the
// bootstrap function knew about at the time of the request.
type UnknownServerError struct {
	Name      string
	Available []string
}

func (e *UnknownServerError) Error() string {
	available := "(none)"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("unknown server: %s. Available: %s", e.Name, available)
}

// Is reports whether target is ErrUnknownServer.
func (e *UnknownServerError) Is(target error) bool { return target == ErrUnknownServer }
