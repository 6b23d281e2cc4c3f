package flutterhost

import (
	"errors"
	"fmt"

	"github.com/machinefabric/flutterhost-go/codec"
)

// ErrAlreadyResponded is returned when a response handle is used after it
// has already carried a reply.
var ErrAlreadyResponded = errors.New("platform message already responded to")

// ErrEngineShutDown is returned when an operation reaches an engine that
// has been shut down.
var ErrEngineShutDown = errors.New("engine has been shut down")

// MethodError is the Go surface of an error envelope: a remote handler
// answered a method call with an error result.
type MethodError struct {
	Code    string
	Message string
	Details codec.Value
}

func (e *MethodError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("method call failed with code %q", e.Code)
	}
	return fmt.Sprintf("method call failed with code %q: %s", e.Code, e.Message)
}

// ErrMethodNotImplemented is returned when the remote side answered a
// method call with the not-implemented envelope, or when no handler was
// installed for an inbound call.
var ErrMethodNotImplemented = errors.New("method not implemented")

// PluginError wraps a failure during plugin initialization or removal with
// the plugin's name.
type PluginError struct {
	Plugin string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}
