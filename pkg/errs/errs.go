// Package errs defines the error taxonomy shared across the pipeline.
package errs

import "errors"

var (
	// ErrConfigMissing indicates a required configuration parameter is absent.
	// Fatal at startup; nothing should run with a partial configuration.
	ErrConfigMissing = errors.New("required configuration parameter missing")

	// ErrMalformedModelOutput indicates the language model returned text that
	// could not be parsed into the expected structure.
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrCollectionUnavailable indicates a topic's vector collection does not
	// exist or cannot be reached.
	ErrCollectionUnavailable = errors.New("vector collection unavailable")

	// ErrNotFound indicates a delete target was absent. Callers report this as
	// a structured non-fatal result rather than aborting.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamInvocation indicates an embedding, model, or inter-function
	// call failed.
	ErrUpstreamInvocation = errors.New("upstream invocation failed")
)
