// Package interfaces defines the seams between the validator components so
// each one can be replaced in tests.
package interfaces

import (
	"context"
	"net/http"

	"github.com/giygas/pharmacy-validator/entities"
)

// Fetcher looks a name up in the public register. Failures are returned as
// errors; converting them to sentinel candidates is the caller's decision.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]entities.Candidate, error)
}

// Validator runs a batch of names through the register
type Validator interface {
	Validate(ctx context.Context, names []string) []entities.Result
}

// HTTPHandler defines the endpoints exposed by the HTTP surface
type HTTPHandler interface {
	ValidateUpload(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
