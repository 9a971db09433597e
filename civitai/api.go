package civitai

import (
	"context"
)

// API defines the interface for Civitai media operations
type API interface {
	// TestConnection verifies the client can reach the API
	TestConnection(ctx context.Context) error

	// FetchMedia fetches a single page of media
	FetchMedia(ctx context.Context, req Request) (Result, error)
}
