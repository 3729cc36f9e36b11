package domain

import "errors"

var (
	// ErrStoreNotReady signals the vector store has not finished initializing.
	ErrStoreNotReady = errors.New("vector store not initialized")
	// ErrStoreUnavailable signals a vector store failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrEmbeddingFailed signals an embedding provider failure.
	ErrEmbeddingFailed = errors.New("embedding provider error")
	// ErrGenerationFailed signals a generation provider failure.
	ErrGenerationFailed = errors.New("generation provider error")
	// ErrIngestFailed signals a whole-batch ingestion failure.
	ErrIngestFailed = errors.New("ingestion failed")
	// ErrBadRequest signals an invalid client request.
	ErrBadRequest = errors.New("bad request")
)
