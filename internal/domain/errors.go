package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidQuery signals an empty or whitespace-only search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingService signals a non-success response from the embedding service.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrRateLimited signals that the embedding service throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport signals a network or timeout failure reaching an external service.
	ErrTransport = errors.New("transport error")
	// ErrAlignment signals an embedding response whose size differs from the request.
	ErrAlignment = errors.New("embedding alignment error")
	// ErrBulkWrite signals that the store rejected a whole bulk request.
	ErrBulkWrite = errors.New("bulk write error")
	// ErrQuery signals that the store rejected a k-NN query.
	ErrQuery = errors.New("query error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrMissingEmbedding signals a write of a document that was never vectorized.
	ErrMissingEmbedding = errors.New("document has no embedding")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
)

// EmbeddingServiceError carries the upstream status and message of a failed embedding call.
type EmbeddingServiceError struct {
	StatusCode int
	Message    string
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrEmbeddingService.Error(), e.StatusCode, e.Message)
}

// Is matches ErrEmbeddingService, and ErrRateLimited for HTTP 429.
func (e *EmbeddingServiceError) Is(target error) bool {
	switch target {
	case ErrEmbeddingService:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// TransportError wraps a network failure of the named operation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport.Error(), e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// AlignmentError reports how many vectors were expected and how many came back.
type AlignmentError struct {
	Want int
	Got  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: requested %d inputs, received %d vectors", ErrAlignment.Error(), e.Want, e.Got)
}

// Is matches ErrAlignment.
func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// BulkWriteError wraps a whole-request rejection of a bulk upsert.
type BulkWriteError struct {
	Err error
}

func (e *BulkWriteError) Error() string { return ErrBulkWrite.Error() + ": " + e.Err.Error() }

func (e *BulkWriteError) Unwrap() error { return e.Err }

// Is matches ErrBulkWrite.
func (e *BulkWriteError) Is(target error) bool { return target == ErrBulkWrite }

// QueryError wraps a rejected k-NN query.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return ErrQuery.Error() + ": " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// Is matches ErrQuery.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// CheckAlignment returns an AlignmentError unless the result holds exactly want vectors.
func CheckAlignment(want int, res EmbeddingResult) error {
	if got := len(res.Embeddings); got != want {
		return &AlignmentError{Want: want, Got: got}
	}
	return nil
}
