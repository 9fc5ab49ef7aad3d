package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) (EmbeddingResult, error) {
	s.got = texts
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embeddings: [][]float32{{0.1}, {0.2}}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), []string{"medicare", "part b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 2 || inner.got[0] != "query: medicare" || inner.got[1] != "query: part b" {
		t.Errorf("unexpected prefixed texts: %q", inner.got)
	}
	if len(result.Embeddings) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(result.Embeddings))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestCheckAlignment(t *testing.T) {
	res := EmbeddingResult{Embeddings: [][]float32{{1}, {2}}}
	if err := CheckAlignment(2, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := CheckAlignment(3, res)
	if !errors.Is(err, ErrAlignment) {
		t.Fatalf("expected ErrAlignment, got %v", err)
	}
	var ae *AlignmentError
	if !errors.As(err, &ae) || ae.Want != 3 || ae.Got != 2 {
		t.Errorf("unexpected alignment error: %+v", ae)
	}
}

func TestEmbeddingServiceError_Is(t *testing.T) {
	err := error(&EmbeddingServiceError{StatusCode: 429, Message: "slow down"})
	if !errors.Is(err, ErrEmbeddingService) {
		t.Error("expected ErrEmbeddingService")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("expected ErrRateLimited for 429")
	}

	err = &EmbeddingServiceError{StatusCode: 401, Message: "bad key"}
	if errors.Is(err, ErrRateLimited) {
		t.Error("401 must not match ErrRateLimited")
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := error(&TransportError{Op: "embeddings", Err: context.DeadlineExceeded})
	if !errors.Is(err, ErrTransport) {
		t.Error("expected ErrTransport")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be reachable")
	}
}

func TestStoreErrors_Is(t *testing.T) {
	cause := errors.New("NOAUTH")
	if err := error(&BulkWriteError{Err: cause}); !errors.Is(err, ErrBulkWrite) || !errors.Is(err, cause) {
		t.Errorf("BulkWriteError does not match: %v", err)
	}
	if err := error(&QueryError{Err: cause}); !errors.Is(err, ErrQuery) || !errors.Is(err, cause) {
		t.Errorf("QueryError does not match: %v", err)
	}
}

func TestUsage_NilSafe(t *testing.T) {
	UsageFromContext(context.Background()).AddTokens(5)

	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	if u.TotalTokens != 7 || !u.Used {
		t.Errorf("unexpected usage: %+v", u)
	}
}
