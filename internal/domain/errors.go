package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrMalformedQuery signals an invalid retrieval request (empty text, bad top_k).
	ErrMalformedQuery = errors.New("malformed query")
	// ErrCorpusUnavailable signals a failed corpus load. Fatal at startup,
	// never a per-query condition.
	ErrCorpusUnavailable = errors.New("document corpus unavailable")
	// ErrEmbeddingProviderError signals an embedding provider API failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatModelUnavailable signals a chat completion provider failure.
	ErrChatModelUnavailable = errors.New("chat model unavailable")
)
