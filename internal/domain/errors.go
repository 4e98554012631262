package domain

import "errors"

var (
	ErrExtraction             = errors.New("document extraction failed")
	ErrNoExtractableText      = errors.New("no extractable text found in document")
	ErrIndexUnavailable       = errors.New("vector index unavailable")
	ErrEmbeddingModelMismatch = errors.New("index was built with a different embedding model")
	ErrPaperNotFound          = errors.New("paper not found")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrProvider               = errors.New("provider request failed")
)
