package port

// TextExtractor pulls plain text out of a paginated document.
type TextExtractor interface {
	Extract(path string) (string, error)
}
