package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"paperchat/internal/domain"
)

// pageSource is the paginated view the extractor walks. Pages are 1-based.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// PDFExtractor extracts plain text from PDF files page by page.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract returns every page's text followed by a newline, in page order.
// Pages that yield no text are skipped entirely.
func (e *PDFExtractor) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	return e.extractPages(pdfPages{r: r}, path)
}

func (e *PDFExtractor) extractPages(src pageSource, path string) (string, error) {
	var sb strings.Builder
	for n := 1; n <= src.NumPage(); n++ {
		text, err := src.PageText(n)
		if err != nil {
			e.logger.Warn("skipping unreadable page", "path", path, "page", n, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int {
	return p.r.NumPage()
}

func (p pdfPages) PageText(n int) (text string, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
