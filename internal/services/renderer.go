package services

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"

	"github.com/gen2brain/go-fitz"

	"alfredoptarigan/exam-grader/internal/models"
)

// QualityProfile selects the resolution and JPEG quality a page is
// rendered at. Previews are cheap; extraction images are heavy.
type QualityProfile struct {
	DPI         float64
	JPEGQuality int
}

// DocumentSource answers page-count and page-render queries for a
// document. Implementations keep no per-run state; the pipeline owns that.
type DocumentSource interface {
	PageCount(ctx context.Context, documentPath string) (int, error)
	RenderPage(ctx context.Context, documentPath string, pageNumber int, profile QualityProfile) ([]byte, error)
}

type pdfRenderer struct{}

// NewPDFRenderer returns a DocumentSource backed by MuPDF (go-fitz).
func NewPDFRenderer() DocumentSource {
	return &pdfRenderer{}
}

// PageCount implements DocumentSource.
func (r *pdfRenderer) PageCount(ctx context.Context, documentPath string) (int, error) {
	if _, err := os.Stat(documentPath); err != nil {
		return 0, &models.DocumentError{Err: fmt.Errorf("cannot access document: %w", err)}
	}

	doc, err := fitz.New(documentPath)
	if err != nil {
		return 0, &models.DocumentError{Err: fmt.Errorf("failed to open document: %w", err)}
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderPage implements DocumentSource. pageNumber is 1-indexed.
func (r *pdfRenderer) RenderPage(ctx context.Context, documentPath string, pageNumber int, profile QualityProfile) ([]byte, error) {
	if pageNumber < 1 {
		return nil, &models.RenderError{Page: pageNumber, Err: fmt.Errorf("page number must be >= 1")}
	}

	select {
	case <-ctx.Done():
		return nil, &models.RenderError{Page: pageNumber, Err: ctx.Err()}
	default:
	}

	doc, err := fitz.New(documentPath)
	if err != nil {
		return nil, &models.RenderError{Page: pageNumber, Err: fmt.Errorf("failed to open document: %w", err)}
	}
	defer doc.Close()

	if pageNumber > doc.NumPage() {
		return nil, &models.RenderError{Page: pageNumber, Err: fmt.Errorf("document has only %d pages", doc.NumPage())}
	}

	// go-fitz pages are 0-indexed
	img, err := doc.ImageDPI(pageNumber-1, profile.DPI)
	if err != nil {
		return nil, &models.RenderError{Page: pageNumber, Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: profile.JPEGQuality}); err != nil {
		return nil, &models.RenderError{Page: pageNumber, Err: fmt.Errorf("failed to encode page as JPEG: %w", err)}
	}

	return buf.Bytes(), nil
}
