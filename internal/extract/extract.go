// Package extract converts an uploaded PDF into an ordered sequence of
// page records: a rendered raster image plus the page's plain text.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/lectern/internal/library"
)

const (
	// DefaultMaxPages caps how many pages are extracted per document.
	DefaultMaxPages = 50

	// DefaultDPI is the fixed render resolution.
	DefaultDPI = 150
)

// DocumentError indicates the uploaded bytes are not a valid PDF. The
// caller must surface it without registering any part of the book.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("invalid document %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Options controls extraction.
type Options struct {
	MaxPages int          // page cap (default DefaultMaxPages)
	DPI      int          // render resolution (default DefaultDPI)
	Title    string       // display title (derived from filename if empty)
	Logger   *slog.Logger // optional progress logger
}

// Result is a fully extracted document.
type Result struct {
	Title string
	Pages []library.Page
}

// Extract renders and reads pages 1..min(total, MaxPages) of the PDF at
// pdfPath. Pages are processed one at a time, in order; a failure on any
// page rejects the whole document.
func Extract(ctx context.Context, pdfPath string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}

	// Reject malformed input up front so nothing is partially extracted.
	if err := api.ValidateFile(pdfPath, nil); err != nil {
		return nil, &DocumentError{Path: pdfPath, Err: err}
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, &DocumentError{Path: pdfPath, Err: err}
	}
	if pageCount == 0 {
		return nil, &DocumentError{Path: pdfPath, Err: fmt.Errorf("document has no pages")}
	}
	if pageCount > opts.MaxPages {
		log.Debug("capping page count", "total", pageCount, "max", opts.MaxPages)
		pageCount = opts.MaxPages
	}

	texts, err := extractText(pdfPath, pageCount)
	if err != nil {
		return nil, &DocumentError{Path: pdfPath, Err: err}
	}

	title := opts.Title
	if title == "" {
		title = deriveTitle(pdfPath)
	}

	tmpDir, err := os.MkdirTemp("", "lectern-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pages := make([]library.Page, 0, pageCount)
	for num := 1; num <= pageCount; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		image, err := renderPage(pdfPath, tmpDir, num, opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", num, err)
		}
		pages = append(pages, library.Page{
			Number: num,
			Image:  image,
			Text:   texts[num-1],
		})
	}

	log.Info("extracted document", "title", title, "pages", len(pages))
	return &Result{Title: title, Pages: pages}, nil
}

// extractText reads the plain text of pages 1..pageCount. Each page's
// text fragments are joined with single spaces in the reader's order.
// A page that fails text extraction yields empty text rather than
// failing the document; the rendered image still carries its content.
func extractText(pdfPath string, pageCount int) ([]string, error) {
	f, reader, err := ltpdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF for text: %w", err)
	}
	defer f.Close()

	texts := make([]string, pageCount)
	for num := 1; num <= pageCount; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		var parts []string
		for _, fragment := range page.Content().Text {
			if s := strings.TrimSpace(fragment.S); s != "" {
				parts = append(parts, s)
			}
		}
		texts[num-1] = strings.Join(parts, " ")
	}
	return texts, nil
}

// renderPage renders a single page to a JPEG using pdftoppm (poppler-utils).
func renderPage(pdfPath, tmpDir string, pageNum, dpi int) ([]byte, error) {
	outputPrefix := filepath.Join(tmpDir, fmt.Sprintf("page_%04d", pageNum))

	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.Command("pdftoppm",
		"-jpeg",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// pdftoppm with -singlefile creates: <prefix>.jpg
	data, err := os.ReadFile(outputPrefix + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

// deriveTitle extracts a display title from a PDF filename.
// e.g., "grays-anatomy.pdf" -> "grays-anatomy"
func deriveTitle(pdfPath string) string {
	base := filepath.Base(pdfPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	// Strip a numeric suffix like "-1", "-2" from multi-part scans.
	re := regexp.MustCompile(`-\d+$`)
	return re.ReplaceAllString(name, "")
}
