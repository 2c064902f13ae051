package endpoints

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/extract"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// UploadResponse is the response for a successful upload.
type UploadResponse struct {
	Books []BookSummary `json:"books"`
}

// BookSummary is a book without page payloads.
type BookSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
}

// UploadBooksEndpoint handles POST /api/books/upload with multipart file upload.
// The upload is all-or-nothing: if any document fails to load, no book
// from the batch is added.
type UploadBooksEndpoint struct{}

var _ api.Endpoint = (*UploadBooksEndpoint)(nil)

func (e *UploadBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/upload", e.handler
}

func (e *UploadBooksEndpoint) RequiresInit() bool { return true }

func (e *UploadBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form with 500MB max memory
	const maxMemory = 500 << 20 // 500MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", fh.Filename))
			return
		}
	}

	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	maxPages := extract.DefaultMaxPages
	dpi := extract.DefaultDPI
	if cm := svcctx.ConfigManagerFrom(r.Context()); cm != nil {
		defaults := cm.Get().Defaults
		if defaults.MaxPages > 0 {
			maxPages = defaults.MaxPages
		}
		if defaults.RenderDPI > 0 {
			dpi = defaults.RenderDPI
		}
	}

	tempDir, err := os.MkdirTemp("", "lectern-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create temp dir: %v", err))
		return
	}
	defer os.RemoveAll(tempDir)

	// Save uploads, then load documents one at a time. Page rendering is
	// strictly sequential so load time grows linearly with page count.
	var books []*library.Book
	for _, fh := range files {
		destPath := filepath.Join(tempDir, filepath.Base(fh.Filename))
		if err := saveUpload(fh, destPath); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save %s: %v", fh.Filename, err))
			return
		}

		result, err := extract.Extract(r.Context(), destPath, extract.Options{
			MaxPages: maxPages,
			DPI:      dpi,
			Logger:   logger,
		})
		if err != nil {
			var docErr *extract.DocumentError
			if errors.As(err, &docErr) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to load %s: %v", fh.Filename, docErr.Err))
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load %s: %v", fh.Filename, err))
			return
		}

		books = append(books, library.NewBook(result.Title, result.Pages))
	}

	// Keep the original PDFs under the home directory, keyed by book ID.
	if homeDir := svcctx.HomeFrom(r.Context()); homeDir != nil {
		for i, fh := range files {
			src := filepath.Join(tempDir, filepath.Base(fh.Filename))
			if err := copyFile(src, homeDir.OriginalPath(books[i].ID)); err != nil && logger != nil {
				logger.Warn("failed to keep original PDF", "file", fh.Filename, "error", err)
			}
		}
	}

	lib.AddBooks(books...)

	resp := UploadResponse{}
	for _, b := range books {
		resp.Books = append(resp.Books, BookSummary{ID: b.ID, Title: b.Title, PageCount: b.PageCount()})
	}
	if logger != nil {
		logger.Info("books uploaded", "count", len(books))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (e *UploadBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf> [file.pdf...]",
		Short: "Upload PDF books to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.Upload(cmd.Context(), "/api/books/upload", args, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// saveUpload writes one multipart file to disk.
func saveUpload(fh *multipart.FileHeader, destPath string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// copyFile copies src to dst, creating the destination directory.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
