package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"romy/backend/internal/model"
)

// MaxAttachments is how many files can ride on one message.
const MaxAttachments = 3

// allowedMediaTypes is the attachment allowlist: images the model can see,
// documents it can read, and spreadsheets the extractor can expand.
var allowedMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,

	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,

	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/csv": true,
}

// RejectedFilesError names every file in a batch that failed the allowlist,
// so the client can report them all at once.
type RejectedFilesError struct {
	Filenames []string
}

func (e *RejectedFilesError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", strings.Join(e.Filenames, ", "))
}

// TooManyFilesError is returned when a batch would push an upload past the
// attachment cap.
type TooManyFilesError struct {
	Limit int
}

func (e *TooManyFilesError) Error() string {
	return fmt.Sprintf("you can attach at most %d files", e.Limit)
}

// UploadService stores attachments on disk and tracks in-flight uploads so a
// removal can abort the transfer.
type UploadService struct {
	dir       string
	publicURL string

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewUploadService(dir, publicURL string) *UploadService {
	return &UploadService{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		inflight:  make(map[string]context.CancelFunc),
	}
}

// Dir is where stored files live, for static file serving.
func (s *UploadService) Dir() string { return s.dir }

// BatchInput is one candidate file in an upload batch.
type BatchInput struct {
	Filename  string
	MediaType string
}

// ValidateBatch checks a whole batch before any byte is stored. existing is
// how many attachments the message already carries. All rejections in the
// batch are reported together.
func (s *UploadService) ValidateBatch(files []BatchInput, existing int) error {
	if existing+len(files) > MaxAttachments {
		return &TooManyFilesError{Limit: MaxAttachments}
	}
	var rejected []string
	for _, f := range files {
		if !allowedMediaTypes[f.MediaType] {
			rejected = append(rejected, f.Filename)
		}
	}
	if len(rejected) > 0 {
		return &RejectedFilesError{Filenames: rejected}
	}
	return nil
}

// Save streams one file to disk. The returned record carries the public URL
// the chat pipeline and the extractor fetch it from. Removing the upload
// mid-transfer cancels the copy and deletes the partial file.
func (s *UploadService) Save(ctx context.Context, r io.Reader, filename, mediaType string) (*model.UploadedFile, error) {
	if !allowedMediaTypes[mediaType] {
		return nil, &RejectedFilesError{Filenames: []string{filename}}
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create upload directory: %w", err)
	}

	id := uuid.NewString()
	key := id + sanitizeExt(filename)
	path := filepath.Join(s.dir, key)

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.inflight[id] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %w", err)
	}

	_, err = io.Copy(dst, &contextReader{ctx: ctx, r: r})
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("Could not remove partial upload", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("could not store file: %w", err)
	}

	return &model.UploadedFile{
		ID:        id,
		Filename:  filename,
		MediaType: mediaType,
		Status:    model.UploadStatusUploaded,
		Key:       key,
		URL:       s.publicURL + "/uploads/" + key,
	}, nil
}

// Cancel aborts an in-flight upload, if it is still running.
func (s *UploadService) Cancel(id string) {
	s.mu.Lock()
	cancel, ok := s.inflight[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Remove deletes a stored file by key.
func (s *UploadService) Remove(key string) error {
	clean := filepath.Base(key)
	return os.Remove(filepath.Join(s.dir, clean))
}

// contextReader fails the copy as soon as the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	if len(ext) > 10 {
		return ""
	}
	return ext
}
