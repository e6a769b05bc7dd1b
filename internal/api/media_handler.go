package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	app_errors "romy/backend/internal/errors"
	"romy/backend/internal/interfaces"
	"romy/backend/internal/service"
)

// maxUploadMemory bounds how much of a multipart body is buffered in memory.
const maxUploadMemory = 32 << 20

// MediaHandler serves attachment uploads and voice transcription.
type MediaHandler struct {
	uploads     interfaces.UploadService
	transcriber interfaces.TranscriptionService
}

func NewMediaHandler(uploads interfaces.UploadService, transcriber interfaces.TranscriptionService) *MediaHandler {
	return &MediaHandler{uploads: uploads, transcriber: transcriber}
}

// HandleUpload godoc
// @Summary Upload message attachments
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Success 201 {object} UploadResponse
// @Failure 415 {object} ErrorResponse
// @Router /api/v1/uploads [post]
func (h *MediaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, fmt.Errorf("%w: could not parse multipart form", app_errors.ErrValidation))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondWithError(w, fmt.Errorf("%w: no files in request", app_errors.ErrValidation))
		return
	}
	// The client reports how many attachments the message already carries so
	// the cap covers the whole message, not just this batch.
	existing, _ := strconv.Atoi(r.FormValue("existing"))

	batch := make([]service.BatchInput, 0, len(headers))
	for _, fh := range headers {
		batch = append(batch, service.BatchInput{
			Filename:  fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
		})
	}

	// The whole batch is validated up front so one response names every
	// rejected file.
	if err := h.uploads.ValidateBatch(batch, existing); err != nil {
		var rejected *service.RejectedFilesError
		if errors.As(err, &rejected) {
			respondWithError(w, fmt.Errorf("%w: %s", app_errors.ErrUnsupportedMedia, rejected.Error()))
			return
		}
		respondWithError(w, fmt.Errorf("%w: %s", app_errors.ErrValidation, err.Error()))
		return
	}

	files := make([]any, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			respondWithError(w, fmt.Errorf("could not open uploaded file: %w", err))
			return
		}
		stored, err := h.uploads.Save(r.Context(), src, fh.Filename, fh.Header.Get("Content-Type"))
		_ = src.Close()
		if err != nil {
			respondWithError(w, err)
			return
		}
		files = append(files, stored)
	}
	respondWithJSON(w, http.StatusCreated, UploadResponse{Files: files})
}

// HandleDeleteUpload godoc
// @Summary Remove an attachment
// @Tags uploads
// @Param uploadID path string true "Upload ID"
// @Param key query string false "Stored file key"
// @Success 200 {object} StatusResponse
// @Router /api/v1/uploads/{uploadID} [delete]
func (h *MediaHandler) HandleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	// Removal aborts the transfer if it is still running, then deletes
	// whatever reached disk.
	h.uploads.Cancel(uploadID)
	if key := r.URL.Query().Get("key"); key != "" {
		if err := h.uploads.Remove(key); err != nil {
			// The file may never have finished uploading; deletion is
			// best-effort either way.
			respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleTranscribe godoc
// @Summary Transcribe a voice recording
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Success 200 {object} TranscriptionResponse
// @Router /api/v1/transcriptions [post]
func (h *MediaHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, fmt.Errorf("%w: could not parse multipart form", app_errors.ErrValidation))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: missing audio file", app_errors.ErrValidation))
		return
	}
	defer file.Close()

	text, err := h.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: %s", app_errors.ErrValidation, err.Error()))
		return
	}
	respondWithJSON(w, http.StatusOK, TranscriptionResponse{Text: text})
}
