package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/logging"
)

// multipartMemory is the in-memory part of a parsed multipart form.
// Larger uploads spill to temporary files.
const multipartMemory = 32 << 20

// cleanOutputs holds the full-dataset exports of one file.
type cleanOutputs struct {
	CSV   string `json:"master_cleanse_csv,omitempty"`
	JSON  string `json:"master_cleanse_json,omitempty"`
	Excel []byte `json:"master_cleanse_excel,omitempty"` // base64 in JSON
}

// cleanResult is the response for one cleaned file.
type cleanResult struct {
	Filename    string                      `json:"filename"`
	Success     bool                        `json:"success"`
	Error       string                      `json:"error,omitempty"`
	Action      string                      `json:"action,omitempty"`
	Code        string                      `json:"code,omitempty"`
	Outputs     *cleanOutputs               `json:"outputs,omitempty"`
	ColumnFiles map[string]core.ColumnFiles `json:"column_files,omitempty"`
	Skipped     map[string]string           `json:"skipped,omitempty"`
	Notes       []string                    `json:"notes,omitempty"`
	Report      *core.Report                `json:"report,omitempty"`
}

// batchResponse is returned when a request carries several files.
type batchResponse struct {
	Success        bool          `json:"success"`
	Batch          bool          `json:"batch"`
	FilesProcessed int           `json:"files_processed"`
	Results        []cleanResult `json:"results"`
}

// textResponse is returned for pasted CSV text.
type textResponse struct {
	Success    bool        `json:"success"`
	CleanedCSV string      `json:"cleaned_csv"`
	Report     core.Report `json:"report"`
}

func newCleanResult(filename string, b *core.Bundle, report core.Report) cleanResult {
	res := cleanResult{
		Filename: filename,
		Success:  true,
		Outputs:  &cleanOutputs{CSV: b.CSV, JSON: b.JSON, Excel: b.Excel},
		Skipped:  b.Skipped,
		Notes:    b.Notes,
		Report:   &report,
	}
	if len(b.Columns) > 0 {
		res.ColumnFiles = b.Columns
	}
	return res
}

func failedResult(filename string, err error) cleanResult {
	msg := core.MapError(err)
	return cleanResult{
		Filename: filename,
		Error:    msg.Message,
		Action:   msg.Action,
		Code:     msg.Code,
	}
}

// handleDataClean cleans uploaded files or pasted CSV text.
//
// Multipart requests carry one "file" or several "files[]" plus option
// fields. JSON requests carry csv_text. A single file returns its result
// directly; several files return a batch whose per-file failures do not
// fail the request.
func (s *Server) handleDataClean(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}

	switch mediaType {
	case "multipart/form-data":
		s.cleanFiles(w, r)
	case "application/json":
		s.cleanText(w, r)
	default:
		respondError(w, r, fmt.Errorf("%w: %s", errUnsupported, mediaType), http.StatusUnsupportedMediaType)
	}
}

func (s *Server) cleanFiles(w http.ResponseWriter, r *http.Request) {
	maxBody := s.cfg.Upload.MaxFileSize * int64(s.cfg.Upload.MaxBatchFiles)
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", errFileTooLarge, maxBody), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := uploadedFiles(r.MultipartForm)
	if len(files) == 0 {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.Upload.MaxBatchFiles {
		respondError(w, r, fmt.Errorf("%w: %d files, limit %d", errTooManyFiles, len(files), s.cfg.Upload.MaxBatchFiles), http.StatusBadRequest)
		return
	}

	opts, err := formOptions(r, s.defaults)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx := r.Context()
	if len(files) == 1 {
		res, err := s.cleanUpload(ctx, files[0], opts)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	logger := logging.WithFields(ctx, requestFields(r)...)
	logger.Info("batch clean started", "files", len(files))

	results := make([]cleanResult, len(files))
	var g errgroup.Group
	g.SetLimit(s.cfg.Upload.MaxConcurrent)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			res, err := s.cleanUpload(ctx, fh, opts)
			if err != nil {
				logger.Warn("batch file failed", "file", fh.Filename, "error", err)
				res = failedResult(fh.Filename, err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, batchResponse{
		Success:        true,
		Batch:          true,
		FilesProcessed: len(results),
		Results:        results,
	})
}

// isBodyTooLarge reports whether err came from http.MaxBytesReader. Some
// multipart errors flatten the cause, so the message is checked too.
func isBodyTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	return errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large")
}

// uploadedFiles returns files[] when present, else file. Parts without a
// filename are ignored.
func uploadedFiles(form *multipart.Form) []*multipart.FileHeader {
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	files := make([]*multipart.FileHeader, 0, len(headers))
	for _, fh := range headers {
		if fh != nil && fh.Filename != "" {
			files = append(files, fh)
		}
	}
	return files
}

// cleanUpload runs one uploaded file through the engine under the run
// limiter and records the report.
func (s *Server) cleanUpload(ctx context.Context, fh *multipart.FileHeader, opts core.Options) (cleanResult, error) {
	if fh.Size > s.cfg.Upload.MaxFileSize {
		return cleanResult{}, fmt.Errorf("%s: %w (%d bytes, limit %d)", fh.Filename, errFileTooLarge, fh.Size, s.cfg.Upload.MaxFileSize)
	}

	f, err := fh.Open()
	if err != nil {
		return cleanResult{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cleanResult{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	var (
		bundle *core.Bundle
		report core.Report
	)
	err = s.limiter.Do(ctx, func(ctx context.Context) error {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()

		var err error
		bundle, report, err = s.engine.CleanFile(runCtx, data, fh.Filename, opts)
		return err
	})
	if err != nil {
		return cleanResult{}, err
	}

	s.recordRun(ctx, report)
	return newCleanResult(fh.Filename, bundle, report), nil
}

func (s *Server) cleanText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			respondError(w, r, fmt.Errorf("%w: body exceeds %d bytes", errFileTooLarge, s.cfg.Upload.MaxFileSize), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest)
		return
	}

	opts, err := req.options(s.defaults)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	var (
		cleaned string
		report  core.Report
	)
	err = s.limiter.Do(r.Context(), func(ctx context.Context) error {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()

		var err error
		cleaned, report, err = s.engine.CleanText(runCtx, req.CSVText, opts)
		return err
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	s.recordRun(r.Context(), report)
	writeJSON(w, http.StatusOK, textResponse{Success: true, CleanedCSV: cleaned, Report: report})
}

// recordRun saves the report to history. A failed save is logged and
// never fails the request.
func (s *Server) recordRun(ctx context.Context, report core.Report) {
	if err := s.history.Save(ctx, report); err != nil {
		logging.WithFields(ctx, "run_id", report.RunID).Warn("failed to record run", "error", err)
	}
}
