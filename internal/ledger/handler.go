package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ledger-intake/internal/platform/httpx"
	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

const (
	filesField     = "files"
	maxUploadBytes = 32 << 20
)

// LedgerService is the behaviour the HTTP layer depends on.
type LedgerService interface {
	Upload(ctx context.Context, docs []Document) ([]Entry, error)
	UploadAndPublish(ctx context.Context, docs []Document) (Publication, error)
	List(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, patches []Patch) error
	Export(ctx context.Context, rows [][]any) (Publication, error)
	SheetData(ctx context.Context, spreadsheetID, rangeSpec string) ([][]any, error)
}

// Handler exposes the ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   LedgerService
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service LedgerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/get-sheet-data", h.handleSheetData)
	r.Post("/upload", h.handleUpload)
	r.Options("/upload", h.handlePreflight)
	r.Post("/upload-flash", h.handleUploadFlash)
	r.Options("/upload-flash", h.handlePreflight)
	r.Get("/results", h.handleResults)
	r.Post("/update", h.handleUpdate)
	r.Post("/export-to-sheet", h.handleExport)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, prefix string) {
	if shared.KindOf(err) == shared.KindValidation {
		h.logger.Warn(op+" rejected", slog.String("reason", err.Error()))
	} else {
		h.logger.Error(op+" error", slog.Any("error", err), slog.String("kind", shared.KindOf(err).String()))
	}
	httpx.RespondError(w, err, prefix)
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleSheetData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	values, err := h.service.SheetData(r.Context(), q.Get("spreadsheet_id"), q.Get("range"))
	if err != nil {
		h.fail(w, "get sheet data", err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"values": values})
}

// documents reads every "files" part that carries a filename parameter,
// including an empty one. Plain form values under the same name are not
// files. A request without such a part is rejected before any document is
// considered.
func documents(r *http.Request) ([]Document, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, shared.Validation("No files uploaded")
	}
	if err != nil {
		return nil, shared.Validation(fmt.Sprintf("Invalid multipart body: %v", err))
	}

	var (
		docs   []Document
		budget int64 = maxUploadBytes
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, shared.Validation(fmt.Sprintf("Invalid multipart body: %v", err))
		}
		if part.FormName() != filesField || !hasFilename(part) {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, budget+1))
		_ = part.Close()
		if err != nil {
			return nil, shared.Validation(fmt.Sprintf("Invalid multipart body: %v", err))
		}
		budget -= int64(len(data))
		if budget < 0 {
			return nil, shared.Validation("Upload exceeds 32 MiB")
		}
		docs = append(docs, documentFromPart(part, data))
	}
	if docs == nil {
		return nil, shared.Validation("No files uploaded")
	}
	return docs, nil
}

func hasFilename(part *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func documentFromPart(part *multipart.Part, data []byte) Document {
	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return Document{
		Filename: part.FileName(),
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	docs, err := documents(r)
	if err != nil {
		h.fail(w, "upload", err, "")
		return
	}
	if _, err := h.service.Upload(r.Context(), docs); err != nil {
		h.fail(w, "upload", err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Files processed"})
}

func (h *Handler) handleUploadFlash(w http.ResponseWriter, r *http.Request) {
	docs, err := documents(r)
	if err != nil {
		h.fail(w, "upload-flash", err, "")
		return
	}
	pub, err := h.service.UploadAndPublish(r.Context(), docs)
	if err != nil {
		h.fail(w, "upload-flash", err, "Failed to process files: ")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"message":   "Files processed and new spreadsheet created",
		"sheet_url": pub.URL,
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "results", err, "")
		return
	}
	h.logger.Info("fetched results", slog.Int("rows", len(entries)))
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patches []Patch
	if err := httpx.DecodeJSON(r, &patches); err != nil {
		h.fail(w, "update", shared.Validation(fmt.Sprintf("Invalid update body: %v", err)), "")
		return
	}
	if patches == nil {
		h.fail(w, "update", shared.Validation("Invalid update body: expected an array of rows"), "")
		return
	}
	for i, p := range patches {
		if err := h.validator.Struct(p); err != nil {
			h.fail(w, "update", shared.Validation(fmt.Sprintf("Row %d: Entry_ID is required", i+1)), "")
			return
		}
		if p.Empty() {
			h.fail(w, "update", shared.Validation(fmt.Sprintf("Row %d: no columns to update", i+1)), "")
			return
		}
	}
	if err := h.service.Update(r.Context(), patches); err != nil {
		h.fail(w, "update", err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Data updated"})
}

type exportBody []map[string]any

// rows projects each record onto Header order without converting values.
func (b exportBody) rows() ([][]any, error) {
	rows := make([][]any, 0, len(b))
	for i, record := range b {
		row := make([]any, len(Header))
		for j, col := range Header {
			v, ok := record[col]
			if !ok {
				return nil, shared.Validation(fmt.Sprintf("Row %d: missing %s", i+1, col))
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var body exportBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, "export", shared.Validation(fmt.Sprintf("Invalid export body: %v", err)), "")
		return
	}
	if body == nil {
		h.fail(w, "export", shared.Validation("Invalid export body: expected an array of rows"), "")
		return
	}
	rows, err := body.rows()
	if err != nil {
		h.fail(w, "export", err, "")
		return
	}
	pub, err := h.service.Export(r.Context(), rows)
	if err != nil {
		h.fail(w, "export", err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Sheet created", "link": pub.URL})
}
