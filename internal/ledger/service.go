package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ledger-intake/internal/extract"
	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

const (
	// DefaultSheetRange is read when /get-sheet-data omits range.
	DefaultSheetRange = "Sheet1!A1:J"
	titleTimestamp    = "20060102_150405"
	publishStart      = "A1"
)

// Extractor reads ledger fields from a document.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (extract.Result, error)
}

// Publisher creates, writes and reads spreadsheets.
type Publisher interface {
	Create(ctx context.Context, title string) (string, error)
	WriteRange(ctx context.Context, spreadsheetID, rangeStart string, rows [][]any) error
	ReadRange(ctx context.Context, spreadsheetID, rangeSpec string) ([][]any, error)
	URL(spreadsheetID string) string
}

// UploadObserver is told how many files an upload persisted.
type UploadObserver interface {
	ObserveUploadedFiles(n int)
}

// ServiceConfig tunes upload processing.
type ServiceConfig struct {
	// ExtractConcurrency bounds parallel extraction calls per upload.
	// Rows are always inserted in file order.
	ExtractConcurrency int
}

// Publication describes a spreadsheet created by the service.
type Publication struct {
	Entries       []Entry
	SpreadsheetID string
	URL           string
}

// Service implements the ledger intake flows.
type Service struct {
	store     Store
	extractor Extractor
	publisher Publisher
	observer  UploadObserver
	logger    *slog.Logger
	cfg       ServiceConfig
	now       func() time.Time
}

// NewService constructs the service. observer and logger may be nil.
func NewService(store Store, extractor Extractor, publisher Publisher, observer UploadObserver, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExtractConcurrency < 1 {
		cfg.ExtractConcurrency = 1
	}
	return &Service{
		store:     store,
		extractor: extractor,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func validateDocuments(docs []Document) error {
	for _, d := range docs {
		if d.Filename != "" {
			return nil
		}
	}
	return shared.Validation("No valid files uploaded")
}

// Upload records one default-valued row per document without calling the
// extraction backend.
func (s *Service) Upload(ctx context.Context, docs []Document) ([]Entry, error) {
	if err := validateDocuments(docs); err != nil {
		return nil, err
	}
	date := NewDate(s.now())
	defaults := extract.DefaultFields()
	drafts := make([]Draft, len(docs))
	for i := range docs {
		drafts[i] = Receipt(date, defaults.Description, defaults.BillNo, defaults.Quantity, defaults.Amount)
	}
	entries, err := s.insert(ctx, drafts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("uploaded files", slog.Int("files", len(docs)))
	return entries, nil
}

// UploadAndPublish extracts every document, stores the rows, then writes
// them to a new spreadsheet. Rows stay stored when publishing fails.
func (s *Service) UploadAndPublish(ctx context.Context, docs []Document) (Publication, error) {
	if err := validateDocuments(docs); err != nil {
		return Publication{}, err
	}
	logger := s.logger.With(slog.String("batch_id", uuid.NewString()))
	logger.Info("extracting files", slog.Int("files", len(docs)), slog.Int("concurrency", s.cfg.ExtractConcurrency))

	results := make([]extract.Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ExtractConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			data, err := doc.Read()
			if err != nil {
				return shared.Extraction("extract: read document", err)
			}
			logger.Debug("processing file", slog.String("filename", doc.Filename), slog.Int("size", len(data)))
			result, err := s.extractor.Extract(gctx, data, doc.MimeType)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Filename, err)
			}
			logger.Debug("extraction result", slog.String("filename", doc.Filename), slog.String("raw", result.Raw))
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Publication{}, err
	}

	date := NewDate(s.now())
	drafts := make([]Draft, len(results))
	for i, r := range results {
		drafts[i] = Receipt(date, r.Fields.Description, r.Fields.BillNo, r.Fields.Quantity, r.Fields.Amount)
	}
	logger.Info("inserting ledger rows", slog.Int("rows", len(drafts)))
	entries, err := s.insert(ctx, drafts)
	if err != nil {
		return Publication{}, err
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.Row())
	}
	pub, err := s.publish(ctx, "Upload_", rows)
	if err != nil {
		return Publication{}, err
	}
	pub.Entries = entries
	logger.Info("created spreadsheet", slog.String("url", pub.URL))
	return pub, nil
}

func (s *Service) insert(ctx context.Context, drafts []Draft) ([]Entry, error) {
	ids, err := s.store.InsertAll(ctx, drafts)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(drafts))
	for i, d := range drafts {
		entries[i] = Entry{ID: ids[i], Draft: d}
	}
	if s.observer != nil {
		s.observer.ObserveUploadedFiles(len(entries))
	}
	return entries, nil
}

// publish creates a spreadsheet titled prefix+timestamp and writes the
// header followed by rows from its top-left cell.
func (s *Service) publish(ctx context.Context, prefix string, rows [][]any) (Publication, error) {
	id, err := s.publisher.Create(ctx, prefix+s.now().Format(titleTimestamp))
	if err != nil {
		return Publication{}, err
	}
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	grid := append([][]any{header}, rows...)
	if err := s.publisher.WriteRange(ctx, id, publishStart, grid); err != nil {
		return Publication{}, err
	}
	return Publication{SpreadsheetID: id, URL: s.publisher.URL(id)}, nil
}

// List returns every stored entry ordered by id.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.List(ctx)
}

// Update applies patches in order, stopping at the first failure; earlier
// updates remain applied. Unknown ids are skipped.
func (s *Service) Update(ctx context.Context, patches []Patch) error {
	for _, p := range patches {
		matched, err := s.store.UpdateByID(ctx, p)
		if err != nil {
			return err
		}
		if !matched {
			s.logger.Info("update matched no row", slog.Int64("entry_id", p.ID))
		}
	}
	s.logger.Info("data updated", slog.Int("rows", len(patches)))
	return nil
}

// Export writes rows, already in Header order, to a new spreadsheet.
func (s *Service) Export(ctx context.Context, rows [][]any) (Publication, error) {
	pub, err := s.publish(ctx, "Exported_Results_", rows)
	if err != nil {
		return Publication{}, err
	}
	s.logger.Info("exported to new sheet", slog.String("url", pub.URL), slog.Int("rows", len(rows)))
	return pub, nil
}

// SheetData reads a range of an existing spreadsheet.
func (s *Service) SheetData(ctx context.Context, spreadsheetID, rangeSpec string) ([][]any, error) {
	if spreadsheetID == "" {
		return nil, shared.Validation("Missing spreadsheet_id")
	}
	if rangeSpec == "" {
		rangeSpec = DefaultSheetRange
	}
	values, err := s.publisher.ReadRange(ctx, spreadsheetID, rangeSpec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("fetched sheet data", slog.String("spreadsheet_id", spreadsheetID))
	return values, nil
}
