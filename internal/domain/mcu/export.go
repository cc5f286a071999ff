package mcu

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicheck/mcu/internal/platform/blobstore"
)

// ErrDelivery indicates a batch export delivered no reports at all.
var ErrDelivery = errors.New("no reports delivered")

// Delivery receives generated PDFs during a batch export.
type Delivery interface {
	Deliver(ctx context.Context, fileName string, content []byte) error
}

// ExportItem is the per-record outcome of a batch export.
type ExportItem struct {
	RecordID uuid.UUID `json:"record_id"`
	FileName string    `json:"file_name,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ExportSummary reports the outcome of one batch export run.
type ExportSummary struct {
	Requested int          `json:"requested"`
	Delivered int          `json:"delivered"`
	Failed    int          `json:"failed"`
	Items     []ExportItem `json:"items"`
}

// ExportReports renders and delivers the report for each record ID in order.
// Failures are per-item: a record that cannot be loaded, rendered or
// delivered is recorded in the summary and the run continues with the next
// one. The run fails as a whole only when nothing was delivered. Between
// consecutive items the driver pauses for the configured pacing so a large
// export does not monopolize downstream resources; the context is
// honored during the pause and between items.
func (s *Service) ExportReports(ctx context.Context, ids []uuid.UUID, generatedBy string, d Delivery) (*ExportSummary, error) {
	sum := &ExportSummary{Requested: len(ids)}

	for i, id := range ids {
		if i > 0 && s.Pacing > 0 {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-time.After(s.Pacing):
			}
		} else if err := ctx.Err(); err != nil {
			return sum, err
		}

		item := ExportItem{RecordID: id}
		rendered, err := s.exportOne(ctx, id, generatedBy, d)
		if err != nil {
			item.Error = err.Error()
			sum.Failed++
			s.log.Warn().Err(err).Str("record_id", id.String()).Msg("export report")
		} else {
			item.FileName = rendered.FileName
			sum.Delivered++
		}
		sum.Items = append(sum.Items, item)
	}

	if sum.Delivered == 0 && sum.Requested > 0 {
		return sum, fmt.Errorf("%w: %d of %d failed", ErrDelivery, sum.Failed, sum.Requested)
	}
	return sum, nil
}

func (s *Service) exportOne(ctx context.Context, id uuid.UUID, generatedBy string, d Delivery) (*RenderedReport, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rendered, err := s.render(rec)
	if err != nil {
		return nil, err
	}
	if err := d.Deliver(ctx, rendered.FileName, rendered.Content); err != nil {
		return nil, fmt.Errorf("deliver %s: %w", rendered.FileName, err)
	}
	// History only records reports that actually reached the delivery.
	s.logHistory(ctx, rec, rendered.FileName, generatedBy)
	return rendered, nil
}

// -- Deliveries --

// ZipDelivery collects delivered reports into a single zip archive.
type ZipDelivery struct {
	buf  bytes.Buffer
	zw   *zip.Writer
	seen map[string]int
}

func NewZipDelivery() *ZipDelivery {
	d := &ZipDelivery{seen: map[string]int{}}
	d.zw = zip.NewWriter(&d.buf)
	return d
}

func (d *ZipDelivery) Deliver(_ context.Context, fileName string, content []byte) error {
	// Two records can share NPK and name; suffix duplicates instead of
	// silently overwriting an archive entry.
	d.seen[fileName]++
	if n := d.seen[fileName]; n > 1 {
		fileName = fmt.Sprintf("%s_%d.pdf", strings.TrimSuffix(fileName, ".pdf"), n)
	}
	w, err := d.zw.Create(fileName)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Bytes finalizes the archive and returns its content.
func (d *ZipDelivery) Bytes() ([]byte, error) {
	if err := d.zw.Close(); err != nil {
		return nil, err
	}
	return d.buf.Bytes(), nil
}

// DirDelivery writes delivered reports into a directory on disk.
type DirDelivery struct {
	Dir string
}

func (d *DirDelivery) Deliver(_ context.Context, fileName string, content []byte) error {
	return os.WriteFile(filepath.Join(d.Dir, fileName), content, 0644)
}

// StoreDelivery uploads delivered reports to a blob store under a prefix.
type StoreDelivery struct {
	Store  blobstore.Store
	Prefix string
}

func (d *StoreDelivery) Deliver(ctx context.Context, fileName string, content []byte) error {
	path := fileName
	if d.Prefix != "" {
		path = strings.TrimSuffix(d.Prefix, "/") + "/" + fileName
	}
	_, err := d.Store.Upload(ctx, path, "application/pdf", bytes.NewReader(content))
	return err
}
