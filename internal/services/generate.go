package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"regexp"
	"strings"

	"github.com/diewo77/formfill/internal/models"
	"github.com/diewo77/formfill/internal/pdf"
	"github.com/diewo77/formfill/internal/storage"
	"github.com/diewo77/formfill/internal/store"
)

// GenerateService renders one filled document per requested company and
// streams the results into a zip archive.
type GenerateService struct {
	Store *store.Store
	Files *storage.Dir
}

func NewGenerateService(st *store.Store, files *storage.Dir) *GenerateService {
	return &GenerateService{Store: st, Files: files}
}

// Batch holds everything resolved up front, so a request can still fail with
// a structured error before any response bytes have been streamed.
type Batch struct {
	svc        *GenerateService
	template   *models.Template
	doc        []byte
	geo        *pdf.Geometry
	mappings   []models.Mapping
	companyIDs []uint
}

// NewBatch resolves the template, its stored bytes and its mapping set. A
// missing template row (ErrTemplateNotFound) is distinct from missing stored
// bytes (ErrTemplateFileMissing): the latter means the metadata survived an
// ephemeral storage reset and a re-upload fixes it.
func (s *GenerateService) NewBatch(templateID uint, companyIDs []uint) (*Batch, error) {
	if len(companyIDs) == 0 {
		return nil, ErrNoCompanies
	}
	tpl, err := s.Store.GetTemplate(templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	doc, err := s.Files.Read(tpl.StoredPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrTemplateFileMissing
		}
		return nil, err
	}
	geo, err := pdf.Inspect(doc)
	if err != nil {
		return nil, fmt.Errorf("parse template %d: %w", tpl.ID, err)
	}
	// mappings are template-scoped, load them once for the whole batch
	mappings, err := s.Store.GetMappings(tpl.ID)
	if err != nil {
		return nil, err
	}
	return &Batch{
		svc:        s,
		template:   tpl,
		doc:        doc,
		geo:        geo,
		mappings:   mappings,
		companyIDs: companyIDs,
	}, nil
}

// Filename is the suggested attachment name for the archive.
func (b *Batch) Filename() string {
	return fmt.Sprintf("generated_%d.zip", b.template.ID)
}

// WriteZip renders the requested companies in order and streams each result
// into the archive as soon as it is done; memory stays bounded by one
// in-flight document. Unknown companies are skipped, a failed render is
// logged and skipped, and an archive with zero entries is still a valid
// outcome. Only sink-level write errors abort the batch: bytes already
// flushed cannot be retracted, so the error is returned for logging rather
// than conversion into a response body.
func (b *Batch) WriteZip(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	used := make(map[string]bool, len(b.companyIDs))
	for _, id := range b.companyIDs {
		if err := ctx.Err(); err != nil {
			// client went away, the archive is abandoned
			zw.Close()
			return err
		}
		company, err := b.svc.Store.GetCompany(id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("generate: company %d: %v", id, err)
			}
			continue
		}
		out, err := b.render(company)
		if err != nil {
			log.Printf("generate: render company %d (%s): %v", company.ID, company.Name, err)
			continue
		}
		name := entryName(company, used)
		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
		if _, err := f.Write(out); err != nil {
			zw.Close()
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

// render produces one filled document from a fresh parse of the pristine
// template bytes. Parsed documents are never shared between companies.
func (b *Batch) render(company *models.Company) ([]byte, error) {
	values, err := b.svc.Store.GetCompanyValues(company.ID)
	if err != nil {
		return nil, err
	}
	byDatapoint := make(map[uint]string, len(values))
	for _, v := range values {
		if v.Value != nil {
			byDatapoint[v.DatapointID] = *v.Value
		}
	}

	texts := make([]pdf.Text, 0, len(b.mappings))
	for _, m := range b.mappings {
		text := byDatapoint[m.DatapointID]
		if text == "" {
			continue
		}
		pageIdx := clampPage(m.Page, b.geo.PageCount)
		dim := b.geo.Dims[pageIdx]
		absX, absY, ok := pdf.Transform(m.X, m.Y, dim.Width, dim.Height)
		if !ok {
			continue
		}
		size := m.FontSize
		if !isFinite(size) || size <= 0 {
			size = 12
		}
		texts = append(texts, pdf.Text{
			Page:     pageIdx + 1,
			Value:    text,
			X:        absX,
			Y:        absY,
			FontSize: size,
		})
	}

	var buf bytes.Buffer
	if err := pdf.Stamp(b.doc, texts, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clampPage maps a 1-based authored page number onto a real page index. A
// stale mapping pointing past the end of a re-uploaded, shorter document
// lands on the last page instead of being dropped.
func clampPage(page, count int) int {
	idx := page - 1
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	return idx
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)

// entryName derives a filesystem-safe archive name from the company display
// name. Two companies sharing a sanitized name get the numeric id appended
// instead of silently overwriting each other.
func entryName(c *models.Company, used map[string]bool) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(c.Name, "_"), "_")
	if base == "" {
		base = fmt.Sprintf("company_%d", c.ID)
	}
	if used[base] {
		base = fmt.Sprintf("%s_%d", base, c.ID)
	}
	used[base] = true
	return base + ".pdf"
}
