package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/formfill/internal/models"
	"github.com/diewo77/formfill/internal/pdf"
	"github.com/diewo77/formfill/internal/pdf/pdftest"
	"github.com/diewo77/formfill/internal/storage"
	"github.com/diewo77/formfill/internal/store"
)

type generateFixture struct {
	svc      *GenerateService
	db       *gorm.DB
	files    *storage.Dir
	root     string
	template models.Template
	dp       models.Datapoint
}

func setupGenerateTest(t *testing.T, pages int) *generateFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Datapoint{}, &models.Company{}, &models.CompanyValue{}, &models.Template{}, &models.Mapping{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	root := t.TempDir()
	files, err := storage.New(root)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	key, err := files.Save(pdftest.MinimalPDF(pages, 612, 792))
	if err != nil {
		t.Fatalf("save template bytes: %v", err)
	}
	// cached page count is deliberately wrong; rendering must not trust it
	tpl := models.Template{OriginalFilename: "form.pdf", StoredPath: key, Pages: 99}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("template row: %v", err)
	}
	dp := models.Datapoint{Key: "company_name", Label: "Company Name"}
	if err := db.Create(&dp).Error; err != nil {
		t.Fatalf("datapoint: %v", err)
	}
	st := store.New(db)
	return &generateFixture{
		svc:      NewGenerateService(st, files),
		db:       db,
		files:    files,
		root:     root,
		template: tpl,
		dp:       dp,
	}
}

func (f *generateFixture) addCompany(t *testing.T, name, value string) models.Company {
	t.Helper()
	c := models.Company{Name: name}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("company: %v", err)
	}
	if value != "" {
		cv := models.CompanyValue{CompanyID: c.ID, DatapointID: f.dp.ID, Value: &value}
		if err := f.db.Create(&cv).Error; err != nil {
			t.Fatalf("value: %v", err)
		}
	}
	return c
}

func (f *generateFixture) addMapping(t *testing.T, page int, x, y float64) {
	t.Helper()
	m := models.Mapping{TemplateID: f.template.ID, DatapointID: f.dp.ID, Page: page, X: x, Y: y, FontSize: 12}
	if err := f.db.Create(&m).Error; err != nil {
		t.Fatalf("mapping: %v", err)
	}
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	out := map[string][]byte{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", zf.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read entry %s: %v", zf.Name, err)
		}
		rc.Close()
		out[zf.Name] = buf.Bytes()
	}
	return out
}

func TestNewBatchRequiresCompanies(t *testing.T) {
	f := setupGenerateTest(t, 1)
	if _, err := f.svc.NewBatch(f.template.ID, nil); !errors.Is(err, ErrNoCompanies) {
		t.Fatalf("err = %v, want ErrNoCompanies", err)
	}
}

func TestNewBatchUnknownTemplate(t *testing.T) {
	f := setupGenerateTest(t, 1)
	if _, err := f.svc.NewBatch(999, []uint{1}); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestNewBatchMissingFile(t *testing.T) {
	f := setupGenerateTest(t, 1)
	if err := os.Remove(filepath.Join(f.root, f.template.StoredPath)); err != nil {
		t.Fatalf("remove stored bytes: %v", err)
	}
	_, err := f.svc.NewBatch(f.template.ID, []uint{1})
	if !errors.Is(err, ErrTemplateFileMissing) {
		t.Fatalf("err = %v, want ErrTemplateFileMissing", err)
	}
}

func TestWriteZipSkipsUnknownCompanies(t *testing.T) {
	f := setupGenerateTest(t, 1)
	f.addMapping(t, 1, 0.5, 0.5)
	c := f.addCompany(t, "Acme Inc", "Acme")

	batch, err := f.svc.NewBatch(f.template.ID, []uint{c.ID, 999})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	var buf bytes.Buffer
	if err := batch.WriteZip(context.Background(), &buf); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}
	entries := readZip(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want exactly 1", len(entries))
	}
	data, ok := entries["Acme_Inc.pdf"]
	if !ok {
		t.Fatalf("missing entry Acme_Inc.pdf, have %v", keys(entries))
	}
	if _, err := pdf.Inspect(data); err != nil {
		t.Fatalf("rendered entry does not parse: %v", err)
	}
	forms, err := pdftest.PageForms(data, 1)
	if err != nil {
		t.Fatalf("PageForms: %v", err)
	}
	if !strings.Contains(forms, "(Acme) Tj") {
		t.Errorf("rendered entry does not draw the company value: %q", forms)
	}
}

func TestWriteZipClampsPageNumber(t *testing.T) {
	f := setupGenerateTest(t, 2)
	// authored against a longer document than the one on disk
	f.addMapping(t, 5, 0.5, 0.5)
	c := f.addCompany(t, "Overflow Co", "text")

	batch, err := f.svc.NewBatch(f.template.ID, []uint{c.ID})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	if batch.geo.PageCount != 2 {
		t.Fatalf("derived page count = %d, want 2 (cached row says 99)", batch.geo.PageCount)
	}
	var buf bytes.Buffer
	if err := batch.WriteZip(context.Background(), &buf); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}
	entries := readZip(t, buf.Bytes())
	data := entries["Overflow_Co.pdf"]
	if data == nil {
		t.Fatalf("missing entry, have %v", keys(entries))
	}
	geo, err := pdf.Inspect(data)
	if err != nil {
		t.Fatalf("rendered entry does not parse: %v", err)
	}
	if geo.PageCount != 2 {
		t.Errorf("rendered page count = %d, want 2", geo.PageCount)
	}
}

func TestWriteZipEmptyValueSkipsDraw(t *testing.T) {
	f := setupGenerateTest(t, 1)
	f.addMapping(t, 1, 0.5, 0.5)
	c := f.addCompany(t, "Blank Co", "")

	batch, err := f.svc.NewBatch(f.template.ID, []uint{c.ID})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	var buf bytes.Buffer
	if err := batch.WriteZip(context.Background(), &buf); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}
	entries := readZip(t, buf.Bytes())
	data := entries["Blank_Co.pdf"]
	if data == nil {
		t.Fatalf("company without values must still get an entry, have %v", keys(entries))
	}
	// nothing was drawn, so the entry is the pristine template
	if !bytes.Equal(data, pdftest.MinimalPDF(1, 612, 792)) {
		t.Error("expected pristine template bytes when no placement draws")
	}
}

func TestWriteZipNameCollision(t *testing.T) {
	f := setupGenerateTest(t, 1)
	f.addMapping(t, 1, 0.5, 0.5)
	a := f.addCompany(t, "Acme Inc", "a")
	b := f.addCompany(t, "Acme/Inc", "b")

	batch, err := f.svc.NewBatch(f.template.ID, []uint{a.ID, b.ID})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	var buf bytes.Buffer
	if err := batch.WriteZip(context.Background(), &buf); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}
	entries := readZip(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 distinct names", len(entries))
	}
	if entries["Acme_Inc.pdf"] == nil {
		t.Errorf("missing first entry, have %v", keys(entries))
	}
	if entries[fmt.Sprintf("Acme_Inc_%d.pdf", b.ID)] == nil {
		t.Errorf("second entry must carry the id suffix, have %v", keys(entries))
	}
}

func TestWriteZipAllCompaniesMissing(t *testing.T) {
	f := setupGenerateTest(t, 1)
	batch, err := f.svc.NewBatch(f.template.ID, []uint{111, 222})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	var buf bytes.Buffer
	if err := batch.WriteZip(context.Background(), &buf); err != nil {
		t.Fatalf("an empty archive is a valid outcome, got: %v", err)
	}
	if entries := readZip(t, buf.Bytes()); len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestWriteZipStopsOnCancel(t *testing.T) {
	f := setupGenerateTest(t, 1)
	c := f.addCompany(t, "Acme", "x")
	batch, err := f.svc.NewBatch(f.template.ID, []uint{c.ID})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := batch.WriteZip(ctx, &buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBatchFilename(t *testing.T) {
	f := setupGenerateTest(t, 1)
	c := f.addCompany(t, "Acme", "x")
	batch, err := f.svc.NewBatch(f.template.ID, []uint{c.ID})
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	want := fmt.Sprintf("generated_%d.zip", f.template.ID)
	if got := batch.Filename(); got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestEntryName(t *testing.T) {
	used := map[string]bool{}
	c1 := &models.Company{ID: 1, Name: "Acme & Sons, Ltd."}
	if got := entryName(c1, used); got != "Acme_Sons_Ltd.pdf" {
		t.Errorf("entryName = %q", got)
	}
	c2 := &models.Company{ID: 2, Name: "!!!"}
	if got := entryName(c2, used); got != "company_2.pdf" {
		t.Errorf("entryName for all-symbol name = %q", got)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
