package models

import "time"

// Datapoint is a reusable field definition (e.g. "Invoice Date") shared by
// all companies and templates. The set is seeded once and rarely changes.
type Datapoint struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Label string `gorm:"size:255;not null" json:"label"`

	Values   []CompanyValue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Mappings []Mapping      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Company is one data record; a generation request produces one filled
// document per company.
type Company struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`

	Values []CompanyValue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// CompanyValue holds one company's value for one datapoint. At most one row
// exists per (company, datapoint) pair; a missing row reads as null.
type CompanyValue struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	CompanyID   uint    `gorm:"uniqueIndex:idx_company_datapoint;not null" json:"company_id"`
	DatapointID uint    `gorm:"uniqueIndex:idx_company_datapoint;not null" json:"datapoint_id"`
	Value       *string `json:"value"`
}

// Template is an uploaded PDF used as the stencil for generated documents.
// Pages is a count cached at upload time; it is advisory only, rendering
// re-derives the real page count from the stored bytes.
type Template struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OriginalFilename string    `gorm:"size:500" json:"original_filename"`
	StoredPath       string    `gorm:"size:500;not null" json:"stored_path"`
	Pages            int       `gorm:"default:1" json:"pages"`
	CreatedAt        time.Time `json:"created_at"`

	Mappings []Mapping `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Mapping places one datapoint's value on one template page. X and Y are
// normalized fractions of the page width/height with a top-left origin, as
// authored in the editor. They are stored as-is and sanitized on the way
// out: a write never rejects a malformed number, the read side does.
type Mapping struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	TemplateID  uint    `gorm:"index;not null" json:"template_id"`
	DatapointID uint    `gorm:"not null" json:"datapoint_id"`
	Page        int     `gorm:"default:1" json:"page"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FontSize    float64 `gorm:"default:12" json:"font_size"`
}
