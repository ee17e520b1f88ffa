package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/formfill/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the relational query surface used by services and handlers. It is
// constructed once at startup and injected; no ambient globals.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) ListDatapoints() ([]models.Datapoint, error) {
	var dps []models.Datapoint
	if err := s.db.Order("id asc").Find(&dps).Error; err != nil {
		return nil, err
	}
	return dps, nil
}

func (s *Store) ListCompanies() ([]models.Company, error) {
	var cs []models.Company
	if err := s.db.Order("id asc").Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Store) GetCompany(id uint) (*models.Company, error) {
	var c models.Company
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CompanyValueRow is one row of the datapoint/value left join for a company.
type CompanyValueRow struct {
	DatapointID uint    `json:"datapoint_id"`
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Value       *string `json:"value"`
}

// GetCompanyValues returns one row per datapoint in registry order, with a
// null value when the company has no row for that datapoint.
func (s *Store) GetCompanyValues(companyID uint) ([]CompanyValueRow, error) {
	var rows []CompanyValueRow
	err := s.db.Table("datapoints d").
		Select("d.id AS datapoint_id, d.key, d.label, cv.value").
		Joins("LEFT JOIN company_values cv ON cv.datapoint_id = d.id AND cv.company_id = ?", companyID).
		Order("d.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateTemplate(t *models.Template) error {
	return s.db.Create(t).Error
}

func (s *Store) ListTemplates() ([]models.Template, error) {
	var ts []models.Template
	if err := s.db.Order("id desc").Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *Store) GetTemplate(id uint) (*models.Template, error) {
	var t models.Template
	if err := s.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ReplaceMappings swaps the whole mapping set of a template inside a single
// transaction, so a concurrent reader never observes a half-replaced set.
func (s *Store) ReplaceMappings(templateID uint, ms []models.Mapping) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&models.Mapping{}).Error; err != nil {
			return err
		}
		if len(ms) == 0 {
			return nil
		}
		for i := range ms {
			ms[i].ID = 0
			ms[i].TemplateID = templateID
		}
		return tx.Create(&ms).Error
	})
}

// GetMappings returns the template's placements in insertion order.
func (s *Store) GetMappings(templateID uint) ([]models.Mapping, error) {
	var ms []models.Mapping
	if err := s.db.Where("template_id = ?", templateID).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}
