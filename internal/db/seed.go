package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/formfill/internal/models"
)

var seedDatapoints = []models.Datapoint{
	{Key: "company_name", Label: "Company Name"},
	{Key: "contact_name", Label: "Contact Name"},
	{Key: "invoice_date", Label: "Invoice Date"},
	{Key: "amount_due", Label: "Amount Due"},
	{Key: "due_date", Label: "Due Date"},
	{Key: "address", Label: "Address"},
	{Key: "city", Label: "City"},
	{Key: "state", Label: "State"},
	{Key: "postal_code", Label: "Postal Code"},
	{Key: "phone", Label: "Phone"},
}

// Seed inserts the datapoint registry and, on an empty database, ten demo
// companies with full value sets. Existing rows are left untouched, so
// seeding is idempotent.
func Seed(db *gorm.DB) error {
	for _, dp := range seedDatapoints {
		var existing models.Datapoint
		err := db.Where("key = ?", dp.Key).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&dp).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	var companies int64
	if err := db.Model(&models.Company{}).Count(&companies).Error; err != nil {
		return err
	}
	if companies > 0 {
		return nil
	}

	var dps []models.Datapoint
	if err := db.Order("id asc").Find(&dps).Error; err != nil {
		return err
	}
	for i := 1; i <= 10; i++ {
		c := models.Company{Name: fmt.Sprintf("Company %d", i)}
		if err := db.Create(&c).Error; err != nil {
			return err
		}
		values := demoValues(i, c.Name)
		for _, dp := range dps {
			v, ok := values[dp.Key]
			if !ok {
				v = fmt.Sprintf("Value %d-%d", i, dp.ID)
			}
			cv := models.CompanyValue{CompanyID: c.ID, DatapointID: dp.ID, Value: &v}
			if err := db.Create(&cv).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func demoValues(i int, name string) map[string]string {
	return map[string]string{
		"company_name": name,
		"contact_name": fmt.Sprintf("Contact %d", i),
		"invoice_date": fmt.Sprintf("2025-%02d-%02d", i%9+1, i%27+1),
		"amount_due":   fmt.Sprintf("%.2f", 1000+float64(i)*37),
		"due_date":     fmt.Sprintf("2025-12-%02d", i%27+1),
		"address":      fmt.Sprintf("%d Main St", i),
		"city":         "Metropolis",
		"state":        "CA",
		"postal_code":  fmt.Sprintf("%02d01", i),
		"phone":        fmt.Sprintf("(555) 010-%04d", i),
	}
}
