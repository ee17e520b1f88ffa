package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/diewo77/formfill/internal/models"
	"github.com/diewo77/formfill/internal/store"
)

// Sentinel errors surfaced to handlers, which map them to HTTP statuses.
var (
	ErrTemplateNotFound    = errors.New("template not found")
	ErrInvalidMapping      = errors.New("invalid mapping")
	ErrTemplateFileMissing = errors.New("template file missing")
	ErrNoCompanies         = errors.New("companyIds required")
)

// MappingInput is one placement as sent by the editor. Numeric fields arrive
// as arbitrary JSON values and are coerced, not rejected: a value that does
// not parse is stored as NaN and filtered out at render time. The editor
// stays permissive, rendering is strict.
type MappingInput struct {
	DatapointID uint `json:"datapoint_id"`
	Page        any  `json:"page"`
	X           any  `json:"x"`
	Y           any  `json:"y"`
	FontSize    any  `json:"font_size"`
}

// MappingService validates and persists the placements of one template.
type MappingService struct {
	Store *store.Store
}

func NewMappingService(st *store.Store) *MappingService {
	return &MappingService{Store: st}
}

// Save replaces the whole mapping set of the template. An empty input clears
// all placements; there is no partial update.
func (s *MappingService) Save(templateID uint, inputs []MappingInput) error {
	if _, err := s.Store.GetTemplate(templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	ms := make([]models.Mapping, 0, len(inputs))
	for _, in := range inputs {
		if in.DatapointID == 0 {
			return fmt.Errorf("%w: missing datapoint_id", ErrInvalidMapping)
		}
		ms = append(ms, models.Mapping{
			DatapointID: in.DatapointID,
			Page:        pageOrDefault(in.Page),
			X:           toFloat(in.X),
			Y:           toFloat(in.Y),
			FontSize:    sizeOrDefault(in.FontSize),
		})
	}
	if err := s.Store.ReplaceMappings(templateID, ms); err != nil {
		// a constraint violation here means the payload referenced rows
		// that do not exist
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return nil
}

// Get returns the template's placements in insertion order with every
// numeric field made safe for callers: corrupted stored values fall back to
// defaults instead of surfacing NaN.
func (s *MappingService) Get(templateID uint) ([]models.Mapping, error) {
	ms, err := s.Store.GetMappings(templateID)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		ms[i] = sanitized(ms[i])
	}
	return ms, nil
}

func sanitized(m models.Mapping) models.Mapping {
	if !isFinite(m.FontSize) || m.FontSize <= 0 {
		m.FontSize = 12
	}
	if m.Page < 1 {
		m.Page = 1
	}
	if !isFinite(m.X) {
		m.X = 0
	}
	if !isFinite(m.Y) {
		m.Y = 0
	}
	return m
}

// toFloat mirrors JavaScript's Number(): numbers pass through, numeric
// strings parse, everything else is NaN.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func pageOrDefault(v any) int {
	f := toFloat(v)
	if !isFinite(f) || f == 0 {
		return 1
	}
	return int(f)
}

func sizeOrDefault(v any) float64 {
	f := toFloat(v)
	if !isFinite(f) || f == 0 {
		return 12
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
