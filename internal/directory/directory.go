// Package directory serves supplier capability lookups and loads the supplier
// seed file.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"agrotrade/internal/apperr"
	"agrotrade/models"

	"gopkg.in/yaml.v3"
)

// Source is the storage the directory reads from.
type Source interface {
	ListSuppliersByCrop(ctx context.Context, crop string) ([]models.Supplier, error)
}

// Directory is read-only and safe for concurrent use.
type Directory struct {
	src Source
}

func New(src Source) *Directory {
	return &Directory{src: src}
}

// ListByCapability returns every supplier whose specialties contain crop.
// A non-empty region narrows the result to suppliers from that region.
// Storage failures come back as apperr.ErrUpstreamUnavailable and are not retried.
func (d *Directory) ListByCapability(ctx context.Context, crop, region string) ([]models.Supplier, error) {
	crop = models.NormalizeTag(crop)
	if crop == "" {
		return nil, fmt.Errorf("%w: crop is required", apperr.ErrValidation)
	}
	suppliers, err := d.src.ListSuppliersByCrop(ctx, crop)
	if err != nil {
		return nil, fmt.Errorf("%w: list suppliers: %w", apperr.ErrUpstreamUnavailable, err)
	}
	return Filter(suppliers, crop, region), nil
}

// Filter keeps suppliers that specialise in crop and, when region is set,
// belong to it. Input order is preserved.
func Filter(suppliers []models.Supplier, crop, region string) []models.Supplier {
	region = models.NormalizeTag(region)
	out := make([]models.Supplier, 0, len(suppliers))
	for _, s := range suppliers {
		if !s.HasSpecialty(crop) {
			continue
		}
		if region != "" && models.NormalizeTag(s.Region) != region {
			continue
		}
		out = append(out, s)
	}
	return out
}

type seedFile struct {
	Suppliers []models.Supplier `yaml:"suppliers"`
}

// LoadFile reads a YAML supplier seed file.
func LoadFile(path string) ([]models.Supplier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read supplier seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse supplier seed: %w", err)
	}
	for i := range f.Suppliers {
		s := &f.Suppliers[i]
		if err := validateSupplier(s); err != nil {
			return nil, fmt.Errorf("supplier #%d: %w", i+1, err)
		}
		for j, sp := range s.Specialties {
			s.Specialties[j] = models.NormalizeTag(sp)
		}
		s.Region = models.NormalizeTag(s.Region)
		s.Country = models.NormalizeTag(s.Country)
	}
	return f.Suppliers, nil
}

func validateSupplier(s *models.Supplier) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if len(s.Specialties) == 0 {
		return fmt.Errorf("%s: at least one specialty is required", s.ID)
	}
	if s.OnTimeRate < 0 || s.OnTimeRate > 1 {
		return fmt.Errorf("%s: onTimeRate must be within [0,1]", s.ID)
	}
	if s.TrustScore < 0 || s.TrustScore > 100 {
		return fmt.Errorf("%s: trustScore must be within [0,100]", s.ID)
	}
	return nil
}

// Seeder is the storage that accepts seeded suppliers.
type Seeder interface {
	UpsertSupplier(ctx context.Context, s *models.Supplier) error
}

// Seed upserts suppliers into storage. Existing trust scores are kept.
func Seed(ctx context.Context, dst Seeder, suppliers []models.Supplier) error {
	for i := range suppliers {
		if err := dst.UpsertSupplier(ctx, &suppliers[i]); err != nil {
			return fmt.Errorf("seed supplier %s: %w", suppliers[i].ID, err)
		}
	}
	return nil
}
