package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sort keys accepted for diagnostics listings. Anything else falls back
// to SortByTimestamp; the allow-list keeps request parameters out of
// the ORDER BY clause.
const (
	SortByCPUUsage    = "cpu_usage"
	SortByMemoryUsage = "memory_usage"
	SortByTimestamp   = "timestamp"
)

// NormalizeSortKey maps an arbitrary request value onto the allow-list.
func NormalizeSortKey(key string) string {
	switch key {
	case SortByCPUUsage, SortByMemoryUsage, SortByTimestamp:
		return key
	default:
		return SortByTimestamp
	}
}

// DiagnosticRepository provides persistence for DeviceDiagnostic records.
type DiagnosticRepository struct {
	db *gorm.DB
}

// NewDiagnosticRepository creates a DiagnosticRepository backed by db.
func NewDiagnosticRepository(db *gorm.DB) *DiagnosticRepository {
	return &DiagnosticRepository{db: db}
}

// Create inserts a new diagnostic reading. A zero Timestamp is filled
// with the current time.
func (r *DiagnosticRepository) Create(ctx context.Context, diag *DeviceDiagnostic) error {
	if diag.Timestamp.IsZero() {
		diag.Timestamp = r.db.NowFunc()
	}
	if result := r.db.WithContext(ctx).Create(diag); result.Error != nil {
		return fmt.Errorf("failed to create diagnostic: %w", result.Error)
	}
	return nil
}

// GetByID fetches a diagnostic by primary key.
func (r *DiagnosticRepository) GetByID(ctx context.Context, id uint) (*DeviceDiagnostic, error) {
	var diag DeviceDiagnostic
	result := r.db.WithContext(ctx).First(&diag, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch diagnostic %d: %w", id, result.Error)
	}
	return &diag, nil
}

// Update persists the device assignment and usage values of a
// diagnostic. The caller is responsible for having checked that the
// new device belongs to the acting user.
func (r *DiagnosticRepository) Update(ctx context.Context, diag *DeviceDiagnostic) error {
	result := r.db.WithContext(ctx).
		Model(&DeviceDiagnostic{}).
		Where("id = ?", diag.ID).
		Updates(map[string]any{
			"device_id":    diag.DeviceID,
			"cpu_usage":    diag.CPUUsage,
			"memory_usage": diag.MemoryUsage,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update diagnostic %d: %w", diag.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single diagnostic.
func (r *DiagnosticRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&DeviceDiagnostic{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete diagnostic %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByDevice returns the number of diagnostics attached to a device.
func (r *DiagnosticRepository) CountByDevice(ctx context.Context, deviceID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&DeviceDiagnostic{}).
		Where("device_id = ?", deviceID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count diagnostics for device %d: %w", deviceID, result.Error)
	}
	return count, nil
}

// List returns one page of diagnostics for devices owned by ownerID,
// optionally restricted to a single device, sorted ascending by an
// allow-listed key. Pagination follows the same policy as the device
// listing.
func (r *DiagnosticRepository) List(ctx context.Context, ownerID uint, deviceID uint, sortKey string, page int) (Page[DeviceDiagnostic], error) {
	owned := r.db.WithContext(ctx).
		Model(&Device{}).
		Select("id").
		Where("user_id = ?", ownerID)

	query := r.db.WithContext(ctx).
		Model(&DeviceDiagnostic{}).
		Where("device_id IN (?)", owned)

	if deviceID != 0 {
		query = query.Where("device_id = ?", deviceID)
	}

	var total int64
	if result := query.Count(&total); result.Error != nil {
		return Page[DeviceDiagnostic]{}, fmt.Errorf("failed to count diagnostics: %w", result.Error)
	}

	// Same pagination policy as the device listing: malformed and
	// out-of-range pages come back empty, never as an error.
	if page < 1 {
		return newPage[DeviceDiagnostic](nil, page, total), nil
	}

	var diags []DeviceDiagnostic
	result := query.
		Order(NormalizeSortKey(sortKey) + " asc").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&diags)
	if result.Error != nil {
		return Page[DeviceDiagnostic]{}, fmt.Errorf("failed to list diagnostics: %w", result.Error)
	}

	return newPage(diags, page, total), nil
}
