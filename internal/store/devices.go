package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DeviceFilter narrows a device listing. Zero values mean "no filter";
// the filters combine with logical AND.
type DeviceFilter struct {
	// ID matches one device exactly.
	ID uint
	// Location is a case-insensitive substring match.
	Location string
	// Status is a case-insensitive substring match.
	Status string
}

// DeviceRepository provides persistence for Device records.
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a DeviceRepository backed by db.
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a new device.
func (r *DeviceRepository) Create(ctx context.Context, device *Device) error {
	if result := r.db.WithContext(ctx).Create(device); result.Error != nil {
		return fmt.Errorf("failed to create device: %w", result.Error)
	}
	return nil
}

// GetByID fetches a device by primary key.
func (r *DeviceRepository) GetByID(ctx context.Context, id uint) (*Device, error) {
	var device Device
	result := r.db.WithContext(ctx).First(&device, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch device %d: %w", id, result.Error)
	}
	return &device, nil
}

// GetByOwner returns all devices belonging to ownerID, oldest first.
func (r *DeviceRepository) GetByOwner(ctx context.Context, ownerID uint) ([]Device, error) {
	var devices []Device
	result := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("id asc").
		Find(&devices)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list devices for user %d: %w", ownerID, result.Error)
	}
	return devices, nil
}

// AllIDs returns the ids of every device in the store, oldest first.
func (r *DeviceRepository) AllIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	result := r.db.WithContext(ctx).Model(&Device{}).Order("id asc").Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list device ids: %w", result.Error)
	}
	return ids, nil
}

// Update persists the mutable columns of a device. The owner column is
// deliberately not part of the update.
func (r *DeviceRepository) Update(ctx context.Context, device *Device) error {
	result := r.db.WithContext(ctx).
		Model(&Device{}).
		Where("id = ?", device.ID).
		Updates(map[string]any{
			"name":        device.Name,
			"device_type": device.DeviceType,
			"status":      device.Status,
			"location":    device.Location,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update device %d: %w", device.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a device and all of its diagnostics in one
// transaction. Either both steps succeed or neither does.
func (r *DeviceRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("device_id = ?", id).Delete(&DeviceDiagnostic{}); result.Error != nil {
			return result.Error
		}

		result := tx.Delete(&Device{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete device %d: %w", id, err)
	}
	return nil
}

// List returns one page of the owner's devices matching the filter.
// Pages are 1-based and PageSize rows long; a malformed or out-of-range
// page yields an empty page.
func (r *DeviceRepository) List(ctx context.Context, ownerID uint, filter DeviceFilter, page int) (Page[Device], error) {
	query := r.db.WithContext(ctx).Model(&Device{}).Where("user_id = ?", ownerID)

	if filter.ID != 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if filter.Location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(filter.Location)+"%")
	}
	if filter.Status != "" {
		query = query.Where("LOWER(status) LIKE ?", "%"+strings.ToLower(filter.Status)+"%")
	}

	var total int64
	if result := query.Count(&total); result.Error != nil {
		return Page[Device]{}, fmt.Errorf("failed to count devices: %w", result.Error)
	}

	// A malformed page (anything below 1) yields an empty page, as does
	// a page past the end of the result set via the offset below.
	if page < 1 {
		return newPage[Device](nil, page, total), nil
	}

	var devices []Device
	result := query.
		Order("id asc").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&devices)
	if result.Error != nil {
		return Page[Device]{}, fmt.Errorf("failed to list devices: %w", result.Error)
	}

	return newPage(devices, page, total), nil
}
