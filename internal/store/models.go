// Package store provides the persistence layer for the device monitor:
// GORM models for users, devices and diagnostics, plus a repository
// per entity so the data structs stay free of I/O concerns.
package store

import (
	"time"
)

// User represents a registered account. A user owns zero or more devices.
type User struct {
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
	Username     string    `gorm:"uniqueIndex;size:80;not null"`
	PasswordHash string    `gorm:"size:200;not null"`
	Devices      []Device  `gorm:"foreignKey:UserID"`
	ID           uint      `gorm:"primaryKey"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Device statuses accepted by the application. Stored lower-cased.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusError   = "error"
)

// Device represents a monitored device. Every device belongs to exactly
// one user; its diagnostics are removed together with it.
type Device struct {
	CreatedAt   time.Time          `gorm:"autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime"`
	Name        string             `gorm:"size:120;not null"`
	DeviceType  string             `gorm:"size:50;not null"`
	Status      string             `gorm:"size:20;not null"`
	Location    string             `gorm:"size:100;not null"`
	Diagnostics []DeviceDiagnostic `gorm:"foreignKey:DeviceID"`
	UserID      uint               `gorm:"index;not null"`
	ID          uint               `gorm:"primaryKey"`
}

// TableName specifies the table name for the Device model.
func (Device) TableName() string {
	return "devices"
}

// DeviceDiagnostic is a single CPU/memory reading for a device.
// Timestamp defaults to the creation time when the caller leaves it zero.
type DeviceDiagnostic struct {
	Timestamp   time.Time `gorm:"index;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	CPUUsage    float64   `gorm:"not null"`
	MemoryUsage float64   `gorm:"not null"`
	DeviceID    uint      `gorm:"index;not null"`
	ID          uint      `gorm:"primaryKey"`
}

// TableName specifies the table name for the DeviceDiagnostic model.
func (DeviceDiagnostic) TableName() string {
	return "device_diagnostics"
}
