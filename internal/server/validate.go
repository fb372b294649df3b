package server

import (
	"regexp"
	"strings"

	"procodus.dev/device-monitor/internal/store"
)

// Input validation rules. Every mutating handler runs these before any
// persistence call, so a failing rule leaves the store untouched.
var (
	usernamePattern   = regexp.MustCompile(`^\w{3,20}$`)
	uppercasePattern  = regexp.MustCompile(`[A-Z]`)
	digitPattern      = regexp.MustCompile(`[0-9]`)
	punctPattern      = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	deviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.]{2,}$`)
	locationPattern   = regexp.MustCompile(`^[a-zA-Z0-9\s\-_,.]{2,}$`)
)

// validUsername reports whether username is 3-20 characters of
// letters, digits and underscores.
func validUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// validPassword reports whether password is at least 8 characters with
// one uppercase letter, one digit and one special character.
func validPassword(password string) bool {
	return len(password) >= 8 &&
		uppercasePattern.MatchString(password) &&
		digitPattern.MatchString(password) &&
		punctPattern.MatchString(password)
}

// validateDeviceInput checks the device form fields and returns a
// user-facing reason when a field is rejected.
func validateDeviceInput(name, deviceType, location, status string) (bool, string) {
	if !deviceNamePattern.MatchString(name) {
		return false, "Invalid name. Use letters, numbers, space, dash, underscore, or dot."
	}
	if !deviceNamePattern.MatchString(deviceType) {
		return false, "Invalid device type."
	}
	if !locationPattern.MatchString(location) {
		return false, "Invalid location."
	}
	if !validStatus(status) {
		return false, "Status must be: online, offline, or error."
	}
	return true, ""
}

// validStatus reports whether status is one of the accepted device
// statuses, case-insensitively.
func validStatus(status string) bool {
	switch strings.ToLower(status) {
	case store.StatusOnline, store.StatusOffline, store.StatusError:
		return true
	default:
		return false
	}
}
