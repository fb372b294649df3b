package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"procodus.dev/device-monitor/internal/store"
)

// parsePage interprets the page query parameter: absent means the
// first page, anything unparsable means an out-of-range page that
// renders empty.
func parsePage(raw string) int {
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return page
}

// pathID extracts the {id} path segment.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// handleDeviceList serves the paginated, filtered device listing.
func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	q := r.URL.Query()

	filter := store.DeviceFilter{
		Location: strings.TrimSpace(q.Get("location")),
		Status:   strings.TrimSpace(q.Get("status")),
	}
	if rawID := q.Get("id"); rawID != "" {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err == nil {
			filter.ID = uint(id)
		} else {
			// An unparsable id can match nothing the user owns.
			filter.ID = ^uint(0)
		}
	}

	page, err := s.devices.List(r.Context(), uid, filter, parsePage(q.Get("page")))
	if err != nil {
		s.logger.Error("device listing failed", "user_id", uid, "error", err)
		s.redirect(w, r, "/home", flashDanger, "Failed to load devices.")
		return
	}

	s.render(w, r, "devices.html", devicesPage{
		basePage:       s.base(w, r, "Devices"),
		Devices:        page,
		FilterID:       q.Get("id"),
		FilterLocation: q.Get("location"),
		FilterStatus:   q.Get("status"),
	})
}

// handleDeviceAddForm serves the add-device page.
func (s *Server) handleDeviceAddForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "add_device.html", deviceFormPage{basePage: s.base(w, r, "Add Device")})
}

// handleDeviceAdd creates a device from the submitted form.
func (s *Server) handleDeviceAdd(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	name := strings.TrimSpace(r.FormValue("name"))
	deviceType := strings.TrimSpace(r.FormValue("device_type"))
	location := strings.TrimSpace(r.FormValue("location"))
	status := strings.TrimSpace(r.FormValue("status"))

	if ok, reason := validateDeviceInput(name, deviceType, location, status); !ok {
		s.redirect(w, r, "/devices/add", flashDanger, reason)
		return
	}

	device := &store.Device{
		Name:       name,
		DeviceType: deviceType,
		Location:   location,
		Status:     strings.ToLower(status),
		UserID:     uid,
	}
	if err := s.devices.Create(r.Context(), device); err != nil {
		s.logger.Error("device creation error", "user_id", uid, "error", err)
		s.redirect(w, r, "/devices/add", flashDanger, "Error adding device.")
		return
	}

	s.logger.Info("device added", "user_id", uid, "device_id", device.ID)
	s.redirect(w, r, "/devices/home", flashSuccess, "Device added successfully!")
}

// ownedDevice loads a device and enforces the ownership chain. The
// second return value is false when the handler should stop; the
// response has already been written.
func (s *Server) ownedDevice(w http.ResponseWriter, r *http.Request, action string) (*store.Device, bool) {
	id, ok := pathID(r)
	if !ok {
		s.redirect(w, r, "/devices/home", flashWarning, "Device not found.")
		return nil, false
	}

	device, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirect(w, r, "/devices/home", flashWarning, "Device not found.")
			return nil, false
		}
		s.logger.Error("device lookup failed", "device_id", id, "error", err)
		s.redirect(w, r, "/devices/home", flashDanger, "Failed to load device.")
		return nil, false
	}

	if device.UserID != userID(r) {
		s.logger.Warn("unauthorized device access",
			"user_id", userID(r),
			"device_id", device.ID,
			"action", action,
		)
		s.redirect(w, r, "/devices/home", flashDanger, "Unauthorized access to this device.")
		return nil, false
	}

	return device, true
}

// handleDeviceUpdateForm serves the edit page for an owned device.
func (s *Server) handleDeviceUpdateForm(w http.ResponseWriter, r *http.Request) {
	device, ok := s.ownedDevice(w, r, "update")
	if !ok {
		return
	}
	s.render(w, r, "update_device.html", deviceFormPage{
		basePage: s.base(w, r, "Update Device"),
		Device:   device,
	})
}

// handleDeviceUpdate applies the submitted form to an owned device.
// The owner column is never touched.
func (s *Server) handleDeviceUpdate(w http.ResponseWriter, r *http.Request) {
	device, ok := s.ownedDevice(w, r, "update")
	if !ok {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	deviceType := strings.TrimSpace(r.FormValue("device_type"))
	location := strings.TrimSpace(r.FormValue("location"))
	status := strings.TrimSpace(r.FormValue("status"))

	if ok, reason := validateDeviceInput(name, deviceType, location, status); !ok {
		s.redirect(w, r, "/devices/update/"+strconv.FormatUint(uint64(device.ID), 10), flashDanger, reason)
		return
	}

	device.Name = name
	device.DeviceType = deviceType
	device.Location = location
	device.Status = strings.ToLower(status)

	if err := s.devices.Update(r.Context(), device); err != nil {
		s.logger.Error("device update error", "device_id", device.ID, "error", err)
		s.redirect(w, r, "/devices/home", flashDanger, "Failed to update device.")
		return
	}

	s.redirect(w, r, "/devices/home", flashSuccess, "Device updated successfully!")
}

// handleDeviceDelete removes an owned device and all its diagnostics
// in one transaction.
func (s *Server) handleDeviceDelete(w http.ResponseWriter, r *http.Request) {
	device, ok := s.ownedDevice(w, r, "delete")
	if !ok {
		return
	}

	if err := s.devices.Delete(r.Context(), device.ID); err != nil {
		s.logger.Error("device deletion error", "device_id", device.ID, "error", err)
		s.redirect(w, r, "/devices/home", flashDanger, "Error deleting device.")
		return
	}

	s.logger.Info("device deleted", "user_id", device.UserID, "device_id", device.ID)
	s.redirect(w, r, "/devices/home", flashSuccess, "Device and its diagnostics deleted successfully!")
}

// handleDeviceCatchAll redirects stray /devices/ paths to the device
// listing.
func (s *Server) handleDeviceCatchAll(w http.ResponseWriter, r *http.Request) {
	subpath := strings.TrimPrefix(r.URL.Path, "/devices/")
	s.redirect(w, r, "/devices/home", flashWarning,
		"Invalid device path '/devices/"+subpath+"'. Redirected to Device Home.")
}
