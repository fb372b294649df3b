package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"procodus.dev/device-monitor/internal/store"
)

// handleDiagnosticList serves the paginated diagnostics listing,
// restricted to devices the user owns.
func (s *Server) handleDiagnosticList(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	q := r.URL.Query()

	sortBy := store.NormalizeSortKey(q.Get("sort"))

	var deviceID uint
	if rawID := q.Get("id"); rawID != "" {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err == nil {
			deviceID = uint(id)
		} else {
			deviceID = ^uint(0)
		}
	}

	page, err := s.diagnostics.List(r.Context(), uid, deviceID, sortBy, parsePage(q.Get("page")))
	if err != nil {
		s.logger.Error("diagnostics listing failed", "user_id", uid, "error", err)
		s.redirect(w, r, "/home", flashDanger, "Failed to load diagnostics.")
		return
	}

	s.render(w, r, "diagnostics.html", diagnosticsPage{
		basePage:    s.base(w, r, "Diagnostics"),
		Diagnostics: page,
		SortBy:      sortBy,
		FilterID:    q.Get("id"),
	})
}

// userDevices loads the devices the user can attach diagnostics to.
// When the user has none, the request is redirected to the add-device
// page and false is returned.
func (s *Server) userDevices(w http.ResponseWriter, r *http.Request) ([]store.Device, bool) {
	uid := userID(r)
	devices, err := s.devices.GetByOwner(r.Context(), uid)
	if err != nil {
		s.logger.Error("device lookup failed", "user_id", uid, "error", err)
		s.redirect(w, r, "/home", flashDanger, "Failed to load devices.")
		return nil, false
	}
	if len(devices) == 0 {
		s.redirect(w, r, "/devices/add", flashWarning, "Please add a device before adding diagnostics.")
		return nil, false
	}
	return devices, true
}

// parseDiagnosticForm reads the shared add/update form fields. The
// usage values are accepted as-is; there is no declared valid range.
func parseDiagnosticForm(r *http.Request) (deviceID uint, cpu, mem float64, ok bool) {
	id, err := strconv.ParseUint(r.FormValue("device_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, 0, 0, false
	}
	cpu, err = strconv.ParseFloat(r.FormValue("cpu_usage"), 64)
	if err != nil {
		return 0, 0, 0, false
	}
	mem, err = strconv.ParseFloat(r.FormValue("memory_usage"), 64)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint(id), cpu, mem, true
}

// handleDiagnosticAddForm serves the add-diagnostic page.
func (s *Server) handleDiagnosticAddForm(w http.ResponseWriter, r *http.Request) {
	devices, ok := s.userDevices(w, r)
	if !ok {
		return
	}
	s.render(w, r, "add_diagnostics.html", diagnosticFormPage{
		basePage: s.base(w, r, "Add Diagnostic"),
		Devices:  devices,
	})
}

// handleDiagnosticAdd creates a diagnostic for one of the user's
// devices.
func (s *Server) handleDiagnosticAdd(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	if _, ok := s.userDevices(w, r); !ok {
		return
	}

	deviceID, cpu, mem, ok := parseDiagnosticForm(r)
	if !ok {
		s.redirect(w, r, "/diagnostics/add", flashDanger, "Invalid diagnostic values.")
		return
	}

	if !s.ownsDevice(r, uid, deviceID) {
		s.redirect(w, r, "/diagnostics/add", flashDanger, "Invalid device selection.")
		return
	}

	diag := &store.DeviceDiagnostic{
		DeviceID:    deviceID,
		CPUUsage:    cpu,
		MemoryUsage: mem,
	}
	if err := s.diagnostics.Create(r.Context(), diag); err != nil {
		s.logger.Error("diagnostic creation error", "user_id", uid, "device_id", deviceID, "error", err)
		s.redirect(w, r, "/diagnostics/add", flashDanger, "Error adding diagnostic.")
		return
	}

	s.logger.Info("diagnostic added", "user_id", uid, "device_id", deviceID, "diagnostic_id", diag.ID)
	s.redirect(w, r, "/diagnostics/home", flashSuccess, "Diagnostic added successfully!")
}

// ownsDevice reports whether deviceID exists and belongs to uid.
func (s *Server) ownsDevice(r *http.Request, uid, deviceID uint) bool {
	device, err := s.devices.GetByID(r.Context(), deviceID)
	if err != nil {
		return false
	}
	return device.UserID == uid
}

// ownedDiagnostic loads a diagnostic and enforces the transitive
// ownership chain through its device. Returns false when the response
// has already been written.
func (s *Server) ownedDiagnostic(w http.ResponseWriter, r *http.Request, action string) (*store.DeviceDiagnostic, bool) {
	id, ok := pathID(r)
	if !ok {
		s.redirect(w, r, "/diagnostics/home", flashWarning, "Diagnostic not found.")
		return nil, false
	}

	diag, err := s.diagnostics.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirect(w, r, "/diagnostics/home", flashWarning, "Diagnostic not found.")
			return nil, false
		}
		s.logger.Error("diagnostic lookup failed", "diagnostic_id", id, "error", err)
		s.redirect(w, r, "/diagnostics/home", flashDanger, "Failed to load diagnostic.")
		return nil, false
	}

	if !s.ownsDevice(r, userID(r), diag.DeviceID) {
		s.logger.Warn("unauthorized diagnostic access",
			"user_id", userID(r),
			"diagnostic_id", diag.ID,
			"action", action,
		)
		s.redirect(w, r, "/diagnostics/home", flashDanger, "Unauthorized access to this diagnostic.")
		return nil, false
	}

	return diag, true
}

// handleDiagnosticUpdateForm serves the edit page for an owned
// diagnostic.
func (s *Server) handleDiagnosticUpdateForm(w http.ResponseWriter, r *http.Request) {
	diag, ok := s.ownedDiagnostic(w, r, "update")
	if !ok {
		return
	}

	devices, ok := s.userDevices(w, r)
	if !ok {
		return
	}

	s.render(w, r, "update_diagnostics.html", diagnosticFormPage{
		basePage:   s.base(w, r, "Update Diagnostic"),
		Diagnostic: diag,
		Devices:    devices,
	})
}

// handleDiagnosticUpdate applies the submitted form to an owned
// diagnostic. The diagnostic may move to a different device, but only
// one owned by the same user.
func (s *Server) handleDiagnosticUpdate(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	diag, ok := s.ownedDiagnostic(w, r, "update")
	if !ok {
		return
	}

	deviceID, cpu, mem, formOK := parseDiagnosticForm(r)
	if !formOK {
		s.redirect(w, r, "/diagnostics/update/"+strconv.FormatUint(uint64(diag.ID), 10),
			flashDanger, "Invalid diagnostic values.")
		return
	}

	if !s.ownsDevice(r, uid, deviceID) {
		s.redirect(w, r, "/diagnostics/update/"+strconv.FormatUint(uint64(diag.ID), 10),
			flashDanger, "Invalid device selection.")
		return
	}

	diag.DeviceID = deviceID
	diag.CPUUsage = cpu
	diag.MemoryUsage = mem

	if err := s.diagnostics.Update(r.Context(), diag); err != nil {
		s.logger.Error("diagnostic update error", "diagnostic_id", diag.ID, "error", err)
		s.redirect(w, r, "/diagnostics/home", flashDanger, "Error updating diagnostic.")
		return
	}

	s.redirect(w, r, "/diagnostics/home", flashSuccess, "Diagnostic updated successfully!")
}

// handleDiagnosticDelete removes an owned diagnostic.
func (s *Server) handleDiagnosticDelete(w http.ResponseWriter, r *http.Request) {
	diag, ok := s.ownedDiagnostic(w, r, "delete")
	if !ok {
		return
	}

	if err := s.diagnostics.Delete(r.Context(), diag.ID); err != nil {
		s.logger.Error("diagnostic deletion error", "diagnostic_id", diag.ID, "error", err)
		s.redirect(w, r, "/diagnostics/home", flashDanger, "Error deleting diagnostic.")
		return
	}

	s.redirect(w, r, "/diagnostics/home", flashSuccess, "Diagnostic deleted successfully!")
}

// handleDiagnosticCatchAll redirects stray /diagnostics/ paths to the
// diagnostics listing.
func (s *Server) handleDiagnosticCatchAll(w http.ResponseWriter, r *http.Request) {
	subpath := strings.TrimPrefix(r.URL.Path, "/diagnostics/")
	s.redirect(w, r, "/diagnostics/home", flashWarning,
		"Invalid diagnostics path '/diagnostics/"+subpath+"'. Redirected to Diagnostics Home.")
}
