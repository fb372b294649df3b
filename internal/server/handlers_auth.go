package server

import (
	"errors"
	"net/http"
	"strings"

	"procodus.dev/device-monitor/internal/auth"
	"procodus.dev/device-monitor/internal/store"
)

// handleRegisterForm serves the registration page.
func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authPage{basePage: s.base(w, r, "Register")})
}

// handleRegister creates a new account from the submitted form.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if !validUsername(username) {
		s.redirect(w, r, "/auth/register", flashDanger,
			"Username must be 3-20 characters long and contain only letters, numbers, and underscores.")
		return
	}

	if !validPassword(password) {
		s.redirect(w, r, "/auth/register", flashDanger,
			"Password must be at least 8 characters long and include one uppercase letter, one number, and one special character.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("registration error", "error", err)
		s.redirect(w, r, "/auth/register", flashDanger, "An error occurred during registration.")
		return
	}

	user := &store.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			s.redirect(w, r, "/auth/register", flashWarning, "Username already exists.")
			return
		}
		s.logger.Error("registration error", "username", username, "error", err)
		s.redirect(w, r, "/auth/register", flashDanger, "An error occurred during registration.")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", username)
	s.redirect(w, r, "/auth/login", flashSuccess, "Registration successful. Please log in.")
}

// handleLoginForm serves the login page.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authPage{basePage: s.base(w, r, "Login")})
}

// handleLogin checks the submitted credentials and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := s.users.GetByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("login error", "username", username, "error", err)
			s.redirect(w, r, "/auth/login", flashDanger, "An error occurred during login.")
			return
		}
		// Unknown user falls through to the same message as a bad
		// password.
		s.redirect(w, r, "/auth/login", flashDanger, "Invalid credentials.")
		return
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		s.redirect(w, r, "/auth/login", flashDanger, "Invalid credentials.")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("login error", "user_id", user.ID, "error", err)
		s.redirect(w, r, "/auth/login", flashDanger, "An error occurred during login.")
		return
	}

	auth.SetTokenCookie(w, token, s.tokens.TTL(), s.config.SecureCookies)
	s.logger.Info("user logged in", "user_id", user.ID, "username", username)
	s.redirect(w, r, "/home", flashSuccess, "Login successful!")
}

// handleLogout clears the session cookie. The token itself remains
// valid until expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, s.config.SecureCookies)
	s.redirect(w, r, "/auth/login", flashInfo, "You have been logged out.")
}

// handleAuthCatchAll redirects stray /auth/ paths to the closest entry
// point.
func (s *Server) handleAuthCatchAll(w http.ResponseWriter, r *http.Request) {
	subpath := strings.TrimPrefix(r.URL.Path, "/auth/")
	if strings.HasPrefix(subpath, "register") {
		s.redirect(w, r, "/auth/register", flashWarning,
			"Invalid path '/auth/"+subpath+"'. Redirected to Register.")
		return
	}
	s.redirect(w, r, "/auth/login", flashWarning,
		"Invalid path '/auth/"+subpath+"'. Redirected to Login.")
}
