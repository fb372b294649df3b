package server

import (
	"net/http"
)

// handleHome serves the home page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home.html", homePage{basePage: s.base(w, r, "Home")})
}

// handleNotFound redirects any unknown path to the home page with a
// warning instead of a bare 404.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("not found", "path", r.URL.Path)
	s.redirect(w, r, "/home", flashWarning, "Invalid URL. Redirected to home page.")
}
