package server

import (
	"net/http"
	"net/url"
	"strings"
)

// Flash categories, mirrored by the page templates for styling.
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashWarning = "warning"
	flashDanger  = "danger"
)

const flashCookieName = "flash"

// Flash is a one-shot notice carried to the next rendered page via a
// short-lived cookie.
type Flash struct {
	Category string
	Message  string
}

// setFlash queues a notice for the next page render.
func setFlash(w http.ResponseWriter, category, message string) {
	value := url.QueryEscape(category + "|" + message)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash consumes the pending notice, clearing its cookie.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}

	category, message, found := strings.Cut(value, "|")
	if !found {
		return &Flash{Category: flashInfo, Message: value}
	}
	return &Flash{Category: category, Message: message}
}
