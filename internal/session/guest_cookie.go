package session

import (
	"net/http"
	"time"

	"prompthive/internal/guest"
)

const (
	// GuestCookieName carries the guest session id.
	GuestCookieName = "ph_guest"

	// GuestTTL bounds how long a browser keeps its guest session.
	GuestTTL = 30 * 24 * time.Hour
)

// guestID returns the guest session id from the request, or "".
func guestID(r *http.Request) string {
	c, err := r.Cookie(GuestCookieName)
	if err != nil || !guest.IsID(c.Value) {
		return ""
	}
	return c.Value
}

func setGuestCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(GuestTTL.Seconds()),
	})
}

func clearGuestCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
