package cart

import "net/http"

const (
	cookieName   = "shopify_cart_id"
	cookieMaxAge = 60 * 60 * 24 * 365 // 1 year
)

// CookieStore persists the opaque platform cart identifier in an
// HTTP-only cookie. The cookie is the only local cart state.
type CookieStore struct {
	// Secure marks the cookie Secure; enabled in production.
	Secure bool
}

func (s *CookieStore) Read(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *CookieStore) Write(w http.ResponseWriter, cartID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    cartID,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
