package auth

import (
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// OAuthConfig configures Google sign-in for existing accounts.
type OAuthConfig struct {
	GoogleKey    string
	GoogleSecret string
	CallbackURL  string
	// SessionSecret signs the cookie that carries the OAuth state.
	SessionSecret string
	Secure        bool
}

// SetupOAuth registers the Google provider with gothic and gives it a
// cookie store for the handshake state. gothic keeps both in package
// state, so this runs once at startup.
func SetupOAuth(cfg OAuthConfig) {
	goth.UseProviders(google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.CallbackURL, "email", "profile"))

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(10 * 60)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	gothic.Store = store
}
