// Package auth signs users in through Google or GitHub and keeps them signed in
// with a session token.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog"

	"nutriai/internal/diet"
)

// DefaultCookieName holds the session token in the browser.
const DefaultCookieName = "nutriai-session"

// Login page error codes.
const (
	LoginErrorCancelled = "cancelled"
	LoginErrorProvider  = "provider"
)

// Config configures the Gateway.
type Config struct {
	SessionSecret      string
	AppURL             string
	PublicURL          string
	Secure             bool
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
}

// Gateway is the authentication gateway. It drives the OAuth redirect flow and
// issues the session token that identifies the user on every later request.
type Gateway struct {
	appURL     string
	secure     bool
	cookieName string
	tokens     *TokenIssuer
	providers  map[string]bool

	// completeAuth finishes the provider exchange; replaced in tests.
	completeAuth func(w http.ResponseWriter, r *http.Request) (goth.User, error)
}

// NewGateway registers the providers that have credentials and returns a Gateway.
func NewGateway(cfg Config) *Gateway {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	var providers []goth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, publicURL+"/auth/google/callback", "email", "profile"))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, publicURL+"/auth/github/callback", "read:user", "user:email"))
	}
	goth.ClearProviders()
	goth.UseProviders(providers...)

	g := newGateway(cfg.SessionSecret, cfg.AppURL, cfg.Secure)
	for _, p := range providers {
		g.providers[p.Name()] = true
	}
	return g
}

func newGateway(secret, appURL string, secure bool) *Gateway {
	return &Gateway{
		appURL:       strings.TrimRight(appURL, "/"),
		secure:       secure,
		cookieName:   DefaultCookieName,
		tokens:       NewTokenIssuer(secret),
		providers:    make(map[string]bool),
		completeAuth: gothic.CompleteUserAuth,
	}
}

// Providers lists the names of the configured identity providers.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	return names
}

// BeginAuth redirects the browser to the provider's consent screen.
func (g *Gateway) BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if !g.providers[provider] {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown sign-in provider %q", provider)})
		return
	}

	zerolog.Ctx(c.Request.Context()).Info().Str("provider", provider).Msg("starting sign-in")
	gothic.BeginAuthHandler(c.Writer, gothic.GetContextWithProvider(c.Request, provider))
}

// Callback completes the provider exchange, issues the session token and sends
// the browser back to the client. Failures land on the login page with
// error=cancelled or error=provider.
func (g *Gateway) Callback(c *gin.Context) {
	provider := c.Param("provider")
	logger := zerolog.Ctx(c.Request.Context())

	user, err := g.signIn(c, provider)
	if err != nil {
		code := LoginErrorProvider
		if errors.Is(err, diet.ErrUserCancelled) {
			code = LoginErrorCancelled
			logger.Info().Str("provider", provider).Msg("sign-in cancelled")
		} else {
			logger.Error().Err(err).Str("provider", provider).Msg("sign-in failed")
		}
		c.Redirect(http.StatusTemporaryRedirect, g.appURL+"/login?error="+url.QueryEscape(code))
		return
	}

	token, err := g.tokens.Issue(*user)
	if err != nil {
		logger.Error().Err(err).Msg("failed to issue session token")
		c.Redirect(http.StatusTemporaryRedirect, g.appURL+"/login?error="+LoginErrorProvider)
		return
	}

	g.setSessionCookie(c, token, int(SessionDuration.Seconds()))
	logger.Info().Str("user_id", user.ID).Msg("signed in")
	c.Redirect(http.StatusTemporaryRedirect, g.appURL+"/dashboard")
}

func (g *Gateway) signIn(c *gin.Context, provider string) (*diet.AuthenticatedUser, error) {
	if !g.providers[provider] {
		return nil, &diet.ProviderError{Provider: provider, Err: errors.New("provider not configured")}
	}
	if reason := c.Query("error"); reason != "" {
		if reason == "access_denied" {
			return nil, diet.ErrUserCancelled
		}
		return nil, &diet.ProviderError{Provider: provider, Err: fmt.Errorf("provider returned %s: %s", reason, c.Query("error_description"))}
	}

	gothUser, err := g.completeAuth(c.Writer, gothic.GetContextWithProvider(c.Request, provider))
	if err != nil {
		return nil, &diet.ProviderError{Provider: provider, Err: err}
	}
	return userFromGoth(gothUser), nil
}

func userFromGoth(u goth.User) *diet.AuthenticatedUser {
	displayName := u.Name
	if displayName == "" {
		displayName = u.NickName
	}
	return &diet.AuthenticatedUser{
		ID:          u.Provider + ":" + u.UserID,
		DisplayName: displayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
	}
}

// Logout ends the session.
func (g *Gateway) Logout(c *gin.Context) {
	if err := gothic.Logout(c.Writer, c.Request); err != nil {
		zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("no provider session to clear")
	}
	g.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// Session returns the signed-in user, or 401.
func (g *Gateway) Session(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, value, maxAge, "/", "", g.secure, true)
}
