// Package auth authenticates control surface callers with OpenID Connect and
// resolves them to CRM users.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"realestate-crm/backend/internal/config"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

const (
	stateCookie   = "crm_oauth_state"
	sessionCookie = "crm_session"
	devEmail      = "dev@localhost"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth performs the OIDC login flow against an Okta tenant and guards the API.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	users        repository.UserStore
	logger       Logger
	devMode      bool
	authBypass   bool
}

type claims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Scopes []string `json:"scp"`
}

// New creates an Auth from the application configuration. Outside the dev
// bypass it contacts the issuer to build the token verifiers.
func New(ctx context.Context, cfg *config.Config, users repository.UserStore, logger Logger) (*Auth, error) {
	isDev := strings.ToUpper(cfg.Environment) == "DEV"
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{
		users:      users,
		logger:     logger,
		devMode:    isDev,
		authBypass: shouldBypass,
	}
	if shouldBypass {
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, err
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       []string{ScopeOpenID, ScopeProfile, ScopeEmail},
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry the API audience, not the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return a, nil
}

// Bypass reports whether authentication is disabled for local development.
func (a *Auth) Bypass() bool { return a.authBypass }

// LoginHandler starts the authorization code flow. A random state value is
// kept in a cookie and checked on callback.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/docs", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler verifies the state, exchanges the code and stores the raw
// ID token in the session cookie.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/docs", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	idToken, err := a.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}
	var c claims
	if err := idToken.Claims(&c); err == nil && a.logger != nil {
		a.logger.Info("user logged in", "email", c.Email)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    rawIDToken,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.Redirect(w, r, "/api/v1/me", http.StatusSeeOther)
}

// RequireAuth is middleware that authenticates the request by bearer token
// or session cookie and stores the matching CRM user in the context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c claims

		if a.authBypass {
			c.Email = devEmail
		} else {
			var token *oidc.IDToken
			var err error

			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				rawToken := strings.TrimPrefix(authHeader, "Bearer ")
				token, err = a.apiVerifier.Verify(r.Context(), rawToken)
				if err != nil {
					http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
					return
				}
			} else {
				cookie, err := r.Cookie(sessionCookie)
				if err != nil {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				token, err = a.verifier.Verify(r.Context(), cookie.Value)
				if err != nil {
					http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
					return
				}
			}

			if err := token.Claims(&c); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
		}

		if !strings.Contains(c.Email, "@") {
			http.Error(w, "invalid email format in token", http.StatusUnauthorized)
			return
		}

		user, err := a.resolveUser(r.Context(), c)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "no CRM user for "+c.Email, http.StatusForbidden)
				return
			}
			if a.logger != nil {
				a.logger.Error("failed to resolve user", "email", c.Email, "error", err)
			}
			http.Error(w, "failed to resolve user", http.StatusInternalServerError)
			return
		}
		if user.Status != models.UserStatusActive {
			http.Error(w, "user is not active", http.StatusForbidden)
			return
		}

		ctx := WithUser(r.Context(), user)
		ctx = withScopes(ctx, c.Scopes)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveUser looks the caller up by email. In dev mode an unknown caller is
// provisioned as a manager so a fresh database is usable.
func (a *Auth) resolveUser(ctx context.Context, c claims) (*models.User, error) {
	user, err := a.users.GetUserByEmail(ctx, c.Email)
	if err == nil || !errors.Is(err, repository.ErrNotFound) || !a.devMode {
		return user, err
	}

	first, last := splitName(c.Name, c.Email)
	user = &models.User{
		FirstName: first,
		LastName:  last,
		Email:     c.Email,
		Role:      models.UserRoleManager,
		Status:    models.UserStatusActive,
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if a.logger != nil {
		a.logger.Info("provisioned dev user", "email", c.Email, "user_id", user.ID)
	}
	return user, nil
}

// RequireScope rejects token holders that were not granted scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r.Context(), scope) {
				http.Error(w, "missing scope "+scope, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScopes grants reads with ScopeCRMRead and everything else with
// ScopeCRMWrite.
func RequireScopes(next http.Handler) http.Handler {
	read := RequireScope(ScopeCRMRead)(next)
	write := RequireScope(ScopeCRMWrite)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			read.ServeHTTP(w, r)
		default:
			write.ServeHTTP(w, r)
		}
	})
}

// LogoutHandler clears the session cookie.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/docs", http.StatusSeeOther)
}

func splitName(name, email string) (string, string) {
	if first, last, ok := strings.Cut(strings.TrimSpace(name), " "); ok {
		return first, last
	}
	if name != "" {
		return name, ""
	}
	local, _, _ := strings.Cut(email, "@")
	return local, ""
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
