// Package auth reads and issues the signed cookie that identifies the
// current player. Accounts themselves are managed elsewhere; any service
// sharing APP_SECRET_KEY can mint a valid cookie.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/config"
)

const (
	authCookieName = "courtside_auth"
	authSessionTTL = 8 * time.Hour
)

var (
	errAuthConfigMissing = errors.New("auth configuration missing")
	errInvalidCookie     = errors.New("invalid auth cookie")
	errInvalidSignature  = errors.New("invalid auth cookie signature")
	errSessionExpired    = errors.New("auth session expired")
)

var appConfig *config.Config

// Init must be called during server startup before handling requests.
func Init(cfg *config.Config) {
	appConfig = cfg
}

type authSession struct {
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"exp"`
}

func isSecureCookie() bool {
	return appConfig == nil || appConfig.App.Environment != "development"
}

func SetAuthCookie(w http.ResponseWriter, user *authz.AuthUser) error {
	if w == nil || user == nil || user.ID == "" {
		return errors.New("auth session requires response and user")
	}

	if appConfig == nil || appConfig.App.SecretKey == "" {
		return errAuthConfigMissing
	}

	expiresAt := time.Now().Add(authSessionTTL).Unix()
	payload, err := json.Marshal(authSession{UserID: user.ID, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signature, err := signPayload(encodedPayload)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    encodedPayload + "." + signature,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(expiresAt, 0),
		MaxAge:   int(authSessionTTL.Seconds()),
	})

	return nil
}

func ClearAuthCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest returns the cookie's user, or nil without error when the
// request carries no auth cookie.
func UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	session, err := parseAuthCookie(r)
	if err != nil || session == nil {
		return nil, err
	}
	return &authz.AuthUser{ID: session.UserID}, nil
}

func parseAuthCookie(r *http.Request) (*authSession, error) {
	if r == nil {
		return nil, nil
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	if appConfig == nil || appConfig.App.SecretKey == "" {
		return nil, errAuthConfigMissing
	}

	encodedPayload, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return nil, errInvalidCookie
	}

	expectedSignature, err := signPayload(encodedPayload)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return nil, errInvalidSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, err
	}

	var session authSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	if session.UserID == "" {
		return nil, errInvalidCookie
	}
	if session.ExpiresAt <= time.Now().Unix() {
		return nil, errSessionExpired
	}

	return &session, nil
}

func signPayload(payload string) (string, error) {
	if appConfig == nil || appConfig.App.SecretKey == "" {
		return "", errAuthConfigMissing
	}

	mac := hmac.New(sha256.New, []byte(appConfig.App.SecretKey))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
