package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const cookiesFile = "cookies.json"

// CookieStore persists browser cookies as JSON under the session
// directory, so a logged-in session survives across runs. It implements
// feed.SessionStore.
type CookieStore struct {
	browser *rod.Browser
	path    string
}

// NewCookieStore creates a cookie store rooted at sessionDir.
func NewCookieStore(browser *rod.Browser, sessionDir string) *CookieStore {
	return &CookieStore{
		browser: browser,
		path:    filepath.Join(sessionDir, cookiesFile),
	}
}

// HasSaved reports whether a saved cookie file exists.
func (s *CookieStore) HasSaved() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save writes the browser's current cookies to disk.
func (s *CookieStore) Save(ctx context.Context) error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}

	slog.Info("saved session cookies", "count", len(cookies), "path", s.path)
	return nil
}

// Load restores saved cookies into the browser. It returns false, without
// error, when no saved session exists.
func (s *CookieStore) Load(ctx context.Context) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read cookies: %w", err)
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return false, fmt.Errorf("unmarshal cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Priority: c.Priority,
		})
	}

	if err := s.browser.SetCookies(params); err != nil {
		return false, fmt.Errorf("set cookies: %w", err)
	}

	slog.Info("loaded session cookies", "count", len(params))
	return true, nil
}
