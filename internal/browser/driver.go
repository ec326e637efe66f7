// Package browser implements the feed scanner, action dispatcher and
// session persistence contracts on top of a scripted Chrome session.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

func blankTarget() proto.TargetCreateTarget {
	return proto.TargetCreateTarget{URL: "about:blank"}
}

// Driver owns the browser process and the single page the run operates on.
type Driver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Config holds browser configuration.
type Config struct {
	// SessionDir is the persistent profile directory. Reusing it across
	// runs keeps the login session alive.
	SessionDir string
	Headless   bool
}

// NewDriver launches Chrome with a persistent profile and connects to it.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	profileDir := filepath.Join(cfg.SessionDir, "profile")
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set(flags.UserDataDir, profileDir)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	slog.Info("browser launched", "headless", cfg.Headless, "profile", profileDir)

	return &Driver{launcher: l, browser: b}, nil
}

// Page returns the active page, creating a blank one on first use.
func (d *Driver) Page() (*rod.Page, error) {
	if d.page != nil {
		return d.page, nil
	}
	page, err := d.browser.Page(blankTarget())
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	d.page = page
	return page, nil
}

// Navigate loads url in the active page and waits for it to settle.
func (d *Driver) Navigate(url string) error {
	page, err := d.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

// Browser exposes the underlying rod browser for cookie management.
func (d *Driver) Browser() *rod.Browser {
	return d.browser
}

// Close shuts down the page and browser process.
func (d *Driver) Close() error {
	if d.page != nil {
		_ = d.page.Close()
	}
	err := d.browser.Close()
	d.launcher.Cleanup()
	return err
}
