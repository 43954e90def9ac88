package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

const cookieDomain = ".xiaohongshu.com"

// cookieRecord is the on-disk shape of one session cookie. Values never go
// through the logger; the file itself is the only place they land.
type cookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// loadCookies restores saved cookies into the browser context and returns
// how many it added. A missing file is not an error.
func loadCookies(bctx playwright.BrowserContext, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cookies file: %w", err)
	}

	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("parsing cookies file: %w", err)
	}

	cookies := make([]playwright.OptionalCookie, 0, len(records))
	for _, rec := range records {
		domain := rec.Domain
		if domain == "" {
			domain = cookieDomain
		}
		cookiePath := rec.Path
		if cookiePath == "" {
			cookiePath = "/"
		}
		c := playwright.OptionalCookie{
			Name:     rec.Name,
			Value:    rec.Value,
			Domain:   playwright.String(domain),
			Path:     playwright.String(cookiePath),
			HttpOnly: playwright.Bool(rec.HTTPOnly),
			Secure:   playwright.Bool(rec.Secure),
		}
		if rec.Expires != 0 {
			c.Expires = playwright.Float(rec.Expires)
		}
		cookies = append(cookies, c)
	}

	if len(cookies) == 0 {
		return 0, nil
	}
	if err := bctx.AddCookies(cookies); err != nil {
		return 0, fmt.Errorf("adding cookies: %w", err)
	}
	return len(cookies), nil
}

// saveCookies persists the context's cookies, owner-readable only.
func saveCookies(bctx playwright.BrowserContext, path string) error {
	if path == "" {
		return nil
	}
	cookies, err := bctx.Cookies()
	if err != nil {
		return fmt.Errorf("reading context cookies: %w", err)
	}

	records := make([]cookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cookies dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing cookies file: %w", err)
	}
	return nil
}
