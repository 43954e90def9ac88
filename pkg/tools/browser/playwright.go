package browser

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/redpen-ai/redpen/pkg/logging"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
	selectorTimeoutMs     = 5000
	loginPollInterval     = 5 * time.Second
)

// stealthScript masks the usual automation fingerprints before any page
// script runs; the creator site degrades hard when it detects webdriver.
const stealthScript = `
(function(){
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
    Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
    Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh'] });
    window.chrome = { runtime: {} };
    delete navigator.__proto__.webdriver;

    if ('serviceWorker' in navigator) {
        Object.defineProperty(navigator, 'serviceWorker', { get: () => undefined });
    }

    window.addEventListener('error', function(e) {
        if (e.message && e.message.includes('serviceWorker')) {
            e.preventDefault();
            return false;
        }
    });
})();
`

// DriverOptions configures the real browser driver.
type DriverOptions struct {
	// BaseURL is the creator-site root.
	BaseURL string
	// Headless launches without a window. Manual login needs a window, so
	// this is normally false.
	Headless bool
	// CookiesFile persists the login session between runs.
	CookiesFile string
	// LoginWait bounds the manual login wait. Defaults to 5 minutes.
	LoginWait time.Duration
}

// PlaywrightDriver drives a Chromium instance against the creator site.
type PlaywrightDriver struct {
	opts    DriverOptions
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	log     *logging.Logger
}

// NewPlaywrightDriver creates an unopened driver.
func NewPlaywrightDriver(opts DriverOptions) *PlaywrightDriver {
	if opts.LoginWait <= 0 {
		opts.LoginWait = 5 * time.Minute
	}
	log, _ := logging.New("playwright")
	return &PlaywrightDriver{opts: opts, log: log}
}

func (d *PlaywrightDriver) Open(ctx context.Context) error {
	// Run with output discarded so driver chatter stays off the terminal.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("installing playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("starting playwright: %w", err)
	}
	d.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--disable-extensions",
			"--disable-infobars",
			"--start-maximized",
			"--ignore-certificate-errors",
			"--ignore-ssl-errors",
		},
	})
	if err != nil {
		d.teardown()
		return fmt.Errorf("launching chromium: %w", err)
	}
	d.browser = browser

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultViewportWidth,
			Height: defaultViewportHeight,
		},
		Permissions: []string{"geolocation"},
	})
	if err != nil {
		d.teardown()
		return fmt.Errorf("creating browser context: %w", err)
	}
	d.bctx = bctx

	page, err := bctx.NewPage()
	if err != nil {
		d.teardown()
		return fmt.Errorf("creating page: %w", err)
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		d.teardown()
		return fmt.Errorf("injecting init script: %w", err)
	}
	d.page = page
	return nil
}

func (d *PlaywrightDriver) RestoreSession(ctx context.Context) (bool, error) {
	if d.page == nil {
		return false, fmt.Errorf("browser not open")
	}

	n, err := loadCookies(d.bctx, d.opts.CookiesFile)
	if err != nil {
		d.log.Warnf("cookie restore skipped: %v", err)
	} else if n > 0 {
		d.log.Infof("restored %d cookies", n)
	}

	if err := d.goto_(d.opts.BaseURL); err != nil {
		return false, err
	}
	d.settle(ctx, 2*time.Second)
	return d.loggedIn(), nil
}

func (d *PlaywrightDriver) AwaitLogin(ctx context.Context) error {
	if d.page == nil {
		return fmt.Errorf("browser not open")
	}
	if err := d.goto_(d.opts.BaseURL + "/login"); err != nil {
		return err
	}

	deadline := time.Now().Add(d.opts.LoginWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginPollInterval):
		}
		if d.loggedIn() {
			if err := saveCookies(d.bctx, d.opts.CookiesFile); err != nil {
				d.log.Warnf("saving session: %v", err)
			}
			return nil
		}
	}
	return fmt.Errorf("no login detected within %s", d.opts.LoginWait)
}

func (d *PlaywrightDriver) Publish(ctx context.Context, note Note) error {
	if d.page == nil {
		return fmt.Errorf("browser not open")
	}
	if err := d.goto_(d.opts.BaseURL); err != nil {
		return err
	}
	d.settle(ctx, 3*time.Second)

	if !d.loggedIn() {
		return fmt.Errorf("session expired, log in again")
	}

	// Open the note composer.
	if err := d.clickFirst(".publish-video .btn", "button:has-text('发布笔记')"); err != nil {
		return fmt.Errorf("opening composer: %w", err)
	}
	d.settle(ctx, 3*time.Second)

	// The composer defaults to video; switch to the image-and-text tab.
	if _, err := d.page.WaitForSelector(".creator-tab", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err == nil {
		_, _ = d.page.Evaluate(`() => {
			const tabs = document.querySelectorAll('.creator-tab');
			if (tabs.length > 1) tabs[1].click();
		}`)
		d.settle(ctx, 2*time.Second)
	}

	if len(note.Media) > 0 {
		if err := d.uploadImages(ctx, note.Media); err != nil {
			return fmt.Errorf("uploading images: %w", err)
		}
	}

	if err := d.fillFirst(note.Title,
		"input.d-text[placeholder='填写标题会有更多赞哦～']",
		"input.d-text",
		"input[placeholder*='标题']",
	); err != nil {
		return fmt.Errorf("filling title: %w", err)
	}

	if err := d.fillFirst(note.Body,
		"[contenteditable='true']",
		".note-content",
		"[role='textbox']",
	); err != nil {
		return fmt.Errorf("filling body: %w", err)
	}

	if err := d.clickFirst("button:has-text('发布')", ".submit button"); err != nil {
		return fmt.Errorf("submitting note: %w", err)
	}
	d.settle(ctx, 3*time.Second)
	return nil
}

func (d *PlaywrightDriver) ConfirmPublished(ctx context.Context) (bool, string, error) {
	if d.page == nil {
		return false, "", fmt.Errorf("browser not open")
	}
	d.settle(ctx, 2*time.Second)

	html, err := d.page.Content()
	if err != nil {
		return false, "", fmt.Errorf("reading page: %w", err)
	}
	return scanForPublished(html)
}

func (d *PlaywrightDriver) Close(ctx context.Context) error {
	d.teardown()
	return nil
}

func (d *PlaywrightDriver) teardown() {
	if d.bctx != nil {
		_ = d.bctx.Close()
	}
	if d.browser != nil {
		_ = d.browser.Close()
	}
	if d.pw != nil {
		_ = d.pw.Stop()
	}
	d.page = nil
	d.bctx = nil
	d.browser = nil
	d.pw = nil
}

func (d *PlaywrightDriver) goto_(url string) error {
	waitUntil := playwright.WaitUntilStateNetworkidle
	if _, err := d.page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (d *PlaywrightDriver) loggedIn() bool {
	return !strings.Contains(d.page.URL(), "login")
}

// settle waits for the page to catch up; the creator site renders large
// chunks after networkidle.
func (d *PlaywrightDriver) settle(ctx context.Context, delay time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// clickFirst tries the selectors in order and clicks the first one found.
func (d *PlaywrightDriver) clickFirst(selectors ...string) error {
	var lastErr error
	for _, sel := range selectors {
		if _, err := d.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(selectorTimeoutMs),
		}); err != nil {
			lastErr = err
			continue
		}
		if err := d.page.Click(sel); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no clickable element: %v", lastErr)
}

// fillFirst tries the selectors in order and fills the first one found.
func (d *PlaywrightDriver) fillFirst(value string, selectors ...string) error {
	var lastErr error
	for _, sel := range selectors {
		if _, err := d.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(selectorTimeoutMs),
		}); err != nil {
			lastErr = err
			continue
		}
		if err := d.page.Fill(sel, value); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no fillable element: %v", lastErr)
}

func (d *PlaywrightDriver) uploadImages(ctx context.Context, paths []string) error {
	if _, err := d.page.WaitForSelector(".upload-button", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(20000),
	}); err != nil {
		return fmt.Errorf("upload control not present: %w", err)
	}
	d.settle(ctx, time.Second)

	files := make([]playwright.InputFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading image %s: %w", p, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files = append(files, playwright.InputFile{
			Name:     filepath.Base(p),
			MimeType: mimeType,
			Buffer:   data,
		})
	}

	if err := d.page.SetInputFiles(".upload-input", files); err != nil {
		return fmt.Errorf("setting upload files: %w", err)
	}
	d.settle(ctx, 5*time.Second)
	return nil
}
