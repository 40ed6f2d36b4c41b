package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Orders  OrdersConfig
	Site    SiteConfig
	Browser BrowserConfig
	Run     RunConfig
	Output  OutputConfig
	Webhook WebhookConfig
	Log     LogConfig
}

// OrdersConfig controls where the orders file comes from.
type OrdersConfig struct {
	// URL is the remote CSV endpoint.
	URL string // default: "https://robotsparebinindustries.com/orders.csv"

	// File is the local path the CSV is saved to, overwritten on every run.
	File string // default: "orders.csv"

	// Proxy routes the download through an HTTP(S) or SOCKS5 proxy.
	Proxy string
}

// SiteConfig describes the order page and the elements the driver touches.
type SiteConfig struct {
	// OrderPageURL is the page hosting the order form.
	OrderPageURL string // default: "https://robotsparebinindustries.com/#/robot-order"

	// DialogButtonText is the exact label of the button that dismisses the
	// informational dialog shown on load and after every order.
	DialogButtonText string // default: "OK"

	HeadSelector    string // default: "#head"
	LegsSelector    string // default: "input[placeholder='Enter the part number for the legs']"
	AddressSelector string // default: "#address"
	OrderSelector   string // default: "#order"

	// BodyOptionsXPath selects every body-style option in display order.
	// The order's Body value is a 1-based index into this list.
	BodyOptionsXPath string

	OrderAnotherSelector string // default: "#order-another"
	ErrorSelector        string // default: ".alert-danger"
	ReceiptSelector      string // default: "#receipt"
	PreviewSelector      string // default: "#robot-preview-image"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// SlowMotion delays every browser input action.
	SlowMotion time.Duration // default: 200ms

	// Stealth injects anti-bot-detection evasions before the page loads.
	Stealth bool // default: false

	// ExtraHeaders are sent with every page request, as "Name: value" pairs.
	ExtraHeaders []string

	// BlockedResourceTypes lists resource types to block.
	// Images and stylesheets are needed for the screenshot and receipt.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool // default: true
}

// RunConfig controls timing of the workflow.
type RunConfig struct {
	// ActionTimeout is the deadline for a single wait-then-act step.
	ActionTimeout time.Duration // default: 10s

	// NavigationTimeout is the deadline for opening the order page.
	NavigationTimeout time.Duration // default: 30s

	// DownloadTimeout is the deadline for fetching the orders CSV.
	DownloadTimeout time.Duration // default: 30s

	// SubmitAttempts is how many times the order button is clicked before
	// an order is declared failed.
	SubmitAttempts int // default: 5

	// SubmitBackoff is the wait before the second attempt; it doubles
	// after every further failure.
	SubmitBackoff time.Duration // default: 500ms

	// OrderInterval is the minimum spacing between two orders. Zero
	// disables pacing.
	OrderInterval time.Duration // default: 0
}

// OutputConfig controls the produced file layout.
type OutputConfig struct {
	// Dir is the root of every artifact the run writes.
	Dir string // default: "output"
}

// ReceiptsDir holds one PDF per order until the run is archived.
func (o OutputConfig) ReceiptsDir() string { return filepath.Join(o.Dir, "receipts") }

// ScreenshotsDir holds one PNG per order until cleanup.
func (o OutputConfig) ScreenshotsDir() string { return filepath.Join(o.Dir, "screenshots") }

// ArchivePath is the durable output of the run.
func (o OutputConfig) ArchivePath() string { return filepath.Join(o.Dir, "receipts.zip") }

// ReceiptPath returns receipts/{n}.pdf.
func (o OutputConfig) ReceiptPath(orderNumber int) string {
	return filepath.Join(o.ReceiptsDir(), strconv.Itoa(orderNumber)+".pdf")
}

// ScreenshotPath returns screenshots/{n}.png.
func (o OutputConfig) ScreenshotPath(orderNumber int) string {
	return filepath.Join(o.ScreenshotsDir(), strconv.Itoa(orderNumber)+".png")
}

// WebhookConfig controls the optional run notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Orders: OrdersConfig{
			URL:   envOr("ORDERBOT_ORDERS_URL", "https://robotsparebinindustries.com/orders.csv"),
			File:  envOr("ORDERBOT_ORDERS_FILE", "orders.csv"),
			Proxy: os.Getenv("ORDERBOT_PROXY"),
		},
		Site: SiteConfig{
			OrderPageURL:         envOr("ORDERBOT_ORDER_PAGE", "https://robotsparebinindustries.com/#/robot-order"),
			DialogButtonText:     envOr("ORDERBOT_DIALOG_BUTTON", "OK"),
			HeadSelector:         envOr("ORDERBOT_SEL_HEAD", "#head"),
			LegsSelector:         envOr("ORDERBOT_SEL_LEGS", "input[placeholder='Enter the part number for the legs']"),
			AddressSelector:      envOr("ORDERBOT_SEL_ADDRESS", "#address"),
			OrderSelector:        envOr("ORDERBOT_SEL_ORDER", "#order"),
			BodyOptionsXPath:     envOr("ORDERBOT_XPATH_BODY", `//*[@id="root"]/div/div[1]/div/div[1]/form/div[2]/div/div/label`),
			OrderAnotherSelector: envOr("ORDERBOT_SEL_ORDER_ANOTHER", "#order-another"),
			ErrorSelector:        envOr("ORDERBOT_SEL_ERROR", ".alert-danger"),
			ReceiptSelector:      envOr("ORDERBOT_SEL_RECEIPT", "#receipt"),
			PreviewSelector:      envOr("ORDERBOT_SEL_PREVIEW", "#robot-preview-image"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("ORDERBOT_HEADLESS", true),
			NoSandbox:            envBoolOr("ORDERBOT_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("ORDERBOT_BROWSER_BIN"),
			Proxy:                os.Getenv("ORDERBOT_PROXY"),
			SlowMotion:           envDurationOr("ORDERBOT_SLOW_MOTION", 200*time.Millisecond),
			Stealth:              envBoolOr("ORDERBOT_STEALTH", false),
			ExtraHeaders:         envSliceOr("ORDERBOT_EXTRA_HEADERS", nil),
			BlockedResourceTypes: envSliceOr("ORDERBOT_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:             envBoolOr("ORDERBOT_BLOCK_ADS", true),
		},
		Run: RunConfig{
			ActionTimeout:     envDurationOr("ORDERBOT_ACTION_TIMEOUT", 10*time.Second),
			NavigationTimeout: envDurationOr("ORDERBOT_NAV_TIMEOUT", 30*time.Second),
			DownloadTimeout:   envDurationOr("ORDERBOT_DOWNLOAD_TIMEOUT", 30*time.Second),
			SubmitAttempts:    envIntOr("ORDERBOT_SUBMIT_ATTEMPTS", 5),
			SubmitBackoff:     envDurationOr("ORDERBOT_SUBMIT_BACKOFF", 500*time.Millisecond),
			OrderInterval:     envDurationOr("ORDERBOT_ORDER_INTERVAL", 0),
		},
		Output: OutputConfig{
			Dir: envOr("ORDERBOT_OUTPUT_DIR", "output"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("ORDERBOT_WEBHOOK_URL"),
			Secret: os.Getenv("ORDERBOT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("ORDERBOT_LOG_LEVEL", "info"),
			Format: envOr("ORDERBOT_LOG_FORMAT", "text"),
		},
	}
}

// Validate rejects configurations the run cannot start with. Every CSS
// selector is parsed so a typo fails before the browser launches.
func (c *Config) Validate() error {
	selectors := map[string]string{
		"ORDERBOT_SEL_HEAD":          c.Site.HeadSelector,
		"ORDERBOT_SEL_LEGS":          c.Site.LegsSelector,
		"ORDERBOT_SEL_ADDRESS":       c.Site.AddressSelector,
		"ORDERBOT_SEL_ORDER":         c.Site.OrderSelector,
		"ORDERBOT_SEL_ORDER_ANOTHER": c.Site.OrderAnotherSelector,
		"ORDERBOT_SEL_ERROR":         c.Site.ErrorSelector,
		"ORDERBOT_SEL_RECEIPT":       c.Site.ReceiptSelector,
		"ORDERBOT_SEL_PREVIEW":       c.Site.PreviewSelector,
	}
	for key, sel := range selectors {
		if _, err := cascadia.Parse(sel); err != nil {
			return fmt.Errorf("config: %s: invalid selector %q: %w", key, sel, err)
		}
	}
	if c.Site.BodyOptionsXPath == "" {
		return fmt.Errorf("config: ORDERBOT_XPATH_BODY must not be empty")
	}
	if c.Orders.URL == "" || c.Orders.File == "" {
		return fmt.Errorf("config: orders URL and file are required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("config: ORDERBOT_OUTPUT_DIR must not be empty")
	}
	if c.Run.SubmitAttempts < 1 {
		return fmt.Errorf("config: ORDERBOT_SUBMIT_ATTEMPTS must be at least 1, got %d", c.Run.SubmitAttempts)
	}
	for _, h := range c.Browser.ExtraHeaders {
		if _, _, ok := SplitHeader(h); !ok {
			return fmt.Errorf("config: ORDERBOT_EXTRA_HEADERS: %q is not a \"Name: value\" pair", h)
		}
	}
	return nil
}

// SplitHeader splits a "Name: value" pair.
func SplitHeader(h string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
