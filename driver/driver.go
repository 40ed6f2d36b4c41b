package driver

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/models"
)

// Driver owns the browser session for one run: a single tab holding the
// order form, plus a scratch tab used to print receipts. It is not safe for
// concurrent use; the order form is stateful per session.
type Driver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	printer  *rod.Page
	router   *rod.HijackRouter

	browserCfg config.BrowserConfig
	site       config.SiteConfig
	run        config.RunConfig
}

// Launch starts Chrome and opens the form tab. The caller must Close the
// driver on every exit path.
func Launch(browserCfg config.BrowserConfig, site config.SiteConfig, run config.RunConfig) (*Driver, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}
	if browserCfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL).SlowMotion(browserCfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	d := &Driver{
		launcher:   l,
		browser:    browser,
		browserCfg: browserCfg,
		site:       site,
		run:        run,
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		d.Close()
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to open tab", err)
	}
	d.page = page

	return d, nil
}

// Open navigates to the order page and dismisses the dialog shown on load.
//
// Stealth JS, extra headers and the request router must be installed
// before navigation; they only apply to documents loaded afterwards.
func (d *Driver) Open(ctx context.Context) error {
	if d.browserCfg.Stealth {
		if _, err := d.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if headers := extraHeaders(d.browserCfg.ExtraHeaders); len(headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: headers}).Call(d.page); err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}

	d.router = setupHijack(d.page, d.browserCfg.BlockedResourceTypes, d.browserCfg.BlockAds)

	navCtx, cancel := context.WithTimeout(ctx, d.run.NavigationTimeout)
	defer cancel()
	p := d.page.Context(navCtx)

	if err := p.Navigate(d.site.OrderPageURL); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "navigation to order page failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "order page did not load")
	}
	slog.Info("order page opened", "url", d.site.OrderPageURL)

	return d.dismissDialog(ctx)
}

// Close stops request interception, closes both tabs and kills Chrome.
// It is safe to call on a partially initialised driver.
func (d *Driver) Close() {
	if d.router != nil {
		if err := d.router.Stop(); err != nil {
			slog.Debug("hijack router stop", "error", err)
		}
	}
	if d.printer != nil {
		_ = d.printer.Close()
	}
	if d.page != nil {
		_ = d.page.Close()
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
	slog.Info("browser closed")
}

// withTimeout binds the form tab to a per-action deadline.
func (d *Driver) withTimeout(ctx context.Context) (*rod.Page, context.CancelFunc) {
	actionCtx, cancel := context.WithTimeout(ctx, d.run.ActionTimeout)
	return d.page.Context(actionCtx), cancel
}
