package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/orderbot/archive"
	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/models"
	"github.com/use-agent/orderbot/receipt"
	"github.com/use-agent/orderbot/webhook"
	"golang.org/x/time/rate"
)

// OrderSource yields the orders of a run in submission order.
type OrderSource interface {
	Load(ctx context.Context) ([]models.Order, error)
}

// FormDriver is the browser session driving the order form.
type FormDriver interface {
	Open(ctx context.Context) error
	Fill(ctx context.Context, order models.Order) error
	Submit(ctx context.Context) (bool, error)
	CaptureReceipt(ctx context.Context, path string) (string, error)
	CaptureScreenshot(ctx context.Context, path string) error
	OrderAnother(ctx context.Context) error
	Close()
}

// LaunchFunc acquires a browser session. The pipeline closes it.
type LaunchFunc func() (FormDriver, error)

// Pipeline runs the whole workflow: load, validate, submit every order,
// archive the receipts, clean up.
type Pipeline struct {
	cfg        *config.Config
	source     OrderSource
	launch     LaunchFunc
	composer   *receipt.Composer
	summarizer *receipt.Summarizer
	notifier   *webhook.Notifier
	limiter    *rate.Limiter
}

// New creates a Pipeline. notifier may be nil.
func New(cfg *config.Config, source OrderSource, launch LaunchFunc, notifier *webhook.Notifier) *Pipeline {
	limit := rate.Inf
	if cfg.Run.OrderInterval > 0 {
		limit = rate.Every(cfg.Run.OrderInterval)
	}
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		launch:     launch,
		composer:   receipt.NewComposer(),
		summarizer: receipt.NewSummarizer(),
		notifier:   notifier,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Run executes the workflow once. Any error aborts the run; the summary
// lists the orders captured before that point.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	summary := &models.RunSummary{}

	err := p.run(ctx, summary)
	summary.DurationMs = time.Since(start).Milliseconds()

	event := &webhook.Event{
		Type:      webhook.EventRunCompleted,
		Timestamp: time.Now().Unix(),
		Data:      summary,
	}
	if err != nil {
		var re *models.RunError
		if errors.As(err, &re) {
			summary.Error = re.ToDetail()
		} else {
			summary.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
		}
		event.Type = webhook.EventRunFailed
	}
	p.notifier.Notify(context.WithoutCancel(ctx), event)

	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary *models.RunSummary) error {
	// ── 1. Load and validate orders ─────────────────────────────────
	orders, err := p.source.Load(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return models.NewRunError(models.ErrCodeNoOrders, "orders file has no rows", nil)
	}
	if err := validate(orders); err != nil {
		return err
	}

	out := p.cfg.Output

	// ── 2. Clear leftovers of an earlier aborted run ────────────────
	if err := archive.Cleanup(out.ReceiptsDir(), out.ScreenshotsDir()); err != nil {
		return err
	}

	// ── 3. Drive the form ───────────────────────────────────────────
	if err := p.submitAll(ctx, orders, summary); err != nil {
		return err
	}

	// ── 4. Archive and clean up ─────────────────────────────────────
	if _, err := archive.Zip(out.ReceiptsDir(), out.ArchivePath()); err != nil {
		return err
	}
	summary.ArchivePath = out.ArchivePath()

	return archive.Cleanup(out.ReceiptsDir(), out.ScreenshotsDir())
}

// submitAll owns the browser session: it is acquired here and released on
// every return path.
func (p *Pipeline) submitAll(ctx context.Context, orders []models.Order, summary *models.RunSummary) error {
	drv, err := p.launch()
	if err != nil {
		return err
	}
	defer drv.Close()

	if err := drv.Open(ctx); err != nil {
		return err
	}

	for _, order := range orders {
		if err := p.limiter.Wait(ctx); err != nil {
			return models.NewRunError(models.ErrCodeTimeout, "run canceled", err)
		}
		result, err := p.processOrder(ctx, drv, order)
		if err != nil {
			return err
		}
		summary.Orders = append(summary.Orders, *result)
	}
	slog.Info("all orders submitted", "orders", len(summary.Orders))
	return nil
}

// processOrder drives one order from Filling to Captured.
func (p *Pipeline) processOrder(ctx context.Context, drv FormDriver, order models.Order) (*models.OrderResult, error) {
	number, err := order.FileNumber()
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeInvalidOrder, fmt.Sprintf("row %d", order.Row), err)
	}
	run := newOrderRun(number)

	if err := drv.Fill(ctx, order); err != nil {
		return nil, run.fail(err)
	}
	if err := p.submit(ctx, drv, run); err != nil {
		return nil, run.fail(err)
	}
	run.transition(StateSubmitted)

	pdfPath := p.cfg.Output.ReceiptPath(number)
	shotPath := p.cfg.Output.ScreenshotPath(number)

	markup, err := drv.CaptureReceipt(ctx, pdfPath)
	if err != nil {
		return nil, run.fail(err)
	}
	if err := drv.CaptureScreenshot(ctx, shotPath); err != nil {
		return nil, run.fail(err)
	}
	if err := p.composer.Embed(shotPath, pdfPath); err != nil {
		return nil, run.fail(err)
	}

	info, err := receipt.Parse(markup)
	if err != nil || info.ID == "" {
		run.log.Warn("receipt id not found in markup", "error", err)
	}
	md, err := p.summarizer.Markdown(markup, siteDomain(p.cfg.Site.OrderPageURL))
	if err != nil {
		run.log.Warn("receipt summary failed", "error", err)
	}

	if err := drv.OrderAnother(ctx); err != nil {
		return nil, run.fail(err)
	}
	run.transition(StateCaptured)
	run.log.Info("order captured", "receipt", info.ID, "attempts", run.attempts, "pdf", pdfPath)

	return &models.OrderResult{
		Number:     number,
		Receipt:    info,
		Attempts:   run.attempts,
		PDFPath:    pdfPath,
		Screenshot: shotPath,
		Markdown:   md,
	}, nil
}

// submit clicks the order button until the site confirms the order, at most
// SubmitAttempts times, waiting SubmitBackoff (doubled after each miss)
// between attempts.
func (p *Pipeline) submit(ctx context.Context, drv FormDriver, run *orderRun) error {
	backoff := p.cfg.Run.SubmitBackoff
	maxAttempts := p.cfg.Run.SubmitAttempts

	for run.attempts < maxAttempts {
		run.attempts++
		confirmed, err := drv.Submit(ctx)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}
		if run.attempts == maxAttempts {
			break
		}

		run.log.Warn("order not confirmed, retrying",
			"attempt", run.attempts,
			"maxAttempts", maxAttempts,
			"backoff", backoff.String(),
		)
		select {
		case <-ctx.Done():
			return models.NewRunError(models.ErrCodeTimeout, "run canceled", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return models.NewRunError(models.ErrCodeSubmit,
		fmt.Sprintf("order %d not confirmed after %d attempts", run.number, run.attempts), nil)
}

// validate checks every order before the browser starts, so a bad row
// cannot leave the run half-submitted.
func validate(orders []models.Order) error {
	seen := make(map[int]int, len(orders))
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
		n, _ := o.FileNumber()
		if prev, dup := seen[n]; dup {
			slog.Warn("duplicate order number, later receipt replaces the earlier one",
				"order", n, "rows", []int{prev, o.Row})
		}
		seen[n] = o.Row
	}
	return nil
}

func siteDomain(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Host
}
