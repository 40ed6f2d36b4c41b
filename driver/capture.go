package driver

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orderbot/models"
	"github.com/use-agent/orderbot/receipt"
)

// CaptureReceipt prints the inner markup of the receipt region to a PDF at
// path and returns that markup. The markup is read from the rendered form
// tab and printed from a separate tab so the form keeps its state.
func (d *Driver) CaptureReceipt(ctx context.Context, path string) (string, error) {
	p, cancel := d.withTimeout(ctx)
	defer cancel()

	if _, err := p.Element(d.site.ReceiptSelector); err != nil {
		return "", categorizeError(err, models.ErrCodeCapture, "receipt region missing")
	}
	pageHTML, err := p.HTML()
	if err != nil {
		return "", categorizeError(err, models.ErrCodeCapture, "failed to read page HTML")
	}
	markup, err := receipt.Extract(pageHTML, d.site.ReceiptSelector)
	if err != nil {
		return "", models.NewRunError(models.ErrCodeCapture, "receipt region missing", err)
	}

	printer, err := d.printerPage()
	if err != nil {
		return "", err
	}
	pp := printer.Context(p.GetContext())
	if err := pp.SetDocumentContent(receipt.Document(markup)); err != nil {
		return "", categorizeError(err, models.ErrCodeCapture, "failed to load receipt for printing")
	}

	stream, err := pp.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return "", categorizeError(err, models.ErrCodeCapture, "failed to print receipt")
	}
	pdf, err := io.ReadAll(stream)
	if err != nil {
		return "", models.NewRunError(models.ErrCodeCapture, "failed to read printed receipt", err)
	}

	if err := writeArtifact(path, pdf); err != nil {
		return "", err
	}
	return markup, nil
}

// CaptureScreenshot saves a PNG cropped to the product preview region once
// its images have loaded.
func (d *Driver) CaptureScreenshot(ctx context.Context, path string) error {
	p, cancel := d.withTimeout(ctx)
	defer cancel()

	preview, err := p.Element(d.site.PreviewSelector)
	if err != nil {
		return categorizeError(err, models.ErrCodeCapture, "preview region missing")
	}
	if err := preview.WaitVisible(); err != nil {
		return categorizeError(err, models.ErrCodeCapture, "preview region not visible")
	}

	imgs, err := preview.Elements("img")
	if err != nil {
		return categorizeError(err, models.ErrCodeCapture, "failed to list preview images")
	}
	for _, img := range imgs {
		if err := img.WaitLoad(); err != nil {
			return categorizeError(err, models.ErrCodeCapture, "preview image did not load")
		}
	}

	png, err := preview.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return categorizeError(err, models.ErrCodeCapture, "failed to capture preview")
	}
	return writeArtifact(path, png)
}

// printerPage lazily opens the tab used for printing receipts.
func (d *Driver) printerPage() (*rod.Page, error) {
	if d.printer != nil {
		return d.printer, nil
	}
	page, err := d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to open print tab", err)
	}
	d.printer = page
	return page, nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewRunError(models.ErrCodeCapture, "failed to create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewRunError(models.ErrCodeCapture, "failed to write "+path, err)
	}
	return nil
}
