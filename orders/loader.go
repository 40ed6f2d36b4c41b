package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/models"
)

// Loader fetches the orders CSV, persists it locally and parses it.
type Loader struct {
	cfg        config.OrdersConfig
	timeout    time.Duration
	downloader *downloader
}

// NewLoader creates a Loader. timeout bounds the download; zero means no
// deadline beyond the caller's context.
func NewLoader(cfg config.OrdersConfig, timeout time.Duration) *Loader {
	return &Loader{
		cfg:        cfg,
		timeout:    timeout,
		downloader: newDownloader(cfg.Proxy),
	}
}

// Load downloads the CSV to the configured file (replacing any previous
// copy) and returns its rows in file order. Nothing is written when the
// download fails.
func (l *Loader) Load(ctx context.Context) ([]models.Order, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	body, err := l.downloader.fetch(ctx, l.cfg.URL)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeDownload, "failed to download orders", err)
	}
	slog.Info("orders downloaded", "url", l.cfg.URL, "bytes", len(body))

	if err := writeFileReplace(l.cfg.File, body); err != nil {
		return nil, models.NewRunError(models.ErrCodeDownload, "failed to save orders file", err)
	}

	f, err := os.Open(l.cfg.File)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeParse, "failed to open orders file", err)
	}
	defer f.Close()

	orders, err := Parse(f)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeParse, fmt.Sprintf("failed to parse %s", l.cfg.File), err)
	}
	slog.Info("orders parsed", "file", l.cfg.File, "orders", len(orders))
	return orders, nil
}

// Parse reads a CSV with a header row. Every value stays a string and the
// headers are kept verbatim; the required columns must all be present.
func Parse(r io.Reader) ([]models.Order, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("orders file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}
	for _, col := range models.RequiredColumns {
		if !seen[col] {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var orders []models.Order
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		columns := make(map[string]string, len(header))
		for i, h := range header {
			columns[h] = record[i]
		}
		orders = append(orders, models.NewOrder(row, columns))
	}
	return orders, nil
}

// writeFileReplace writes data next to path and renames it into place, so a
// failed write never leaves a truncated orders file behind.
func writeFileReplace(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".orders-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
