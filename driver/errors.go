package driver

import (
	"context"
	"errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/models"
	"github.com/ysmood/gson"
)

// categorizeError wraps raw rod errors into RunErrors. An expired action
// deadline is always a TIMEOUT; everything else keeps the caller's code.
func categorizeError(err error, code, msg string) *models.RunError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRunError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewRunError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewRunError(code, msg, err)
	}
}

// elementError reports a wait-then-act lookup that never found its element.
func elementError(err error, selector string) *models.RunError {
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return models.NewRunError(models.ErrCodeElement, selector, err)
	}
	return categorizeError(err, models.ErrCodeElement, selector)
}

// extraHeaders converts "Name: value" pairs to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func extraHeaders(pairs []string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(pairs))
	for _, h := range pairs {
		if name, value, ok := config.SplitHeader(h); ok {
			m[name] = gson.New(value)
		}
	}
	return m
}
