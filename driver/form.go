package driver

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orderbot/models"
)

// Fill sets every form field from the order: head by option label, body by
// 1-based position among the body options, then the legs part number and
// the address. The body index is checked against the options on the page.
func (d *Driver) Fill(ctx context.Context, order models.Order) error {
	label, err := order.HeadLabel()
	if err != nil {
		return models.NewRunError(models.ErrCodeInvalidOrder, "order "+order.Number, err)
	}
	bodyIndex, err := order.BodyIndex()
	if err != nil {
		return models.NewRunError(models.ErrCodeInvalidOrder, "order "+order.Number, err)
	}

	p, cancel := d.withTimeout(ctx)
	defer cancel()

	head, err := p.Element(d.site.HeadSelector)
	if err != nil {
		return elementError(err, d.site.HeadSelector)
	}
	if err := head.Select([]string{"^" + regexp.QuoteMeta(label) + "$"}, true, rod.SelectorTypeRegex); err != nil {
		return categorizeError(err, models.ErrCodeElement, fmt.Sprintf("failed to select head %q", label))
	}

	bodies, err := p.ElementsX(d.site.BodyOptionsXPath)
	if err != nil {
		return elementError(err, d.site.BodyOptionsXPath)
	}
	if bodyIndex > len(bodies) {
		return models.NewRunError(models.ErrCodeInvalidOrder,
			fmt.Sprintf("order %s: body %d out of range, page offers %d options", order.Number, bodyIndex, len(bodies)), nil)
	}
	if err := bodies[bodyIndex-1].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return categorizeError(err, models.ErrCodeElement, fmt.Sprintf("failed to click body %d", bodyIndex))
	}

	if err := fillInput(p, d.site.LegsSelector, order.Legs); err != nil {
		return err
	}
	return fillInput(p, d.site.AddressSelector, order.Address)
}

// Submit clicks the order button once and waits for the outcome. It
// reports true when the "order another" control appears, and false when the
// site shows its error alert instead or nothing appears in time. The form keeps its values either way,
// so a false result can be retried by calling Submit again.
func (d *Driver) Submit(ctx context.Context) (bool, error) {
	p, cancel := d.withTimeout(ctx)
	defer cancel()

	btn, err := p.Element(d.site.OrderSelector)
	if err != nil {
		return false, elementError(err, d.site.OrderSelector)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, categorizeError(err, models.ErrCodeElement, "failed to click order button")
	}

	confirmed := false
	onConfirm := func(*rod.Element) error {
		confirmed = true
		return nil
	}
	_, err = p.Race().
		Element(d.site.OrderAnotherSelector).Handle(onConfirm).
		Element(d.site.ErrorSelector).
		Do()
	if err != nil {
		// Neither control showed up within the action timeout: report an
		// unconfirmed attempt unless the run itself is over.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return false, nil
		}
		return false, categorizeError(err, models.ErrCodeSubmit, "no confirmation after submitting")
	}
	return confirmed, nil
}

// OrderAnother returns the form to its initial state after a confirmed
// order and dismisses the dialog that follows.
func (d *Driver) OrderAnother(ctx context.Context) error {
	p, cancel := d.withTimeout(ctx)
	defer cancel()

	btn, err := p.Element(d.site.OrderAnotherSelector)
	if err != nil {
		return elementError(err, d.site.OrderAnotherSelector)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return categorizeError(err, models.ErrCodeElement, "failed to click order another")
	}
	return d.dismissDialog(ctx)
}

// dismissDialog clicks the button whose text is exactly the configured label.
func (d *Driver) dismissDialog(ctx context.Context) error {
	p, cancel := d.withTimeout(ctx)
	defer cancel()

	btn, err := p.ElementR("button", "^"+regexp.QuoteMeta(d.site.DialogButtonText)+"$")
	if err != nil {
		return elementError(err, "button "+d.site.DialogButtonText)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return categorizeError(err, models.ErrCodeElement, "failed to dismiss dialog")
	}
	return nil
}

// fillInput replaces the content of a text input.
func fillInput(p *rod.Page, selector, value string) error {
	el, err := p.Element(selector)
	if err != nil {
		return elementError(err, selector)
	}
	if err := el.SelectAllText(); err != nil {
		return categorizeError(err, models.ErrCodeElement, "failed to clear "+selector)
	}
	if err := el.Input(value); err != nil {
		return categorizeError(err, models.ErrCodeElement, "failed to fill "+selector)
	}
	return nil
}
