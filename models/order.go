package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names the orders CSV must carry.
const (
	ColOrderNumber = "Order number"
	ColHead        = "Head"
	ColBody        = "Body"
	ColLegs        = "Legs"
	ColAddress     = "Address"
)

// RequiredColumns lists the columns every orders file must have, in file order.
var RequiredColumns = []string{ColOrderNumber, ColHead, ColBody, ColLegs, ColAddress}

// HeadOption is one entry of the head selection table.
type HeadOption struct {
	Code  string
	Label string
}

// HeadOptions maps the single-digit head codes used in the orders file to the
// option labels shown in the form's head <select>. Order matches the codes.
var HeadOptions = [...]HeadOption{
	{"1", "Roll-a-thor head"},
	{"2", "Peanut crusher head"},
	{"3", "D.A.V.E head"},
	{"4", "Andy Roid head"},
	{"5", "Spanner mate head"},
	{"6", "Drillbit 2000 head"},
}

// HeadLabel resolves a head code to its option label. Unknown codes return
// ("", false).
func HeadLabel(code string) (string, bool) {
	code = strings.TrimSpace(code)
	for _, h := range HeadOptions {
		if h.Code == code {
			return h.Label, true
		}
	}
	return "", false
}

// Order is one row of the orders CSV.
//
// Columns holds every column of the row keyed by its verbatim header; the
// named fields are copies of the required columns.
type Order struct {
	// Row is the 1-based data row in the source file (header excluded).
	Row int

	Number  string
	Head    string
	Body    string
	Legs    string
	Address string

	Columns map[string]string
}

// NewOrder builds an Order from a header → value mapping.
func NewOrder(row int, columns map[string]string) Order {
	return Order{
		Row:     row,
		Number:  columns[ColOrderNumber],
		Head:    columns[ColHead],
		Body:    columns[ColBody],
		Legs:    columns[ColLegs],
		Address: columns[ColAddress],
		Columns: columns,
	}
}

// FileNumber returns the order number as an integer. Artifact file names are
// derived from it, so "007" and "7" name the same files.
func (o Order) FileNumber() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(o.Number))
	if err != nil {
		return 0, fmt.Errorf("order number %q is not an integer", o.Number)
	}
	return n, nil
}

// BodyIndex returns the 1-based position of the body option to click.
func (o Order) BodyIndex() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(o.Body))
	if err != nil {
		return 0, fmt.Errorf("body %q is not an integer", o.Body)
	}
	if n < 1 {
		return 0, fmt.Errorf("body %d is not a positive index", n)
	}
	return n, nil
}

// HeadLabel resolves the order's head code.
func (o Order) HeadLabel() (string, error) {
	label, ok := HeadLabel(o.Head)
	if !ok {
		return "", fmt.Errorf("head code %q is not one of 1-6", o.Head)
	}
	return label, nil
}

// Validate checks every field the form needs. It returns an INVALID_ORDER
// RunError naming the row on the first problem found.
func (o Order) Validate() error {
	if _, err := o.FileNumber(); err != nil {
		return o.invalid(err)
	}
	if _, err := o.HeadLabel(); err != nil {
		return o.invalid(err)
	}
	if _, err := o.BodyIndex(); err != nil {
		return o.invalid(err)
	}
	return nil
}

func (o Order) invalid(err error) *RunError {
	return NewRunError(ErrCodeInvalidOrder, fmt.Sprintf("row %d", o.Row), err)
}
