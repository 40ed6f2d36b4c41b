package models

// Receipt holds the fields read from the confirmation markup shown after a
// successful order.
type Receipt struct {
	// ID is the site's receipt identifier, e.g. "RSB-ROBO-ORDER-7X3K1Q".
	ID      string   `json:"id"`
	Date    string   `json:"date,omitempty"`
	Address string   `json:"address,omitempty"`
	Parts   []string `json:"parts,omitempty"`
}

// OrderResult describes one order that reached the Captured state.
type OrderResult struct {
	Number     int     `json:"order_number"`
	Receipt    Receipt `json:"receipt"`
	Attempts   int     `json:"attempts"`
	PDFPath    string  `json:"pdf_path"`
	Screenshot string  `json:"screenshot_path"`

	// Markdown is a plain-text rendering of the receipt markup.
	Markdown string `json:"markdown,omitempty"`
}

// RunSummary is the outcome of a pipeline run.
type RunSummary struct {
	Orders      []OrderResult `json:"orders"`
	ArchivePath string        `json:"archive_path,omitempty"`
	DurationMs  int64         `json:"duration_ms"`
	Error       *ErrorDetail  `json:"error,omitempty"`
}

// ErrorDetail is the structured error reported in a RunSummary.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToDetail converts a RunError to an ErrorDetail.
func (e *RunError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Error()}
}
