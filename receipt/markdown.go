package receipt

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// Summarizer renders receipt markup as Markdown for logs and notifications.
// The converter is created once and reused (goroutine-safe).
type Summarizer struct {
	conv *converter.Converter
}

// NewSummarizer creates a Summarizer.
//
//   - base plugin: strips script, style, input and the other form noise.
//   - commonmark plugin: headings, paragraphs, emphasis.
func NewSummarizer() *Summarizer {
	return &Summarizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Markdown converts receipt markup. domain resolves relative links and image
// sources against the order site.
func (s *Summarizer) Markdown(markup, domain string) (string, error) {
	md, err := s.conv.ConvertString(markup, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}
