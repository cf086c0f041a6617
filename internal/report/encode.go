package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"

	"gocompare/domain/comparison"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatMarkdown), string(FormatHTML)}
}

// ParseFormat accepts a format name, case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	case FormatJSON, FormatYAML, FormatMarkdown, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want one of %s)", s, strings.Join(Formats(), ", "))
	}
}

// ContentType returns the media type of a format.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Encode renders a report in the given format.
func Encode(r *comparison.Report, f Format) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		return EncodeJSON(r)
	case FormatYAML:
		return EncodeYAML(r)
	case FormatMarkdown:
		return EncodeMarkdown(r), nil
	case FormatHTML:
		return EncodeHTML(r), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// EncodeJSON is the structured-text result: the metric → record mapping,
// indented by two spaces, in request order.
func EncodeJSON(r *comparison.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document(r)); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeYAML renders the same mapping as YAML.
func EncodeYAML(r *comparison.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Document(r)); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeMarkdown renders a human-readable summary, one section per metric.
func EncodeMarkdown(r *comparison.Report) []byte {
	var b strings.Builder
	b.WriteString("# Group comparison\n\n")

	for _, m := range r.Metrics {
		fmt.Fprintf(&b, "## %s\n\n", escapeText(m.Metric))
		if m.Failed() {
			fmt.Fprintf(&b, "**Error:** %s\n\n", escapeText(m.Error))
		}
		if len(m.Descriptive) > 0 {
			writeDescriptiveTable(&b, m)
		}
		if m.Test != nil {
			fmt.Fprintf(&b, "**%s**: statistic = %s, p = %s\n\n",
				m.Test.Name, formatNumber(m.Test.Statistic), formatNumber(m.Test.PValue))
		}
		if m.Kind == comparison.KindComplete {
			fmt.Fprintf(&b, "All groups plausibly normal: %t\n\n", m.AllNormal)
		}
		if m.PostHoc != nil {
			writePostHocTable(&b, *m.PostHoc)
		}
		if m.PostHocReason != "" {
			fmt.Fprintf(&b, "Post-hoc skipped: %s\n\n", escapeText(m.PostHocReason))
		}
	}
	return []byte(b.String())
}

// EncodeHTML renders the Markdown summary as a standalone HTML page. Column
// names and group labels come from user input, so raw HTML is never emitted.
func EncodeHTML(r *comparison.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
		Title: "Group comparison",
	})
	return markdown.ToHTML(EncodeMarkdown(r), p, renderer)
}

func writeDescriptiveTable(b *strings.Builder, m comparison.MetricReport) {
	normality := make(map[string]comparison.NormalityVerdict, len(m.Normality))
	for _, n := range m.Normality {
		normality[n.Label] = n.Verdict
	}

	b.WriteString("| group | n | mean | std | min | 25% | median | 75% | max | Shapiro-Wilk p |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, d := range m.Descriptive {
		s := d.Stats
		p := "n/a"
		if v, ok := normality[d.Label]; ok && v.Determinate {
			p = formatNumber(v.PValue)
		}
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escapeText(d.Label), s.Count, formatNumber(s.Mean), formatNumber(s.Std),
			formatNumber(s.Min), formatNumber(s.Q1), formatNumber(s.Median),
			formatNumber(s.Q3), formatNumber(s.Max), p)
	}
	b.WriteString("\n")
}

func writePostHocTable(b *strings.Builder, p comparison.PostHocResult) {
	fmt.Fprintf(b, "### %s\n\n", p.Name)

	hasDiff := false
	for _, c := range p.Pairs {
		if c.MeanDiff != nil {
			hasDiff = true
			break
		}
	}

	if hasDiff {
		b.WriteString("| pair | diff | p | reject |\n|---|---|---|---|\n")
	} else {
		b.WriteString("| pair | p | reject |\n|---|---|---|\n")
	}

	for _, c := range p.Pairs {
		if hasDiff {
			diff := "n/a"
			if c.MeanDiff != nil {
				diff = formatNumber(*c.MeanDiff)
			}
			fmt.Fprintf(b, "| %s | %s | %s | %t |\n", escapeText(c.Pair()), diff, formatNumber(c.PValue), c.Reject)
		} else {
			fmt.Fprintf(b, "| %s | %s | %t |\n", escapeText(c.Pair()), formatNumber(c.PValue), c.Reject)
		}
	}
	b.WriteString("\n")
}

func formatNumber(x float64) string {
	n := number(x)
	if !n.defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", comparison.Round(x))
}

// markdownEscaper backslash-escapes text taken from the input so it renders
// literally.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
)

func escapeText(s string) string {
	return markdownEscaper.Replace(s)
}
