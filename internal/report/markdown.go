package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docmirror/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing, e.g. as a
// CI job summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeFailures(md, summary)
	w.writePending(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("docmirror Crawl Report")
	md.PlainText("")

	md.CustomTable(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", markdown.Code(s.BaseURL)},
			{"Output", markdown.Code(s.OutputDir)},
			{"Method", s.Method},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(s)},
		},
	}, markdown.TableOptions{})
	md.PlainText("")
}

// writeCounts writes the page counts, the outcome chart and an alert.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, s *model.Summary) {
	md.H2("Pages")
	md.PlainText("")

	md.CustomTable(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Discovered", strconv.Itoa(s.Discovered)},
			{"Attempted", strconv.Itoa(s.Attempted)},
			{"Converted", strconv.Itoa(s.Converted)},
			{"Raw HTML fallback", strconv.Itoa(s.ConversionFallbacks)},
			{"Failed", strconv.Itoa(s.FailedTotal())},
			{"Skipped", strconv.Itoa(s.SkippedTotal())},
			{"Pending", strconv.Itoa(len(s.Pending))},
			{"Sitemap errors", strconv.Itoa(s.SitemapErrors)},
		},
	}, markdown.TableOptions{})
	md.PlainText("")

	if codes := s.SortedHTTPCodes(); len(codes) > 0 {
		rows := make([][]string, 0, len(codes))
		for _, code := range codes {
			rows = append(rows, []string{strconv.Itoa(code), strconv.Itoa(s.HTTPCodes[code])})
		}
		md.H3("HTTP status codes")
		md.PlainText("")
		md.CustomTable(markdown.TableSet{
			Header: []string{"Code", "Responses"},
			Rows:   rows,
		}, markdown.TableOptions{})
		md.PlainText("")
	}

	if s.Attempted > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	written := s.Converted - s.ConversionFallbacks
	if written > 0 {
		chart.LabelAndIntValue("Converted", uint64(written))
	}
	if s.ConversionFallbacks > 0 {
		chart.LabelAndIntValue("Raw HTML", uint64(s.ConversionFallbacks))
	}
	if n := s.FailedTotal(); n > 0 {
		chart.LabelAndIntValue("Failed", uint64(n))
	}
	if n := s.Skipped[model.SkipRobotsDenied] + s.Skipped[model.SkipNonHTML]; n > 0 {
		chart.LabelAndIntValue("Skipped", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.Cancelled:
		md.Warningf(
			"The crawl was cancelled. %d page(s) were left pending and can be fetched by running docmirror again.",
			len(s.Pending),
		)
	case s.Failed[model.FailureWrite] > 0:
		md.Cautionf(
			"%d page(s) could not be written to disk. Check the output directory.",
			s.Failed[model.FailureWrite],
		)
	case s.FailedTotal() > 0:
		md.Importantf(
			"%d page(s) failed to download.",
			s.FailedTotal(),
		)
	case len(s.Pending) > 0:
		md.Note("The page limit was reached before every URL was fetched.")
	case s.ConversionFallbacks > 0:
		md.Note("Some pages could not be converted and were saved as raw HTML.")
	default:
		md.Tip("Every discovered page was converted.")
	}
	md.PlainText("")
}

// writeFailures writes a table of pages that produced no file.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *model.Summary) {
	failed := s.FailedRecords()
	if len(failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, r := range failed {
		code := "-"
		if r.StatusCode != 0 {
			code = strconv.Itoa(r.StatusCode)
		}
		msg := r.Error
		if msg == "" {
			msg = "-"
		}
		rows[i] = []string{r.URL, r.Status, code, escapeCell(truncateString(msg, 80))}
	}
	md.CustomTable(markdown.TableSet{
		Header: []string{"URL", "Status", "Code", "Error"},
		Rows:   rows,
	}, markdown.TableOptions{})
	md.PlainText("")
}

// writePending lists URLs left in the frontier.
func (w *MarkdownWriter) writePending(md *markdown.Markdown, s *model.Summary) {
	if len(s.Pending) == 0 {
		return
	}
	md.H2("Pending")
	md.PlainText("")
	md.BulletList(s.Pending...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText(markdown.Italic("Report generated by " + markdown.Link("docmirror", "https://github.com/nao1215/docmirror")))
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
