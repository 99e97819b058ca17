package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/docmirror/internal/database"
	"github.com/nao1215/docmirror/internal/model"
)

// HistoryWriter renders run history listings.
type HistoryWriter struct {
	baseWriter
	format string
}

// NewHistoryWriter returns a HistoryWriter for format, which is one of
// FormatText, FormatMarkdown or FormatJSON.
func NewHistoryWriter(format string, output io.Writer) (*HistoryWriter, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatMarkdown, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &HistoryWriter{baseWriter: newBaseWriter(output), format: format}, nil
}

// WriteRuns lists runs, newest first as given.
func (w *HistoryWriter) WriteRuns(runs []database.RunInfo) (int, error) {
	switch w.format {
	case FormatJSON:
		return NewJSONWriter(w.output, WithPrettyPrint()).writeJSON(runsJSON(runs))
	case FormatMarkdown:
		md := markdown.NewMarkdown(w.output)
		md.H1("docmirror Run History")
		md.PlainText("")
		if len(runs) == 0 {
			md.PlainText("No runs recorded.")
			return len(md.String()), md.Build()
		}
		md.CustomTable(markdown.TableSet{
			Header: []string{"ID", "Started", "Base URL", "Method", "Converted", "Failed", "Skipped", "Pending", "Status"},
			Rows:   runRows(runs),
		}, markdown.TableOptions{})
		return len(md.String()), md.Build()
	default:
		var sb strings.Builder
		if len(runs) == 0 {
			sb.WriteString("No runs recorded.\n")
		} else {
			writeTable(&sb, []string{"BASE URL", "ID", "STARTED", "METHOD", "CONVERTED", "FAILED", "SKIPPED", "PENDING", "STATUS"}, textRunRows(runs))
		}
		return io.WriteString(w.output, sb.String())
	}
}

// WritePages lists the page records of one stored run.
func (w *HistoryWriter) WritePages(id int64, summary *model.Summary) (int, error) {
	switch w.format {
	case FormatJSON:
		return NewJSONWriter(w.output, WithPrettyPrint()).Write(summary)
	case FormatMarkdown:
		md := markdown.NewMarkdown(w.output)
		md.H1("Run " + strconv.FormatInt(id, 10))
		md.PlainText("")
		md.PlainText(markdown.Code(summary.BaseURL) + " started " + summary.StartedAt.Format(time.DateTime))
		md.PlainText("")
		rows := make([][]string, 0, len(summary.Records))
		for _, r := range summary.Records {
			rows = append(rows, []string{r.URL, r.Status, orDash(r.OutputPath), escapeCell(orDash(r.Title))})
		}
		md.CustomTable(markdown.TableSet{
			Header: []string{"URL", "Status", "File", "Title"},
			Rows:   rows,
		}, markdown.TableOptions{})
		return len(md.String()), md.Build()
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "Run %d: %s (%s, started %s)\n\n", id, summary.BaseURL, summary.Method, summary.StartedAt.Local().Format(time.DateTime))
		rows := make([][]string, 0, len(summary.Records))
		for _, r := range summary.Records {
			rows = append(rows, []string{r.URL, r.Status, orDash(r.OutputPath)})
		}
		writeTable(&sb, []string{"URL", "STATUS", "FILE"}, rows)
		return io.WriteString(w.output, sb.String())
	}
}

// WriteDiff renders the difference between two runs.
func (w *HistoryWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	switch w.format {
	case FormatJSON:
		return NewJSONWriter(w.output, WithPrettyPrint()).writeJSON(diffJSON(diff))
	case FormatMarkdown:
		md := markdown.NewMarkdown(w.output)
		md.H1(fmt.Sprintf("Changes from run %d to run %d", diff.From, diff.To))
		md.PlainText("")
		if diff.Empty() {
			md.Tip("No page changed between the two runs.")
			return len(md.String()), md.Build()
		}
		if len(diff.Added) > 0 {
			md.H2("Added")
			md.PlainText("")
			md.BulletList(diff.Added...)
			md.PlainText("")
		}
		if len(diff.Removed) > 0 {
			md.H2("Removed")
			md.PlainText("")
			md.BulletList(diff.Removed...)
			md.PlainText("")
		}
		if len(diff.Changed) > 0 {
			md.H2("Changed")
			md.PlainText("")
			rows := make([][]string, 0, len(diff.Changed))
			for _, c := range diff.Changed {
				rows = append(rows, []string{c.URL, c.FromStatus, c.ToStatus, yesNo(c.ContentChanged)})
			}
			md.CustomTable(markdown.TableSet{
				Header: []string{"URL", "Before", "After", "Content changed"},
				Rows:   rows,
			}, markdown.TableOptions{})
		}
		return len(md.String()), md.Build()
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "Changes from run %d to run %d\n\n", diff.From, diff.To)
		if diff.Empty() {
			sb.WriteString("No changes.\n")
			return io.WriteString(w.output, sb.String())
		}
		for _, u := range diff.Added {
			fmt.Fprintf(&sb, "+ %s\n", u)
		}
		for _, u := range diff.Removed {
			fmt.Fprintf(&sb, "- %s\n", u)
		}
		for _, c := range diff.Changed {
			note := ""
			if c.ContentChanged {
				note = " (content changed)"
			}
			if c.FromStatus == c.ToStatus {
				fmt.Fprintf(&sb, "~ %s%s\n", c.URL, note)
			} else {
				fmt.Fprintf(&sb, "~ %s: %s -> %s%s\n", c.URL, c.FromStatus, c.ToStatus, note)
			}
		}
		fmt.Fprintf(&sb, "\n%d added, %d removed, %d changed\n", len(diff.Added), len(diff.Removed), len(diff.Changed))
		return io.WriteString(w.output, sb.String())
	}
}

func runStatus(r database.RunInfo) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Failed > 0:
		return "failures"
	default:
		return "complete"
	}
}

func runRows(runs []database.RunInfo) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(time.DateTime),
			r.BaseURL,
			r.Method,
			strconv.Itoa(r.Converted),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Pending),
			runStatus(r),
		})
	}
	return rows
}

// textRunRows puts the base URL first so that writeTable can truncate it.
func textRunRows(runs []database.RunInfo) [][]string {
	rows := runRows(runs)
	for i, row := range rows {
		rows[i] = append([]string{row[2], row[0], row[1]}, row[3:]...)
	}
	return rows
}

type runJSON struct {
	ID         int64     `json:"id"`
	BaseURL    string    `json:"base_url"`
	Method     string    `json:"method"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Converted  int       `json:"converted"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Pending    int       `json:"pending"`
	Cancelled  bool      `json:"cancelled"`
}

func runsJSON(runs []database.RunInfo) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, runJSON(r))
	}
	return out
}

type changeJSON struct {
	URL            string `json:"url"`
	FromStatus     string `json:"from_status"`
	ToStatus       string `json:"to_status"`
	ContentChanged bool   `json:"content_changed"`
}

type runDiffJSON struct {
	From    int64        `json:"from"`
	To      int64        `json:"to"`
	Added   []string     `json:"added"`
	Removed []string     `json:"removed"`
	Changed []changeJSON `json:"changed"`
}

func diffJSON(d *database.RunDiff) runDiffJSON {
	out := runDiffJSON{
		From:    d.From,
		To:      d.To,
		Added:   nonNil(d.Added),
		Removed: nonNil(d.Removed),
		Changed: make([]changeJSON, 0, len(d.Changed)),
	}
	for _, c := range d.Changed {
		out.Changed = append(out.Changed, changeJSON(c))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
