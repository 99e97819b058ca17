package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/docmirror/internal/converter"
	"github.com/nao1215/docmirror/internal/model"
	"github.com/nao1215/docmirror/internal/output"
)

// outcome is one attempted URL on its way to the writer stage.
// page is nil when there is nothing to write.
type outcome struct {
	status model.Status
	record model.PageRecord
	page   *model.ConvertedPage
}

// writeStage consumes outcomes in dequeue order. It is the only goroutine
// that touches the summary and the path registry while the crawl runs.
//
// It drains the channel even after a fatal write error so the fetch loop
// never blocks on a send; halt stops the loop from fetching more. The
// first fatal error is returned once the channel is closed.
func (o *Orchestrator) writeStage(outcomes <-chan outcome, summary *model.Summary, halt context.CancelCauseFunc) error {
	var fatal error
	for out := range outcomes {
		rec := out.record
		if out.page != nil {
			if err := o.writePage(out.page, &rec, summary); err != nil && fatal == nil {
				fatal = fmt.Errorf("write stage: %w", err)
				halt(fatal)
			}
		} else {
			tallyFetch(out.status, summary)
		}
		summary.AddRecord(rec)
	}
	return fatal
}

// writePage writes one converted page and fills in rec. It returns an
// error only when the output root is unusable; other write failures are
// recorded on rec and in the summary.
func (o *Orchestrator) writePage(page *model.ConvertedPage, rec *model.PageRecord, summary *model.Summary) error {
	rel := o.mapper.Map(rec.URL)
	doc := converter.RenderDocument(*page)

	if err := o.writer.Write(rel, doc); err != nil {
		rec.Status = model.RecordWriteError
		rec.Error = err.Error()
		summary.Fail(model.FailureWrite)
		o.logger.Error("page write failed", "url", rec.URL, "path", rel, "error", err)
		if errors.Is(err, output.ErrOutputRoot) {
			return err
		}
		return nil
	}

	rec.Status = model.RecordConverted
	rec.OutputPath = rel
	rec.ComputeHash([]byte(page.Body))
	summary.Converted++
	if page.Fallback {
		summary.ConversionFallbacks++
		summary.Fail(model.FailureConversion)
	}
	o.logger.Info("page written", "url", rec.URL, "path", rel, "fallback", page.Fallback)
	return nil
}

func tallyFetch(status model.Status, summary *model.Summary) {
	switch status {
	case model.StatusHTTPError:
		summary.Fail(model.FailureHTTP)
	case model.StatusNetworkError:
		summary.Fail(model.FailureNetwork)
	case model.StatusRobotsDenied:
		summary.Skip(model.SkipRobotsDenied)
	case model.StatusSkippedNonHTML:
		summary.Skip(model.SkipNonHTML)
	}
}
