package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/seoflare/seoflare/internal/database"
)

// sampleLimit caps how many example URLs each issue section lists.
const sampleLimit = 10

// Writer renders crawl summaries as Markdown.
type Writer struct {
	output io.Writer
}

// NewWriter creates a Writer that renders to output.
func NewWriter(output io.Writer) *Writer {
	return &Writer{output: output}
}

// Write renders the full summary for a session database.
func (w *Writer) Write(ctx context.Context, cdb *database.CrawlDB) error {
	md := markdown.NewMarkdown(w.output)

	if err := w.writeHeader(ctx, md, cdb); err != nil {
		return err
	}
	if err := w.writeStatusBreakdown(ctx, md, cdb); err != nil {
		return err
	}
	if err := w.writeContentBreakdown(ctx, md, cdb); err != nil {
		return err
	}
	if err := w.writeIndexability(ctx, md, cdb); err != nil {
		return err
	}
	if err := w.writeBrokenInlinks(ctx, md, cdb); err != nil {
		return err
	}

	md.HorizontalRule()
	md.PlainText(fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02 15:04:05 MST")))
	return md.Build()
}

func (w *Writer) writeHeader(ctx context.Context, md *markdown.Markdown, cdb *database.CrawlDB) error {
	settings, err := cdb.LoadSettings(ctx)
	if err != nil {
		return err
	}
	total, err := cdb.CountTotal(ctx)
	if err != nil {
		return err
	}
	crawled, err := cdb.CountCrawled(ctx)
	if err != nil {
		return err
	}

	target := settings.StartURL
	if target == "" && len(settings.ListURLs) > 0 {
		target = fmt.Sprintf("%d listed URLs", len(settings.ListURLs))
	}

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + target + "`"},
			{"Mode", string(settings.Mode)},
			{"URLs Discovered", strconv.FormatInt(total, 10)},
			{"URLs Crawled", strconv.FormatInt(crawled, 10)},
			{"Session File", "`" + cdb.Path() + "`"},
		},
	})
	md.PlainText("")
	return nil
}

func (w *Writer) writeStatusBreakdown(ctx context.Context, md *markdown.Markdown, cdb *database.CrawlDB) error {
	rows := [][]string{}
	for _, entry := range []struct{ label, view string }{
		{"2xx Success", "status_2xx"},
		{"3xx Redirect", "status_3xx"},
		{"4xx Client Error", "status_4xx"},
		{"5xx Server Error", "status_5xx"},
		{"Unreachable", "failed"},
	} {
		n, err := cdb.CountView(ctx, entry.view)
		if err != nil {
			return err
		}
		rows = append(rows, []string{entry.label, strconv.FormatInt(n, 10)})
	}

	md.H2("Status Codes")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	return nil
}

func (w *Writer) writeContentBreakdown(ctx context.Context, md *markdown.Markdown, cdb *database.CrawlDB) error {
	rows := [][]string{}
	for _, entry := range []struct{ label, view string }{
		{"HTML", "content_html"},
		{"Images", "content_image"},
		{"Stylesheets", "content_css"},
		{"Scripts", "content_js"},
		{"Fonts", "content_font"},
		{"JSON", "content_json"},
		{"XML", "content_xml"},
	} {
		n, err := cdb.CountView(ctx, entry.view)
		if err != nil {
			return err
		}
		rows = append(rows, []string{entry.label, strconv.FormatInt(n, 10)})
	}

	md.H2("Content Types")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	return nil
}

func (w *Writer) writeIndexability(ctx context.Context, md *markdown.Markdown, cdb *database.CrawlDB) error {
	md.H2("Indexability")
	md.PlainText("")

	rows := [][]string{}
	for _, entry := range []struct{ label, view string }{
		{"Indexable", "crawl_ok"},
		{"Not Indexable", "crawl_not_ok"},
		{"Canonicalised", "crawl_canonicalised"},
		{"Blocked by robots.txt", "crawl_blocked"},
		{"Noindex", "crawl_noindex"},
	} {
		n, err := cdb.CountView(ctx, entry.view)
		if err != nil {
			return err
		}
		rows = append(rows, []string{entry.label, strconv.FormatInt(n, 10)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Classification", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, entry := range []struct{ title, view string }{
		{"Canonicalised Pages", "crawl_canonicalised"},
		{"Noindex Pages", "crawl_noindex"},
	} {
		urls, err := cdb.ViewURLs(ctx, entry.view, sampleLimit)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			continue
		}
		md.H3(entry.title)
		md.PlainText("")
		md.BulletList(urls...)
		md.PlainText("")
	}
	return nil
}

func (w *Writer) writeBrokenInlinks(ctx context.Context, md *markdown.Markdown, cdb *database.CrawlDB) error {
	broken, err := cdb.BrokenInlinks(ctx)
	if err != nil {
		return err
	}
	if len(broken) == 0 {
		return nil
	}

	md.H2("Broken Internal Links")
	md.PlainText("")

	rows := make([][]string, 0, len(broken))
	for i, b := range broken {
		if i == sampleLimit {
			break
		}
		rows = append(rows, []string{b[0], b[1], b[2]})
	}
	md.Table(markdown.TableSet{
		Header: []string{"From", "To", "Status"},
		Rows:   rows,
	})
	if len(broken) > sampleLimit {
		md.PlainText(fmt.Sprintf("… and %d more", len(broken)-sampleLimit))
	}
	md.PlainText("")
	return nil
}
