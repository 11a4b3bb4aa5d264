package printer

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/moksha-hub/metabrainz-har/internal/loader"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET    *color.Color
	MethodPOST   *color.Color
	MethodPUT    *color.Color
	MethodDELETE *color.Color
	MethodPATCH  *color.Color
	HeaderKey    *color.Color
	HeaderValue  *color.Color
	Separator    *color.Color
	URL          *color.Color
	MimeType     *color.Color
	BodyContent  *color.Color
	Muted        *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		MethodGET:    color.New(color.FgBlue, color.Bold),
		MethodPOST:   color.New(color.FgGreen, color.Bold),
		MethodPUT:    color.New(color.FgYellow, color.Bold),
		MethodDELETE: color.New(color.FgRed, color.Bold),
		MethodPATCH:  color.New(color.FgMagenta, color.Bold),
		HeaderKey:    color.New(color.FgCyan),
		HeaderValue:  color.New(color.FgWhite),
		Separator:    color.New(color.FgYellow, color.Bold),
		URL:          color.New(color.FgHiBlue),
		MimeType:     color.New(color.FgHiMagenta),
		BodyContent:  color.New(color.FgWhite),
		Muted:        color.New(color.FgHiBlack),
	}
}

// ConsolePrinter renders results as colored tables and blocks.
type ConsolePrinter struct {
	colorScheme *ColorScheme
	logger      logger.Logger
}

// NewConsolePrinter creates a console printer.
func NewConsolePrinter(log logger.Logger) *ConsolePrinter {
	return &ConsolePrinter{colorScheme: NewColorScheme(), logger: log}
}

// getTerminalWidth gets the current terminal width with fallback
func (p *ConsolePrinter) getTerminalWidth() int {
	if testWidth := os.Getenv("MBHAR_TEST_WIDTH"); testWidth != "" {
		if width, err := strconv.Atoi(testWidth); err == nil {
			return clampWidth(width)
		}
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 100
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	switch {
	case width < 60:
		return 60
	case width > 180:
		return 180
	default:
		return width
	}
}

// methodColor picks the color for an HTTP method.
func (p *ConsolePrinter) methodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return p.colorScheme.MethodGET
	case "POST":
		return p.colorScheme.MethodPOST
	case "PUT":
		return p.colorScheme.MethodPUT
	case "DELETE":
		return p.colorScheme.MethodDELETE
	case "PATCH":
		return p.colorScheme.MethodPATCH
	default:
		return p.colorScheme.HeaderValue
	}
}

// PrintDetails renders the flattened URL summaries as an aligned table.
func (p *ConsolePrinter) PrintDetails(source string, details []capture.URLDetail) error {
	scheme := p.colorScheme
	scheme.Separator.Printf("━━━ %s ", source)
	scheme.Muted.Printf("(%s matched transactions)\n", humanize.Comma(int64(len(details))))

	if len(details) == 0 {
		scheme.Muted.Println("no transactions matched the domain allow-list")
		return nil
	}

	width := p.getTerminalWidth()
	// METHOD column plus mime column plus preview leave the rest for URL.
	urlWidth := width - 8 - 26 - 32
	if urlWidth < 20 {
		urlWidth = 20
	}

	for i, detail := range details {
		scheme.Muted.Printf("%3d ", i+1)
		p.methodColor(detail.Method).Printf("%-7s ", detail.Method)
		scheme.URL.Printf("%s ", runewidth.Truncate(detail.URL, urlWidth, "…"))
		if detail.ResponseType != "" {
			scheme.MimeType.Printf("[%s] ", runewidth.Truncate(detail.ResponseType, 24, "…"))
		}
		if detail.ResponsePreview != "" {
			scheme.Muted.Printf("%s", sanitizePreview(detail.ResponsePreview))
		}
		fmt.Println()
	}
	return nil
}

// PrintPairs renders each request/response pair as a block. Map order is
// random, so pairs are sorted by URL then method for readable output.
func (p *ConsolePrinter) PrintPairs(source string, pairs map[string]loader.Pair) error {
	scheme := p.colorScheme
	scheme.Separator.Printf("━━━ %s ", source)
	scheme.Muted.Printf("(%s request/response pairs)\n", humanize.Comma(int64(len(pairs))))

	ordered := make([]loader.Pair, 0, len(pairs))
	for _, pair := range pairs {
		ordered = append(ordered, pair)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Request.URL != ordered[j].Request.URL {
			return ordered[i].Request.URL < ordered[j].Request.URL
		}
		return ordered[i].Request.Method < ordered[j].Request.Method
	})

	for _, pair := range ordered {
		fmt.Println()
		p.methodColor(pair.Request.Method).Printf("%s ", pair.Request.Method)
		scheme.URL.Println(pair.Request.URL)

		p.printStringMap("headers", pair.Request.Headers)
		if pair.Request.QueryParams != nil {
			p.printStringMap("query", pair.Request.QueryParams)
		}
		if body := formatRequestBody(pair.Request.Body); body != "" {
			scheme.HeaderKey.Println("  body:")
			for _, line := range strings.Split(body, "\n") {
				scheme.BodyContent.Printf("    %s\n", line)
			}
		}

		scheme.HeaderKey.Print("  response: ")
		if pair.Response.Type != "" {
			scheme.MimeType.Printf("%s ", pair.Response.Type)
		}
		scheme.Muted.Printf("(%s)\n", humanize.Bytes(uint64(len(pair.Response.Text))))
		if snippet := ResponseSnippet(pair.Response); snippet != "" {
			scheme.BodyContent.Printf("    %s\n", snippet)
		}
	}
	return nil
}

func (p *ConsolePrinter) printStringMap(label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	p.colorScheme.HeaderKey.Printf("  %s:\n", label)
	for _, key := range keys {
		p.colorScheme.HeaderKey.Printf("    %s: ", key)
		p.colorScheme.HeaderValue.Println(m[key])
	}
}

// sanitizePreview collapses whitespace so a preview stays on one table row.
func sanitizePreview(preview string) string {
	return strings.Join(strings.Fields(preview), " ")
}
