package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/strager/chocowat/diag"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

const bannerWidth = 50

// displayMessage prints a tagged one-line message.
func displayMessage(w io.Writer, style *pterm.Style, color pterm.Color, tag, msg string) {
	fmt.Fprintln(w, style.Sprint(tag)+" "+color.Sprint(msg))
}

// displayCompileError prints the banner, the message and, when the error
// carries a position, the offending source lines with the span underlined.
func displayCompileError(w io.Writer, filename, source string, err *diag.Error) {
	displayBanner(w, err.Kind.String(), filename)
	fmt.Fprintln(w, err.Msg)
	if !err.Span.IsZero() {
		displayCodeSelection(w, source, err.Span)
	}
}

func displayBanner(w io.Writer, kind, filename string) {
	name := filepath.Base(filename)
	dashCount := bannerWidth - len(kind) - len(name) - 1
	if dashCount < 3 {
		dashCount = 3
	}
	fmt.Fprint(w, "\n-- ", ErrorStyleBG.Sprint(kind), " ", strings.Repeat("-", dashCount), " ")
	fmt.Fprintln(w, InfoColorFG.Sprint(name))
}

// displayCodeSelection prints the lines covered by span, with line numbers,
// and a row of carets under the selected text of each line.
func displayCodeSelection(w io.Writer, source string, span diag.Span) {
	start := diag.PositionOf(source, span.From)
	end := diag.PositionOf(source, span.To)
	// Columns are 0-based below.
	startCol, endCol := start.Col-1, end.Col-1
	if end.Line > start.Line && endCol == 0 {
		// A span ending at a line break selects nothing on the next line.
		end.Line--
		endCol = -1
	}

	allLines := strings.Split(source, "\n")
	lines := allLines[start.Line-1 : end.Line]
	if endCol == -1 {
		endCol = len(lines[len(lines)-1])
	}

	minWhitespace := -1
	for _, line := range lines {
		leading := len(line) - len(strings.TrimLeft(line, " \t"))
		if minWhitespace == -1 || leading < minWhitespace {
			minWhitespace = leading
		}
	}

	numberWidth := len(strconv.Itoa(end.Line)) + 1
	numberFmt := "%-" + strconv.Itoa(numberWidth) + "v"

	fmt.Fprintln(w)
	for i, line := range lines {
		fmt.Fprint(w, InfoColorFG.Sprint(fmt.Sprintf(numberFmt, start.Line+i)), "|  ")
		fmt.Fprintln(w, line[minWhitespace:])

		from, to := minWhitespace, len(line)
		if i == 0 && startCol > from {
			from = startCol
		}
		if i == len(lines)-1 {
			to = endCol
		}
		if to <= from {
			// Empty spans still get one caret.
			to = from + 1
		}
		fmt.Fprint(w, strings.Repeat(" ", numberWidth), "|  ", strings.Repeat(" ", from-minWhitespace))
		fmt.Fprintln(w, ErrorColorFG.Sprint(strings.Repeat("^", to-from)))
	}
	fmt.Fprintln(w)
}
