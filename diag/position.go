package diag

// Position is a 1-based line and column in the source text.
type Position struct {
	Line int
	Col  int
}

// PositionOf converts a byte offset into a line/column pair. Offsets past
// the end of source resolve to the position just after the last byte.
func PositionOf(source string, offset int) Position {
	if offset > len(source) {
		offset = len(source)
	}
	pos := Position{Line: 1, Col: 1}
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			pos.Line++
			pos.Col = 1
		} else {
			pos.Col++
		}
	}
	return pos
}

// Snippet returns the source text covered by span, clamped to source.
func Snippet(source string, span Span) string {
	from, to := span.From, span.To
	if from < 0 {
		from = 0
	}
	if to > len(source) {
		to = len(source)
	}
	if from >= to {
		return ""
	}
	return source[from:to]
}
