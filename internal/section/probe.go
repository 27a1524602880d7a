package section

import (
	"bytes"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"github.com/tdewolff/parse/v2/js"
)

// The style and script roles are dropped from the output when their files
// hold nothing real: whitespace, comments, and (for styles) a bare
// <style></style> wrapper do not count as content. The probes below run over
// a scratch copy only; when a slot survives, the original bytes are emitted
// verbatim.

var (
	styleOpenTag  = []byte("<style>")
	styleCloseTag = []byte("</style>")
)

// styleHasContent reports whether CSS content remains after tolerating
// comments, whitespace and an optional <style> tag wrapper.
func styleHasContent(b []byte) bool {
	scratch := bytes.ReplaceAll(b, styleOpenTag, nil)
	scratch = bytes.ReplaceAll(scratch, styleCloseTag, nil)

	l := css.NewLexer(parse.NewInputBytes(scratch))
	for {
		tt, _ := l.Next()
		switch tt {
		case css.ErrorToken:
			// Anything unlexable is kept rather than silently dropped.
			return l.Err() != io.EOF
		case css.WhitespaceToken, css.CommentToken:
			continue
		default:
			return true
		}
	}
}

// scriptHasContent reports whether JS content remains after tolerating
// comments, whitespace and line terminators.
func scriptHasContent(b []byte) bool {
	l := js.NewLexer(parse.NewInputBytes(b))
	for {
		tt, _ := l.Next()
		switch tt {
		case js.ErrorToken:
			return l.Err() != io.EOF
		case js.WhitespaceToken, js.LineTerminatorToken,
			js.CommentToken, js.CommentLineTerminatorToken:
			continue
		default:
			return true
		}
	}
}
