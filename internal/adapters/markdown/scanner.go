// Package markdown extracts typeset-source blocks from markdown
// documents using the goldmark AST.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

var _ ports.BlockScanner = (*Scanner)(nil)

// openingFencePattern matches an opening fence line tagged with the
// reserved language identifier. It is the fallback for blocks whose
// structural info string is ambiguous (e.g. empty after trimming).
var openingFencePattern = regexp.MustCompile("^(?:```+|~~~+)\\s*" + domain.MarkerLanguage + `(?:\s|$)`)

// Scanner implements ports.BlockScanner on top of goldmark.
type Scanner struct {
	md goldmark.Markdown
}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{md: goldmark.New()}
}

// Scan returns every fenced block in src tagged with the reserved
// language identifier, in document order. A leading directive line
// (DirectivePrefix) is split off into the block's Style and excluded
// from the source, so style edits never change the content hash.
func (s *Scanner) Scan(doc string, src []byte) []domain.SourceBlock {
	root := s.md.Parser().Parse(text.NewReader(src))
	if root == nil {
		return nil
	}

	var blocks []domain.SourceBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !s.isMarked(src, fcb) {
			return ast.WalkContinue, nil
		}

		content, start, end := fencedContent(src, fcb)
		source, style := splitDirective(content)

		startLine, endLine := 0, 0
		if start >= 0 {
			startLine = 1 + bytes.Count(src[:start], []byte("\n"))
			endLine = 1 + bytes.Count(src[:end], []byte("\n"))
			if end > start && src[end-1] == '\n' {
				endLine--
			}
		}

		blocks = append(blocks, domain.SourceBlock{
			Document:  doc,
			Source:    source,
			Style:     style,
			StartLine: startLine,
			EndLine:   endLine,
		})
		return ast.WalkContinue, nil
	})
	return blocks
}

// isMarked reports whether the fenced block carries the reserved
// language identifier, either structurally via the info string or, when
// that is ambiguous, via the opening fence line itself.
func (s *Scanner) isMarked(src []byte, fcb *ast.FencedCodeBlock) bool {
	if fcb.Info != nil {
		info := strings.TrimSpace(string(fcb.Info.Value(src)))
		if info != "" {
			lang, _, _ := strings.Cut(info, " ")
			return lang == domain.MarkerLanguage
		}
	}

	// Ambiguous structural type: pattern-match the opening fence line.
	lines := fcb.Lines()
	if lines == nil || lines.Len() == 0 {
		return false
	}
	start := lines.At(0).Start
	lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
	// The opening fence is the line above the first content line.
	if lineStart > 0 {
		prev := src[:lineStart-1]
		prevStart := bytes.LastIndexByte(prev, '\n') + 1
		opening := bytes.TrimLeft(prev[prevStart:], " \t")
		return openingFencePattern.Match(opening)
	}
	return false
}

// fencedContent concatenates the block's content lines and returns the
// byte offsets they span in src.
func fencedContent(src []byte, fcb *ast.FencedCodeBlock) (content string, start, end int) {
	lines := fcb.Lines()
	if lines == nil || lines.Len() == 0 {
		return "", -1, -1
	}

	start, end = -1, -1
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if seg.Start < 0 || seg.Stop < seg.Start || seg.Stop > len(src) {
			continue
		}
		if start == -1 || seg.Start < start {
			start = seg.Start
		}
		if seg.Stop > end {
			end = seg.Stop
		}
		buf.Write(src[seg.Start:seg.Stop])
	}
	return buf.String(), start, end
}

// splitDirective strips the optional directive first line and returns
// (source, style overrides).
func splitDirective(content string) (source, style string) {
	first, rest, found := strings.Cut(content, "\n")
	if !strings.HasPrefix(first, domain.DirectivePrefix) {
		return content, ""
	}
	style = strings.TrimSpace(strings.TrimPrefix(first, domain.DirectivePrefix))
	if !found {
		return "", style
	}
	return rest, style
}
