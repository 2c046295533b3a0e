package renderer

import (
	"math/rand/v2"
	"regexp"
)

// Rendered artifacts are inlined into page documents, so their internal
// element identifiers must not collide across artifacts, or across two
// embeddings of the same artifact. The cache stores unprefixed markup
// and a fresh prefix is applied on every serve.

const prefixLen = 4

var (
	idAttrPattern  = regexp.MustCompile(`\bid="([^"]*)"`)
	urlRefPattern  = regexp.MustCompile(`url\(#([^)]+)\)`)
	hrefRefPattern = regexp.MustCompile(`\b(xlink:href|href)="#([^"]*)"`)
)

// NewPrefix returns a random 4-letter alphabetic identifier prefix.
func NewPrefix() string {
	buf := make([]byte, prefixLen)
	for i := range buf {
		buf[i] = byte('a' + rand.IntN(26))
	}
	return string(buf)
}

// ApplyPrefix rewrites every internal element identifier in the vector
// markup, prepending the prefix to id attributes and to the references
// that point at them.
func ApplyPrefix(markup []byte, prefix string) []byte {
	out := idAttrPattern.ReplaceAll(markup, []byte(`id="`+prefix+`${1}"`))
	out = urlRefPattern.ReplaceAll(out, []byte(`url(#`+prefix+`${1})`))
	out = hrefRefPattern.ReplaceAll(out, []byte(`${1}="#`+prefix+`${2}"`))
	return out
}

// StripPrefix removes a previously applied prefix again. Tests use it to
// compare served artifacts structurally, ignoring the random prefix.
func StripPrefix(markup []byte, prefix string) []byte {
	out := regexp.MustCompile(`\bid="`+prefix+`([^"]*)"`).ReplaceAll(markup, []byte(`id="${1}"`))
	out = regexp.MustCompile(`url\(#`+prefix+`([^)]+)\)`).ReplaceAll(out, []byte(`url(#${1})`))
	out = regexp.MustCompile(`\b(xlink:href|href)="#`+prefix+`([^"]*)"`).ReplaceAll(out, []byte(`${1}="#${2}"`))
	return out
}
