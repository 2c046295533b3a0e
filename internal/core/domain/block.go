// Package domain contains the core types of the render cache.
package domain

// MarkerLanguage is the reserved language identifier that tags a fenced
// block as typeset source.
const MarkerLanguage = "typst"

// DirectivePrefix marks the optional first line of a block that carries
// inline style overrides for the container the artifact is rendered into.
// The directive line is not part of the hashed source.
const DirectivePrefix = "%%"

// SourceBlock is a typeset-source fragment extracted from a document.
// It is transient: blocks are produced by scanning a document and are
// never persisted.
type SourceBlock struct {
	// Document is the owning document id (cleaned vault-relative path).
	Document string

	// Source is the raw typeset source with the directive line, if any,
	// already stripped.
	Source string

	// Style carries the directive-line overrides, empty when absent.
	Style string

	// StartLine and EndLine delimit the block content in the document,
	// 1-based and inclusive.
	StartLine int
	EndLine   int
}

// RenderRequest describes a single invocation of the render pipeline.
type RenderRequest struct {
	Source string
	Hash   string
	Style  string
}

// Artifact is the rendered output associated with a content hash.
type Artifact struct {
	Hash string

	// Markup is the vector markup. The cache stores it unprefixed;
	// served copies carry a fresh identifier prefix.
	Markup []byte

	// Raster holds the optional secondary raster image, nil when raster
	// generation is disabled.
	Raster []byte
}
