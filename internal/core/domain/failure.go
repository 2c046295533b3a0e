package domain

import "strings"

// RenderFailure is the structured failure payload of a render: the
// underlying process error plus whatever the renderer wrote to its
// standard streams. The host displays Diagnostic() in place of the
// artifact.
type RenderFailure struct {
	Err    error
	Stdout string
	Stderr string
}

// Error implements the error interface.
func (f *RenderFailure) Error() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return "render failed"
}

// Unwrap exposes the underlying process error to errors.Is/As.
func (f *RenderFailure) Unwrap() error {
	return f.Err
}

// Is matches the ErrRenderFailed sentinel, so callers can classify the
// failure without losing the structured payload.
func (f *RenderFailure) Is(target error) bool {
	return target == ErrRenderFailed
}

// Diagnostic returns the combined error/stdout/stderr text shown to the
// user in place of the expected artifact.
func (f *RenderFailure) Diagnostic() string {
	var b strings.Builder
	b.WriteString(f.Error())
	if out := strings.TrimSpace(f.Stdout); out != "" {
		b.WriteString("\n--- stdout ---\n")
		b.WriteString(out)
	}
	if errOut := strings.TrimSpace(f.Stderr); errOut != "" {
		b.WriteString("\n--- stderr ---\n")
		b.WriteString(errOut)
	}
	return b.String()
}
