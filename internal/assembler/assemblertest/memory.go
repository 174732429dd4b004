// Package assemblertest provides a shared, in-memory assembler.ContentOpener
// for use across the profile packages' tests.
package assemblertest

import (
	"context"
	"io"
	"strings"
)

// MemoryOpener resolves a ModelFile's ContentLocator to bytes held in a
// plain map, keyed by locator.
type MemoryOpener map[string]string

func (m MemoryOpener) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	body, ok := m[locator]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}

	return io.NopCloser(strings.NewReader(body)), nil
}
