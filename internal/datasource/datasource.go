// Package datasource abstracts where raw input bytes come from (local disk,
// object storage) so readers such as csvsource stay location agnostic.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh stream of the underlying data. Callers close the
// returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
