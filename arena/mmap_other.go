//go:build !unix

package arena

// NewMapped falls back to a Go heap block on platforms without anonymous
// mappings.
func NewMapped(size int) (*Arena, error) {
	return New(size)
}
