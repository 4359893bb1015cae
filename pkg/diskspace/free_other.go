//go:build !unix

package diskspace

// Free is not implemented on this platform
func Free(string) (int64, error) {
	return 0, ErrUnsupported
}
