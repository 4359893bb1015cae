// Package diskspace reports free space available to the current user on a filesystem.
package diskspace

import "errors"

// ErrUnsupported returned on platforms without free space reporting
var ErrUnsupported = errors.New("free space check is not supported on this platform")
