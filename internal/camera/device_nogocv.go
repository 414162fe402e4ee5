//go:build !gocv

package camera

import (
	"context"
	"fmt"
)

// CaptureSupported reports whether this build can open real devices.
const CaptureSupported = false

// Open always fails: this build has no capture backend. Rebuild with
// -tags gocv to enable cameras.
func (d *Device) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil, fmt.Errorf("%w: built without capture support (rebuild with -tags gocv)", ErrUnavailable)
}
