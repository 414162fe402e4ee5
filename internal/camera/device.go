package camera

import (
	"io"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Device is the system video capture device. Capture support is compiled in
// with the gocv build tag; without it Open always fails with ErrUnavailable.
type Device struct {
	Log logrus.FieldLogger
}

// NewDevice returns a Device that logs to log. A nil logger discards output.
func NewDevice(log logrus.FieldLogger) *Device {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Device{Log: log}
}

// deviceSource maps a DeviceID onto the value the capture backend expects.
func deviceSource(id string) interface{} {
	if id == "" {
		return 0
	}
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}
