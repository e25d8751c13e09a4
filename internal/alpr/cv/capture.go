package cv

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/monitoring"
	"github.com/banshee-data/plate.report/internal/timeutil"
)

var logf = monitoring.Component("capture")

// DevicePrefix selects a capture device instead of a file, e.g. "device:0".
const DevicePrefix = "device:"

// VideoSource reads frames from a video file or a live capture device.
// Device frames are stamped with the clock; file frames follow the file's
// own frame rate from the moment the file was opened, when it reports one.
type VideoSource struct {
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	clock    timeutil.Clock
	timeline timeutil.FrameTimeline
	timed    bool
	name     string
	next     int
}

// parseSource splits a source spec into a device id or a file path.
func parseSource(spec string) (device int, isDevice bool, err error) {
	dev, ok := strings.CutPrefix(spec, DevicePrefix)
	if !ok {
		if strings.TrimSpace(spec) == "" {
			return 0, false, fmt.Errorf("empty video source")
		}
		return 0, false, nil
	}
	id, err := strconv.Atoi(dev)
	if err != nil || id < 0 {
		return 0, true, fmt.Errorf("invalid capture device %q", dev)
	}
	return id, true, nil
}

// Open opens a file path or a "device:N" capture device.
func Open(spec string, clock timeutil.Clock) (*VideoSource, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	device, isDevice, err := parseSource(spec)
	if err != nil {
		return nil, err
	}
	var vc *gocv.VideoCapture
	if isDevice {
		vc, err = gocv.OpenVideoCapture(device)
	} else {
		vc, err = gocv.VideoCaptureFile(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("open video source %q: %w", spec, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source %q did not open", spec)
	}

	src := &VideoSource{capture: vc, mat: gocv.NewMat(), clock: clock, name: spec}
	if !isDevice {
		fps := vc.Get(gocv.VideoCaptureFPS)
		src.timeline, src.timed = timeutil.NewFrameTimeline(clock.Now(), fps)
		logf("opened %s (%.2f fps)", spec, fps)
	} else {
		logf("opened %s", spec)
	}
	return src, nil
}

// Next implements frames.Source. A failed read marks the end of the stream.
func (s *VideoSource) Next(ctx context.Context) (*frames.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		logf("%s exhausted after %d frames", s.name, s.next)
		return nil, io.EOF
	}
	img, err := FromMat(s.mat)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", s.next, err)
	}
	ts := s.clock.Now()
	if s.timed {
		ts = s.timeline.At(s.next)
	}
	f := &frames.Frame{Index: s.next, Image: img, Timestamp: ts}
	s.next++
	return f, nil
}

// Close releases the capture handle.
func (s *VideoSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
