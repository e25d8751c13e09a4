// Package remote talks to an out-of-process model service over gRPC. The
// service exposes vehicle detection, plate detection and text recognition
// as unary methods exchanging google.protobuf.Struct messages.
package remote

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "plate.v1.ModelService"

// Full method names.
const (
	MethodDetectVehicles = "/" + ServiceName + "/DetectVehicles"
	MethodDetectPlates   = "/" + ServiceName + "/DetectPlates"
	MethodRecognize      = "/" + ServiceName + "/Recognize"
)

// maxMsgSize bounds frame payloads in both directions.
const maxMsgSize = 50 * 1024 * 1024

// Client issues model calls over a single connection. A zero timeout leaves
// call deadlines to the caller's context.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

// Dial connects to the model service at addr.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsgSize),
			grpc.MaxCallSendMsgSize(maxMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to model service %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close, timeout: timeout}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}

// Detector calls one of the detection methods.
type Detector struct {
	client *Client
	method string
}

// VehicleDetector returns a detector backed by DetectVehicles.
func (c *Client) VehicleDetector() *Detector {
	return &Detector{client: c, method: MethodDetectVehicles}
}

// PlateDetector returns a detector backed by DetectPlates.
func (c *Client) PlateDetector() *Detector {
	return &Detector{client: c, method: MethodDetectPlates}
}

// Detect sends the frame and returns the service's detections.
func (d *Detector) Detect(ctx context.Context, f *frames.Frame) ([]alpr.Detection, error) {
	req, err := encodeImage(f.Index, f.Image)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.invoke(ctx, d.method, req)
	if err != nil {
		return nil, err
	}
	return decodeDetections(resp), nil
}

// Recognizer calls the Recognize method.
type Recognizer struct {
	client *Client
}

// Recognizer returns a recognizer backed by Recognize.
func (c *Client) Recognizer() *Recognizer {
	return &Recognizer{client: c}
}

// Recognize sends an enhanced plate image and returns the candidates in the
// service's order.
func (r *Recognizer) Recognize(ctx context.Context, img *frames.Image) ([]alpr.TextCandidate, error) {
	req, err := encodeImage(0, img)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.invoke(ctx, MethodRecognize, req)
	if err != nil {
		return nil, err
	}
	return decodeCandidates(resp), nil
}
