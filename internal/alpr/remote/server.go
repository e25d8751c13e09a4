package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
	"github.com/banshee-data/plate.report/internal/monitoring"
)

var logf = monitoring.Component("remote")

// DetectBackend is a local detection backend served over gRPC.
type DetectBackend interface {
	Detect(ctx context.Context, f *frames.Frame) ([]alpr.Detection, error)
}

// TextRecognizer is a local recognition backend served over gRPC.
type TextRecognizer interface {
	Recognize(ctx context.Context, img *frames.Image) ([]alpr.TextCandidate, error)
}

// Backends are the implementations behind the service. A nil backend makes
// its method return Unimplemented.
type Backends struct {
	Vehicles   DetectBackend
	Plates     DetectBackend
	Recognizer TextRecognizer
}

type modelServer interface {
	detectVehicles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	detectPlates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	recognize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type server struct {
	b Backends
}

// Register installs the model service on s.
func Register(s grpc.ServiceRegistrar, b Backends) {
	s.RegisterService(&serviceDesc, &server{b: b})
}

// NewServer returns a gRPC server sized for frame payloads with the model
// service registered.
func NewServer(b Backends) *grpc.Server {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	Register(s, b)
	return s
}

func (s *server) detect(ctx context.Context, d DetectBackend, name string, req *structpb.Struct) (*structpb.Struct, error) {
	if d == nil {
		return nil, status.Errorf(codes.Unimplemented, "%s backend not configured", name)
	}
	idx, img, err := decodeImage(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	dets, err := d.Detect(ctx, &frames.Frame{Index: idx, Image: img})
	if err != nil {
		logf("%s frame %d failed: %v", name, idx, err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encodeDetections(dets)
}

func (s *server) detectVehicles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.detect(ctx, s.b.Vehicles, "vehicle detector", req)
}

func (s *server) detectPlates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.detect(ctx, s.b.Plates, "plate detector", req)
}

func (s *server) recognize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.b.Recognizer == nil {
		return nil, status.Error(codes.Unimplemented, "recognizer backend not configured")
	}
	_, img, err := decodeImage(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	cands, err := s.b.Recognizer.Recognize(ctx, img)
	if err != nil {
		logf("recognize failed: %v", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encodeCandidates(cands)
}

func unaryHandler(method string, call func(modelServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		ms := srv.(modelServer)
		if interceptor == nil {
			return call(ms, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ms, ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*modelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "DetectVehicles",
			Handler:    unaryHandler(MethodDetectVehicles, modelServer.detectVehicles),
		},
		{
			MethodName: "DetectPlates",
			Handler:    unaryHandler(MethodDetectPlates, modelServer.detectPlates),
		},
		{
			MethodName: "Recognize",
			Handler:    unaryHandler(MethodRecognize, modelServer.recognize),
		},
	},
	Metadata: "plate/v1/model_service.proto",
}
