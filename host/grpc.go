package host

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"goa.design/bridge/engine"
	"goa.design/bridge/ir"
)

// GRPCService answers the gRPC equivalent of Handler: a Resolve RPC taking
// a dynamic structpb.Struct request (bridge coordinate, query, input) and
// returning a structpb.Struct result, in place of fixed generated message
// types bound to one bridge's shape. google.golang.org/protobuf/types/known/structpb
// is exactly the dynamic-value escape hatch protobuf offers for a field set
// that isn't known until the bridge is compiled, which is what makes a
// hand-written grpc.ServiceDesc workable here instead of codegen from a
// .proto file fixed to one schema.
type GRPCService struct {
	Engine *engine.Engine
}

// grpcServiceName and grpcMethodName name the single RPC this package
// exposes; a generated service would derive these from a .proto file, this
// one is small enough to name directly.
const (
	grpcServiceName = "bridge.host.Gateway"
	grpcMethodName  = "Resolve"
)

// ServiceDesc describes the Gateway service for grpc.Server.RegisterService,
// built by hand since there is no fixed .proto schema to generate it from.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*GRPCService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: grpcMethodName,
			Handler:    resolveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bridge/host.proto",
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*GRPCService)
	if interceptor == nil {
		return svc.resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + grpcServiceName + "/" + grpcMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func (s *GRPCService) resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	typeName := fields["type"].GetStringValue()
	fieldName := fields["field"].GetStringValue()
	query := fields["query"].GetStringValue()

	paths, err := ParseSelection(query)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid query: %v", err)
	}

	input := ir.FromStruct(fields["input"])
	tree := s.Engine.NewTree(ctx, typeName, fieldName, input)
	result, err := Resolve(ctx, tree, paths)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "resolve failed: %v", err)
	}

	out, err := result.ToStruct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out.GetStructValue(), nil
}
