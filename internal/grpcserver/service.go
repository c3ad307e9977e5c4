package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobportal.lifecycle.v1.ApplicationLifecycle"

// LifecycleServer is the server API. Every message is a google.protobuf.Struct
// carrying the same JSON shapes the HTTP API serves.
type LifecycleServer interface {
	GetApplication(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListApplicantApplications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListJobApplications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransitionStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcknowledgeApplication(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StatusConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(LifecycleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(LifecycleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(LifecycleServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes ApplicationLifecycle for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetApplication", LifecycleServer.GetApplication),
		unary("ListApplicantApplications", LifecycleServer.ListApplicantApplications),
		unary("ListJobApplications", LifecycleServer.ListJobApplications),
		unary("TransitionStatus", LifecycleServer.TransitionStatus),
		unary("AcknowledgeApplication", LifecycleServer.AcknowledgeApplication),
		unary("StatusConfig", LifecycleServer.StatusConfig),
	},
	Metadata: "jobportal/lifecycle/v1/lifecycle.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv LifecycleServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ApplicationLifecycle over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with in and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
