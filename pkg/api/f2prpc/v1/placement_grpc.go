package f2prpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	PlacementService_ServiceName            = "f2prpc.v1.PlacementService"
	PlacementService_Resolve_FullMethodName = "/f2prpc.v1.PlacementService/Resolve"
	PlacementService_History_FullMethodName = "/f2prpc.v1.PlacementService/History"
)

// PlacementServiceClient 是客户端存根
type PlacementServiceClient interface {
	Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	History(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error)
}

type placementServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPlacementServiceClient(cc grpc.ClientConnInterface) PlacementServiceClient {
	return &placementServiceClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *placementServiceClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	out := new(ResolveResponse)
	if err := c.cc.Invoke(ctx, PlacementService_Resolve_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *placementServiceClient) History(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.cc.Invoke(ctx, PlacementService_History_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// PlacementServiceServer 是服务端需要实现的接口
type PlacementServiceServer interface {
	Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
}

// UnimplementedPlacementServiceServer 嵌入后可以只实现部分方法
type UnimplementedPlacementServiceServer struct{}

func (UnimplementedPlacementServiceServer) Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Resolve not implemented")
}

func (UnimplementedPlacementServiceServer) History(context.Context, *HistoryRequest) (*HistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method History not implemented")
}

func RegisterPlacementServiceServer(s grpc.ServiceRegistrar, srv PlacementServiceServer) {
	s.RegisterService(&PlacementService_ServiceDesc, srv)
}

func _PlacementService_Resolve_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResolveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlacementServiceServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PlacementService_Resolve_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlacementServiceServer).Resolve(ctx, req.(*ResolveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PlacementService_History_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HistoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlacementServiceServer).History(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PlacementService_History_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlacementServiceServer).History(ctx, req.(*HistoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PlacementService_ServiceDesc 没有对应的 .proto 文件描述符，反射只能列出服务名
var PlacementService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PlacementService_ServiceName,
	HandlerType: (*PlacementServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: _PlacementService_Resolve_Handler},
		{MethodName: "History", Handler: _PlacementService_History_Handler},
	},
	Streams: []grpc.StreamDesc{},
}
