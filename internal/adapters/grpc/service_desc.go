package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName                   = "escrow.v1.DealQueryService"
	methodGetDeal                 = "/" + ServiceName + "/GetDeal"
	methodListDealsForAddress     = "/" + ServiceName + "/ListDealsForAddress"
	methodGetContractBalance      = "/" + ServiceName + "/GetContractBalance"
	methodListArbitrationRequests = "/" + ServiceName + "/ListArbitrationRequests"
)

// DealQueryServer is the read surface other mesh services call. Messages
// are protobuf well-known types.
type DealQueryServer interface {
	GetDeal(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	ListDealsForAddress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContractBalance(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
	ListArbitrationRequests(context.Context, *wrapperspb.UInt64Value) (*structpb.ListValue, error)
}

var dealQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DealQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDeal", Handler: unaryHandler(methodGetDeal, func(s DealQueryServer, ctx context.Context, in *wrapperspb.UInt64Value) (any, error) {
			return s.GetDeal(ctx, in)
		})},
		{MethodName: "ListDealsForAddress", Handler: unaryHandler(methodListDealsForAddress, func(s DealQueryServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.ListDealsForAddress(ctx, in)
		})},
		{MethodName: "GetContractBalance", Handler: unaryHandler(methodGetContractBalance, func(s DealQueryServer, ctx context.Context, in *emptypb.Empty) (any, error) {
			return s.GetContractBalance(ctx, in)
		})},
		{MethodName: "ListArbitrationRequests", Handler: unaryHandler(methodListArbitrationRequests, func(s DealQueryServer, ctx context.Context, in *wrapperspb.UInt64Value) (any, error) {
			return s.ListArbitrationRequests(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/v1/deal_query.proto",
}

// unaryHandler adapts a typed method into the generic grpc.MethodDesc
// handler, running any configured interceptor.
func unaryHandler[Req any, PReq interface {
	*Req
}](fullMethod string, call func(DealQueryServer, context.Context, PReq) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DealQueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DealQueryServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func Register(server grpc.ServiceRegistrar, svc DealQueryServer) {
	server.RegisterService(&dealQueryServiceDesc, svc)
}

// DealQueryClient calls DealQueryService over an existing connection.
type DealQueryClient struct {
	cc grpc.ClientConnInterface
}

func NewDealQueryClient(cc grpc.ClientConnInterface) *DealQueryClient {
	return &DealQueryClient{cc: cc}
}

func (c *DealQueryClient) GetDeal(ctx context.Context, id uint64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetDeal, wrapperspb.UInt64(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DealQueryClient) ListDealsForAddress(ctx context.Context, address, role string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"address": address, "role": role})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListDealsForAddress, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DealQueryClient) GetContractBalance(ctx context.Context, opts ...grpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, methodGetContractBalance, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *DealQueryClient) ListArbitrationRequests(ctx context.Context, dealID uint64, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListArbitrationRequests, wrapperspb.UInt64(dealID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
