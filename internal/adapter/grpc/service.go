package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "papertrade.v1.TradingService"

// Method names of the TradingService
const (
	MethodGetPrice        = "GetPrice"
	MethodExecuteTrade    = "ExecuteTrade"
	MethodGetBalance      = "GetBalance"
	MethodGetHoldings     = "GetHoldings"
	MethodGetHistory      = "GetHistory"
	MethodGetMarketStatus = "GetMarketStatus"
	MethodListTrades      = "ListTrades"
)

// TradingServiceServer is the server API of the TradingService.
// Requests and responses are protobuf Structs carrying the same documents as the HTTP API.
type TradingServiceServer interface {
	GetPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHoldings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarketStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TradingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// TradingServiceDesc describes the TradingService for grpc.Server.RegisterService
var TradingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetPrice, TradingServiceServer.GetPrice),
		unary(MethodExecuteTrade, TradingServiceServer.ExecuteTrade),
		unary(MethodGetBalance, TradingServiceServer.GetBalance),
		unary(MethodGetHoldings, TradingServiceServer.GetHoldings),
		unary(MethodGetHistory, TradingServiceServer.GetHistory),
		unary(MethodGetMarketStatus, TradingServiceServer.GetMarketStatus),
		unary(MethodListTrades, TradingServiceServer.ListTrades),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papertrade/v1/trading.proto",
}

// RegisterTradingServiceServer registers srv on s
func RegisterTradingServiceServer(s grpc.ServiceRegistrar, srv TradingServiceServer) {
	s.RegisterService(&TradingServiceDesc, srv)
}

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TradingServiceServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TradingServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the TradingService over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a TradingService client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with a request document and returns the response document
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
