package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-care-service/pkg/engine"
)

const (
	ServiceName           = "plantcare.v1.PlantCare"
	MethodPostReading     = "/" + ServiceName + "/PostReading"
	MethodGetStates       = "/" + ServiceName + "/GetStates"
	MethodPostLimiter     = "/" + ServiceName + "/PostLimiter"
	fieldSensorID         = "sensor_id"
	fieldEntityID         = "entity_id"
	fieldSuccess          = "success"
	fieldMessage          = "message"
	statusMessageOK       = "OK"
	statusNoLimiterEffect = "RateLimiterStore is not used. No effect."
)

// PlantCareService carries every message as a google.protobuf.Struct so the
// service needs no generated stubs.
type PlantCareService interface {
	PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetStates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type PlantCareServer struct {
	Engine           *engine.Engine
	RateLimiterStore *engine.RateLimiterStore
}

// CheckSensorLimiter reports whether a reading from sensorID fits its rate
// budget. Without a store every reading is allowed.
func (s *PlantCareServer) CheckSensorLimiter(sensorID string) bool {
	return s.RateLimiterStore.Allow(sensorID)
}

func unaryHandler(method string, call func(PlantCareService, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PlantCareService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PlantCareService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var PlantCareServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlantCareService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PostReading", Handler: unaryHandler(MethodPostReading, PlantCareService.PostReading)},
		{MethodName: "GetStates", Handler: unaryHandler(MethodGetStates, PlantCareService.GetStates)},
		{MethodName: "PostLimiter", Handler: unaryHandler(MethodPostLimiter, PlantCareService.PostLimiter)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "plantcare/v1/plantcare.proto",
}

func RegisterPlantCareServer(s grpc.ServiceRegistrar, srv PlantCareService) {
	s.RegisterService(&PlantCareServiceDesc, srv)
}

// PlantCareClient is the client side of PlantCareServiceDesc.
type PlantCareClient struct {
	cc grpc.ClientConnInterface
}

func NewPlantCareClient(cc grpc.ClientConnInterface) *PlantCareClient {
	return &PlantCareClient{cc: cc}
}

func (c *PlantCareClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PlantCareClient) PostReading(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPostReading, in, opts...)
}

func (c *PlantCareClient) GetStates(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetStates, in, opts...)
}

func (c *PlantCareClient) PostLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPostLimiter, in, opts...)
}
