package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-care-service/pkg/common"
)

// CreateRateLimitInterceptor applies the per-sensor limiter to the listed
// methods, keyed on the request's sensor_id field.
func (s *PlantCareServer) CreateRateLimitInterceptor(methods []string) grpc.UnaryServerInterceptor {
	targets := common.Reducer(methods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)
	logger := common.GetLoggerWith(common.LoggerNameGrpcServer)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targets[info.FullMethod] {
			if r, ok := req.(*structpb.Struct); ok {
				sensorID := r.GetFields()[fieldSensorID].GetStringValue()
				if !s.CheckSensorLimiter(sensorID) {
					logger.Debug("Rate limit exceeded", zap.String("method", info.FullMethod), zap.String("sensor_id", sensorID))
					return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
				}
			}
		}

		return handler(ctx, req)
	}
}
