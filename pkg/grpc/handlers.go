package grpc

import (
	"context"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

func validateID(id *string) z.ZogIssueList {
	var idValidator = z.String().Min(1).Required()
	return idValidator.Validate(id)
}

func respond(success bool, message string, extra map[string]any) (*structpb.Struct, error) {
	fields := map[string]any{fieldSuccess: success, fieldMessage: message}
	for k, v := range extra {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

func failure(format string, args ...any) (*structpb.Struct, error) {
	return respond(false, fmt.Sprintf(format, args...), nil)
}

type readingMessage struct {
	Kind      string
	Value     float64
	Unit      string
	Timestamp time.Time
	Invalid   bool
}

var readingMessageSchema = z.Struct(z.Shape{
	"Kind":      z.String().Required(),
	"Value":     z.Float64().Required(),
	"Unit":      z.String(),
	"Timestamp": z.Time().Required(),
	"Invalid":   z.Bool(),
})

func (s *PlantCareServer) PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	data := req.AsMap()
	sensorID, _ := data[fieldSensorID].(string)
	if err := validateID(&sensorID); err != nil {
		return failure("validation error: %v", err)
	}

	var msg readingMessage
	if err := readingMessageSchema.Parse(data, &msg); err != nil {
		return failure("validation error: %v", err)
	}

	accepted, err := s.Engine.Reading.IngestReading(models.SensorReading{
		SensorID:  sensorID,
		Kind:      models.MetricKind(msg.Kind),
		Value:     msg.Value,
		Unit:      msg.Unit,
		Timestamp: msg.Timestamp,
		Valid:     !msg.Invalid,
	})
	if err != nil {
		return failure("%s", err.Error())
	}

	return respond(true, statusMessageOK, map[string]any{
		"reading": map[string]any{
			fieldSensorID: accepted.SensorID,
			"kind":        string(accepted.Kind),
			"value":       accepted.Value,
			"unit":        accepted.Unit,
			"timestamp":   accepted.Timestamp.Format(time.RFC3339Nano),
		},
	})
}

func (s *PlantCareServer) GetStates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entityID := req.GetFields()[fieldEntityID].GetStringValue()
	if err := validateID(&entityID); err != nil {
		return failure("validation error: %v", err)
	}

	states, err := s.Engine.Query.EntityStates(entityID)
	if err != nil {
		return failure("%s", err.Error())
	}

	return respond(true, statusMessageOK, map[string]any{
		"states": common.Mapper(states, func(st models.ThresholdState) any {
			out := map[string]any{
				"check":           string(st.Check),
				"state":           string(st.State),
				"problem":         st.Problem,
				"last_transition": st.LastTransition.Format(time.RFC3339Nano),
			}
			if st.Value != nil {
				out["value"] = *st.Value
			}
			return out
		}),
	})
}

func (s *PlantCareServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	sensorID := fields[fieldSensorID].GetStringValue()
	if err := validateID(&sensorID); err != nil {
		return failure("validation error: %v", err)
	}

	rateValue, hasRate := fields["rate"]
	burstValue, hasBurst := fields["burst"]
	if !hasRate || !hasBurst {
		return failure("validation error: rate and burst are required")
	}
	sensorRate := rateValue.GetNumberValue()
	var rateValidator = z.Float64().GTE(0).Required()
	if err := rateValidator.Validate(&sensorRate); err != nil {
		return failure("validation error: %v", err)
	}
	sensorBurst := int(burstValue.GetNumberValue())
	var burstValidator = z.Int().GTE(0).Required()
	if err := burstValidator.Validate(&sensorBurst); err != nil {
		return failure("validation error: %v", err)
	}

	if s.RateLimiterStore == nil {
		return respond(false, statusNoLimiterEffect, nil)
	}

	s.RateLimiterStore.SetLimiter(sensorID, rate.Limit(sensorRate), sensorBurst)
	return respond(true, statusMessageOK, nil)
}
