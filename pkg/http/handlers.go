package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/config"
	"liyu1981.xyz/plant-care-service/pkg/models"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidReading):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrCorruptConfig):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

type ReadingRequest struct {
	Kind      string    `json:"kind"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
	Invalid   bool      `json:"invalid"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"Kind":      z.String().Required(),
	"Value":     z.Float64().Required(),
	"Unit":      z.String(),
	"Timestamp": z.Time().Required(),
	"Invalid":   z.Bool(),
})

func (rs *RestfulServer) PostReading(c *gin.Context) {
	sensorID := c.Param("sensor_id")

	if !rs.CheckSensorLimiter(sensorID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var req ReadingRequest

	if err := readingRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	accepted, err := rs.Engine.Reading.IngestReading(models.SensorReading{
		SensorID:  sensorID,
		Kind:      models.MetricKind(req.Kind),
		Value:     req.Value,
		Unit:      req.Unit,
		Timestamp: req.Timestamp,
		Valid:     !req.Invalid,
	})
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sensor_id": accepted.SensorID,
		"kind":      accepted.Kind,
		"value":     accepted.Value,
		"unit":      accepted.Unit,
		"timestamp": accepted.Timestamp,
	})
}

type AvailabilityRequest struct {
	Available bool `json:"available"`
}

var availabilityRequestSchema = z.Struct(z.Shape{
	"Available": z.Bool(),
})

func (rs *RestfulServer) PostAvailability(c *gin.Context) {
	sensorID := c.Param("sensor_id")

	var req AvailabilityRequest
	if err := availabilityRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.Engine.Reading.SetSensorAvailability(sensorID, req.Available)

	c.Status(http.StatusOK)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	sensorID := c.Param("sensor_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(sensorID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) GetConfig(c *gin.Context) {
	snap := rs.Engine.Config.CurrentSnapshot()
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no configuration applied"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (rs *RestfulServer) PutConfig(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := config.ParseSnapshotJSON(body)
	if err != nil {
		abortWith(c, err)
		return
	}

	if err := rs.Engine.Config.ApplySnapshot(snap); err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"version": snap.Version})
}

func (rs *RestfulServer) GetStates(c *gin.Context) {
	entityID := c.Param("entity_id")

	states, err := rs.Engine.Query.EntityStates(entityID)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, states)
}

func (rs *RestfulServer) GetLight(c *gin.Context) {
	entityID := c.Param("entity_id")

	status, err := rs.Engine.Query.EntityLight(entityID)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

type IgnoreRequest struct {
	Check string    `json:"check"`
	Until time.Time `json:"until"`
}

var ignoreRequestSchema = z.Struct(z.Shape{
	"Check": z.String().Required(),
	"Until": z.Time().Required(),
})

func (rs *RestfulServer) PostIgnore(c *gin.Context) {
	entityID := c.Param("entity_id")

	var req IgnoreRequest
	if err := ignoreRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	if err := rs.Engine.Query.IgnoreCheck(entityID, models.Check(req.Check), req.Until); err != nil {
		abortWith(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) GetEvents(c *gin.Context) {
	entityID := c.Param("entity_id")

	limit := 0
	if s := c.Query("limit"); s != "" {
		var err error
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}

	records, err := rs.Engine.Query.EntityEvents(entityID, models.EventType(c.Query("type")), limit)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (rs *RestfulServer) GetZone(c *gin.Context) {
	zoneID := c.Param("zone_id")

	zone, err := rs.Engine.Irrigation.Zone(zoneID)
	if err != nil {
		abortWith(c, err)
		return
	}
	due, err := rs.Engine.Irrigation.FertiliserDue(zoneID)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"zone": zone, "fertiliser_due": due})
}

type ActuationResultRequest struct {
	Error string `json:"error"`
	Reset bool   `json:"reset"`
}

var actuationResultRequestSchema = z.Struct(z.Shape{
	"Error": z.String(),
	"Reset": z.Bool(),
})

func (rs *RestfulServer) PostActuationResult(c *gin.Context) {
	zoneID := c.Param("zone_id")

	var req ActuationResultRequest
	if err := actuationResultRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	var err error
	if req.Reset {
		err = rs.Engine.Irrigation.ResetZoneErrors(zoneID)
	} else {
		err = rs.Engine.Irrigation.ReportActuationResult(zoneID, req.Error)
	}
	if err != nil {
		abortWith(c, err)
		return
	}

	c.Status(http.StatusOK)
}

type FertilisedRequest struct {
	At time.Time `json:"at"`
}

var fertilisedRequestSchema = z.Struct(z.Shape{
	"At": z.Time(),
})

func (rs *RestfulServer) PostFertilised(c *gin.Context) {
	zoneID := c.Param("zone_id")

	var req FertilisedRequest
	if err := fertilisedRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	if err := rs.Engine.Irrigation.RecordFertilised(zoneID, req.At); err != nil {
		abortWith(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
