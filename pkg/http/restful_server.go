package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/plant-care-service/pkg/engine"
	"liyu1981.xyz/plant-care-service/pkg/metrics"
)

type RestfulServer struct {
	Server           *gin.Engine
	Engine           *engine.Engine
	RateLimiterStore *engine.RateLimiterStore
	Metrics          *metrics.Collector
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	JwtSecret      []byte
}

// CheckSensorLimiter reports whether a reading from sensorID fits its rate
// budget. Without a store every reading is allowed.
func (rs *RestfulServer) CheckSensorLimiter(sensorID string) bool {
	return rs.RateLimiterStore.Allow(sensorID)
}

func (rs *RestfulServer) SetLimiter(sensorID string, sensorRate float64, sensorBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(sensorID, rate.Limit(sensorRate), sensorBurst)
}

func (rs *RestfulServer) Setup() {
	if rs.Metrics != nil {
		rs.Server.Use(rs.Metrics.GinMiddleware())
	}

	rs.Server.GET("/healthz", rs.HealthCheck)
	if rs.MetricsHandler != nil {
		rs.Server.GET("/metrics", gin.WrapH(rs.MetricsHandler))
	}

	sensors := rs.Server.Group("/sensors/:sensor_id")
	{
		sensors.POST("/readings", rs.PostReading)
		sensors.POST("/availability", rs.PostAvailability)
		sensors.POST("/limiter", rs.PostLimiter)
	}

	rs.Server.GET("/config", rs.GetConfig)
	rs.Server.PUT("/config", RequireJWT(rs.JwtSecret), rs.PutConfig)

	entities := rs.Server.Group("/entities/:entity_id")
	{
		entities.GET("/states", rs.GetStates)
		entities.GET("/light", rs.GetLight)
		entities.POST("/ignore", rs.PostIgnore)
		entities.GET("/events", rs.GetEvents)
	}

	zones := rs.Server.Group("/zones/:zone_id")
	{
		zones.GET("", rs.GetZone)
		zones.POST("/actuation-result", rs.PostActuationResult)
		zones.POST("/fertilised", rs.PostFertilised)
	}
}
