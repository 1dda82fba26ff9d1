package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/plant-care-service/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestCategoryLoggerCarriesCategory(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.DebugLevel)

	GetCategoryLogger(LoggerNamePlantCore, LoggerCategoryLight).Warn("coverage gap")
	GetLogger().Debug("not json?")

	logs := ParseLogs(strings.NewReader(buf.String()))
	assert.Len(t, logs, 2)
	assert.Equal(t, "light", logs[0][LoggerFieldCategory])
	assert.Equal(t, "plant_core", logs[0]["logger"])
	assert.Equal(t, []string{"coverage gap", "not json?"}, LogMessages(strings.NewReader(buf.String())))
}

func TestParseLogsSkipsGarbage(t *testing.T) {
	logs := ParseLogs(strings.NewReader("not json\n{\"msg\":\"ok\"}\n"))
	assert.Len(t, logs, 1)
}

func TestMapperReducer(t *testing.T) {
	doubled := Mapper([]int{1, 2, 3}, func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)

	sum := Reducer([]float64{1.5, 2.5}, func(acc float64, v float64) float64 { return acc + v }, 0)
	assert.Equal(t, 4.0, sum)
}
