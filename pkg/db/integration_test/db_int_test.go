package test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/db"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

func TestWithEnvPath(t *testing.T) {
	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}
	common.SetTestLoggerNop()

	testPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv(common.EnvKeyPlantDbPath, testPath)

	instance := db.GetInstance(db.UseSqliteDialector())
	if instance == nil || instance.Conn == nil {
		t.Fatal("Expected non-nil DB connection")
	}

	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", testPath)
	}

	store := db.NewStore(instance)
	fired := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveZoneState(models.ZoneStateRecord{ZoneID: "front-bed", LastFiredAt: fired}))

	recs, err := store.LoadZoneStates()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].LastFiredAt.Equal(fired))
}
