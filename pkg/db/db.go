package db

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

func GetInstance(dialector gorm.Dialector) *DB {
	var zlog = common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryStore)
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		zlog.Info("Connected to database with dialector", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		err = instance.Conn.AutoMigrate(
			&models.Reading{},
			&models.LightAccumulatorRecord{},
			&models.ZoneStateRecord{},
			&models.EventRecord{},
			&models.ConfigRecord{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		zlog.Info("Database migration completed")

		if err := instance.Conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			log.Fatal("Failed to enable sqlite foreign key support", err)
		}

		if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Fatal("Failed to set sqlite journal mode", err)
		}
	})
	return instance
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyPlantDbPath); !found {
		dbPath = "plant-care.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UseDialectorFromEnv picks the dialector named by PLANT_DB_TYPE.
func UseDialectorFromEnv() gorm.Dialector {
	if os.Getenv(common.EnvKeyPlantDBType) == "memory" {
		return UseMemorySqliteDialector()
	}
	return UseSqliteDialector()
}
