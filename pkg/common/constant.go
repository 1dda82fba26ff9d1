package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyPlantDBType string = "PLANT_DB_TYPE"
	EnvKeyPlantDbPath string = "PLANT_DB_PATH"

	EnvKeyPlantHttpHostPort string = "PLANT_HTTP_HOST_PORT"
	EnvKeyPlantGrpcHostPort string = "PLANT_GRPC_HOST_PORT"

	EnvKeyPlantDefaultRate  string = "PLANT_DEFAULT_RATE"
	EnvKeyPlantDefaultBurst string = "PLANT_DEFAULT_BURST"

	EnvKeyPlantConfigPath   string = "PLANT_CONFIG_PATH"
	EnvKeyPlantTickInterval string = "PLANT_TICK_INTERVAL"
	EnvKeyPlantJwtSecret    string = "PLANT_JWT_SECRET"
	EnvKeyPlantSpeciesURL   string = "PLANT_SPECIES_URL"

	EnvKeyPlantMqttHost     string = "PLANT_MQTT_HOST"
	EnvKeyPlantMqttPort     string = "PLANT_MQTT_PORT"
	EnvKeyPlantMqttUser     string = "PLANT_MQTT_USER"
	EnvKeyPlantMqttPassword string = "PLANT_MQTT_PASSWORD"
	EnvKeyPlantMqttClientID string = "PLANT_MQTT_CLIENT_ID"

	EnvKeyPlantInfluxURL    string = "PLANT_INFLUX_URL"
	EnvKeyPlantInfluxToken  string = "PLANT_INFLUX_TOKEN"
	EnvKeyPlantInfluxOrg    string = "PLANT_INFLUX_ORG"
	EnvKeyPlantInfluxBucket string = "PLANT_INFLUX_BUCKET"

	EnvKeyPlantLogDir   string = "PLANT_LOG_DIR"
	EnvKeyPlantLogLevel string = "PLANT_LOG_LEVEL"

	LoggerNamePlantCore     string = "plant_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameDispatcher    string = "dispatcher"

	LoggerFieldCategory      string = "category"
	LoggerCategoryIngest     string = "ingest"
	LoggerCategoryLight      string = "light"
	LoggerCategoryThreshold  string = "threshold"
	LoggerCategoryIrrigation string = "irrigation"
	LoggerCategoryConfig     string = "config"
	LoggerCategorySpecies    string = "species"
	LoggerCategoryStore      string = "store"
	LoggerCategoryEgress     string = "egress"
)
