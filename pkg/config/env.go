package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// qualified env names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "MOVIEGATE_APP_ENV"
	EnvPort   = "MOVIEGATE_APP_PORT"

	EnvDBDSN  = "MOVIEGATE_DB_DSN"
	EnvDBHost = "MOVIEGATE_DB_HOST"
	EnvDBUser = "MOVIEGATE_DB_USER"
	EnvDBName = "MOVIEGATE_DB_NAME"

	EnvRedisURL = "MOVIEGATE_REDIS_URL"

	EnvJWTSecret  = "MOVIEGATE_JWT_SECRET"
	EnvJWTIssuer  = "MOVIEGATE_JWT_ISSUER"
	EnvJWTExpMins = "MOVIEGATE_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "MOVIEGATE_GCP_PROJECT_ID"
	EnvGCSBucket    = "MOVIEGATE_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
