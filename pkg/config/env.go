package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// RECON_* names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "RECON_APP_ENV"
	EnvAppPort = "RECON_APP_PORT"

	EnvDBDSN  = "RECON_DB_DSN"
	EnvDBHost = "RECON_DB_HOST"
	EnvDBUser = "RECON_DB_USER"
	EnvDBName = "RECON_DB_NAME"

	EnvRedisURL = "RECON_REDIS_URL"

	EnvWebhookSecret = "RECON_WEBHOOK_SECRET"

	EnvMatchRefSimilarity    = "RECON_MATCH_REF_SIMILARITY"
	EnvMatchNameSimilarity   = "RECON_MATCH_NAME_SIMILARITY"
	EnvMatchFeeTolerancePct  = "RECON_MATCH_FEE_TOLERANCE_PCT"
	EnvMatchFeeToleranceFlat = "RECON_MATCH_FEE_TOLERANCE_FLAT"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
