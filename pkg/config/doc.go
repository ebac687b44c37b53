// Package config builds the application configuration once at process start.
//
// # Sources
//
// Lowest to highest precedence:
//
//  1. compiled defaults (Default)
//  2. an optional YAML file, named by the -config flag or ACCOUNTGATE_CONFIG_FILE
//  3. ACCOUNTGATE_ environment variables
//
// # Configuration Structure
//
// Server settings:
//
//	ACCOUNTGATE_SERVER_PORT="8080"
//	ACCOUNTGATE_SERVER_METRICS_PORT="9090"
//	ACCOUNTGATE_SERVER_SHUTDOWN_TIMEOUT="30s"
//
// Store settings:
//
//	ACCOUNTGATE_STORE_ACCOUNT_BACKEND="postgres"  # postgres, memory
//	ACCOUNTGATE_STORE_POSTGRES_URL="postgres://localhost/accountgate"
//	ACCOUNTGATE_STORE_SESSION_BACKEND="redis"     # redis, memory
//	ACCOUNTGATE_STORE_REDIS_URL="redis://localhost:6379/0"
//
// Identity provider settings:
//
//	ACCOUNTGATE_PROVIDER_TENANT_ID="..."
//	ACCOUNTGATE_PROVIDER_CLIENT_ID="..."
//	ACCOUNTGATE_PROVIDER_CLIENT_SECRET="..."
//	ACCOUNTGATE_PROVIDER_REDIRECT_URL="https://app.example.com/auth/callback"
//	ACCOUNTGATE_PROVIDER_TIMEOUT="10s"
//
// Session cookie settings:
//
//	ACCOUNTGATE_SESSION_HASH_KEY="32+ random bytes"
//	ACCOUNTGATE_SESSION_BLOCK_KEY="16, 24 or 32 bytes"
//
// Observability settings:
//
//	ACCOUNTGATE_OBSERVABILITY_LOG_LEVEL="info"    # debug, info, warn, error
//	ACCOUNTGATE_OBSERVABILITY_LOG_FORMAT="json"   # json, text
//	ACCOUNTGATE_OBSERVABILITY_OTEL_ENABLED="true"
//	ACCOUNTGATE_OBSERVABILITY_OTEL_ENDPOINT="otel-collector:4317"
//
// The YAML file uses the lower-case names of the same fields:
//
//	server:
//	  port: "8080"
//	provider:
//	  tenant_id: contoso
//	  timeout: 10s
//
// # Usage Example
//
//	cfg, err := config.Load(*configPath)
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger := cfg.NewLogger()
package config
