package env

import (
	"os"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	AgentSecretKey   = "AGENT_SECRET"
	AuthRedisURL     = "AUTH_REDIS_URL"
	AuthRedisPass    = "AUTH_REDIS_PASS"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	OpenAIKey        = "OPENAI_API_KEY"
	OpenAIModel      = "OPENAI_MODEL"
	WhatsAppSID      = "WHATSAPP_ACCOUNT_SID"
	WhatsAppToken    = "WHATSAPP_AUTH_TOKEN"
	WhatsAppFrom     = "WHATSAPP_FROM_NUMBER"
	WhatsAppBaseURL  = "WHATSAPP_API_BASE_URL"
	RoutingConfig    = "ROUTING_CONFIG_PATH"
	DashboardURL     = "DASHBOARD_URL"
)

// Require panics when any of the given variables is unset. Each binary calls
// it for the variables it actually needs instead of a global init check, so
// tests and tools can import this package without a full environment.
func Require(keys ...string) {
	for _, key := range keys {
		if os.Getenv(key) == "" {
			panic("env: required environment variable not set: " + key)
		}
	}
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
