package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app" mapstructure:"app"`
	Database    Database    `json:"database" mapstructure:"database"`
	RedisClient RedisClient `json:"redisClient" mapstructure:"redisClient"`
	Logger      Logger      `json:"logger" mapstructure:"logger"`
	OAuth       OAuth       `json:"oauth" mapstructure:"oauth"`
	Webhook     Webhook     `json:"webhook" mapstructure:"webhook"`
	Events      Events      `json:"events" mapstructure:"events"`
	Widget      Widget      `json:"widget" mapstructure:"widget"`
	Cors        Cors        `json:"cors" mapstructure:"cors"`
}

type App struct {
	Port         int    `json:"port" mapstructure:"port"`
	BaseURL      string `json:"baseURL" mapstructure:"baseURL"`
	DashboardURL string `json:"dashboardURL" mapstructure:"dashboardURL"`
	// SecretKey verifies dashboard bearer tokens issued by the auth service.
	SecretKey string `json:"secretKey" mapstructure:"secretKey"`
	// StateSecret signs OAuth state tokens. Falls back to SecretKey.
	StateSecret     string `json:"stateSecret" mapstructure:"stateSecret"`
	StateTTLSeconds int    `json:"stateTTLSeconds" mapstructure:"stateTTLSeconds"`
	TLSEnabled      bool   `json:"tlsEnabled" mapstructure:"tlsEnabled"`
	TLSCertFile     string `json:"tlsCertFile" mapstructure:"tlsCertFile"`
	TLSKeyFile      string `json:"tlsKeyFile" mapstructure:"tlsKeyFile"`
}

func (a App) StateTTL() time.Duration { return time.Duration(a.StateTTLSeconds) * time.Second }

type Database struct {
	// Driver selects the credential store: postgres, mssql, mysql, mongo or memory.
	Driver string `json:"driver" mapstructure:"driver"`
	Psql   Db     `json:"psql" mapstructure:"psql"`
	MySql  Db     `json:"mysql" mapstructure:"mysql"`
	Mongo  Db     `json:"mongo" mapstructure:"mongo"`
	Mssql  Db     `json:"mssql" mapstructure:"mssql"`
}

type Db struct {
	Name     string `json:"name" mapstructure:"name"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

type RedisClient struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Password string `json:"password" mapstructure:"password"`
	Username string `json:"username" mapstructure:"username"`
	DB       int    `json:"db" mapstructure:"db"`
}

func (r RedisClient) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

type Logger struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Meta               MetaOAuth    `json:"meta" mapstructure:"meta"`
	Shopify            ShopifyOAuth `json:"shopify" mapstructure:"shopify"`
	HTTPTimeoutSeconds int          `json:"httpTimeoutSeconds" mapstructure:"httpTimeoutSeconds"`
}

type MetaOAuth struct {
	AppID           string   `json:"appId" mapstructure:"appId"`
	AppSecret       string   `json:"appSecret" mapstructure:"appSecret"`
	RedirectURI     string   `json:"redirectURI" mapstructure:"redirectURI"`
	GraphVersion    string   `json:"graphVersion" mapstructure:"graphVersion"`
	GraphBaseURL    string   `json:"graphBaseURL" mapstructure:"graphBaseURL"`
	DialogBaseURL   string   `json:"dialogBaseURL" mapstructure:"dialogBaseURL"`
	Scopes          []string `json:"scopes" mapstructure:"scopes"`
	VerifyToken     string   `json:"verifyToken" mapstructure:"verifyToken"`
	LongLivedTokens bool     `json:"longLivedTokens" mapstructure:"longLivedTokens"`
}

type ShopifyOAuth struct {
	APIKey      string   `json:"apiKey" mapstructure:"apiKey"`
	APISecret   string   `json:"apiSecret" mapstructure:"apiSecret"`
	RedirectURI string   `json:"redirectURI" mapstructure:"redirectURI"`
	Scopes      []string `json:"scopes" mapstructure:"scopes"`
	ShopSuffix  string   `json:"shopSuffix" mapstructure:"shopSuffix"`
}

type Webhook struct {
	RequireSignature bool `json:"requireSignature" mapstructure:"requireSignature"`
}

// Events selects where accepted webhook deliveries are forwarded.
type Events struct {
	Sink       string     `json:"sink" mapstructure:"sink"`
	Pubsub     Pubsub     `json:"pubsub" mapstructure:"pubsub"`
	ServiceBus ServiceBus `json:"serviceBus" mapstructure:"serviceBus"`
}

type Pubsub struct {
	ProjectID string `json:"projectID" mapstructure:"projectID"`
	Topic     string `json:"topic" mapstructure:"topic"`
}

type ServiceBus struct {
	// Namespace is the fully qualified host, authenticated with azidentity.
	Namespace string `json:"namespace" mapstructure:"namespace"`
	// ConnectionString takes precedence over Namespace when set.
	ConnectionString string `json:"connectionString" mapstructure:"connectionString"`
	Queue            string `json:"queue" mapstructure:"queue"`
}

type Widget struct {
	ChatURL string `json:"chatURL" mapstructure:"chatURL"`
}

type Cors struct {
	AllowOrigins []string `json:"allowOrigins" mapstructure:"allowOrigins"`
}

// Load reads config.json (or config-<ENV>.json) and environment overrides into
// a fresh Config. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	name := getConfig()
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("../../")
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", name, err)
		}
		logger.GetLogger().WithField("config", name).Warn("Config file not found, using defaults and environment")
	} else {
		logger.GetLogger().WithField("config", v.ConfigFileUsed()).Info("Config set up successfully")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	initApp(&c)
	initOAuth(&c)
	return &c, nil
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.baseURL", "http://localhost:5000")
	v.SetDefault("app.dashboardURL", "http://localhost:3000/dashboard")
	v.SetDefault("app.stateTTLSeconds", 600)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.psql.sslMode", "disable")
	v.SetDefault("database.mssql.port", "1433")
	v.SetDefault("database.mongo.port", "27017")
	v.SetDefault("database.mongo.name", "aithor")
	v.SetDefault("redisClient.port", "6379")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.level", "info")
	v.SetDefault("oauth.httpTimeoutSeconds", 15)
	v.SetDefault("oauth.meta.graphVersion", "v18.0")
	v.SetDefault("oauth.meta.graphBaseURL", "https://graph.facebook.com")
	v.SetDefault("oauth.meta.dialogBaseURL", "https://www.facebook.com")
	v.SetDefault("oauth.meta.scopes", []string{
		"pages_show_list",
		"pages_messaging",
		"instagram_basic",
		"instagram_manage_messages",
		"whatsapp_business_messaging",
	})
	v.SetDefault("oauth.shopify.scopes", []string{"read_products", "read_orders"})
	v.SetDefault("oauth.shopify.shopSuffix", "myshopify.com")
	v.SetDefault("events.sink", "log")
	v.SetDefault("events.pubsub.topic", "integration-webhooks")
	v.SetDefault("events.serviceBus.queue", "integration-webhooks")
	v.SetDefault("widget.chatURL", "http://localhost:3000/chat")
	v.SetDefault("cors.allowOrigins", []string{"http://localhost:3000"})
}

// bindEnv keeps the environment names the service has always been deployed with.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.port":                           {"APP_PORT", "PORT"},
		"app.baseURL":                        {"BASE_URL"},
		"app.dashboardURL":                   {"DASHBOARD_URL"},
		"app.secretKey":                      {"SECRET_KEY"},
		"app.stateSecret":                    {"STATE_SECRET"},
		"app.tlsEnabled":                     {"TLS_ENABLED"},
		"app.tlsCertFile":                    {"TLS_CERT_FILE"},
		"app.tlsKeyFile":                     {"TLS_KEY_FILE"},
		"database.driver":                    {"DB_DRIVER", "DB_VENDOR"},
		"database.psql.name":                 {"DB_NAME"},
		"database.psql.host":                 {"DB_HOST"},
		"database.psql.port":                 {"DB_PORT"},
		"database.psql.user":                 {"DB_USER"},
		"database.psql.password":             {"DB_PASSWORD"},
		"database.mssql.name":                {"MSSQL_DB_NAME"},
		"database.mssql.host":                {"MSSQL_HOST"},
		"database.mssql.port":                {"MSSQL_PORT"},
		"database.mssql.user":                {"MSSQL_USER"},
		"database.mssql.password":            {"MSSQL_PASSWORD"},
		"database.mysql.name":                {"MYSQL_DB_NAME"},
		"database.mysql.host":                {"MYSQL_HOST"},
		"database.mysql.port":                {"MYSQL_PORT"},
		"database.mysql.user":                {"MYSQL_USER"},
		"database.mysql.password":            {"MYSQL_PASSWORD"},
		"database.mongo.host":                {"MONGO_HOST"},
		"database.mongo.user":                {"MONGO_USER"},
		"database.mongo.password":            {"MONGO_PASSWORD"},
		"redisClient.host":                   {"REDIS_HOST"},
		"redisClient.port":                   {"REDIS_PORT"},
		"redisClient.password":               {"REDIS_PASSWORD"},
		"oauth.meta.appId":                   {"META_APP_ID"},
		"oauth.meta.appSecret":               {"META_APP_SECRET"},
		"oauth.meta.verifyToken":             {"META_VERIFY_TOKEN"},
		"oauth.shopify.apiKey":               {"SHOPIFY_API_KEY"},
		"oauth.shopify.apiSecret":            {"SHOPIFY_API_SECRET"},
		"webhook.requireSignature":           {"WEBHOOK_REQUIRE_SIGNATURE"},
		"events.sink":                        {"EVENTS_SINK"},
		"events.pubsub.projectID":            {"PUBSUB_PROJECT_ID"},
		"events.serviceBus.namespace":        {"SERVICEBUS_NAMESPACE"},
		"events.serviceBus.connectionString": {"SERVICEBUS_CONNECTION_STRING"},
		"widget.chatURL":                     {"WIDGET_CHAT_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func initApp(C *Config) {
	C.App.BaseURL = strings.TrimRight(C.App.BaseURL, "/")
	if C.App.Port == 0 {
		C.App.Port = 5000
	}
	if C.App.StateSecret == "" {
		C.App.StateSecret = C.App.SecretKey
	}
	if C.App.StateTTLSeconds <= 0 {
		C.App.StateTTLSeconds = 600
	}
	// Prefer local certs if TLS enabled and paths not provided
	if C.App.TLSEnabled {
		if C.App.TLSCertFile == "" {
			if _, err := os.Stat("certs/localhost.crt"); err == nil {
				C.App.TLSCertFile = "certs/localhost.crt"
			}
		}
		if C.App.TLSKeyFile == "" {
			if _, err := os.Stat("certs/localhost.key"); err == nil {
				C.App.TLSKeyFile = "certs/localhost.key"
			}
		}
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if C.App.StateSecret == "" {
		logger.GetLogger().Warn("App.StateSecret not set; OAuth login will be refused. Provide STATE_SECRET via environment.")
	}
}

func initOAuth(C *Config) {
	if C.OAuth.Meta.RedirectURI == "" {
		C.OAuth.Meta.RedirectURI = C.App.BaseURL + "/integrations/meta/callback"
	}
	if C.OAuth.Shopify.RedirectURI == "" {
		C.OAuth.Shopify.RedirectURI = C.App.BaseURL + "/integrations/shopify/callback"
	}
	// Prefer https redirect URIs locally when TLS enabled
	if C.App.TLSEnabled {
		if !hasHTTPS(C.OAuth.Meta.RedirectURI) {
			C.OAuth.Meta.RedirectURI = toHTTPSCallback(C.OAuth.Meta.RedirectURI)
		}
		if !hasHTTPS(C.OAuth.Shopify.RedirectURI) {
			C.OAuth.Shopify.RedirectURI = toHTTPSCallback(C.OAuth.Shopify.RedirectURI)
		}
	}
}

// HTTPTimeout is the provider call timeout.
func (o OAuth) HTTPTimeout() time.Duration {
	if o.HTTPTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(o.HTTPTimeoutSeconds) * time.Second
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
