package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
		IdleTimeout        string   `yaml:"idle_timeout"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver       string `yaml:"driver"` // postgres | memory
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MinIdleConns int    `yaml:"min_idle_conns"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Security struct {
		// base64(32 bytes). Cifra los tokens OAuth en reposo.
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	// ───────── Social Providers ─────────
	Providers struct {
		// Timeout por llamada al proveedor. Vacío = default del engine.
		Timeout string `yaml:"timeout"`

		X struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"` // si vacío => <jwt.issuer>/v1/auth/x/callback
		} `yaml:"x"`
		Discord struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
			BotToken     string `yaml:"bot_token"` // para listar canales del guild
		} `yaml:"discord"`
		Facebook struct {
			AppID       string `yaml:"app_id"`
			AppSecret   string `yaml:"app_secret"`
			RedirectURL string `yaml:"redirect_url"`
		} `yaml:"facebook"`
		Telegram struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"telegram"`
	} `yaml:"providers"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "10m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 30
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	// Si los redirect de providers están vacíos pero hay issuer ⇒ autogenerar
	if base := strings.TrimRight(strings.TrimSpace(c.JWT.Issuer), "/"); base != "" {
		if c.Providers.X.ClientID != "" && c.Providers.X.RedirectURL == "" {
			c.Providers.X.RedirectURL = base + "/v1/auth/x/callback"
		}
		if c.Providers.Discord.ClientID != "" && c.Providers.Discord.RedirectURL == "" {
			c.Providers.Discord.RedirectURL = base + "/v1/auth/discord/callback"
		}
		if c.Providers.Facebook.AppID != "" && c.Providers.Facebook.RedirectURL == "" {
			c.Providers.Facebook.RedirectURL = base + "/v1/auth/facebook/callback"
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		// alias habitual en PaaS
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_IDLE_CONNS"); ok {
		c.Storage.MinIdleConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v) // auto|starttls|ssl|none
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretBoxMasterKey = v
	}

	// ───── Providers ─────
	if v, ok := getEnvStr("PROVIDER_TIMEOUT"); ok {
		c.Providers.Timeout = v
	}
	// X (Twitter)
	if v, ok := getEnvStr("X_CLIENT_ID"); ok {
		c.Providers.X.ClientID = v
	} else if v, ok := getEnvStr("TWITTER_CLIENT_ID"); ok {
		c.Providers.X.ClientID = v
	}
	if v, ok := getEnvStr("X_CLIENT_SECRET"); ok {
		c.Providers.X.ClientSecret = v
	} else if v, ok := getEnvStr("TWITTER_CLIENT_SECRET"); ok {
		c.Providers.X.ClientSecret = v
	}
	if v, ok := getEnvStr("X_REDIRECT_URL"); ok {
		c.Providers.X.RedirectURL = v
	}
	// DISCORD
	if v, ok := getEnvStr("DISCORD_CLIENT_ID"); ok {
		c.Providers.Discord.ClientID = v
	}
	if v, ok := getEnvStr("DISCORD_CLIENT_SECRET"); ok {
		c.Providers.Discord.ClientSecret = v
	}
	if v, ok := getEnvStr("DISCORD_REDIRECT_URL"); ok {
		c.Providers.Discord.RedirectURL = v
	}
	if v, ok := getEnvStr("DISCORD_BOT_TOKEN"); ok {
		c.Providers.Discord.BotToken = v
	}
	// FACEBOOK
	if v, ok := getEnvStr("FACEBOOK_APP_ID"); ok {
		c.Providers.Facebook.AppID = v
	}
	if v, ok := getEnvStr("FACEBOOK_APP_SECRET"); ok {
		c.Providers.Facebook.AppSecret = v
	}
	if v, ok := getEnvStr("FACEBOOK_REDIRECT_URL"); ok {
		c.Providers.Facebook.RedirectURL = v
	}
	// TELEGRAM: los bot tokens los aporta cada usuario al conectar,
	// el flag sólo habilita el endpoint.
	if v, ok := getEnvBool("TELEGRAM_ENABLED"); ok {
		c.Providers.Telegram.Enabled = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// Validate verifica los valores críticos antes de arrancar. Falla
// temprano: un provider a medias configurado es casi siempre un typo.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Security.SecretBoxMasterKey) == "" {
		return fmt.Errorf("config: SECRETBOX_MASTER_KEY es obligatoria")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio")
	}
	if (c.Providers.X.ClientID == "") != (c.Providers.X.ClientSecret == "") {
		return fmt.Errorf("config: credenciales de X incompletas")
	}
	if (c.Providers.Discord.ClientID == "") != (c.Providers.Discord.ClientSecret == "") {
		return fmt.Errorf("config: credenciales de Discord incompletas")
	}
	if (c.Providers.Facebook.AppID == "") != (c.Providers.Facebook.AppSecret == "") {
		return fmt.Errorf("config: credenciales de Facebook incompletas")
	}
	for name, d := range map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.idle_timeout":      c.Server.IdleTimeout,
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"cache.memory.default_ttl": c.Cache.Memory.DefaultTTL,
		"rate.window":              c.Rate.Window,
		"providers.timeout":        c.Providers.Timeout,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("config: %s inválido: %w", name, err)
		}
	}
	return nil
}

// Duration parsea un yaml de duración ya validado. Cadena vacía => 0.
func Duration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}
