package tokens

import (
	"fmt"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

// AuthStyle indica cómo viajan las credenciales del cliente en la petición
// de refresco.
type AuthStyle int

const (
	// AuthStyleNone: sin credenciales (Telegram no refresca nada).
	AuthStyleNone AuthStyle = iota
	// AuthStyleBasic: client_id:client_secret en cabecera Authorization.
	AuthStyleBasic
	// AuthStyleBody: client_id y client_secret en el cuerpo del formulario.
	AuthStyleBody
	// AuthStyleQuery: credenciales en la query string de un GET.
	AuthStyleQuery
)

// AdapterConfig describe cómo hablar con el endpoint de tokens de una
// plataforma: URL, método, estilo de autenticación y peculiaridades.
type AdapterConfig struct {
	Platform     platform.Platform
	TokenURL     string
	Method       string // http.MethodPost o http.MethodGet
	AuthStyle    AuthStyle
	ClientID     string
	ClientSecret string

	// GrantType es el valor del parámetro grant_type en la petición.
	GrantType string

	// DefaultExpiry se aplica cuando la respuesta omite expires_in.
	// Facebook devuelve tokens de ~60 días sin anunciarlo siempre.
	DefaultExpiry time.Duration

	// UsesAccessToken: el intercambio consume el access token vigente en
	// lugar de un refresh token (fb_exchange_token).
	UsesAccessToken bool
}

// ConfigurationError señala una plataforma sin adaptador o con credenciales
// incompletas. Es un error de despliegue, nunca culpa del usuario.
type ConfigurationError struct {
	Platform platform.Platform
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tokens: plataforma %q mal configurada: %s", e.Platform, e.Reason)
}

// Credentials son las credenciales de aplicación por proveedor, tal como
// llegan desde la configuración.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// RegistryConfig agrupa las credenciales de todos los proveedores y los
// endpoints opcionales de override (usados en pruebas).
type RegistryConfig struct {
	X        Credentials
	Discord  Credentials
	Facebook Credentials

	// TelegramEnabled habilita el adaptador de Telegram. Los tokens de
	// bot los aporta cada usuario y no expiran, pero la plataforma debe
	// estar registrada.
	TelegramEnabled bool

	// Overrides de URL por plataforma. Vacío = endpoint real.
	TokenURLs map[platform.Platform]string
}

const (
	xTokenURL        = "https://api.x.com/2/oauth2/token"
	discordTokenURL  = "https://discord.com/api/v10/oauth2/token"
	facebookTokenURL = "https://graph.facebook.com/v21.0/oauth/access_token"

	facebookDefaultExpiry = 60 * 24 * time.Hour
)

// Registry resuelve plataforma -> AdapterConfig. Se construye una vez al
// arrancar; Lookup es de sólo lectura y seguro para uso concurrente.
type Registry struct {
	adapters map[platform.Platform]AdapterConfig
}

// NewRegistry valida las credenciales de cada proveedor y arma la tabla de
// adaptadores. Un proveedor con credenciales a medias es rechazado aquí,
// no a mitad de un refresco.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{adapters: make(map[platform.Platform]AdapterConfig)}

	add := func(ac AdapterConfig) error {
		if ac.AuthStyle != AuthStyleNone {
			if ac.ClientID == "" || ac.ClientSecret == "" {
				return &ConfigurationError{Platform: ac.Platform, Reason: "faltan credenciales de cliente"}
			}
		}
		if url, ok := cfg.TokenURLs[ac.Platform]; ok && url != "" {
			ac.TokenURL = url
		}
		r.adapters[ac.Platform] = ac
		return nil
	}

	if cfg.X.ClientID != "" || cfg.X.ClientSecret != "" {
		if err := add(AdapterConfig{
			Platform:     platform.X,
			TokenURL:     xTokenURL,
			Method:       "POST",
			AuthStyle:    AuthStyleBasic,
			ClientID:     cfg.X.ClientID,
			ClientSecret: cfg.X.ClientSecret,
			GrantType:    "refresh_token",
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Discord.ClientID != "" || cfg.Discord.ClientSecret != "" {
		if err := add(AdapterConfig{
			Platform:     platform.Discord,
			TokenURL:     discordTokenURL,
			Method:       "POST",
			AuthStyle:    AuthStyleBody,
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			GrantType:    "refresh_token",
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Facebook.ClientID != "" || cfg.Facebook.ClientSecret != "" {
		if err := add(AdapterConfig{
			Platform:        platform.Facebook,
			TokenURL:        facebookTokenURL,
			Method:          "GET",
			AuthStyle:       AuthStyleQuery,
			ClientID:        cfg.Facebook.ClientID,
			ClientSecret:    cfg.Facebook.ClientSecret,
			GrantType:       "fb_exchange_token",
			DefaultExpiry:   facebookDefaultExpiry,
			UsesAccessToken: true,
		}); err != nil {
			return nil, err
		}
	}
	if cfg.TelegramEnabled {
		if err := add(AdapterConfig{
			Platform:  platform.Telegram,
			AuthStyle: AuthStyleNone,
		}); err != nil {
			return nil, err
		}
	}

	if len(r.adapters) == 0 {
		return nil, fmt.Errorf("tokens: ningún proveedor configurado")
	}
	return r, nil
}

// Lookup devuelve el adaptador de la plataforma o un ConfigurationError si
// no está registrada.
func (r *Registry) Lookup(p platform.Platform) (AdapterConfig, error) {
	ac, ok := r.adapters[p]
	if !ok {
		return AdapterConfig{}, &ConfigurationError{Platform: p, Reason: "proveedor no registrado"}
	}
	return ac, nil
}

// Supported lista las plataformas con adaptador registrado.
func (r *Registry) Supported() []platform.Platform {
	out := make([]platform.Platform, 0, len(r.adapters))
	for _, p := range platform.All() {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
