// Package connect implementa los flujos de conexión de cuentas: OAuth con
// authorization code para X, Discord y Facebook, y validación de bot token
// para Telegram. El resultado de todo flujo exitoso es una o más filas en
// el repositorio de cuentas con los tokens sellados.
package connect

import (
	"errors"
	"time"

	"github.com/tharanithar-r/postcraft/internal/cache"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/oauth/discord"
	"github.com/tharanithar-r/postcraft/internal/oauth/facebook"
	"github.com/tharanithar-r/postcraft/internal/oauth/telegram"
	"github.com/tharanithar-r/postcraft/internal/oauth/x"
	"github.com/tharanithar-r/postcraft/internal/security/secretbox"
)

var (
	ErrNotConfigured    = errors.New("connect: el proveedor no está configurado")
	ErrStateMismatch    = errors.New("connect: state inválido o expirado")
	ErrNoChannels       = errors.New("connect: el servidor no tiene canales publicables")
	ErrAlreadyConnected = errors.New("connect: el canal ya está conectado")
	ErrInvalidBotToken  = errors.New("connect: bot token inválido")
	ErrChannelNotFound  = errors.New("connect: canal no encontrado")
	ErrBotNotAdmin      = errors.New("connect: el bot no es administrador del canal")
	ErrBotCannotPost    = errors.New("connect: el bot no tiene permiso para publicar")
)

// Service ejecuta los flujos de conexión. Los clientes de proveedor
// pueden ser nil cuando el proveedor no está configurado; sus flujos
// devuelven ErrNotConfigured en ese caso.
type Service struct {
	repo  repository.SocialAccountRepository
	box   secretbox.Box
	state *stateStore

	x        *x.Client
	discord  *discord.Client
	facebook *facebook.Client
	telegram *telegram.Client

	now func() time.Time
}

// Deps agrupa las dependencias del servicio.
type Deps struct {
	Repo  repository.SocialAccountRepository
	Box   secretbox.Box
	Cache cache.Client

	X        *x.Client
	Discord  *discord.Client
	Facebook *facebook.Client
	Telegram *telegram.Client

	// Now reemplaza el reloj en pruebas. Nil = time.Now.
	Now func() time.Time
}

func NewService(d Deps) *Service {
	box := d.Box
	if box == nil {
		box = secretbox.Noop{}
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     d.Repo,
		box:      box,
		state:    newStateStore(d.Cache),
		x:        d.X,
		discord:  d.Discord,
		facebook: d.Facebook,
		telegram: d.Telegram,
		now:      now,
	}
}

// Connection resume la cuenta recién conectada para la respuesta HTTP.
type Connection struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Accounts  int    `json:"accounts"`
}
