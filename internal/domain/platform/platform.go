// Package platform define las plataformas sociales soportadas y sus
// metadatos específicos (platform_data).
package platform

import (
	"fmt"
	"strings"
)

// Platform identifica una plataforma social soportada.
// En transporte y storage se usa el string en minúsculas.
type Platform string

const (
	X        Platform = "x"
	Discord  Platform = "discord"
	Facebook Platform = "facebook"
	Telegram Platform = "telegram"
)

// All retorna todas las plataformas soportadas, en orden estable.
func All() []Platform {
	return []Platform{X, Discord, Facebook, Telegram}
}

// Parse valida y normaliza un string de plataforma.
func Parse(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case X:
		return X, nil
	case Discord:
		return Discord, nil
	case Facebook:
		return Facebook, nil
	case Telegram:
		return Telegram, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

func (p Platform) String() string { return string(p) }

// Display retorna el nombre para mensajes al usuario ("X", "DISCORD", ...).
func (p Platform) Display() string { return strings.ToUpper(string(p)) }

// MultiAccount indica si la plataforma admite varias filas por usuario
// (canales de Discord, páginas de Facebook).
func (p Platform) MultiAccount() bool {
	return p == Discord || p == Facebook
}

// SharedCredential indica si las filas de la plataforma comparten un
// único credencial a nivel de conexión. Discord representa el token del
// bot redundantemente en cada fila de canal: un refresh actualiza todas.
// Facebook emite tokens independientes por página.
func (p Platform) SharedCredential() bool {
	return p == Discord
}
