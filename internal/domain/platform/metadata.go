package platform

import (
	"encoding/json"
	"fmt"
)

// Metadata es la unión etiquetada de los metadatos por plataforma
// (columna platform_data). La variante concreta depende de la fila.
type Metadata interface {
	platform() Platform
}

// XMetadata guarda datos auxiliares de una cuenta de X.
type XMetadata struct {
	Handle string   `json:"handle,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// DiscordMetadata guarda datos auxiliares de un canal de Discord.
// Las filas de canal de una misma conexión comparten guild y token de bot.
type DiscordMetadata struct {
	GuildID     string `json:"guild_id"`
	GuildName   string `json:"guild_name,omitempty"`
	ChannelType int    `json:"channel_type"`
}

// FacebookMetadata guarda datos auxiliares de una página de Facebook.
// HasPages=false marca la conexión básica de un usuario sin páginas.
type FacebookMetadata struct {
	Category string   `json:"category,omitempty"`
	Tasks    []string `json:"tasks,omitempty"`
	UserName string   `json:"user_name,omitempty"`
	HasPages bool     `json:"has_pages"`
}

// TelegramMetadata guarda datos auxiliares de un canal de Telegram.
// El bot token se reusa para publicar; no expira ni se refresca.
type TelegramMetadata struct {
	BotID       int64  `json:"bot_id"`
	BotUsername string `json:"bot_username"`
	ChatType    string `json:"chat_type,omitempty"`
}

func (XMetadata) platform() Platform        { return X }
func (DiscordMetadata) platform() Platform  { return Discord }
func (FacebookMetadata) platform() Platform { return Facebook }
func (TelegramMetadata) platform() Platform { return Telegram }

// MarshalMetadata serializa la variante a JSON para platform_data.
// nil produce nil (columna NULL).
func MarshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// UnmarshalMetadata deserializa platform_data según la plataforma de la
// fila. Bytes vacíos o NULL producen nil.
func UnmarshalMetadata(p Platform, raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch p {
	case X:
		var m XMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case Discord:
		var m DiscordMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case Facebook:
		var m FacebookMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case Telegram:
		var m TelegramMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", p)
	}
}
