package tokens

import "time"

// RefreshResult es el resultado normalizado de un ciclo de verificación y
// refresco para una plataforma. Todos los adaptadores producen esta forma,
// sin importar cómo luzca la respuesta del proveedor.
type RefreshResult struct {
	Success        bool       `json:"success"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	NeedsReconnect bool       `json:"needs_reconnect,omitempty"`
	NotConnected   bool       `json:"not_connected,omitempty"`

	// Pages se llena sólo para Facebook: una entrada por página conectada.
	Pages []PageResult `json:"pages,omitempty"`
}

// PageResult es el desenlace del refresco de una página individual de
// Facebook. Cada página vive o muere por su cuenta.
type PageResult struct {
	PageID         string     `json:"page_id"`
	PageName       string     `json:"page_name,omitempty"`
	Success        bool       `json:"success"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	NeedsReconnect bool       `json:"needs_reconnect,omitempty"`
}

// Partial reporta si el resultado es un éxito parcial: al menos una página
// refrescada y al menos una fallida.
func (r RefreshResult) Partial() bool {
	if len(r.Pages) == 0 {
		return false
	}
	var ok, bad int
	for _, p := range r.Pages {
		if p.Success {
			ok++
		} else {
			bad++
		}
	}
	return ok > 0 && bad > 0
}
