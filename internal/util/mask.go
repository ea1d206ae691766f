// Package util reúne ayudas pequeñas sin dependencias de dominio.
package util

import "strings"

// MaskEmail reduce una dirección a su forma logueable: conserva la primera
// letra del usuario y del dominio y oculta el resto. Permite registrar a
// quién se notificó sin volcar el correo completo.
func MaskEmail(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		if len(addr) <= 3 {
			return "***"
		}
		return addr[:1] + "…" + addr[len(addr)-1:]
	}
	return maskPart(addr[:at]) + "@" + maskDomain(addr[at+1:])
}

func maskPart(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + "…"
}

// maskDomain enmascara sólo el primer segmento; el TLD queda visible.
func maskDomain(dom string) string {
	parts := strings.Split(dom, ".")
	parts[0] = maskPart(parts[0])
	return strings.Join(parts, ".")
}
