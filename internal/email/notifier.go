package email

import (
	"context"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/util"
)

// ReconnectNotifier envía por correo el aviso de que una plataforma
// necesita reconexión. Es cortesía de mejor esfuerzo: cualquier fallo se
// registra y se descarta, jamás altera el resultado del refresco.
type ReconnectNotifier struct {
	sender Sender
}

func NewReconnectNotifier(sender Sender) *ReconnectNotifier {
	return &ReconnectNotifier{sender: sender}
}

// NotifyReconnect manda el aviso al correo presente en los claims del
// contexto. Sin correo no hay aviso.
func (n *ReconnectNotifier) NotifyReconnect(ctx context.Context, userID string, p platform.Platform, reason string) {
	if n == nil || n.sender == nil {
		return
	}
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || claims.Email == "" {
		logger.Named("email").Debug("aviso de reconexión sin destinatario",
			logger.UserID(userID), logger.Platform(string(p)))
		return
	}

	subject := fmt.Sprintf("Reconnect your %s account", p.Display())
	text := fmt.Sprintf(
		"Hi,\n\nPosting on %s stopped working for your account: %s\n\nVisit your profile and reconnect the platform to resume publishing.\n\n- PostCraft",
		p.Display(), reason,
	)
	html := fmt.Sprintf(
		"<p>Hi,</p><p>Posting on <strong>%s</strong> stopped working for your account: %s</p><p>Visit your profile and reconnect the platform to resume publishing.</p><p>- PostCraft</p>",
		p.Display(), reason,
	)

	if err := n.sender.Send(claims.Email, subject, html, text); err != nil {
		logger.Named("email").Warn("aviso de reconexión no enviado",
			logger.UserID(userID), logger.Platform(string(p)),
			logger.String("to", util.MaskEmail(claims.Email)), logger.Err(err))
		return
	}
	logger.Named("email").Info("aviso de reconexión enviado",
		logger.UserID(userID), logger.Platform(string(p)),
		logger.String("to", util.MaskEmail(claims.Email)))
}
