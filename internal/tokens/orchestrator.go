package tokens

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/security/secretbox"
)

// ReconnectNotifier avisa al usuario que una plataforma necesita
// reconexión. La notificación es cortesía: su fallo jamás altera el
// resultado del refresco.
type ReconnectNotifier interface {
	NotifyReconnect(ctx context.Context, userID string, p platform.Platform, reason string)
}

// Recorder recibe las observaciones del ciclo de refresco. La
// implementación real vive en internal/metrics.
type Recorder interface {
	ObserveRefresh(p platform.Platform, outcome string, d time.Duration)
	Coalesced(p platform.Platform)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(platform.Platform, string, time.Duration) {}
func (nopRecorder) Coalesced(platform.Platform)                             {}

// Outcomes reportados al Recorder.
const (
	OutcomeValid     = "valid"
	OutcomeRefreshed = "refreshed"
	OutcomeReconnect = "reconnect"
	OutcomeTransient = "transient"
	OutcomePartial   = "partial"
)

// Orchestrator coordina el ciclo completo: resolver credenciales, evaluar
// expiración, refrescar contra el proveedor y persistir. Los errores nunca
// cruzan su frontera como error de Go: cada plataforma entrega un
// RefreshResult y el fallo de una jamás bloquea a las demás.
type Orchestrator struct {
	resolver *Resolver
	engine   *Engine
	repo     repository.SocialAccountRepository
	box      secretbox.Box
	registry *Registry
	notifier ReconnectNotifier
	recorder Recorder
	now      func() time.Time

	// sf colapsa refrescos concurrentes del mismo usuario y plataforma
	// en un solo intercambio con el proveedor.
	sf singleflight.Group
}

// OrchestratorOption configura el Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithNotifier instala el aviso de reconexión.
func WithNotifier(n ReconnectNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithRecorder instala el registro de métricas.
func WithRecorder(r Recorder) OrchestratorOption {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithOrchestratorClock reemplaza el reloj (pruebas).
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(reg *Registry, repo repository.SocialAccountRepository, box secretbox.Box, engine *Engine, opts ...OrchestratorOption) *Orchestrator {
	if box == nil {
		box = secretbox.Noop{}
	}
	o := &Orchestrator{
		resolver: NewResolver(repo, box),
		engine:   engine,
		repo:     repo,
		box:      box,
		registry: reg,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckAndRefreshAll evalúa y refresca varias plataformas en paralelo.
// Devuelve un mapa indexado por el nombre pedido; cada entrada es
// independiente. Con lista vacía se evalúan todas las registradas.
func (o *Orchestrator) CheckAndRefreshAll(ctx context.Context, userID string, platforms []string) map[string]RefreshResult {
	if len(platforms) == 0 {
		for _, p := range o.registry.Supported() {
			platforms = append(platforms, string(p))
		}
	}

	results := make(map[string]RefreshResult, len(platforms))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range platforms {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			var res RefreshResult
			p, err := platform.Parse(name)
			if err != nil {
				res = RefreshResult{Success: false, Error: fmt.Sprintf("Platform %s not supported", name)}
			} else {
				res = o.CheckAndRefresh(ctx, userID, p)
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// CheckAndRefresh ejecuta el ciclo para una plataforma. Llamadas
// concurrentes con el mismo usuario y plataforma comparten un único
// intercambio con el proveedor.
func (o *Orchestrator) CheckAndRefresh(ctx context.Context, userID string, p platform.Platform) RefreshResult {
	key := userID + "|" + string(p)
	v, _, shared := o.sf.Do(key, func() (any, error) {
		return o.checkAndRefresh(ctx, userID, p), nil
	})
	if shared {
		o.recorder.Coalesced(p)
	}
	return v.(RefreshResult)
}

func (o *Orchestrator) checkAndRefresh(ctx context.Context, userID string, p platform.Platform) RefreshResult {
	start := o.now()
	res := o.evaluate(ctx, userID, p)
	o.recorder.ObserveRefresh(p, outcomeOf(res), o.now().Sub(start))

	// El aviso se dispara una vez por evaluación real, no por cada
	// llamada coalescida.
	if res.NeedsReconnect && o.notifier != nil {
		go o.notifier.NotifyReconnect(context.WithoutCancel(ctx), userID, p, res.Error)
	}
	return res
}

func outcomeOf(r RefreshResult) string {
	switch {
	case r.Partial():
		return OutcomePartial
	case r.Success && r.AccessToken != "":
		return OutcomeRefreshed
	case r.Success:
		return OutcomeValid
	case r.NeedsReconnect:
		return OutcomeReconnect
	default:
		return OutcomeTransient
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, userID string, p platform.Platform) RefreshResult {
	log := logger.L().With(logger.UserID(userID), logger.Platform(string(p)))

	accounts, err := o.resolver.Resolve(ctx, userID, p)
	if err != nil {
		if repository.IsNotFound(err) {
			return RefreshResult{
				Success:        false,
				Error:          fmt.Sprintf("%s account not connected", p),
				NeedsReconnect: true,
				NotConnected:   true,
			}
		}
		log.Error("no se pudo resolver la cuenta", logger.Err(err))
		return RefreshResult{Success: false, Error: err.Error()}
	}

	now := o.now()

	if p == platform.Facebook {
		return o.refreshFacebookPages(ctx, userID, accounts, now, log)
	}

	// X guarda una sola fila; Discord puede tener varias que comparten el
	// mismo token de bot. Basta con que una fila del grupo esté vencida
	// para refrescar, y el intercambio usa el refresh token de la primera.
	primary := accounts[0]

	if !anyExpired(accounts, now) {
		return RefreshResult{Success: true, ExpiresAt: primary.ExpiresAt}
	}

	res := o.engine.Refresh(ctx, p, primary.RefreshToken, primary.AccessToken)
	if !res.Success {
		return res
	}

	if err := o.persist(ctx, userID, p, primary.PlatformAccountID, res); err != nil {
		log.Error("refresco exitoso pero la persistencia falló", logger.Err(err))
		return RefreshResult{Success: false, Error: "failed to store refreshed credentials"}
	}

	log.Info("token refrescado",
		logger.AccountID(primary.PlatformAccountID),
		logger.ExpiresAt(derefTime(res.ExpiresAt)))
	return res
}

// refreshFacebookPages recorre las páginas en secuencia. Cada página vive
// o muere por su cuenta: el fallo de una no aborta a las siguientes y el
// éxito parcial se reporta página por página, no colapsado en un veredicto.
func (o *Orchestrator) refreshFacebookPages(ctx context.Context, userID string, accounts []repository.SocialAccount, now time.Time, log *zap.Logger) RefreshResult {
	pages := make([]PageResult, 0, len(accounts))
	var earliest *time.Time
	var reconnects, failures int

	for _, acct := range accounts {
		pr := PageResult{PageID: acct.PlatformAccountID, PageName: acct.AccountUsername}

		if !IsExpired(acct.ExpiresAt, now) {
			pr.Success = true
			pr.ExpiresAt = acct.ExpiresAt
			pages = append(pages, pr)
			earliest = earlier(earliest, acct.ExpiresAt)
			continue
		}

		res := o.engine.Refresh(ctx, platform.Facebook, acct.RefreshToken, acct.AccessToken)
		if !res.Success {
			pr.Error = res.Error
			pr.NeedsReconnect = res.NeedsReconnect
			pages = append(pages, pr)
			failures++
			if res.NeedsReconnect {
				reconnects++
			}
			continue
		}

		if err := o.persist(ctx, userID, platform.Facebook, acct.PlatformAccountID, res); err != nil {
			log.Error("página refrescada pero la persistencia falló",
				logger.AccountID(acct.PlatformAccountID), logger.Err(err))
			pr.Error = "failed to store refreshed credentials"
			pages = append(pages, pr)
			failures++
			continue
		}

		pr.Success = true
		pr.ExpiresAt = res.ExpiresAt
		pages = append(pages, pr)
		earliest = earlier(earliest, res.ExpiresAt)
	}

	out := RefreshResult{
		Success:   failures == 0,
		ExpiresAt: earliest,
		Pages:     pages,
	}
	if failures > 0 {
		out.Error = fmt.Sprintf("%d of %d pages failed to refresh", failures, len(pages))
		// Sólo si todas las páginas exigen reconexión el veredicto
		// global lo exige también.
		out.NeedsReconnect = reconnects == len(pages)
		if out.NeedsReconnect {
			out.Error = reconnectMessage(platform.Facebook)
		}
	}
	return out
}

// persist sella los tokens nuevos y los escribe. Discord comparte un solo
// token de bot entre todas sus filas, así que la actualización cubre la
// plataforma completa; X y Facebook actualizan la fila puntual.
func (o *Orchestrator) persist(ctx context.Context, userID string, p platform.Platform, platformAccountID string, res RefreshResult) error {
	sealedAccess, err := o.box.Seal(res.AccessToken)
	if err != nil {
		return err
	}
	sealedRefresh := ""
	if res.RefreshToken != "" {
		sealedRefresh, err = o.box.Seal(res.RefreshToken)
		if err != nil {
			return err
		}
	}

	upd := repository.CredentialUpdate{
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    res.ExpiresAt,
	}

	if p.SharedCredential() {
		_, err = o.repo.UpdateCredentialAll(ctx, userID, p, upd)
		return err
	}
	return o.repo.UpdateCredentialByAccount(ctx, userID, p, platformAccountID, upd)
}

func anyExpired(accounts []repository.SocialAccount, now time.Time) bool {
	for _, acct := range accounts {
		if IsExpired(acct.ExpiresAt, now) {
			return true
		}
	}
	return false
}

func earlier(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
