package handler

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	"github.com/ksavin/snipurl/internal/http/view"
	infraprom "github.com/ksavin/snipurl/internal/infra/prometheus"
	"go.uber.org/zap"
)

// LinkResolver translates a short code into its stored record.
type LinkResolver interface {
	Resolve(ctx context.Context, code string) (*model.Link, error)
}

// ClickRecorder hands one click event to the accounting pipeline.
type ClickRecorder interface {
	Publish(code string, knownClicks int64, ip, userAgent string) error
}

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Resolver  LinkResolver
	Clicks    ClickRecorder
	Postgres  *pgxpool.Pool
	ErrorPage string
	Metrics   *infraprom.Metrics
}

// RedirectHandler serves the redirect path: resolve, respond, then account
// for the click off the request path.
type RedirectHandler struct {
	logger    *zap.Logger
	resolver  LinkResolver
	clicks    ClickRecorder
	postgres  *pgxpool.Pool
	errorPage string
	metrics   *infraprom.Metrics
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = infraprom.NopMetrics()
	}
	errorPage := deps.ErrorPage
	if errorPage == "" {
		errorPage = "/missing"
	}
	return &RedirectHandler{
		logger:    logger,
		resolver:  deps.Resolver,
		clicks:    deps.Clicks,
		postgres:  deps.Postgres,
		errorPage: errorPage,
		metrics:   metrics,
	}
}

// Register wires redirect routes onto the provided router. The wildcard
// route must be registered after every fixed route.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/missing", h.Missing)
	router.Get("/:code", h.Resolve)
}

// Health reports liveness, including a Postgres ping when a pool is wired.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if h.postgres != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.postgres.Ping(ctx); err != nil {
			h.logger.Warn("health check postgres ping failed", zap.Error(err))
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"service": "snipurl",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Missing serves the friendly page unknown codes are redirected to.
func (h *RedirectHandler) Missing(c *fiber.Ctx) error {
	html, err := view.RenderMissingPage(view.MissingPageData{
		Code: c.Query("code"),
	})
	if err != nil {
		h.logger.Error("failed to render missing page", zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "short link not found",
		})
	}

	return c.Status(fiber.StatusNotFound).
		Type("html", "utf-8").
		SendString(html)
}

// Resolve handles GET /:code. The redirect is issued before the click is
// accounted; any resolution failure falls back to the error page rather than
// exposing a raw error.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Redirect(h.errorPage, fiber.StatusFound)
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.resolver.Resolve(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			h.logger.Error("failed to resolve short link", zap.Error(err), zap.String("code", code))
		}
		return c.Redirect(h.errorPage+"?code="+url.QueryEscape(code), fiber.StatusFound)
	}

	if h.clicks != nil {
		// Copy request values out before handing off; the fiber context is
		// recycled once the handler returns.
		ip := c.IP()
		userAgent := c.Get(fiber.HeaderUserAgent)
		go h.recordClick(link.Code, link.Clicks, ip, userAgent)
	}

	h.metrics.Redirects.Inc()
	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.OriginalURL))
	return c.Redirect(link.OriginalURL, fiber.StatusFound)
}

func (h *RedirectHandler) recordClick(code string, knownClicks int64, ip, userAgent string) {
	if err := h.clicks.Publish(code, knownClicks, ip, userAgent); err != nil {
		h.logger.Error("failed to publish click event", zap.Error(err), zap.String("code", code))
	}
}
