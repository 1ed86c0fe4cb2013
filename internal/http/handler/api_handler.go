package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ksavin/snipurl/internal/app/repository"
	"github.com/ksavin/snipurl/internal/app/service"
	"github.com/ksavin/snipurl/internal/http/middleware"
	"github.com/ksavin/snipurl/internal/http/util"
	"go.uber.org/zap"
)

const listLimit = 50

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Shortener service.Shortener
	Scopes    *repository.ScopeFactory
	Tokens    *util.TokenSigner
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger    *zap.Logger
	shortener service.Shortener
	scopes    *repository.ScopeFactory
	tokens    *util.TokenSigner
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		shortener: deps.Shortener,
		scopes:    deps.Scopes,
		tokens:    deps.Tokens,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		api.Post("/shorten", h.Shorten)
		api.Get("/stats/:code", h.Stats)
		api.Get("/urls", h.ListURLs)
		api.Post("/token", h.IssueToken)
	}
}

// ShortenRequest represents the request body for creating a short link.
type ShortenRequest struct {
	OriginalURL string `json:"original_url"`
}

// ShortenResponse represents the response for a created short link.
type ShortenResponse struct {
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

// StatsResponse carries the full record for a short link.
type StatsResponse struct {
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	OwnerID     *string   `json:"owner_id,omitempty"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Shorten handles POST /api/shorten.
func (h *APIHandler) Shorten(c *fiber.Ctx) error {
	var req ShortenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.OriginalURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "original_url is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	store := h.scopes.For(middleware.OwnerFrom(c))
	link, err := h.shortener.Shorten(ctx, store, req.OriginalURL)
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "original_url must be an absolute http or https URL",
			})
		}
		h.logger.Error("failed to shorten url", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to shorten url",
		})
	}

	return c.JSON(ShortenResponse{
		ShortCode:   link.Code,
		ShortURL:    link.ShortURL,
		OriginalURL: link.OriginalURL,
	})
}

// Stats handles GET /api/stats/:code.
func (h *APIHandler) Stats(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.shortener.Stats(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to load link stats", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load link stats",
		})
	}

	return c.JSON(statsResponse(link))
}

// ListURLs handles GET /api/urls. Anonymous callers get an empty list.
func (h *APIHandler) ListURLs(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	store := h.scopes.For(middleware.OwnerFrom(c))
	links, err := h.shortener.ListOwned(ctx, store, listLimit)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]StatsResponse, len(links))
	for i := range links {
		response[i] = statsResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"urls":  response,
		"count": len(response),
	})
}

// IssueTokenRequest represents the request body for minting an owner token.
type IssueTokenRequest struct {
	OwnerID string `json:"owner_id"`
}

// IssueToken handles POST /api/token. It is the seam toward the external
// auth system: deployments front it with their own authentication.
func (h *APIHandler) IssueToken(c *fiber.Ctx) error {
	var req IssueTokenRequest
	if err := c.BodyParser(&req); err != nil || req.OwnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "owner_id is required",
		})
	}

	token, err := h.tokens.Issue(req.OwnerID)
	if err != nil {
		h.logger.Error("failed to issue owner token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to issue token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

func statsResponse(link *service.ShortLink) StatsResponse {
	return StatsResponse{
		ShortCode:   link.Code,
		ShortURL:    link.ShortURL,
		OriginalURL: link.OriginalURL,
		OwnerID:     link.OwnerID,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
	}
}
