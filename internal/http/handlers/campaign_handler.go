package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/influnest/backend/internal/http/dto"
	"github.com/influnest/backend/internal/middleware"
	"github.com/influnest/backend/internal/models"
	"github.com/influnest/backend/internal/payout"
	"github.com/influnest/backend/internal/repositories"
	"github.com/influnest/backend/internal/services"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func parseCampaignID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	campaign := &models.Campaign{
		Name:           req.Name,
		Description:    req.Description,
		Handle:         req.Handle,
		FundedAmount:   req.FundedAmount,
		TargetLikes:    req.TargetLikes,
		TargetComments: req.TargetComments,
		TargetViews:    req.TargetViews,
		TargetShares:   req.TargetShares,
		DeadlineAt:     req.DeadlineAt,
	}

	caller := middleware.GetCallerAddress(c)
	if err := h.campaignService.Create(c.Context(), caller, campaign); err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) FundCampaign(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	var req dto.FundCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCallerAddress(c)
	campaign, err := h.campaignService.Fund(c.Context(), id, caller, req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) AddPost(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	var req dto.AddPostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCallerAddress(c)
	post, err := h.campaignService.AddPost(c.Context(), id, caller, req.PostURL, req.ExternalPostID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: post})
}

func (h *CampaignHandler) UpdateMetrics(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	var req dto.UpdateMetricsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.campaignService.UpdateMetrics(c.Context(), id, caller, payout.MetricSet{
		Likes:    req.Likes,
		Comments: req.Comments,
		Views:    req.Views,
		Shares:   req.Shares,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.MetricUpdateResponse{
		Campaign: result.Campaign,
		Released: result.Released,
	}})
}

func (h *CampaignHandler) CancelCampaign(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	caller := middleware.GetCallerAddress(c)
	if err := h.campaignService.Cancel(c.Context(), id, caller); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CampaignHandler) ExpireCampaign(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	caller := middleware.GetCallerAddress(c)
	campaign, err := h.campaignService.Expire(c.Context(), id, caller)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	campaign, err := h.campaignService.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	posts, err := h.campaignService.GetPosts(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignResponse{Campaign: campaign, Posts: posts}})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	filter := repositories.CampaignFilter{Limit: 20}

	if v := c.Query("influencer"); v != "" {
		filter.InfluencerAddr = &v
	}
	if v := c.Query("brand"); v != "" {
		filter.BrandAddr = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.CampaignStatus(v)
		if !status.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid status filter"})
		}
		filter.Status = &status
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	campaigns, err := h.campaignService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list campaigns failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

func (h *CampaignHandler) GetVault(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	vault, transfers, err := h.campaignService.GetVault(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.VaultResponse{Vault: vault, Transfers: transfers}})
}

func (h *CampaignHandler) GetCampaignEvents(c *fiber.Ctx) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	logs, err := h.campaignService.GetEvents(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
