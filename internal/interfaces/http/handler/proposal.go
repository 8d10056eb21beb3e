package handler

import (
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/interfaces/http/dto"
	"rfp-bot/pkg/errors"
	"rfp-bot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProposalHandler 提案 JSON 接口
type ProposalHandler struct {
	index repository.ProposalIndex
}

// NewProposalHandler 创建提案处理器
func NewProposalHandler(index repository.ProposalIndex) *ProposalHandler {
	return &ProposalHandler{index: index}
}

// ListProposals 获取提案列表
// @Summary 获取提案列表
// @Description 按创建时间倒序分页返回已生成的提案
// @Tags Proposals
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ProposalListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/proposals [get]
func (h *ProposalHandler) ListProposals(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	result, err := h.index.Page(ctx, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list proposals", err)
		dto.InternalError(c, "failed to list proposals")
		return
	}

	meta := dto.NewPageMeta(result.Page, result.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToProposalListResponse(result.Items), meta)
}

// GetProposal 获取单个提案
// @Summary 获取提案详情
// @Tags Proposals
// @Produce json
// @Param id path string true "提案 ID"
// @Success 200 {object} dto.Response[dto.ProposalResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/proposals/{id} [get]
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	ctx := c.Request.Context()
	id := dto.BindProposalID(c)

	record, err := h.index.Get(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get proposal", err, "proposal_id", id)
		dto.AppError(c, err)
		return
	}
	if record == nil {
		dto.AppError(c, errors.ErrProposalNotFound.WithDetail(id))
		return
	}

	dto.Success(c, dto.ToProposalResponse(record))
}
