package handler

import (
	"errors"
	"net/http"
	"time"

	"ai-memo-app/src/domain"
	"ai-memo-app/src/metrics"
	"ai-memo-app/src/notify"
	"ai-memo-app/src/usecase"
	"ai-memo-app/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// invalidatePath is the client-side view refreshed after every mutation
const invalidatePath = "/"

// MemoHandler handles HTTP requests for memo operations
type MemoHandler struct {
	memoUsecase usecase.MemoUsecase
	publisher   notify.Publisher
	metrics     *metrics.Collector
	validator   *validator.CustomValidator
	logger      *logrus.Logger
}

// NewMemoHandler creates a new memo handler. publisher and collector may be nil.
func NewMemoHandler(memoUsecase usecase.MemoUsecase, publisher notify.Publisher, collector *metrics.Collector, logger *logrus.Logger) *MemoHandler {
	return &MemoHandler{
		memoUsecase: memoUsecase,
		publisher:   publisher,
		metrics:     collector,
		validator:   validator.NewCustomValidator(),
		logger:      logger,
	}
}

// ListMemos returns every memo, newest first
func (h *MemoHandler) ListMemos(c *gin.Context) {
	memos, err := h.memoUsecase.FetchMemos(c.Request.Context())
	h.record("list", err)
	if err != nil {
		h.logger.WithError(err).Error("メモリストの取得に失敗")
		h.respondError(c, err, "Failed to get memos")
		return
	}

	c.JSON(http.StatusOK, toMemoResponseDTOs(memos))
}

// CreateMemo creates a new memo
func (h *MemoHandler) CreateMemo(c *gin.Context) {
	var req CreateMemoRequestDTO
	if !h.bind(c, &req) {
		return
	}
	req.Tags = validator.NormalizeTags(req.Tags)

	memo, err := h.memoUsecase.CreateMemo(c.Request.Context(), req.toInput())
	h.record("create", err)
	if err != nil {
		h.logger.WithError(err).Error("メモの作成に失敗")
		h.respondError(c, err, "Failed to create memo")
		return
	}

	h.logger.WithField("memo_id", memo.ID).Info("メモを作成しました")
	h.invalidate()
	c.JSON(http.StatusCreated, toMemoResponseDTO(memo))
}

// GetMemo retrieves a memo by ID
func (h *MemoHandler) GetMemo(c *gin.Context) {
	id := c.Param("id")

	memo, err := h.memoUsecase.GetMemo(c.Request.Context(), id)
	h.record("get", err)
	if err != nil {
		h.logger.WithError(err).WithField("memo_id", id).Error("メモの取得に失敗")
		h.respondError(c, err, "Failed to get memo")
		return
	}

	c.JSON(http.StatusOK, toMemoResponseDTO(memo))
}

// UpdateMemo applies the supplied fields to an existing memo
func (h *MemoHandler) UpdateMemo(c *gin.Context) {
	id := c.Param("id")

	var req UpdateMemoRequestDTO
	if !h.bind(c, &req) {
		return
	}
	if req.Tags != nil {
		req.Tags = validator.NormalizeTags(req.Tags)
	}

	patch := req.toPatch()
	var (
		memo *domain.Memo
		err  error
	)
	// 要約だけの更新は本文の更新として扱わない
	if !patch.IsEmpty() || req.Summary == nil {
		memo, err = h.memoUsecase.UpdateMemo(c.Request.Context(), id, patch)
		h.record("update", err)
	}
	if err == nil && req.Summary != nil {
		memo, err = h.memoUsecase.UpdateSummary(c.Request.Context(), id, *req.Summary)
		h.record("update_summary", err)
	}
	if err != nil {
		h.logger.WithError(err).WithField("memo_id", id).Error("メモの更新に失敗")
		h.respondError(c, err, "Failed to update memo")
		return
	}

	h.logger.WithField("memo_id", id).Info("メモを更新しました")
	h.invalidate()
	c.JSON(http.StatusOK, toMemoResponseDTO(memo))
}

// DeleteMemo deletes a memo
func (h *MemoHandler) DeleteMemo(c *gin.Context) {
	id := c.Param("id")

	err := h.memoUsecase.DeleteMemo(c.Request.Context(), id)
	h.record("delete", err)
	if err != nil {
		h.logger.WithError(err).WithField("memo_id", id).Error("メモの削除に失敗")
		h.respondError(c, err, "Failed to delete memo")
		return
	}

	h.logger.WithField("memo_id", id).Info("メモを削除しました")
	h.invalidate()
	c.JSON(http.StatusOK, DeleteResponseDTO{Success: true})
}

// SummarizeMemo generates and stores an AI summary
func (h *MemoHandler) SummarizeMemo(c *gin.Context) {
	var req SummaryRequestDTO
	if !h.bind(c, &req) {
		return
	}

	start := time.Now()
	result, err := h.memoUsecase.SummarizeMemo(c.Request.Context(), req.ID, req.Title, req.Content)
	h.recordAI("summary", start, err)
	if err != nil {
		h.logger.WithError(err).WithField("memo_id", req.ID).Error("要約の生成に失敗")
		h.respondError(c, err, "Failed to summarize memo")
		return
	}

	h.invalidate()
	c.JSON(http.StatusOK, SummaryResponseDTO{
		Summary: result.Summary,
		Memo:    toMemoResponseDTO(result.Memo),
	})
}

// GenerateTags suggests tags for a draft memo
func (h *MemoHandler) GenerateTags(c *gin.Context) {
	var req TagsRequestDTO
	if !h.bind(c, &req) {
		return
	}

	start := time.Now()
	tags, err := h.memoUsecase.GenerateTags(c.Request.Context(), req.Title, req.Content)
	h.recordAI("tags", start, err)
	if err != nil {
		h.logger.WithError(err).Error("タグの生成に失敗")
		h.respondError(c, err, "Failed to generate tags")
		return
	}

	c.JSON(http.StatusOK, TagsResponseDTO{Tags: tags})
}

// bind decodes the JSON body and runs the custom rules; it writes the 400 itself
func (h *MemoHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.WithError(err).Warn("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		h.logger.WithError(err).Warn("リクエストの検証に失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return false
	}
	return true
}

// respondError writes the error body. Server-side failures carry only a fixed
// message; the wrapped detail may hold upstream URLs or credentials and stays in the log.
func (h *MemoHandler) respondError(c *gin.Context, err error, action string) {
	status := statusFor(err)
	resp := ErrorResponseDTO{Error: action}
	switch {
	case status < http.StatusInternalServerError:
		resp.Message = err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		resp.Message = domain.ErrProviderUnavailable.Error()
	case errors.Is(err, domain.ErrProviderEmptyResponse):
		resp.Message = domain.ErrProviderEmptyResponse.Error()
	}
	c.JSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMemoNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *MemoHandler) invalidate() {
	if h.publisher != nil {
		h.publisher.Invalidate(invalidatePath)
	}
}

func (h *MemoHandler) record(op string, err error) {
	if h.metrics != nil {
		h.metrics.RecordMemoOp(op, err)
	}
}

func (h *MemoHandler) recordAI(task string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.RecordAI(task, time.Since(start), err)
	}
}
