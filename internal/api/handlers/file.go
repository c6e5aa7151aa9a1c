package handlers

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/db/repository"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/service"
	"github.com/myysophia/filehub-backend/internal/tracker"
	"github.com/myysophia/filehub-backend/internal/utils"
)

// FileHandler 文件上传与管理处理器
type FileHandler struct {
	*BaseHandler
	svc     *service.UploadService
	policy  *policy.Store
	tracker *tracker.Tracker
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.UploadService, policyStore *policy.Store, t *tracker.Tracker) *FileHandler {
	return &FileHandler{
		BaseHandler: NewBaseHandler(),
		svc:         svc,
		policy:      policyStore,
		tracker:     t,
	}
}

// identity 从请求上下文取出已认证身份
func (h *FileHandler) identity(c *gin.Context) service.Identity {
	username, _ := c.Get("username")
	name, _ := username.(string)
	return service.Identity{
		UserID:   c.GetUint("userID"),
		Username: name,
		IP:       c.ClientIP(),
	}
}

// parseOptions 解析上传选项
func (h *FileHandler) parseOptions(c *gin.Context) (service.UploadOptions, error) {
	opts := service.UploadOptions{
		Provider: c.PostForm("provider"),
		Public:   c.PostForm("is_public") == "true",
	}

	if raw := c.PostForm("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return opts, errors.New("category_id 格式错误")
		}
		categoryID := uint(id)
		opts.CategoryID = &categoryID
	}

	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}

	return opts, nil
}

// toInput 把表单文件转换为服务层输入
func toInput(fh *multipart.FileHeader, src multipart.File) service.UploadInput {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return service.UploadInput{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: contentType,
		Reader:      src,
	}
}

// Upload 上传单个文件
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "获取文件失败")
		return
	}

	opts, err := h.parseOptions(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	src, err := fh.Open()
	if err != nil {
		h.Error(c, utils.CodeServerError, "打开文件失败")
		return
	}
	defer src.Close()

	in := toInput(fh, src)

	// 客户端可携带尝试ID，服务端顺带驱动进度与终态
	attemptID := c.PostForm("attempt_id")
	if attemptID != "" {
		in.Reader = tracker.NewReader(h.tracker, attemptID, in.Reader)
	}

	resp, err := h.svc.UploadOne(h.identity(c), in, opts)
	if err != nil {
		if attemptID != "" {
			h.tracker.Fail(attemptID, err.Error())
		}
		h.uploadError(c, err)
		return
	}

	if attemptID != "" {
		h.tracker.Complete(attemptID)
	}
	h.Success(c, resp)
}

// UploadBatch 批量上传
// 每个文件独立尝试，返回成功与失败的分区结果
func (h *FileHandler) UploadBatch(c *gin.Context) {
	if !h.policy.IsFeatureEnabled("batch_upload") {
		h.Forbidden(c, "批量上传功能未开启")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.BadRequest(c, "解析上传表单失败")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		h.BadRequest(c, "未提供任何文件")
		return
	}

	opts, err := h.parseOptions(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	inputs := make([]service.UploadInput, 0, len(headers))
	var sources []multipart.File
	defer func() {
		for _, src := range sources {
			src.Close()
		}
	}()

	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			h.Error(c, utils.CodeServerError, "打开文件失败")
			return
		}
		sources = append(sources, src)
		inputs = append(inputs, toInput(fh, src))
	}

	result := h.svc.UploadMany(h.identity(c), inputs, opts)
	h.Success(c, gin.H{
		"succeeded":       result.Succeeded,
		"failed":          result.Failed,
		"succeeded_count": len(result.Succeeded),
		"failed_count":    len(result.Failed),
	})
}

// List 查询文件列表
func (h *FileHandler) List(c *gin.Context) {
	p := h.policy.Resolve()
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(p.UI.PageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.UI.PageSize
	}

	filter := repository.ListFilter{
		Provider:    c.Query("provider"),
		ContentType: c.Query("content_type"),
		Search:      c.Query("search"),
		Tags:        c.QueryArray("tag"),
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}

	// 默认只查询当前用户的文件
	if c.Query("scope") != "all" {
		ownerID := c.GetUint("userID")
		filter.OwnerID = &ownerID
	}

	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			h.BadRequest(c, "category_id 格式错误")
			return
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}

	if raw := c.Query("is_public"); raw != "" {
		isPublic := raw == "true"
		filter.IsPublic = &isPublic
	}

	files, total, err := h.svc.List(filter)
	if err != nil {
		h.Error(c, utils.CodeServerError, "查询文件列表失败")
		return
	}

	h.Success(c, gin.H{
		"total": total,
		"items": files,
	})
}

// Delete 删除单个文件
func (h *FileHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.BadRequest(c, "文件ID格式错误")
		return
	}

	if err := h.svc.DeleteOne(uint(id)); err != nil {
		h.uploadError(c, err)
		return
	}

	h.Success(c, nil)
}

// BatchDelete 批量删除
func (h *FileHandler) BatchDelete(c *gin.Context) {
	if !h.policy.IsFeatureEnabled("batch_delete") {
		h.Forbidden(c, "批量删除功能未开启")
		return
	}

	var req struct {
		IDs []uint `json:"ids" binding:"required,min=1"`
	}
	if err := utils.BindAndValidate(c, &req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result := h.svc.DeleteMany(req.IDs)
	h.Success(c, result)
}

// GetAccessURL 签发文件访问URL
func (h *FileHandler) GetAccessURL(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.BadRequest(c, "文件ID格式错误")
		return
	}

	var expiration time.Duration
	if raw := c.Query("expires_in"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			h.BadRequest(c, "expires_in 格式错误")
			return
		}
		expiration = time.Duration(seconds) * time.Second
	}

	url, err := h.svc.AccessURL(uint(id), expiration)
	if err != nil {
		h.uploadError(c, err)
		return
	}

	h.Success(c, gin.H{
		"access_url": url,
	})
}

// Stats 聚合统计
func (h *FileHandler) Stats(c *gin.Context) {
	var ownerID *uint
	if c.Query("scope") != "all" {
		id := c.GetUint("userID")
		ownerID = &id
	}

	stats, err := h.svc.Stats(ownerID)
	if err != nil {
		h.Error(c, utils.CodeServerError, "聚合统计失败")
		return
	}

	h.Success(c, stats)
}

// uploadError 按错误分类映射响应码
func (h *FileHandler) uploadError(c *gin.Context, err error) {
	var reject *service.RejectError
	var providerErr *service.ProviderError

	switch {
	case errors.As(err, &reject):
		utils.ResponseError(c, utils.CodePolicyRejected, reject)
	case errors.Is(err, service.ErrCategoryNotFound):
		utils.ResponseError(c, utils.CodeCategoryNotFound, err)
	case errors.Is(err, service.ErrFileNotFound):
		utils.ResponseError(c, utils.CodeFileNotFound, err)
	case errors.As(err, &providerErr):
		utils.ResponseError(c, utils.CodeProviderError, err)
	default:
		utils.ResponseError(c, utils.CodeServerError, err)
	}
}
