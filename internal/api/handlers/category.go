package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/service"
	"github.com/myysophia/filehub-backend/internal/utils"
)

// CategoryHandler 文件分类处理器，分类的维护在后台模块，这里只读
type CategoryHandler struct {
	*BaseHandler
	categories service.CategoryStore
}

// NewCategoryHandler 创建分类处理器
func NewCategoryHandler(categories service.CategoryStore) *CategoryHandler {
	return &CategoryHandler{
		BaseHandler: NewBaseHandler(),
		categories:  categories,
	}
}

// List 查询全部分类
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.ListAll()
	if err != nil {
		h.Error(c, utils.CodeServerError, "查询分类列表失败")
		return
	}
	h.Success(c, categories)
}

// Get 按ID查询分类
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.BadRequest(c, "分类ID格式错误")
		return
	}

	category, err := h.categories.FindByID(uint(id))
	if err != nil {
		h.Error(c, utils.CodeCategoryNotFound, "文件分类不存在")
		return
	}
	h.Success(c, category)
}
