package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/tracker"
	"github.com/myysophia/filehub-backend/internal/utils"
)

// ProgressHandler 处理上传进度查询和SSE
type ProgressHandler struct {
	*BaseHandler
	tracker *tracker.Tracker
}

func NewProgressHandler(t *tracker.Tracker) *ProgressHandler {
	return &ProgressHandler{BaseHandler: NewBaseHandler(), tracker: t}
}

// Init 登记一批待上传文件并返回各自的跟踪ID，顺序与请求一致
func (h *ProgressHandler) Init(c *gin.Context) {
	var req struct {
		Files []struct {
			Filename string `json:"filename"`
			Total    int64  `json:"total"`
		} `json:"files" binding:"required,min=1"`
	}
	if err := utils.BindAndValidate(c, &req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	files := make([]tracker.FileInfo, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, tracker.FileInfo{Filename: f.Filename, Size: f.Total})
	}
	ids := h.tracker.Start(files)
	h.Success(c, gin.H{"ids": ids})
}

// GetProgress 返回单个上传任务的进度
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	id := c.Param("id")
	if a, ok := h.tracker.Get(id); ok {
		h.Success(c, a)
	} else {
		c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
	}
}

// ListProgress 返回全部上传任务的进度
func (h *ProgressHandler) ListProgress(c *gin.Context) {
	h.Success(c, h.tracker.List())
}

// StreamProgress 使用SSE实时推送进度
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	id := c.Param("id")
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	ch := h.tracker.Subscribe(id)
	defer h.tracker.Unsubscribe(id, ch)

	notify := c.Writer.CloseNotify()
	for {
		select {
		case a, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("progress", a)
			c.Writer.Flush()
		case <-notify:
			return
		}
	}
}

// ClearCompleted 清理已完成的任务，失败任务保留以便排查
func (h *ProgressHandler) ClearCompleted(c *gin.Context) {
	h.tracker.ClearCompleted()
	h.Success(c, nil)
}

// Dismiss 移除单个任务记录
func (h *ProgressHandler) Dismiss(c *gin.Context) {
	h.tracker.Dismiss(c.Param("id"))
	h.Success(c, nil)
}
