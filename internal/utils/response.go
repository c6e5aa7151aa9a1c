package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 定义状态码
const (
	CodeSuccess       = 200 // 成功
	CodeInvalidParams = 400 // 参数错误
	CodeUnauthorized  = 401 // 未授权
	CodeForbidden     = 403 // 禁止访问
	CodeNotFound      = 404 // 资源不存在
	CodeInternalError = 500 // 服务器内部错误

	// 文件相关状态码
	CodeServerError      = 50001 // 服务器错误
	CodeFileNotFound     = 40405 // 文件不存在
	CodeCategoryNotFound = 40406 // 分类不存在
	CodePolicyRejected   = 42201 // 策略拒绝
	CodeProviderError    = 50002 // 存储后端错误
)

// 对应的消息
var codeMsgMap = map[int]string{
	CodeSuccess:       "操作成功",
	CodeInvalidParams: "参数错误",
	CodeUnauthorized:  "未授权",
	CodeForbidden:     "禁止访问",
	CodeNotFound:      "资源不存在",
	CodeInternalError: "服务器内部错误",

	CodeServerError:      "服务器错误",
	CodeFileNotFound:     "文件不存在",
	CodeCategoryNotFound: "文件分类不存在",
	CodePolicyRejected:   "文件未通过上传策略校验",
	CodeProviderError:    "存储后端操作失败",
}

// ResponseWithJSON 返回JSON响应
func ResponseWithJSON(c *gin.Context, code int, data interface{}) {
	msg, ok := codeMsgMap[code]
	if !ok {
		msg = "未知错误"
	}

	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    data,
	})
}

// ResponseWithData 返回成功响应，包含数据
func ResponseWithData(c *gin.Context, data interface{}) {
	ResponseWithJSON(c, CodeSuccess, data)
}

// ResponseSuccess 返回成功响应，不包含数据
func ResponseSuccess(c *gin.Context) {
	ResponseWithJSON(c, CodeSuccess, nil)
}

// ResponseError 返回错误响应，携带具体错误消息
func ResponseError(c *gin.Context, code int, err error) {
	message := codeMsgMap[code]
	if err != nil {
		message = err.Error()
	}

	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}
