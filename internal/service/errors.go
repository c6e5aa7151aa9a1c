package service

import "errors"

// 配置类错误，属于调用方编程错误而非瞬态故障
var (
	ErrCategoryNotFound = errors.New("指定的文件分类不存在")
	ErrFileNotFound     = errors.New("文件不存在")
)

// RejectError 策略拒绝
// 在任何 I/O 之前产生，不做自动重试，原样返回给调用方
type RejectError struct {
	Rule   string
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

// ProviderError 存储后端操作失败
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
