package validation

import (
	"fmt"
	"strings"

	"github.com/myysophia/filehub-backend/internal/db/models"
)

// CheckCategory 校验候选文件是否满足分类限制
// 分类为 nil 时直接放行，由全局策略兜底
// 大小上限为闭区间：等于上限的文件允许通过
func CheckCategory(category *models.Category, size int64, contentType string) *Result {
	if category == nil {
		return nil
	}

	if category.MaxFileSize != nil && size > *category.MaxFileSize {
		return &Result{
			Allowed: false,
			Rule:    RuleCategorySize,
			Reason:  fmt.Sprintf("文件大小 %d 字节超过分类 %s 的上限 %d 字节", size, category.Name, *category.MaxFileSize),
		}
	}

	if len(category.AllowedTypes) > 0 && !matchAnyMIME(category.AllowedTypes, contentType) {
		return &Result{
			Allowed: false,
			Rule:    RuleCategoryType,
			Reason:  fmt.Sprintf("类型 %s 不在分类 %s 允许的类型列表中", contentType, category.Name),
		}
	}

	return nil
}

// matchAnyMIME 判断内容类型是否匹配任一模式
func matchAnyMIME(patterns []string, contentType string) bool {
	for _, pattern := range patterns {
		if MatchMIME(pattern, contentType) {
			return true
		}
	}
	return false
}

// MatchMIME 判断内容类型是否匹配模式
// 支持精确匹配和 image/* 形式的通配前缀
func MatchMIME(pattern, contentType string) bool {
	if pattern == contentType {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(contentType, prefix)
	}
	return false
}
