package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/policy"
)

// 校验规则标识
const (
	RuleCategorySize = "category_size"
	RuleCategoryType = "category_type"
	RuleGlobalSize   = "global_size"
	RuleBlockedType  = "blocked_type"
	RuleExtension    = "extension"
	RuleBatchCount   = "batch_count"
	RuleBatchBytes   = "batch_bytes"
)

// Candidate 待校验的候选文件
type Candidate struct {
	Filename    string
	Size        int64
	ContentType string
	Category    *models.Category
}

// Result 校验结果
type Result struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Accepted 通过校验的结果
func Accepted() Result {
	return Result{Allowed: true}
}

// 危险类型黑名单，不受策略覆盖影响
var blockedContentTypes = map[string]bool{
	"application/x-msdownload":                    true,
	"application/x-executable":                    true,
	"application/x-dosexec":                       true,
	"application/x-elf":                           true,
	"application/x-mach-binary":                   true,
	"application/x-sh":                            true,
	"application/x-shellscript":                   true,
	"application/x-msi":                           true,
	"application/x-bat":                           true,
	"application/vnd.microsoft.portable-executable": true,
}

// 各内容大类的已知扩展名集合
var classExtensions = map[string]map[string]bool{
	"image": {
		"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
		"bmp": true, "svg": true, "ico": true, "tiff": true,
	},
	"video": {
		"mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true,
		"flv": true, "wmv": true, "m4v": true,
	},
	"audio": {
		"mp3": true, "wav": true, "ogg": true, "flac": true, "aac": true,
		"m4a": true, "wma": true,
	},
	"text": {
		"txt": true, "md": true, "csv": true, "log": true, "html": true,
		"htm": true, "xml": true, "json": true, "yaml": true, "yml": true,
	},
	"application": {
		"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
		"ppt": true, "pptx": true, "zip": true, "rar": true, "7z": true,
		"tar": true, "gz": true, "json": true, "xml": true, "rtf": true,
	},
}

// Pipeline 文件校验管道
// 按固定顺序执行检查，首个失败即短路返回
type Pipeline struct {
	policy *policy.Store
}

// NewPipeline 创建文件校验管道
func NewPipeline(policyStore *policy.Store) *Pipeline {
	return &Pipeline{policy: policyStore}
}

// ValidateFile 校验单个文件
// 顺序：分类限制 → 全局大小上限 → 危险类型黑名单 → 扩展名一致性
func (p *Pipeline) ValidateFile(c Candidate) Result {
	// 分类限制
	if rejection := CheckCategory(c.Category, c.Size, c.ContentType); rejection != nil {
		return *rejection
	}

	// 全局大小上限
	limits := p.policy.Resolve().Limits
	if limits.MaxFileSize > 0 && c.Size > limits.MaxFileSize {
		return Result{
			Allowed: false,
			Rule:    RuleGlobalSize,
			Reason:  fmt.Sprintf("文件大小 %d 字节超过全局上限 %d 字节", c.Size, limits.MaxFileSize),
		}
	}

	// 危险类型黑名单，硬性拒绝
	if blockedContentTypes[strings.ToLower(c.ContentType)] {
		return Result{
			Allowed: false,
			Rule:    RuleBlockedType,
			Reason:  fmt.Sprintf("类型 %s 属于危险类型，禁止上传", c.ContentType),
		}
	}

	// 扩展名与内容类型一致性
	if rejection := checkExtension(c.Filename, c.ContentType); rejection != nil {
		return *rejection
	}

	return Accepted()
}

// ValidateBatch 校验一批文件
// 批级检查（数量、总大小）先于单文件检查，批级失败时不再做单文件校验
func (p *Pipeline) ValidateBatch(candidates []Candidate) (Result, []Result) {
	limits := p.policy.Resolve().Limits

	if limits.MaxBatchCount > 0 && len(candidates) > limits.MaxBatchCount {
		return Result{
			Allowed: false,
			Rule:    RuleBatchCount,
			Reason:  fmt.Sprintf("单批文件数 %d 超过上限 %d", len(candidates), limits.MaxBatchCount),
		}, nil
	}

	var totalBytes int64
	for _, c := range candidates {
		totalBytes += c.Size
	}
	if limits.MaxBatchBytes > 0 && totalBytes > limits.MaxBatchBytes {
		return Result{
			Allowed: false,
			Rule:    RuleBatchBytes,
			Reason:  fmt.Sprintf("单批总大小 %d 字节超过上限 %d 字节", totalBytes, limits.MaxBatchBytes),
		}, nil
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = p.ValidateFile(c)
	}
	return Accepted(), results
}

// checkExtension 校验扩展名与声明内容类型的一致性
// 没有扩展名的文件一律拒绝；大类可识别但扩展名不在已知集合内的拒绝；
// 大类不在已知五类中的仅要求存在扩展名
func checkExtension(filename, contentType string) *Result {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return &Result{
			Allowed: false,
			Rule:    RuleExtension,
			Reason:  fmt.Sprintf("文件 %s 缺少扩展名", filename),
		}
	}

	class := contentType
	if idx := strings.Index(contentType, "/"); idx >= 0 {
		class = contentType[:idx]
	}

	known, ok := classExtensions[class]
	if !ok {
		return nil
	}
	if !known[ext] {
		return &Result{
			Allowed: false,
			Rule:    RuleExtension,
			Reason:  fmt.Sprintf("扩展名 .%s 与声明类型 %s 不一致", ext, contentType),
		}
	}
	return nil
}
