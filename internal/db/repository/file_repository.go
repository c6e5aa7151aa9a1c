package repository

import (
	"fmt"
	"time"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"gorm.io/gorm"
)

// ListFilter 文件列表过滤条件
type ListFilter struct {
	OwnerID     *uint
	Provider    string
	ContentType string // 按内容类型子串匹配
	IsPublic    *bool
	CategoryID  *uint
	Search      string // 对文件名字段的模糊检索
	Tags        []string
	Limit       int
	Offset      int
	SortBy      string
	SortOrder   string // asc / desc
}

// 允许排序的列，其他值一律回退到 created_at
var sortableColumns = map[string]bool{
	"created_at":        true,
	"updated_at":        true,
	"file_size":         true,
	"original_filename": true,
	"content_type":      true,
	"provider":          true,
}

// StorageStats 存储聚合统计
type StorageStats struct {
	TotalFiles    int64            `json:"total_files"`
	TotalBytes    int64            `json:"total_bytes"`
	RecentCount   int64            `json:"recent_count"`
	ByProvider    map[string]int64 `json:"by_provider"`
	ByContentType map[string]int64 `json:"by_content_type"`
}

// FileRepository 文件元数据仓库
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建文件元数据仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create 创建文件记录
func (r *FileRepository) Create(file *models.File) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("创建文件记录失败: %w", err)
	}
	return nil
}

// Update 按字段更新文件记录
func (r *FileRepository) Update(id uint, updates map[string]interface{}) error {
	if err := r.db.Model(&models.File{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("更新文件记录失败: %w", err)
	}
	return nil
}

// Delete 删除文件记录
func (r *FileRepository) Delete(id uint) error {
	if err := r.db.Delete(&models.File{}, id).Error; err != nil {
		return fmt.Errorf("删除文件记录失败: %w", err)
	}
	return nil
}

// DeleteBatch 批量删除文件记录，返回删除条数
func (r *FileRepository) DeleteBatch(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Delete(&models.File{}, "id IN ?", ids)
	if result.Error != nil {
		return 0, fmt.Errorf("批量删除文件记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindByID 按ID查询文件记录
func (r *FileRepository) FindByID(id uint) (*models.File, error) {
	var file models.File
	if err := r.db.Preload("Category").First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// List 按条件查询文件列表
func (r *FileRepository) List(filter ListFilter) ([]models.File, int64, error) {
	query := r.db.Model(&models.File{})

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.ContentType != "" {
		query = query.Where("content_type LIKE ?", "%"+filter.ContentType+"%")
	}
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("original_filename LIKE ? OR storage_filename LIKE ?", pattern, pattern)
	}
	// 标签存储为 JSON 数组，按序列化文本匹配任一标签
	// 多标签之间是 OR 关系，作为整体子条件拼接，不影响其他过滤条件
	if len(filter.Tags) > 0 {
		tagQuery := r.db.Where("tags::text LIKE ?", fmt.Sprintf("%%\"%s\"%%", filter.Tags[0]))
		for _, tag := range filter.Tags[1:] {
			tagQuery = tagQuery.Or("tags::text LIKE ?", fmt.Sprintf("%%\"%s\"%%", tag))
		}
		query = query.Where(tagQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计文件数量失败: %w", err)
	}

	// 排序字段来自请求参数，只接受白名单内的列名
	sortBy := filter.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := filter.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var files []models.File
	if err := query.Preload("Category").Find(&files).Error; err != nil {
		return nil, 0, fmt.Errorf("查询文件列表失败: %w", err)
	}

	return files, total, nil
}

// UpdateMD5 更新文件MD5值及计算状态
func (r *FileRepository) UpdateMD5(id uint, md5 string, status string) error {
	updates := map[string]interface{}{"md5_status": status}
	if md5 != "" {
		updates["md5"] = md5
	}
	return r.Update(id, updates)
}

// AggregateStats 聚合统计，ownerID 为 nil 时统计全部
func (r *FileRepository) AggregateStats(ownerID *uint, recentWindow time.Duration) (*StorageStats, error) {
	stats := &StorageStats{
		ByProvider:    make(map[string]int64),
		ByContentType: make(map[string]int64),
	}

	base := func() *gorm.DB {
		q := r.db.Model(&models.File{})
		if ownerID != nil {
			q = q.Where("owner_id = ?", *ownerID)
		}
		return q
	}

	if err := base().Count(&stats.TotalFiles).Error; err != nil {
		return nil, fmt.Errorf("统计文件总数失败: %w", err)
	}

	var totalBytes *int64
	if err := base().Select("SUM(file_size)").Scan(&totalBytes).Error; err != nil {
		return nil, fmt.Errorf("统计文件总大小失败: %w", err)
	}
	if totalBytes != nil {
		stats.TotalBytes = *totalBytes
	}

	since := time.Now().Add(-recentWindow)
	if err := base().Where("created_at > ?", since).Count(&stats.RecentCount).Error; err != nil {
		return nil, fmt.Errorf("统计近期上传数失败: %w", err)
	}

	type groupRow struct {
		Key   string
		Count int64
	}

	var providerRows []groupRow
	if err := base().Select("provider AS key, COUNT(*) AS count").Group("provider").Scan(&providerRows).Error; err != nil {
		return nil, fmt.Errorf("按存储后端统计失败: %w", err)
	}
	for _, row := range providerRows {
		stats.ByProvider[row.Key] = row.Count
	}

	var typeRows []groupRow
	if err := base().Select("content_type AS key, COUNT(*) AS count").Group("content_type").Scan(&typeRows).Error; err != nil {
		return nil, fmt.Errorf("按内容类型统计失败: %w", err)
	}
	for _, row := range typeRows {
		stats.ByContentType[row.Key] = row.Count
	}

	return stats, nil
}
