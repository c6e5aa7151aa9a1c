package repository

import (
	"github.com/myysophia/filehub-backend/internal/db/models"
	"gorm.io/gorm"
)

// CategoryRepository 文件分类仓库，本服务只读
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建文件分类仓库
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByID 按ID查询分类
func (r *CategoryRepository) FindByID(id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListAll 查询全部分类
func (r *CategoryRepository) ListAll() ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
