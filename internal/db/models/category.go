package models

// Category 文件分类模型
// MaxFileSize 为 nil 表示不限制大小，AllowedTypes 为空表示不限制类型
type Category struct {
	Model
	Name         string   `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description  string   `gorm:"size:255" json:"description,omitempty"`
	MaxFileSize  *int64   `json:"max_file_size,omitempty"`
	AllowedTypes []string `gorm:"serializer:json;type:jsonb" json:"allowed_types,omitempty"` // 支持 image/* 通配
}

// TableName 指定表名
func (Category) TableName() string {
	return "file_categories"
}
