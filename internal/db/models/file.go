package models

// MD5状态常量
const (
	MD5StatusPending     = "PENDING"     // 待计算
	MD5StatusCalculating = "CALCULATING" // 计算中
	MD5StatusCompleted   = "COMPLETED"   // 已完成
	MD5StatusFailed      = "FAILED"      // 计算失败
)

// File 上传文件元数据模型
// ObjectKey 与存储对象一一对应：存储写入成功后才写入记录，
// 元数据写入失败时由编排服务回滚存储对象
type File struct {
	Model
	OriginalFilename string            `gorm:"size:255;not null" json:"original_filename"`
	StorageFilename  string            `gorm:"size:255;not null" json:"storage_filename"`
	ContentType      string            `gorm:"size:100;not null" json:"content_type"`
	FileSize         int64             `gorm:"not null" json:"file_size"`
	Provider         string            `gorm:"size:20;not null" json:"provider"` // LOCAL, AWS_S3, ALIYUN_OSS, CDN_R2
	Bucket           string            `gorm:"size:100" json:"bucket,omitempty"`
	ObjectKey        string            `gorm:"size:255;not null" json:"object_key"`
	OwnerID          uint              `gorm:"not null;index" json:"owner_id"`
	CategoryID       *uint             `gorm:"index" json:"category_id,omitempty"`
	Category         *Category         `json:"category,omitempty"`
	IsPublic         bool              `gorm:"default:false" json:"is_public"`
	Tags             []string          `gorm:"serializer:json;type:jsonb" json:"tags,omitempty"`
	Metadata         map[string]string `gorm:"serializer:json;type:jsonb" json:"metadata,omitempty"`
	MD5              string            `gorm:"size:32" json:"md5,omitempty"`
	MD5Status        string            `gorm:"size:20;default:'PENDING'" json:"md5_status"` // PENDING, CALCULATING, COMPLETED, FAILED
	UploadIP         string            `gorm:"size:50" json:"upload_ip,omitempty"`
}

// TableName 指定表名
func (File) TableName() string {
	return "upload_files"
}
