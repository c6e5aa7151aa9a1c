package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateObjectKey 生成全存储后端通用的对象键
// 格式为 用户名/日期/时间_UUID.扩展名，同名文件多次上传互不覆盖
// 例如: alice/20260830/143045_550e8400-e29b-41d4-a716-446655440000.jpg
func GenerateObjectKey(username, ext string) string {
	now := time.Now()
	return fmt.Sprintf("%s/%s/%s_%s%s",
		username,
		now.Format("20060102"),
		now.Format("150405"),
		uuid.New().String(),
		ext,
	)
}
