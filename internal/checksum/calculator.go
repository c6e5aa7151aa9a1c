package checksum

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/logger"
	"github.com/myysophia/filehub-backend/internal/storage"
	"go.uber.org/zap"
)

// FileUpdater 校验和状态写回入口
type FileUpdater interface {
	UpdateMD5(id uint, md5 string, status string) error
}

// Calculator 异步MD5计算器
// 后台工作协程从队列取出文件，读取存储对象计算MD5并写回记录
type Calculator struct {
	factory       storage.Factory
	files         FileUpdater
	calculateChan chan *models.File
	workers       int
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	// closed 与 mu 保证 Stop 关闭通道后不再有协程向其发送
	mu     sync.RWMutex
	closed bool
}

// NewCalculator 创建MD5计算器并启动工作协程
func NewCalculator(factory storage.Factory, files FileUpdater, workers int) *Calculator {
	if workers <= 0 {
		workers = 3 // 默认3个工作协程
	}
	ctx, cancel := context.WithCancel(context.Background())
	calculator := &Calculator{
		factory:       factory,
		files:         files,
		calculateChan: make(chan *models.File, 100),
		workers:       workers,
		ctx:           ctx,
		cancel:        cancel,
	}
	calculator.start()
	return calculator
}

// start 启动工作协程
func (c *Calculator) start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	logger.Info("MD5计算器已启动", zap.Int("workers", c.workers))
}

// Stop 停止计算器，等待在途任务完成
// 重复调用是无害的空操作
func (c *Calculator) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	close(c.calculateChan)
	c.wg.Wait()
	logger.Info("MD5计算器已停止")
}

// Enqueue 把文件放入计算队列
func (c *Calculator) Enqueue(file *models.File) error {
	// 已有MD5的文件不重复计算
	if file.MD5 != "" {
		return nil
	}

	// 读锁与 Stop 的写锁互斥，保证不会向已关闭的通道发送
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("MD5计算器已停止")
	}

	if err := c.files.UpdateMD5(file.ID, "", models.MD5StatusCalculating); err != nil {
		logger.Error("更新文件MD5状态失败", zap.Uint("id", file.ID), zap.Error(err))
		return err
	}

	select {
	case c.calculateChan <- file:
		return nil
	case <-time.After(5 * time.Second):
		_ = c.files.UpdateMD5(file.ID, "", models.MD5StatusFailed)
		return fmt.Errorf("MD5计算队列已满")
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// worker 工作协程
func (c *Calculator) worker(index int) {
	defer c.wg.Done()
	logger.Debug("MD5计算工作协程启动", zap.Int("worker", index))

	for file := range c.calculateChan {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		c.calculate(file)
	}
}

// calculate 读取存储对象并计算MD5
func (c *Calculator) calculate(file *models.File) {
	provider, err := c.factory.GetProvider(file.Provider)
	if err != nil {
		logger.Error("获取存储后端失败", zap.Uint("fileID", file.ID), zap.Error(err))
		_ = c.files.UpdateMD5(file.ID, "", models.MD5StatusFailed)
		return
	}

	body, err := provider.Object(file.ObjectKey)
	if err != nil {
		logger.Error("读取存储对象失败",
			zap.Uint("fileID", file.ID),
			zap.String("objectKey", file.ObjectKey),
			zap.Error(err))
		_ = c.files.UpdateMD5(file.ID, "", models.MD5StatusFailed)
		return
	}
	defer body.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, body); err != nil {
		logger.Error("计算MD5失败", zap.Uint("fileID", file.ID), zap.Error(err))
		_ = c.files.UpdateMD5(file.ID, "", models.MD5StatusFailed)
		return
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if err := c.files.UpdateMD5(file.ID, sum, models.MD5StatusCompleted); err != nil {
		logger.Error("写回MD5失败", zap.Uint("fileID", file.ID), zap.Error(err))
		return
	}

	logger.Debug("MD5计算完成", zap.Uint("fileID", file.ID), zap.String("md5", sum))
}
