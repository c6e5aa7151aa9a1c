package tracker

import "io"

// Reader 包装 io.Reader，把读取进度同步到跟踪器
type Reader struct {
	r       io.Reader
	id      string
	read    int64
	tracker *Tracker
}

// NewReader 创建进度读取器
func NewReader(t *Tracker, id string, r io.Reader) *Reader {
	return &Reader{r: r, id: id, tracker: t}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.tracker.UpdateProgress(pr.id, pr.read)
	}
	return n, err
}

// BytesRead 已读取字节数
func (pr *Reader) BytesRead() int64 {
	return pr.read
}
