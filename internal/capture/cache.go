package capture

import "sync"

// Cache 保存最近一次成功的截图；刷新失败或跳过时继续使用旧图
type Cache struct {
	mu   sync.RWMutex
	shot *Shot
}

// Store 保存新截图，nil 会被忽略
func (c *Cache) Store(shot *Shot) {
	if shot == nil {
		return
	}
	c.mu.Lock()
	c.shot = shot
	c.mu.Unlock()
}

// Latest 返回最近一次截图，没有时为 nil
func (c *Cache) Latest() *Shot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shot
}

// DataURI 返回最近一次截图的 data URI，没有时为空
func (c *Cache) DataURI() string {
	if shot := c.Latest(); shot != nil {
		return shot.DataURI
	}
	return ""
}
