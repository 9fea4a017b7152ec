// Package persona 提供模拟观众的用户名、颜色和性格池，以及无状态的随机选择
package persona

import (
	"math/rand"
	"sync"
	"time"
)

// Pools 候选池，每次选择相互独立
type Pools struct {
	Usernames     []string
	Colors        []string
	Personalities []string
}

// Viewer 一次生成使用的观众身份
type Viewer struct {
	Username string
	Color    string
}

// Picker 从候选池中均匀随机选择
// 用户名与颜色、性格之间没有绑定关系，同一个用户名可能以不同颜色和性格出现
type Picker struct {
	pools Pools

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker 创建选择器；seed 为 0 时使用当前时间
func NewPicker(pools Pools, seed int64) *Picker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Picker{
		pools: pools,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (p *Picker) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return values[p.rng.Intn(len(values))]
}

func (p *Picker) Username() string {
	return p.pick(p.pools.Usernames)
}

func (p *Picker) Color() string {
	return p.pick(p.pools.Colors)
}

func (p *Picker) Personality() string {
	return p.pick(p.pools.Personalities)
}

// Viewer 独立选择用户名和颜色
func (p *Picker) Viewer() Viewer {
	return Viewer{
		Username: p.Username(),
		Color:    p.Color(),
	}
}

// CoinFlip 返回 50% 概率的 true
func (p *Picker) CoinFlip() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(2) == 0
}
