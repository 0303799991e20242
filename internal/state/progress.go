package state

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/mirror"
)

const (
	// XPPerTask is awarded each time a task becomes completed.
	XPPerTask = 10
	// XPPerLevel is the XP between levels.
	XPPerLevel = 100
)

// Progress is the local XP counter. It is never synced.
type Progress struct {
	mu  sync.Mutex
	xp  int
	m   *mirror.Mirror
	log *log.Logger
}

func NewProgress(m *mirror.Mirror, logger *log.Logger) *Progress {
	p := &Progress{m: m, log: logger}
	p.m.Read(mirror.KeyXP, &p.xp)
	return p
}

func (p *Progress) XP() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.xp
}

// Level is floor(xp/100)+1.
func (p *Progress) Level() int {
	return LevelFor(p.XP())
}

func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Award adds n XP.
func (p *Progress) Award(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.xp += n
	if err := p.m.Write(mirror.KeyXP, p.xp); err != nil {
		p.log.Warn("mirror write failed", "key", mirror.KeyXP, "err", err)
	}
}
