// Package gameconfig 维护等级曲线、进化门槛与伙伴形象等游戏数值
package gameconfig

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Config 游戏数值配置
type Config struct {
	// LevelThresholds 各等级所需累计经验，下标即等级
	LevelThresholds []int `mapstructure:"level_thresholds" json:"levelThresholds" yaml:"level_thresholds"`
	// EvolutionThresholds 各进化阶段所需等级，下标即阶段
	EvolutionThresholds []int `mapstructure:"evolution_thresholds" json:"evolutionThresholds" yaml:"evolution_thresholds"`
	// CompanionImages 伙伴类型到各进化阶段形象的映射
	CompanionImages map[string][]string `mapstructure:"companion_images" json:"companionImages" yaml:"companion_images"`
}

// DefaultConfig 返回默认数值
func DefaultConfig() *Config {
	return &Config{
		LevelThresholds:     []int{0, 100, 250, 450, 700, 1000, 1350, 1750, 2200, 2700, 3300},
		EvolutionThresholds: []int{0, 1, 3, 6, 9},
		CompanionImages: map[string][]string{
			"fluffy": {
				"/companions/fluffy_0.png",
				"/companions/fluffy_1.png",
				"/companions/fluffy_2.png",
			},
			"sparky": {
				"/companions/sparky_0.png",
				"/companions/sparky_1.png",
				"/companions/sparky_2.png",
			},
			"ember": {
				"/companions/ember_0.png",
				"/companions/ember_1.png",
				"/companions/ember_2.png",
			},
		},
	}
}

// Validate 校验数值配置
func (c *Config) Validate() error {
	if len(c.LevelThresholds) == 0 {
		return errors.New("gameconfig: level_thresholds is empty")
	}
	if c.LevelThresholds[0] != 0 {
		return errors.New("gameconfig: level_thresholds must start at 0")
	}
	for i := 1; i < len(c.LevelThresholds); i++ {
		if c.LevelThresholds[i] <= c.LevelThresholds[i-1] {
			return errors.Newf("gameconfig: level_thresholds must be strictly increasing at index %d", i)
		}
	}
	if len(c.EvolutionThresholds) == 0 {
		return errors.New("gameconfig: evolution_thresholds is empty")
	}
	if c.EvolutionThresholds[0] != 0 {
		return errors.New("gameconfig: evolution_thresholds must start at 0")
	}
	for i := 1; i < len(c.EvolutionThresholds); i++ {
		if c.EvolutionThresholds[i] <= c.EvolutionThresholds[i-1] {
			return errors.Newf("gameconfig: evolution_thresholds must be strictly increasing at index %d", i)
		}
	}
	for name, images := range c.CompanionImages {
		if len(images) == 0 {
			return errors.Newf("gameconfig: companion %q has no images", name)
		}
	}
	return nil
}

// MaxLevel 最高等级
func (c *Config) MaxLevel() int {
	return len(c.LevelThresholds) - 1
}

// Level 累计经验对应的等级
func (c *Config) Level(experience int) int {
	for i := len(c.LevelThresholds) - 1; i >= 0; i-- {
		if experience >= c.LevelThresholds[i] {
			return i
		}
	}
	return 0
}

// Evolution 等级对应的进化阶段
func (c *Config) Evolution(level int) int {
	for i := len(c.EvolutionThresholds) - 1; i >= 0; i-- {
		if level >= c.EvolutionThresholds[i] {
			return i
		}
	}
	return 0
}

// XPForNextLevel 升到下一级还差多少经验，满级返回 0
func (c *Config) XPForNextLevel(level, experience int) int {
	if level >= c.MaxLevel() {
		return 0
	}
	return c.LevelThresholds[level+1] - experience
}

// Progress 一次进度结算的结果
type Progress struct {
	Experience     int  `json:"experience"`
	Level          int  `json:"level"`
	Evolution      int  `json:"evolution"`
	XPForNextLevel int  `json:"xpForNextLevel"`
	MaxLevel       bool `json:"maxLevel"`
}

// Apply 按累计经验结算等级与进化
func (c *Config) Apply(experience int) Progress {
	level := c.Level(experience)
	return Progress{
		Experience:     experience,
		Level:          level,
		Evolution:      c.Evolution(level),
		XPForNextLevel: c.XPForNextLevel(level, experience),
		MaxLevel:       level >= c.MaxLevel(),
	}
}

// CompanionImage 指定类型在指定进化阶段的形象
// 阶段越界时取最后一张，未知类型返回空串
func (c *Config) CompanionImage(companionType string, evolution int) string {
	images, ok := c.CompanionImages[strings.ToLower(companionType)]
	if !ok || len(images) == 0 {
		return ""
	}
	if evolution < 0 {
		evolution = 0
	}
	if evolution >= len(images) {
		evolution = len(images) - 1
	}
	return images[evolution]
}

// TypeFromDescription 从描述文本推断伙伴类型
func TypeFromDescription(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "sparky") || strings.Contains(desc, "electrifying"):
		return "sparky"
	case strings.Contains(desc, "fluffy"):
		return "fluffy"
	case strings.Contains(desc, "ember"):
		return "ember"
	default:
		return "fluffy"
	}
}
