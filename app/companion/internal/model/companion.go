// Package model 定义伙伴 NFT 的领域模型与元数据编解码
package model

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// Mood 伙伴心情
const (
	MoodHappy = "Happy"
	MoodSad   = "Sad"
	// MoodError 元数据缺失心情属性时的占位值
	MoodError = "ERROR"
)

// 保留属性键，由服务端管理，客户端附加属性不得占用
const (
	TraitExperience     = "Experience"
	TraitLevel          = "Level"
	TraitEvolution      = "Evolution"
	TraitMood           = "Mood"
	TraitDateOfBirth    = "DateOfBirth"
	TraitLastUpdated    = "LastUpdated"
	TraitXPForNextLevel = "XpForNextLevel"
)

// reservedTraits 保留键集合
var reservedTraits = map[string]struct{}{
	TraitExperience:     {},
	TraitLevel:          {},
	TraitEvolution:      {},
	TraitMood:           {},
	TraitDateOfBirth:    {},
	TraitLastUpdated:    {},
	TraitXPForNextLevel: {},
}

// IsReservedTrait 键是否为服务端保留键
func IsReservedTrait(traitType string) bool {
	_, ok := reservedTraits[traitType]
	return ok
}

// Attribute NFT 元数据属性
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Metadata 链下元数据文档
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Companion 伙伴的领域视图
type Companion struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Image          string      `json:"image"`
	Experience     int         `json:"experience"`
	Level          int         `json:"level"`
	Evolution      int         `json:"evolution"`
	Mood           string      `json:"mood"`
	DateOfBirth    time.Time   `json:"dateOfBirth"`
	LastUpdated    time.Time   `json:"lastUpdated"`
	XPForNextLevel int         `json:"xpForNextLevel"`
	Extras         []Attribute `json:"extras,omitempty"`
}

// EncodeMetadata 把伙伴编码为元数据文档
// 保留属性固定顺序在前，客户端附加属性保持原序在后
func EncodeMetadata(c *Companion) *Metadata {
	attrs := []Attribute{
		{TraitType: TraitExperience, Value: strconv.Itoa(c.Experience)},
		{TraitType: TraitLevel, Value: strconv.Itoa(c.Level)},
		{TraitType: TraitEvolution, Value: strconv.Itoa(c.Evolution)},
		{TraitType: TraitMood, Value: c.Mood},
		{TraitType: TraitDateOfBirth, Value: c.DateOfBirth.UTC().Format(time.RFC3339)},
		{TraitType: TraitLastUpdated, Value: c.LastUpdated.UTC().Format(time.RFC3339)},
		{TraitType: TraitXPForNextLevel, Value: strconv.Itoa(c.XPForNextLevel)},
	}
	for _, extra := range c.Extras {
		if !IsReservedTrait(extra.TraitType) {
			attrs = append(attrs, extra)
		}
	}
	return &Metadata{
		Name:        c.Name,
		Description: c.Description,
		Image:       c.Image,
		Attributes:  attrs,
	}
}

// DecodeMetadata 从元数据文档解析伙伴
// 数值属性缺失或损坏时取零值，心情缺失时取 MoodError
func DecodeMetadata(m *Metadata) (*Companion, error) {
	if m == nil {
		return nil, errors.New("model: metadata is nil")
	}

	c := &Companion{
		Name:        m.Name,
		Description: m.Description,
		Image:       m.Image,
		Mood:        MoodError,
	}

	for _, attr := range m.Attributes {
		switch attr.TraitType {
		case TraitExperience:
			c.Experience = attrInt(attr.Value)
		case TraitLevel:
			c.Level = attrInt(attr.Value)
		case TraitEvolution:
			c.Evolution = attrInt(attr.Value)
		case TraitXPForNextLevel:
			c.XPForNextLevel = attrInt(attr.Value)
		case TraitMood:
			if s, ok := attr.Value.(string); ok && s != "" {
				c.Mood = s
			}
		case TraitDateOfBirth:
			c.DateOfBirth = attrTime(attr.Value)
		case TraitLastUpdated:
			c.LastUpdated = attrTime(attr.Value)
		default:
			c.Extras = append(c.Extras, attr)
		}
	}
	return c, nil
}

func attrInt(v any) int {
	switch value := v.(type) {
	case string:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int(value)
	case int:
		return value
	default:
		return 0
	}
}

func attrTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
