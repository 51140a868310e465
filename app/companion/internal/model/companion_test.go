package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	born := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	companion := &Companion{
		Name:           "Fluffy",
		Description:    "A fluffy and cuddly companion",
		Image:          "https://gateway.irys.xyz/img1",
		Experience:     120,
		Level:          2,
		Evolution:      1,
		Mood:           MoodHappy,
		DateOfBirth:    born,
		LastUpdated:    updated,
		XPForNextLevel: 130,
		Extras: []Attribute{
			{TraitType: "Toys", Value: "None"},
			{TraitType: "Background", Value: "None"},
		},
	}

	meta := EncodeMetadata(companion)
	decoded, err := DecodeMetadata(meta)
	require.NoError(t, err)
	assert.Equal(t, companion, decoded)
}

func TestEncodeMetadataDropsReservedExtras(t *testing.T) {
	companion := &Companion{
		Name: "Sparky",
		Mood: MoodHappy,
		Extras: []Attribute{
			{TraitType: TraitLevel, Value: "99"},
			{TraitType: "Toys", Value: "Ball"},
		},
	}

	meta := EncodeMetadata(companion)
	var levelCount int
	for _, attr := range meta.Attributes {
		if attr.TraitType == TraitLevel {
			levelCount++
			assert.Equal(t, "0", attr.Value)
		}
	}
	assert.Equal(t, 1, levelCount)
}

func TestDecodeMetadataMissingMood(t *testing.T) {
	decoded, err := DecodeMetadata(&Metadata{Name: "Ember"})
	require.NoError(t, err)
	assert.Equal(t, MoodError, decoded.Mood)
}

func TestDecodeMetadataTolerantValues(t *testing.T) {
	raw := `{
		"name": "Fluffy",
		"attributes": [
			{"trait_type": "Experience", "value": 42},
			{"trait_type": "Level", "value": "not-a-number"},
			{"trait_type": "DateOfBirth", "value": "garbage"},
			{"trait_type": "Mood", "value": "Happy"}
		]
	}`
	var meta Metadata
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))

	decoded, err := DecodeMetadata(&meta)
	require.NoError(t, err)
	assert.Equal(t, 42, decoded.Experience)
	assert.Equal(t, 0, decoded.Level)
	assert.True(t, decoded.DateOfBirth.IsZero())
	assert.Equal(t, MoodHappy, decoded.Mood)
}

func TestDecodeMetadataNil(t *testing.T) {
	_, err := DecodeMetadata(nil)
	assert.Error(t, err)
}
