/*
Package chat contains the core logic for the planning-poker chat rooms.

This file defines the user profile model: the avatar attribute option sets,
schema validation for inbound profiles, and the deterministic default
generator that derives a profile from a display name. The generator must be a
pure function of the name so that independent processes agree on a user's
default look before anything is persisted.
*/
package chat

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Avatar attribute option sets. They drive both default generation and
// validation of profiles submitted by clients.
var (
	HairOptions          = []string{"afro", "balding", "bob", "bun", "buzz", "long", "pixie", "short", "none"}
	HairColorOptions     = []string{"blonde", "orange", "black", "white", "brown", "blue", "pink"}
	EyeOptions           = []string{"normal", "content", "dizzy", "happy", "heart", "squint", "simple", "wink"}
	EyebrowOptions       = []string{"angry", "concerned", "leftLowered", "raised", "serious"}
	MouthOptions         = []string{"grin", "lips", "open", "openSmile", "sad", "serious", "tongue"}
	FacialHairOptions    = []string{"none", "stubble", "mediumBeard"}
	ClothingOptions      = []string{"naked", "shirt", "dressShirt", "vneck", "tankTop", "dress"}
	ClothingColorOptions = []string{"white", "blue", "black", "green", "red"}
	AccessoryOptions     = []string{"none", "roundGlasses", "tinyGlasses", "shades"}
	GraphicOptions       = []string{"none", "redwood", "react", "vue", "graphQL", "gatsby"}
	SkinToneOptions      = []string{"light", "yellow", "brown", "dark", "red", "black"}
	BodyOptions          = []string{"chest", "breasts"}
	HatOptions           = []string{"none", "beanie", "turban"}
	HatColorOptions      = []string{"white", "blue", "black", "green", "red"}
	LipColorOptions      = []string{"red", "lilac", "pink", "turqoise", "green"}
)

// AvatarConfig holds the structured avatar attributes of one user.
type AvatarConfig struct {
	Hair          string `json:"hair"`
	HairColor     string `json:"hairColor"`
	Eyes          string `json:"eyes"`
	Eyebrows      string `json:"eyebrows"`
	Mouth         string `json:"mouth"`
	FacialHair    string `json:"facialHair"`
	Clothing      string `json:"clothing"`
	ClothingColor string `json:"clothingColor"`
	Accessory     string `json:"accessory"`
	Graphic       string `json:"graphic"`
	SkinTone      string `json:"skinTone"`
	Body          string `json:"body"`
	Hat           string `json:"hat"`
	HatColor      string `json:"hatColor"`
	LipColor      string `json:"lipColor"`
	Lashes        bool   `json:"lashes"`
	FaceMask      bool   `json:"faceMask"`
}

// UserProfile is the presence profile of one user: a display color plus the
// structured avatar attributes.
type UserProfile struct {
	Color        string       `json:"color"`
	AvatarConfig AvatarConfig `json:"avatarConfig"`
}

// Validate checks every avatar attribute against its option set.
func (a AvatarConfig) Validate() error {
	checks := []struct {
		field   string
		value   string
		options []string
	}{
		{"hair", a.Hair, HairOptions},
		{"hairColor", a.HairColor, HairColorOptions},
		{"eyes", a.Eyes, EyeOptions},
		{"eyebrows", a.Eyebrows, EyebrowOptions},
		{"mouth", a.Mouth, MouthOptions},
		{"facialHair", a.FacialHair, FacialHairOptions},
		{"clothing", a.Clothing, ClothingOptions},
		{"clothingColor", a.ClothingColor, ClothingColorOptions},
		{"accessory", a.Accessory, AccessoryOptions},
		{"graphic", a.Graphic, GraphicOptions},
		{"skinTone", a.SkinTone, SkinToneOptions},
		{"body", a.Body, BodyOptions},
		{"hat", a.Hat, HatOptions},
		{"hatColor", a.HatColor, HatColorOptions},
		{"lipColor", a.LipColor, LipColorOptions},
	}

	for _, c := range checks {
		if !slices.Contains(c.options, c.value) {
			return fmt.Errorf("avatar attribute %q has unknown value %q", c.field, c.value)
		}
	}

	return nil
}

// Validate checks the profile for schema validity. The color is free-form
// (clients send CSS color strings); only the avatar attributes are constrained.
func (p UserProfile) Validate() error {
	return p.AvatarConfig.Validate()
}

// hashString reduces a string to a non-negative integer using the same 32-bit
// rolling hash as the web client, so both sides derive identical defaults.
// The hash runs over UTF-16 code units (surrogate pairs included) because
// that is what the web client's charCodeAt iterates.
func hashString(s string) int {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = int32(u) + (h<<5 - h)
	}
	if h < 0 {
		return -int(h)
	}
	return int(h)
}

// pickOption selects a deterministic member of options for attribute slot
// offset, spreading consecutive slots across the sets.
func pickOption(options []string, hash, offset int) string {
	return options[(hash+offset*7)%len(options)]
}

// DefaultAvatar derives the default avatar attributes for a display name.
// Same name, same avatar, on every process that computes it.
func DefaultAvatar(username string) AvatarConfig {
	h := hashString(username)
	return AvatarConfig{
		Hair:          pickOption(HairOptions, h, 0),
		HairColor:     pickOption(HairColorOptions, h, 1),
		Eyes:          pickOption(EyeOptions, h, 2),
		Eyebrows:      pickOption(EyebrowOptions, h, 3),
		Mouth:         pickOption(MouthOptions, h, 4),
		FacialHair:    pickOption(FacialHairOptions, h, 5),
		Clothing:      pickOption(ClothingOptions, h, 6),
		ClothingColor: pickOption(ClothingColorOptions, h, 7),
		Accessory:     pickOption(AccessoryOptions, h, 8),
		SkinTone:      pickOption(SkinToneOptions, h, 9),
		Body:          pickOption(BodyOptions, h, 10),
		Hat:           pickOption(HatOptions, h, 11),
		HatColor:      pickOption(HatColorOptions, h, 12),
		Graphic:       pickOption(GraphicOptions, h, 13),
		LipColor:      pickOption(LipColorOptions, h, 14),
		Lashes:        h%2 == 0,
		FaceMask:      false,
	}
}

// DefaultColor derives the default display color for a display name.
func DefaultColor(username string) string {
	hue := hashString(username) % 360
	return fmt.Sprintf("hsl(%d, 70%%, 72%%)", hue)
}

// DefaultProfile derives the complete default profile for a display name.
func DefaultProfile(username string) UserProfile {
	return UserProfile{
		Color:        DefaultColor(username),
		AvatarConfig: DefaultAvatar(username),
	}
}
