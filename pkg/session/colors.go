package session

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Palette is the fixed set of hues a participant can be assigned.
var Palette = []string{"pink", "green", "blue", "red"}

// Shades are the fixed shade levels crossed with Palette. A token is
// "<hue>-<shade>", e.g. "pink-400".
var Shades = []int{100, 200, 300, 400, 500, 600, 700, 800, 900}

// ColorToken draws a pseudo-random token from Palette crossed with Shades.
func ColorToken(rng *rand.Rand) string {
	hue := Palette[rng.Intn(len(Palette))]
	shade := Shades[rng.Intn(len(Shades))]

	return fmt.Sprintf("%s-%d", hue, shade)
}

// ParseColorToken splits a token into its hue and shade. ok is false for
// anything that is not a well-formed token.
func ParseColorToken(token string) (hue string, shade int, ok bool) {
	i := strings.LastIndexByte(token, '-')
	if i <= 0 {
		return "", 0, false
	}

	shade, err := strconv.Atoi(token[i+1:])
	if err != nil {
		return "", 0, false
	}

	return token[:i], shade, true
}
