// Package alsa enumerates installed sound cards so the workaround can
// verify the affected card is actually present before touching anything.
package alsa

import "strings"

// Card describes an installed ALSA sound card.
type Card struct {
	Number   int
	ID       string
	Name     string
	LongName string
	Driver   string
}

// Detector enumerates sound cards.
type Detector interface {
	ListCards() ([]Card, error)
}

// New returns the platform detector.
func New() Detector {
	return newPlatformDetector()
}

// FindCard returns the first card whose ID, name, or long name contains
// match, case-insensitively.
func FindCard(cards []Card, match string) (Card, bool) {
	needle := strings.ToLower(match)
	for _, card := range cards {
		if strings.Contains(strings.ToLower(card.ID), needle) ||
			strings.Contains(strings.ToLower(card.Name), needle) ||
			strings.Contains(strings.ToLower(card.LongName), needle) {
			return card, true
		}
	}
	return Card{}, false
}
