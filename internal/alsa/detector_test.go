package alsa

import "testing"

func TestFindCard(t *testing.T) {
	cards := []Card{
		{Number: 0, ID: "PCH", Name: "HDA Intel PCH", LongName: "HDA Intel PCH at 0xb4418000"},
		{Number: 1, ID: "Audio", Name: "USB Audio", LongName: "Generic USB Audio at usb-0000:00:14.0-2"},
	}

	tests := []struct {
		name     string
		match    string
		wantCard int
		wantOK   bool
	}{
		{"match by id", "PCH", 0, true},
		{"match by long name", "usb-0000:00:14.0", 1, true},
		{"case insensitive", "usb audio", 1, true},
		{"no match", "Scarlett", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, ok := FindCard(cards, tt.match)
			if ok != tt.wantOK {
				t.Fatalf("FindCard() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && card.Number != tt.wantCard {
				t.Errorf("FindCard() card = %d, want %d", card.Number, tt.wantCard)
			}
		})
	}
}
