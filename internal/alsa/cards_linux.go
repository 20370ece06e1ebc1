//go:build linux && cgo

package alsa

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type linuxDetector struct{}

func newPlatformDetector() Detector {
	return &linuxDetector{}
}

// ListCards enumerates all installed ALSA sound cards.
func (d *linuxDetector) ListCards() ([]Card, error) {
	var cards []Card

	cardNum := C.int(-1)
	for C.snd_card_next(&cardNum) >= 0 && cardNum >= 0 {
		card := d.getCard(int(cardNum))
		if card == nil {
			continue
		}
		cards = append(cards, *card)
	}

	return cards, nil
}

func (d *linuxDetector) getCard(cardNum int) *Card {
	var ctl *C.snd_ctl_t
	cardName := fmt.Sprintf("hw:%d", cardNum)
	cCardName := C.CString(cardName)
	defer C.free(unsafe.Pointer(cCardName))

	// Open control interface for the card
	if C.snd_ctl_open(&ctl, cCardName, 0) < 0 { //nolint:gocritic // CGO false positive
		return nil
	}
	defer C.snd_ctl_close(ctl)

	// Allocate and get card info
	var info *C.snd_ctl_card_info_t
	C.snd_ctl_card_info_malloc(&info) //nolint:gocritic // CGO false positive
	defer C.snd_ctl_card_info_free(info)

	if C.snd_ctl_card_info(ctl, info) < 0 {
		return nil
	}

	return &Card{
		Number:   cardNum,
		ID:       C.GoString(C.snd_ctl_card_info_get_id(info)),
		Name:     C.GoString(C.snd_ctl_card_info_get_name(info)),
		LongName: C.GoString(C.snd_ctl_card_info_get_longname(info)),
		Driver:   C.GoString(C.snd_ctl_card_info_get_driver(info)),
	}
}
