package sticker

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const DefaultQRSize = 256

// ScanURL is the address printed into a sticker's QR code.
func ScanURL(publicURL, id string) string {
	return strings.TrimRight(publicURL, "/") + "/s/" + NormalizeID(id)
}

func QRCode(publicURL, id string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(ScanURL(publicURL, id), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
