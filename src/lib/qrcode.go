package lib

import (
	"cws/src/config"
	"fmt"
	"path"

	"github.com/yeqown/go-qrcode"
)

// SaveRedemptionQR renders a booking's redemption code as a QR image under
// the temp dir and returns the file path.
func SaveRedemptionQR(code string) (string, error) {
	qrc, err := qrcode.New(code)
	if err != nil {
		return "", err
	}
	filepath := path.Join(config.Get().TempDir, fmt.Sprintf("%s.jpeg", code))
	if err := qrc.Save(filepath); err != nil {
		return "", err
	}
	return filepath, nil
}
