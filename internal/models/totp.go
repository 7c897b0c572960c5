package models

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/pquerna/otp/totp"
)

// NewTOTPEnrollment creates a fresh TOTP secret for the account and
// renders it as a data-URI PNG QR code the client can show directly.
// Nothing is persisted here; enabling 2FA verifies a code first.
func NewTOTPEnrollment(account, issuer string) (secret, qrCode string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", "", err
	}

	qr := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	return key.Secret(), qr, nil
}

// VerifyTOTPCode checks a code against the stored secret.
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
