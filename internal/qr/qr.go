package qr

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Style tweaks the rendered image. The zero value is the default square
// black-on-transparent code, which is what gets cached per link.
type Style struct {
	Circle bool
	FgHex  string
}

func (s Style) IsDefault() bool {
	return !s.Circle && !ValidHex(s.FgHex)
}

func ValidHex(s string) bool {
	return hexColorRe.MatchString(s)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Render encodes content as a PNG QR code.
func Render(content string, style Style) ([]byte, error) {
	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if style.Circle {
		opts = append(opts, standard.WithCircleShape())
	}
	if ValidHex(style.FgHex) {
		opts = append(opts, standard.WithFgColorRGBHex(style.FgHex))
	}

	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	var buf bytes.Buffer
	w := standard.NewWithWriter(nopCloser{&buf}, opts...)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return buf.Bytes(), nil
}
