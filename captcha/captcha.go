// Package captcha issues short image challenges for the doctor and staff
// login and checks answers exactly once.
package captcha

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Charset = "ACDEFHJKLMNPRTUVWXY34679"
	Length  = 5
	Width   = 190
	Height  = 45

	noiseLines  = 10
	glyphScale  = 3
	glyphStartX = 15
	glyphStepX  = 32
	glyphTopY   = 3
)

var background = color.RGBA{R: 245, G: 245, B: 245, A: 255}

// ErrNoChallenge is returned when the id is unknown, expired or already used.
var ErrNoChallenge = errors.New("captcha expired or not found")

// Challenge is what the client needs to show a captcha.
type Challenge struct {
	ID    string `json:"captcha_id"`
	Image string `json:"image"`
}

// NewCode returns Length random characters from Charset.
func NewCode() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	// Reject bytes above the largest multiple of len(Charset) so every
	// character is equally likely.
	limit := byte(256 - 256%len(Charset))
	for sb.Len() < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		sb.WriteByte(Charset[int(buf[0])%len(Charset)])
	}
	return sb.String(), nil
}

// Render draws code on a light background with dark, randomly coloured
// glyphs and crosses it with noise lines.
func Render(code string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	glyphW, glyphH := face.Width, face.Height
	for i, ch := range code {
		glyph := image.NewRGBA(image.Rect(0, 0, glyphW, glyphH))
		d := &font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomColor(100)),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(ch))

		x := glyphStartX + i*glyphStepX
		dst := image.Rect(x, glyphTopY, x+glyphW*glyphScale, glyphTopY+glyphH*glyphScale)
		draw.NearestNeighbor.Scale(img, dst, glyph, glyph.Bounds(), draw.Over, nil)
	}

	for i := 0; i < noiseLines; i++ {
		drawLine(img,
			mrand.IntN(Width), mrand.IntN(Height),
			mrand.IntN(Width), mrand.IntN(Height),
			randomColor(150))
	}
	return img
}

// EncodePNG renders code and returns it as a data:image/png;base64 URI.
func EncodePNG(code string) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(code)); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// randomColor returns an opaque colour with every component below limit.
func randomColor(limit int) color.RGBA {
	return color.RGBA{R: uint8(mrand.IntN(limit)), G: uint8(mrand.IntN(limit)), B: uint8(mrand.IntN(limit)), A: 255}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Store keeps issued codes until they are checked or expire.
type Store interface {
	Set(ctx context.Context, id, code string, ttl time.Duration) error
	// Take returns the code for id and forgets it.
	Take(ctx context.Context, id string) (string, error)
}

// Service issues and verifies challenges against a Store.
type Service struct {
	store Store
	ttl   time.Duration
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, ttl: ttl}
}

// Generate creates a new challenge and remembers its code.
func (s *Service) Generate(ctx context.Context) (Challenge, error) {
	code, err := NewCode()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate captcha code: %w", err)
	}
	img, err := EncodePNG(code)
	if err != nil {
		return Challenge{}, fmt.Errorf("encode captcha: %w", err)
	}
	id := uuid.NewString()
	if err := s.store.Set(ctx, id, code, s.ttl); err != nil {
		return Challenge{}, fmt.Errorf("store captcha: %w", err)
	}
	return Challenge{ID: id, Image: img}, nil
}

// Verify compares answer with the stored code, ignoring case. The code is
// consumed whether or not it matched.
func (s *Service) Verify(ctx context.Context, id, answer string) (bool, error) {
	if id == "" {
		return false, ErrNoChallenge
	}
	code, err := s.store.Take(ctx, id)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), code), nil
}
