package rankcard

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 400
	Height = 110

	barX      = 16
	barY      = 76
	barWidth  = Width - 2*barX
	barHeight = 16
	maxName   = 40
)

var (
	background = color.RGBA{R: 0x2b, G: 0x2d, B: 0x31, A: 0xff}
	track      = color.RGBA{R: 0x4e, G: 0x50, B: 0x58, A: 0xff}
	textColor  = color.RGBA{R: 0xf2, G: 0xf3, B: 0xf5, A: 0xff}
	muted      = color.RGBA{R: 0xb5, G: 0xba, B: 0xc1, A: 0xff}
)

type Card struct {
	Username    string
	Rank        int
	Level       int64
	XP          int64
	LevelFloor  int64
	NextLevelXP int64
	Accent      color.RGBA
}

// Progress is the fraction of the current level completed, clamped to [0, 1].
func (c Card) Progress() float64 {
	span := c.NextLevelXP - c.LevelFloor
	if span <= 0 {
		return 1
	}
	done := float64(c.XP-c.LevelFloor) / float64(span)
	switch {
	case done < 0:
		return 0
	case done > 1:
		return 1
	}
	return done
}

func Render(card Card) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	accent := card.Accent
	if accent.A == 0 {
		accent = color.RGBA{R: 0x58, G: 0x65, B: 0xf2, A: 0xff}
	}

	draw.Draw(img, image.Rect(barX, barY, barX+barWidth, barY+barHeight), &image.Uniform{C: track}, image.Point{}, draw.Src)
	filled := int(card.Progress() * barWidth)
	if filled > 0 {
		draw.Draw(img, image.Rect(barX, barY, barX+filled, barY+barHeight), &image.Uniform{C: accent}, image.Point{}, draw.Src)
	}

	name := card.Username
	if utf8.RuneCountInString(name) > maxName {
		name = string([]rune(name)[:maxName-1]) + "~"
	}
	drawText(img, name, barX, 28, textColor)
	rank := "unranked"
	if card.Rank > 0 {
		rank = fmt.Sprintf("rank #%d", card.Rank)
	}
	drawText(img, fmt.Sprintf("level %d   %s", card.Level, rank), barX, 48, accent)
	drawText(img, fmt.Sprintf("%d / %d xp", card.XP, card.NextLevelXP), barX, 66, muted)

	return img
}

func Encode(card Card) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(card)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawText(dst draw.Image, text string, x, y int, c color.Color) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
