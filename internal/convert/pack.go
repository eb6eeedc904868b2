// Package convert turns a captured calendar PNG into packed 1bpp planes for
// tri-colour e-paper panels.
package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sort"
	"strings"
)

// Panel is the pixel geometry of a tri-colour e-paper panel.
type Panel struct {
	Name   string
	Width  int
	Height int
}

// Stride is the number of bytes per plane row.
func (p Panel) Stride() int { return (p.Width + 7) / 8 }

// PlaneSize is the number of bytes in one plane.
func (p Panel) PlaneSize() int { return p.Stride() * p.Height }

// Known panels, keyed by the names accepted in config and flags.
var panels = map[string]Panel{
	"7.5b":   {Name: "7.5b", Width: 800, Height: 480},
	"5.83b":  {Name: "5.83b", Width: 648, Height: 480},
	"12.48b": {Name: "12.48b", Width: 1304, Height: 984},
}

// PanelNames lists the known panel names in sorted order.
func PanelNames() []string {
	names := make([]string, 0, len(panels))
	for n := range panels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PanelByName looks up a panel by name, case-insensitively.
func PanelByName(name string) (Panel, error) {
	p, ok := panels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Panel{}, fmt.Errorf("convert: unknown panel %q (known: %s)", name, strings.Join(PanelNames(), ", "))
	}
	return p, nil
}

// Pack converts img into black and red planes for p.
//
// The image is centered on the panel: larger images are cropped, smaller
// ones padded with white. Planes are y-major, MSB-first, one bit per
// pixel, with 1 meaning white and 0 meaning ink:
//
//	byteIndex = y*p.Stride() + x>>3
//	mask      = 0x80 >> (x & 7)
func Pack(img image.Image, p Panel) (black, red []byte, err error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, nil, fmt.Errorf("convert: invalid panel %dx%d", p.Width, p.Height)
	}
	src := toNRGBA(img)
	b := src.Bounds()
	ox := (b.Dx() - p.Width) / 2
	oy := (b.Dy() - p.Height) / 2

	black = whitePlane(p.PlaneSize())
	red = whitePlane(p.PlaneSize())
	stride := p.Stride()

	for py := 0; py < p.Height; py++ {
		sy := py + oy
		if sy < 0 || sy >= b.Dy() {
			continue
		}
		row := sy * src.Stride
		for px := 0; px < p.Width; px++ {
			sx := px + ox
			if sx < 0 || sx >= b.Dx() {
				continue
			}
			i := row + sx*4
			c := color.NRGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: src.Pix[i+3]}
			if c.A < 128 {
				continue
			}

			idx := py*stride + px>>3
			mask := byte(0x80 >> (px & 7))
			switch classify(c) {
			case inkBlack:
				black[idx] &^= mask
			case inkRed:
				red[idx] &^= mask
			}
		}
	}
	return black, red, nil
}

// WritePlanes decodes the PNG at pngPath and writes
// <base>.black.bin and <base>.red.bin next to it.
func WritePlanes(pngPath string, p Panel) (blackPath, redPath string, err error) {
	f, err := os.Open(pngPath)
	if err != nil {
		return "", "", fmt.Errorf("convert: %w", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return "", "", fmt.Errorf("convert: decode %s: %w", pngPath, err)
	}

	black, red, err := Pack(img, p)
	if err != nil {
		return "", "", err
	}
	base := strings.TrimSuffix(pngPath, ".png")
	blackPath, redPath = base+".black.bin", base+".red.bin"
	if err := os.WriteFile(blackPath, black, 0o644); err != nil {
		return "", "", fmt.Errorf("convert: %w", err)
	}
	if err := os.WriteFile(redPath, red, 0o644); err != nil {
		return "", "", fmt.Errorf("convert: %w", err)
	}
	return blackPath, redPath, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func whitePlane(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = 0xFF
	}
	return p
}

type ink int

const (
	inkWhite ink = iota
	inkBlack
	inkRed
)

// classify maps a pixel to an ink. Saturated reds (Sundays, major
// festivals) go to the red plane before the luma test, since dark reds
// such as #b00 are also below the black threshold.
func classify(c color.NRGBA) ink {
	r, g, b := int(c.R), int(c.G), int(c.B)
	if r > 128 && r-max(g, b) > 64 {
		return inkRed
	}
	// Integer Rec. 601 luma.
	if (299*r+587*g+114*b)/1000 < 128 {
		return inkBlack
	}
	return inkWhite
}
