//go:build ebiten

package ui

import (
	"image"
	"image/color"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

var (
	panelBackground = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	titleColor      = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	headerColor     = color.RGBA{R: 150, G: 170, B: 200, A: 255}
	valueColor      = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	mutedColor      = color.RGBA{R: 160, G: 160, B: 170, A: 255}
)

// HUD renders the parameter panel over the right edge of the screen.
type HUD struct {
	src   Source
	model *panel
	image *ebiten.Image

	offsetX int
}

// NewHUD builds a HUD of the given width for src. A non-positive width
// disables it.
func NewHUD(src Source, title string, width int) *HUD {
	if width <= 0 || src == nil {
		return nil
	}
	return &HUD{src: src, model: newPanel(src, title, width)}
}

// Width returns the panel width in pixels.
func (h *HUD) Width() int {
	if h == nil {
		return 0
	}
	return h.model.width
}

// Update refreshes values and handles button presses. It reports whether the
// press was consumed by the panel.
func (h *HUD) Update(screenWidth int) bool {
	if h == nil {
		return false
	}
	h.offsetX = screenWidth - h.model.width
	h.model.refresh(h.src.Parameters())
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return false
	}
	mx, my := ebiten.CursorPosition()
	if mx < h.offsetX || my > h.model.height {
		return false
	}
	h.model.click(mx-h.offsetX, my)
	return true
}

// Contains reports whether the screen point lies on the panel.
func (h *HUD) Contains(x, y int) bool {
	if h == nil {
		return false
	}
	return x >= h.offsetX && y <= h.model.height
}

// Draw paints the panel onto screen.
func (h *HUD) Draw(screen *ebiten.Image) {
	if h == nil {
		return
	}
	w, ht := h.model.width, h.model.height
	if h.image == nil || h.image.Bounds().Dx() != w || h.image.Bounds().Dy() != ht {
		if h.image != nil {
			h.image.Dispose()
		}
		h.image = ebiten.NewImage(w, ht)
	}
	h.image.Fill(panelBackground)

	face := basicfont.Face7x13
	text.Draw(h.image, h.model.title, face, panelPadding, panelPadding+headerBaseline, titleColor)
	for _, l := range h.model.lines {
		c := valueColor
		if l.header {
			c = headerColor
		}
		text.Draw(h.image, l.text, face, panelPadding, l.y, c)
	}
	for i := range h.model.controls {
		state := &h.model.controls[i]
		y := state.top + labelBaseline
		text.Draw(h.image, state.control.Label, face, panelPadding, y, valueColor)

		value, c := "--", mutedColor
		if state.hasValue {
			value, c = strconv.Itoa(state.value), valueColor
		}
		vw := text.BoundString(face, value).Dx()
		text.Draw(h.image, value, face, state.minusRect.Min.X-buttonGap-vw, y, c)

		_, minusOK := h.model.target(state, -1)
		_, plusOK := h.model.target(state, 1)
		h.drawButton(state.minusRect, "-", minusOK)
		h.drawButton(state.plusRect, "+", plusOK)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(h.offsetX), 0)
	screen.DrawImage(h.image, op)
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	bg := color.RGBA{R: 54, G: 56, B: 64, A: 255}
	fg := color.RGBA{R: 230, G: 230, B: 240, A: 255}
	if !enabled {
		bg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
		fg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	}
	h.image.SubImage(rect).(*ebiten.Image).Fill(bg)

	face := basicfont.Face7x13
	bounds := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-bounds.Dx())/2
	y := rect.Min.Y + (rect.Dy()-bounds.Dy())/2 + bounds.Dy()
	text.Draw(h.image, label, face, x, y, fg)
}
