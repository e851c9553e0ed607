package ui

import (
	"fmt"
	"image"
	"strconv"

	"gpu-life/internal/core"
)

// Source reports the values shown in the panel. Sources that also implement
// core.ParameterControlsProvider and core.IntParameterSetter get +/- buttons.
type Source interface {
	Parameters() core.ParameterSnapshot
}

const (
	panelPadding   = 12
	lineHeight     = 18
	controlHeight  = 32
	buttonSize     = 22
	buttonGap      = 6
	headerBaseline = 18
	labelBaseline  = 20
	groupSpacing   = 8
)

// line is one row of read-only text.
type line struct {
	text   string
	y      int
	header bool
}

type controlState struct {
	control  core.ParameterControl
	value    int
	hasValue bool

	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

// panel is the layout and input model behind the HUD. Coordinates are local
// to the panel.
type panel struct {
	width    int
	title    string
	lines    []line
	controls []controlState
	setter   core.IntParameterSetter
	height   int
}

func newPanel(src Source, title string, width int) *panel {
	p := &panel{width: width, title: title}
	if provider, ok := src.(core.ParameterControlsProvider); ok {
		for _, ctrl := range provider.ParameterControls() {
			p.controls = append(p.controls, controlState{control: ctrl})
		}
	}
	if setter, ok := src.(core.IntParameterSetter); ok {
		p.setter = setter
	}
	p.refresh(src.Parameters())
	return p
}

// refresh rebuilds the text rows and control values from snap.
func (p *panel) refresh(snap core.ParameterSnapshot) {
	controlled := make(map[string]*controlState, len(p.controls))
	for i := range p.controls {
		controlled[p.controls[i].control.Key] = &p.controls[i]
		p.controls[i].hasValue = false
	}

	p.lines = p.lines[:0]
	y := panelPadding + headerBaseline + groupSpacing
	for _, group := range snap.Groups {
		var rows []core.Parameter
		for _, param := range group.Params {
			if state, ok := controlled[param.Key]; ok {
				if v, err := strconv.Atoi(param.Value); err == nil {
					state.value, state.hasValue = v, true
				}
				continue
			}
			rows = append(rows, param)
		}
		if len(rows) == 0 {
			continue
		}
		y += lineHeight
		p.lines = append(p.lines, line{text: group.Name, y: y, header: true})
		for _, param := range rows {
			y += lineHeight
			p.lines = append(p.lines, line{text: fmt.Sprintf("%s: %s", param.Label, param.Value), y: y})
		}
		y += groupSpacing
	}
	p.layoutControls(y + groupSpacing)
}

func (p *panel) layoutControls(top int) {
	for i := range p.controls {
		t := top + i*controlHeight
		buttonY := t + (controlHeight-buttonSize)/2
		plus := image.Rect(p.width-panelPadding-buttonSize, buttonY, p.width-panelPadding, buttonY+buttonSize)
		minus := image.Rect(plus.Min.X-buttonGap-buttonSize, buttonY, plus.Min.X-buttonGap, buttonY+buttonSize)
		p.controls[i].top = t
		p.controls[i].minusRect = minus
		p.controls[i].plusRect = plus
	}
	p.height = top + len(p.controls)*controlHeight + panelPadding
}

// target returns the value a press in direction would set and whether the
// press changes anything.
func (p *panel) target(state *controlState, direction int) (int, bool) {
	if p.setter == nil || !state.hasValue || direction == 0 {
		return 0, false
	}
	step := state.control.Step
	if step <= 0 {
		step = 1
	}
	v := state.control.Clamp(state.value + direction*step)
	return v, v != state.value
}

// click handles a press at panel-local (x, y). It reports whether a control
// changed.
func (p *panel) click(x, y int) bool {
	pt := image.Pt(x, y)
	for i := range p.controls {
		state := &p.controls[i]
		direction := 0
		switch {
		case pt.In(state.minusRect):
			direction = -1
		case pt.In(state.plusRect):
			direction = 1
		default:
			continue
		}
		v, ok := p.target(state, direction)
		if !ok {
			return false
		}
		if p.setter.SetIntParameter(state.control.Key, v) {
			state.value = v
			return true
		}
		return false
	}
	return false
}
