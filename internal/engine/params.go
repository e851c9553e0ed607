package engine

import (
	"fmt"

	"gpu-life/internal/core"
)

// Parameter keys reported by Parameters and accepted by SetIntParameter.
const (
	ParamDeadRule   = "dead_rule"
	ParamLiveRule   = "live_rule"
	ParamGeneration = "generation"
	ParamGrid       = "grid"
	ParamRule       = "rule"
	ParamZoom       = "zoom"
)

// Parameters reports the engine state for display.
func (e *Engine) Parameters() core.ParameterSnapshot {
	dead, live := e.Rules().Masks()
	size := e.Size()
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Simulation",
			Params: []core.Parameter{
				core.IntParam(ParamGeneration, "Generation", int(e.Generation())),
				core.TextParam(ParamGrid, "Grid", fmt.Sprintf("%dx%d", size.W, size.H)),
				core.TextParam(ParamRule, "Rule", core.FormatRule(dead, live)),
			},
		},
		{
			Name: "Rules",
			Params: []core.Parameter{
				core.IntParam(ParamDeadRule, "Birth mask", dead),
				core.IntParam(ParamLiveRule, "Survival mask", live),
			},
		},
		{
			Name: "View",
			Params: []core.Parameter{
				core.FloatParam(ParamZoom, "Zoom", float64(e.cam.Zoom())),
			},
		},
	}}
}

// ParameterControls lists the masks as adjustable values.
func (e *Engine) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: ParamDeadRule, Label: "Birth mask", Step: 1, Min: 0, Max: core.RuleMaskBits},
		{Key: ParamLiveRule, Label: "Survival mask", Step: 1, Min: 0, Max: core.RuleMaskBits},
	}
}

// SetIntParameter updates one rule mask.
func (e *Engine) SetIntParameter(key string, value int) bool {
	dead, live := e.Rules().Masks()
	switch key {
	case ParamDeadRule:
		dead = value
	case ParamLiveRule:
		live = value
	default:
		return false
	}
	e.SetRules(dead, live)
	return true
}
