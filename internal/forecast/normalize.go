package forecast

import (
	"math"
	"slices"
	"strings"
)

const (
	defaultInputSize  = 32
	defaultNumLayers  = 1
	defaultHiddenSize = 16
	defaultEpochs     = 20
)

// Normalize repairs cfg so every field is satisfiable by its module. It never
// fails and Normalize(Normalize(c)) == Normalize(c).
func Normalize(cfg Config) Config {
	out := cfg

	out.Levels = normalizeLevels(cfg.Levels)

	if _, ok := registry[out.Module]; !ok {
		if m, parsed := ParseModule(string(out.Module)); parsed {
			out.Module = m
		} else {
			out.Module = StatsForecast
		}
	}

	out.Model = strings.ToLower(strings.TrimSpace(out.Model))
	if !IsRegistered(out.Module, out.Model) {
		out.Model = registry[out.Module][0]
	}

	switch out.Strategy {
	case OneStep, RecursiveMultiStep, DirectMultiOutput:
	default:
		out.Strategy = RecursiveMultiStep
	}
	if out.Strategy == DirectMultiOutput && out.Module == StatsForecast {
		out.Strategy = RecursiveMultiStep
	}

	out.TestFraction = normalizeFraction(cfg.TestFraction)
	out.Params = normalizeParams(out.Module, cfg.Params)

	if out.Horizon <= 0 {
		out.Horizon = defaultHorizon
	}
	if out.SeasonLength <= 0 {
		out.SeasonLength = 1
	}
	out.Frequency = normalizeFrequency(out.Frequency)
	out.MissingStrategy = normalizeMissing(out.MissingStrategy)
	out.DateStart = strings.TrimSpace(out.DateStart)
	out.DateEnd = strings.TrimSpace(out.DateEnd)

	return out
}

// CoerceLevels converts loosely typed levels (as decoded from JSON or flags)
// into integers, dropping NaN and infinities.
func CoerceLevels(raw []float64) []int {
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, int(math.Round(v)))
	}
	return out
}

func normalizeLevels(levels []int) []int {
	out := make([]int, 0, len(levels))
	for _, lvl := range levels {
		if lvl <= 0 || lvl >= 100 {
			continue
		}
		out = append(out, lvl)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return append([]int(nil), defaultLevels...)
	}
	return out
}

func normalizeFraction(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= maxTestFraction {
		return nil
	}
	return &v
}

func normalizeParams(m Module, p Params) Params {
	switch m {
	case MLForecast:
		ml, _ := p.(MLParams)
		lags := make([]int, 0, len(ml.Lags))
		for _, lag := range ml.Lags {
			if lag > 0 {
				lags = append(lags, lag)
			}
		}
		slices.Sort(lags)
		lags = slices.Compact(lags)
		if len(lags) == 0 {
			lags = append([]int(nil), defaultLags...)
		}
		return MLParams{Lags: lags}
	case NeuralForecast:
		nn, _ := p.(NeuralParams)
		if nn.InputSize <= 0 {
			nn.InputSize = defaultInputSize
		}
		if nn.NumLayers != 1 && nn.NumLayers != 2 {
			nn.NumLayers = defaultNumLayers
		}
		if nn.HiddenSize < 1 {
			nn.HiddenSize = defaultHiddenSize
		}
		if nn.Epochs < 1 {
			nn.Epochs = defaultEpochs
		}
		return nn
	default:
		return StatisticalParams{}
	}
}

func normalizeFrequency(freq string) string {
	freq = strings.TrimSpace(freq)
	for _, allowed := range Frequencies {
		if strings.EqualFold(freq, allowed) {
			return allowed
		}
	}
	return defaultFrequency
}

func normalizeMissing(s MissingStrategy) MissingStrategy {
	switch MissingStrategy(strings.ToLower(strings.TrimSpace(string(s)))) {
	case MissingNone:
		return MissingNone
	case MissingDrop:
		return MissingDrop
	case MissingForward:
		return MissingForward
	case MissingBackward:
		return MissingBackward
	case MissingInterpolate:
		return MissingInterpolate
	case MissingZero:
		return MissingZero
	}
	return MissingNone
}

// Patch is a partial configuration. Nil fields leave the target untouched.
type Patch struct {
	Module          *Module
	Model           *string
	Strategy        *Strategy
	Frequency       *string
	SeasonLength    *int
	Horizon         *int
	Levels          []int
	Lags            []int
	Neural          *NeuralParams
	LogTransform    *bool
	TestFraction    *float64
	ClearHoldout    bool
	MissingStrategy *MissingStrategy
	DateStart       *string
	DateEnd         *string
	DetectFrequency *bool
}

// IsZero reports whether the patch changes nothing.
func (p *Patch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Module == nil && p.Model == nil && p.Strategy == nil && p.Frequency == nil &&
		p.SeasonLength == nil && p.Horizon == nil && p.Levels == nil && p.Lags == nil &&
		p.Neural == nil && p.LogTransform == nil && p.TestFraction == nil && !p.ClearHoldout &&
		p.MissingStrategy == nil && p.DateStart == nil && p.DateEnd == nil && p.DetectFrequency == nil
}

// Apply merges patch into cfg and normalizes the result.
func Apply(cfg Config, patch *Patch) Config {
	if patch == nil {
		return Normalize(cfg)
	}
	out := cfg
	if patch.Module != nil {
		out.Module = *patch.Module
	}
	if patch.Model != nil {
		out.Model = *patch.Model
	}
	if patch.Strategy != nil {
		out.Strategy = *patch.Strategy
	}
	if patch.Frequency != nil {
		out.Frequency = *patch.Frequency
	}
	if patch.SeasonLength != nil {
		out.SeasonLength = *patch.SeasonLength
	}
	if patch.Horizon != nil {
		out.Horizon = *patch.Horizon
	}
	if patch.Levels != nil {
		out.Levels = append([]int(nil), patch.Levels...)
	}
	if patch.Lags != nil {
		out.Params = MLParams{Lags: append([]int(nil), patch.Lags...)}
	}
	if patch.Neural != nil {
		out.Params = *patch.Neural
	}
	if patch.LogTransform != nil {
		out.LogTransform = *patch.LogTransform
	}
	if patch.ClearHoldout {
		out.TestFraction = nil
	}
	if patch.TestFraction != nil {
		v := *patch.TestFraction
		out.TestFraction = &v
	}
	if patch.MissingStrategy != nil {
		out.MissingStrategy = *patch.MissingStrategy
	}
	if patch.DateStart != nil {
		out.DateStart = *patch.DateStart
	}
	if patch.DateEnd != nil {
		out.DateEnd = *patch.DateEnd
	}
	if patch.DetectFrequency != nil {
		out.DetectFrequency = *patch.DetectFrequency
	}
	return Normalize(out)
}
