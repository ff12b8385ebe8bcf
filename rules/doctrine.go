package rules

import "math"

// Doctrine is the strategic posture of one AI player. Weights are 0.0–1.0;
// the compiler maps them to concrete launch thresholds.
type Doctrine struct {
	Name       string  `mapstructure:"name"`
	Aggression float64 `mapstructure:"aggression"`
	// RushWeight 0 disables rushes.
	RushWeight       float64 `mapstructure:"rush_weight"`
	RaidWeight       float64 `mapstructure:"raid_weight"`
	SuperSizedWeight float64 `mapstructure:"supersized_weight"`
	MaxRushes        int     `mapstructure:"max_rushes"`
	MaxActive        int     `mapstructure:"max_active"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:             "Balanced",
		Aggression:       0.5,
		RushWeight:       0.5,
		RaidWeight:       0.5,
		SuperSizedWeight: 0.5,
		MaxRushes:        1,
		MaxActive:        2,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.RushWeight = clamp(d.RushWeight, 0, 1)
	d.RaidWeight = clamp(d.RaidWeight, 0, 1)
	d.SuperSizedWeight = clamp(d.SuperSizedWeight, 0, 1)
	d.MaxRushes = clampInt(d.MaxRushes, 0, 5)
	d.MaxActive = clampInt(d.MaxActive, 1, 6)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
