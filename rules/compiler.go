package rules

import (
	"fmt"

	"github.com/0ad/0ad-sub001/military"
)

// CompileDoctrine generates the launch triggers for a doctrine's weights.
// Conditions are built via fmt.Sprintf with interpolated values, so the
// compiler never generates invalid expr.
func CompileDoctrine(d Doctrine) []*Trigger {
	d.Validate()
	var triggers []*Trigger
	// Aggressive doctrines attack earlier and with fewer men.
	calm := 1 - d.Aggression

	if d.RushWeight > 0 && d.MaxRushes > 0 {
		triggers = append(triggers, &Trigger{
			Name:     "rush",
			Campaign: military.Rush,
			Priority: 400,
			ConditionSrc: fmt.Sprintf(
				`Minutes() >= %.1f && Minutes() < %.1f && Structures("Barracks") >= 1 && Launched("Rush") < %d && Active() < %d`,
				lerpf(3, 6, calm), lerpf(8, 14, d.RushWeight), d.MaxRushes, d.MaxActive),
		})
	}

	if d.RaidWeight > 0 {
		triggers = append(triggers, &Trigger{
			Name:     "raid",
			Campaign: military.Raid,
			Priority: 300,
			ConditionSrc: fmt.Sprintf(
				`Minutes() >= %.1f && (Count("Cavalry") >= %d || CanTrain("Cavalry")) && Plans("Raid") == 0 && Active() < %d`,
				lerpf(6, 12, 1-d.RaidWeight), lerp(2, 6, calm), d.MaxActive),
		})
	}

	triggers = append(triggers, &Trigger{
		Name:     "standard",
		Campaign: military.Standard,
		Priority: 200,
		ConditionSrc: fmt.Sprintf(
			`Minutes() >= %.1f && Structures("Barracks") >= 1 && Military() >= %d && Plans("Standard") == 0 && Active() < %d`,
			lerpf(8, 16, calm), lerp(6, 20, calm), d.MaxActive),
	})

	if d.SuperSizedWeight > 0 {
		triggers = append(triggers, &Trigger{
			Name:     "supersized",
			Campaign: military.SuperSized,
			Priority: 100,
			ConditionSrc: fmt.Sprintf(
				`Minutes() >= %.1f && PopMax() >= %d && CanTrain("Siege") && Plans("SuperSized") == 0 && Active() < %d`,
				lerpf(30, 20, d.SuperSizedWeight), lerp(150, 250, calm), d.MaxActive),
		})
	}

	return triggers
}

// DefaultTriggers compiles the default doctrine.
func DefaultTriggers() []*Trigger {
	return CompileDoctrine(DefaultDoctrine())
}
