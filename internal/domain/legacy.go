package domain

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Legacy templates predate the normalized phase/microcycle/workout schema.
// They carry a loosely-typed JSON "template data" blob with a flat list of
// weeks and days. LiftLegacyTemplate adapts that shape into the normalized
// read contract so consumers never need to know which representation backs
// a given template.

type LegacyTemplateData struct {
	Weeks []LegacyWeek `bson:"weeks" json:"weeks"`
}

type LegacyWeek struct {
	Week int         `bson:"week" json:"week"`
	Days []LegacyDay `bson:"days" json:"days"`
}

type LegacyDay struct {
	Day       int               `bson:"day" json:"day"`
	Type      string            `bson:"type,omitempty" json:"type,omitempty"`
	Exercises []WorkoutExercise `bson:"exercises,omitempty" json:"exercises,omitempty"`
}

// IsLegacy reports whether the template is backed by a legacy data blob
// instead of normalized phases.
func (t *ProgramTemplate) IsLegacy() bool {
	return len(t.Phases) == 0 && len(t.LegacyData) > 0
}

// LiftLegacyTemplate populates t.Phases from the legacy blob. Legacy
// templates predate periodization, so the whole program lifts into a single
// accumulation phase spanning every week. The lifted phase reuses the
// template's own ObjectID so that currentPhaseId references stay stable
// across reads.
func LiftLegacyTemplate(t *ProgramTemplate) error {
	if !t.IsLegacy() {
		return nil
	}

	var data LegacyTemplateData
	if err := bson.Unmarshal(t.LegacyData, &data); err != nil {
		return fmt.Errorf("%w: undecodable legacy template data: %v", ErrMalformedTemplate, err)
	}
	if len(data.Weeks) == 0 {
		return fmt.Errorf("%w: legacy template data has no weeks", ErrMalformedTemplate)
	}

	phase := ProgramPhase{
		ID:          t.ID, // stable across reads, see doc comment
		PhaseNumber: 1,
		PhaseName:   "Full Program",
		PhaseType:   PhaseAccumulation,
		StartWeek:   1,
		EndWeek:     len(data.Weeks),
	}
	for i, lw := range data.Weeks {
		if lw.Week != i+1 {
			return fmt.Errorf("%w: legacy week numbers must be contiguous from 1 (got %d at position %d)",
				ErrMalformedTemplate, lw.Week, i+1)
		}
		mc := Microcycle{
			WeekNumber:        lw.Week,
			WeekInPhase:       lw.Week,
			VolumeModifier:    100,
			IntensityModifier: 100,
		}
		for _, ld := range lw.Days {
			mc.Workouts = append(mc.Workouts, Workout{
				DayNumber:   ld.Day,
				WorkoutType: ld.Type,
				Exercises:   ld.Exercises,
			})
		}
		phase.Microcycles = append(phase.Microcycles, mc)
	}

	t.Phases = []ProgramPhase{phase}
	if t.DurationWeeks == 0 {
		t.DurationWeeks = phase.EndWeek
	}
	return t.Validate()
}
