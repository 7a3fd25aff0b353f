package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMalformedTemplate signals an authoring-time structural violation.
// A template failing validation must never become visible to athletes.
var ErrMalformedTemplate = errors.New("malformed program template")

// ProgressionStrategy describes how an athlete moves through a template.
type ProgressionStrategy string

const (
	ProgressionLinear        ProgressionStrategy = "LINEAR"
	ProgressionAutoRegulated ProgressionStrategy = "AUTO_REGULATED"
	ProgressionCustom        ProgressionStrategy = "CUSTOM"
)

// PhaseType is the training emphasis of a macro-block.
type PhaseType string

const (
	PhaseAccumulation    PhaseType = "ACCUMULATION"
	PhaseIntensification PhaseType = "INTENSIFICATION"
	PhaseRealization     PhaseType = "REALIZATION"
	PhaseDeload          PhaseType = "DELOAD"
)

// ProgramTemplate is an authored, reusable multi-week training program.
// Phases, microcycles and workouts are embedded; a template is treated as
// immutable once athletes are subscribed to it.
type ProgramTemplate struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AuthorID            primitive.ObjectID  `bson:"authorId" json:"authorId"` // Trainer (or system) who authored it
	Name                string              `bson:"name" json:"name"`
	Description         string              `bson:"description,omitempty" json:"description,omitempty"`
	DurationWeeks       int                 `bson:"durationWeeks" json:"durationWeeks"`
	Difficulty          string              `bson:"difficulty,omitempty" json:"difficulty,omitempty"` // e.g., "beginner", "intermediate", "advanced"
	Category            string              `bson:"category,omitempty" json:"category,omitempty"`     // e.g., "strength", "hypertrophy"
	HasExerciseSlots    bool                `bson:"hasExerciseSlots" json:"hasExerciseSlots"`
	ProgressionStrategy ProgressionStrategy `bson:"progressionStrategy" json:"progressionStrategy"`
	AutoRegulation      bool                `bson:"autoRegulation" json:"autoRegulation"`
	Phases              []ProgramPhase      `bson:"phases,omitempty" json:"phases,omitempty"`
	Slots               []ExerciseSlot      `bson:"slots,omitempty" json:"slots,omitempty"`
	// LegacyData holds the pre-normalization JSON blob for old templates.
	// It is lifted into Phases by the catalog on read; consumers never see it.
	LegacyData bson.Raw  `bson:"legacyData,omitempty" json:"-"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProgramPhase is an ordered macro-block of a template. StartWeek/EndWeek
// are inclusive and contiguous across phases.
type ProgramPhase struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhaseNumber     int                `bson:"phaseNumber" json:"phaseNumber"` // 1-based, ascending, unique per template
	PhaseName       string             `bson:"phaseName" json:"phaseName"`
	PhaseType       PhaseType          `bson:"phaseType" json:"phaseType"`
	StartWeek       int                `bson:"startWeek" json:"startWeek"`
	EndWeek         int                `bson:"endWeek" json:"endWeek"`
	TargetIntensity Band               `bson:"targetIntensity,omitempty" json:"targetIntensity,omitempty"` // % of 1RM
	TargetVolume    Band               `bson:"targetVolume,omitempty" json:"targetVolume,omitempty"`       // weekly working sets
	RepRangeLow     int                `bson:"repRangeLow,omitempty" json:"repRangeLow,omitempty"`
	RepRangeHigh    int                `bson:"repRangeHigh,omitempty" json:"repRangeHigh,omitempty"`
	SetsPerExercise int                `bson:"setsPerExercise,omitempty" json:"setsPerExercise,omitempty"`
	Microcycles     []Microcycle       `bson:"microcycles,omitempty" json:"microcycles,omitempty"`
}

// Band is an inclusive low/high target range.
type Band struct {
	Low  float64 `bson:"low" json:"low"`
	High float64 `bson:"high" json:"high"`
}

// Microcycle is one week inside a phase. Modifiers are percentage
// multipliers applied to the phase's base targets (100 = unchanged).
type Microcycle struct {
	WeekNumber        int       `bson:"weekNumber" json:"weekNumber"`     // template-absolute, 1-based
	WeekInPhase       int       `bson:"weekInPhase" json:"weekInPhase"`   // phase-relative, 1-based
	VolumeModifier    int       `bson:"volumeModifier" json:"volumeModifier"`
	IntensityModifier int       `bson:"intensityModifier" json:"intensityModifier"`
	Workouts          []Workout `bson:"workouts,omitempty" json:"workouts,omitempty"`
}

// Workout is one training day inside a microcycle.
type Workout struct {
	DayNumber   int               `bson:"dayNumber" json:"dayNumber"` // 1..7
	WorkoutType string            `bson:"workoutType,omitempty" json:"workoutType,omitempty"` // e.g., "upper", "lower", "full body"
	Exercises   []WorkoutExercise `bson:"exercises,omitempty" json:"exercises,omitempty"`
}

// WorkoutExercise prescribes one movement in a workout. It references either
// a fixed exercise (ExerciseID) or a slot the athlete resolves (SlotNumber).
type WorkoutExercise struct {
	ExerciseID       *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	SlotNumber       *int                `bson:"slotNumber,omitempty" json:"slotNumber,omitempty"`
	Order            int                 `bson:"order" json:"order"`
	TargetSets       int                 `bson:"targetSets,omitempty" json:"targetSets,omitempty"`
	RepRangeLow      int                 `bson:"repRangeLow,omitempty" json:"repRangeLow,omitempty"`
	RepRangeHigh     int                 `bson:"repRangeHigh,omitempty" json:"repRangeHigh,omitempty"`
	TargetRPE        float64             `bson:"targetRpe,omitempty" json:"targetRpe,omitempty"`
	IntensityPercent float64             `bson:"intensityPercent,omitempty" json:"intensityPercent,omitempty"`
	RestSeconds      int                 `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
}

// ExerciseSlot is a placeholder a template declares instead of a fixed
// exercise. Movement pattern / muscle targets / equipment are advisory
// metadata for the selection UI, not enforced constraints.
type ExerciseSlot struct {
	SlotNumber       int      `bson:"slotNumber" json:"slotNumber"`
	Label            string   `bson:"label" json:"label"` // e.g., "Horizontal press"
	MovementPattern  string   `bson:"movementPattern,omitempty" json:"movementPattern,omitempty"`
	MuscleTargets    []string `bson:"muscleTargets,omitempty" json:"muscleTargets,omitempty"`
	EquipmentOptions []string `bson:"equipmentOptions,omitempty" json:"equipmentOptions,omitempty"`
	IsRequired       bool     `bson:"isRequired" json:"isRequired"`
}

// Validate checks the structural invariants of a normalized template:
// phases sorted by phaseNumber cover weeks 1..DurationWeeks contiguously
// with no gaps or overlaps, microcycle weeks sit inside their phase, and
// workout day numbers are in 1..7. All violations map to ErrMalformedTemplate.
func (t *ProgramTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrMalformedTemplate)
	}
	if t.DurationWeeks <= 0 {
		return fmt.Errorf("%w: duration must be at least one week", ErrMalformedTemplate)
	}
	if len(t.Phases) == 0 {
		return fmt.Errorf("%w: template has no phases", ErrMalformedTemplate)
	}

	prevEnd := 0
	for i := range t.Phases {
		p := &t.Phases[i]
		if p.PhaseNumber != i+1 {
			return fmt.Errorf("%w: phase numbers must be ascending from 1 (got %d at position %d)",
				ErrMalformedTemplate, p.PhaseNumber, i+1)
		}
		if p.StartWeek != prevEnd+1 {
			return fmt.Errorf("%w: phase %d starts at week %d, expected week %d",
				ErrMalformedTemplate, p.PhaseNumber, p.StartWeek, prevEnd+1)
		}
		if p.EndWeek < p.StartWeek {
			return fmt.Errorf("%w: phase %d ends before it starts", ErrMalformedTemplate, p.PhaseNumber)
		}
		if err := p.validateMicrocycles(); err != nil {
			return err
		}
		prevEnd = p.EndWeek
	}
	if prevEnd != t.DurationWeeks {
		return fmt.Errorf("%w: last phase ends at week %d, template duration is %d weeks",
			ErrMalformedTemplate, prevEnd, t.DurationWeeks)
	}

	if !t.HasExerciseSlots && len(t.Slots) > 0 {
		return fmt.Errorf("%w: template declares slots but hasExerciseSlots is false", ErrMalformedTemplate)
	}
	seen := make(map[int]bool, len(t.Slots))
	for _, s := range t.Slots {
		if seen[s.SlotNumber] {
			return fmt.Errorf("%w: duplicate slot number %d", ErrMalformedTemplate, s.SlotNumber)
		}
		seen[s.SlotNumber] = true
	}
	return nil
}

func (p *ProgramPhase) validateMicrocycles() error {
	for i, mc := range p.Microcycles {
		if mc.WeekNumber < p.StartWeek || mc.WeekNumber > p.EndWeek {
			return fmt.Errorf("%w: phase %d microcycle week %d outside phase weeks %d-%d",
				ErrMalformedTemplate, p.PhaseNumber, mc.WeekNumber, p.StartWeek, p.EndWeek)
		}
		if mc.WeekInPhase != mc.WeekNumber-p.StartWeek+1 {
			return fmt.Errorf("%w: phase %d microcycle %d has inconsistent weekInPhase %d",
				ErrMalformedTemplate, p.PhaseNumber, i+1, mc.WeekInPhase)
		}
		for _, w := range mc.Workouts {
			if w.DayNumber < 1 || w.DayNumber > 7 {
				return fmt.Errorf("%w: phase %d week %d workout day %d out of range 1-7",
					ErrMalformedTemplate, p.PhaseNumber, mc.WeekNumber, w.DayNumber)
			}
		}
	}
	return nil
}

// PhaseByID looks up an embedded phase by its ObjectID.
func (t *ProgramTemplate) PhaseByID(id primitive.ObjectID) *ProgramPhase {
	for i := range t.Phases {
		if t.Phases[i].ID == id {
			return &t.Phases[i]
		}
	}
	return nil
}

// PhaseByNumber looks up an embedded phase by its 1-based phase number.
func (t *ProgramTemplate) PhaseByNumber(n int) *ProgramPhase {
	for i := range t.Phases {
		if t.Phases[i].PhaseNumber == n {
			return &t.Phases[i]
		}
	}
	return nil
}

// SlotByNumber looks up a declared slot by slot number.
func (t *ProgramTemplate) SlotByNumber(n int) *ExerciseSlot {
	for i := range t.Slots {
		if t.Slots[i].SlotNumber == n {
			return &t.Slots[i]
		}
	}
	return nil
}

// RequiredSlots returns the slots that must be resolved before a
// subscription to this template may be activated.
func (t *ProgramTemplate) RequiredSlots() []ExerciseSlot {
	var required []ExerciseSlot
	for _, s := range t.Slots {
		if s.IsRequired {
			required = append(required, s)
		}
	}
	return required
}
