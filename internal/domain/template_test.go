package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// twoPhaseTemplate builds a valid 6-week template with two contiguous phases.
func twoPhaseTemplate() *ProgramTemplate {
	return &ProgramTemplate{
		ID:            primitive.NewObjectID(),
		Name:          "Strength Block",
		DurationWeeks: 6,
		Phases: []ProgramPhase{
			{
				ID:          primitive.NewObjectID(),
				PhaseNumber: 1,
				PhaseName:   "Accumulation",
				PhaseType:   PhaseAccumulation,
				StartWeek:   1,
				EndWeek:     4,
				Microcycles: []Microcycle{
					{WeekNumber: 1, WeekInPhase: 1, VolumeModifier: 100, IntensityModifier: 100,
						Workouts: []Workout{{DayNumber: 1}, {DayNumber: 3}, {DayNumber: 5}}},
					{WeekNumber: 2, WeekInPhase: 2, VolumeModifier: 105, IntensityModifier: 100},
				},
			},
			{
				ID:          primitive.NewObjectID(),
				PhaseNumber: 2,
				PhaseName:   "Intensification",
				PhaseType:   PhaseIntensification,
				StartWeek:   5,
				EndWeek:     6,
			},
		},
	}
}

func TestTemplateValidate_Valid(t *testing.T) {
	tmpl := twoPhaseTemplate()
	assert.NoError(t, tmpl.Validate())
}

func TestTemplateValidate_MissingName(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Name = ""
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_NoPhases(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases = nil
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_PhaseNumbersNotAscending(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[1].PhaseNumber = 3
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_WeekGapBetweenPhases(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[1].StartWeek = 6 // phase 1 ends at week 4, leaving week 5 uncovered
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_WeekOverlapBetweenPhases(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[1].StartWeek = 4
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_LastPhaseShortOfDuration(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.DurationWeeks = 8
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_PhaseEndsBeforeStart(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[1].EndWeek = 4
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_MicrocycleOutsidePhase(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[0].Microcycles[1].WeekNumber = 5
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_MicrocycleInconsistentWeekInPhase(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[0].Microcycles[1].WeekInPhase = 5
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_WorkoutDayOutOfRange(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Phases[0].Microcycles[0].Workouts[0].DayNumber = 8
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_DuplicateSlotNumbers(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.HasExerciseSlots = true
	tmpl.Slots = []ExerciseSlot{
		{SlotNumber: 1, Label: "Horizontal press", IsRequired: true},
		{SlotNumber: 1, Label: "Vertical press"},
	}
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateValidate_SlotsWithoutFlag(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.Slots = []ExerciseSlot{{SlotNumber: 1, Label: "Squat pattern"}}
	assert.ErrorIs(t, tmpl.Validate(), ErrMalformedTemplate)
}

func TestTemplateLookups(t *testing.T) {
	tmpl := twoPhaseTemplate()
	tmpl.HasExerciseSlots = true
	tmpl.Slots = []ExerciseSlot{
		{SlotNumber: 1, Label: "Horizontal press", IsRequired: true},
		{SlotNumber: 2, Label: "Accessory pull"},
	}
	require.NoError(t, tmpl.Validate())

	phase := tmpl.PhaseByNumber(2)
	require.NotNil(t, phase)
	assert.Equal(t, "Intensification", phase.PhaseName)
	assert.Nil(t, tmpl.PhaseByNumber(3))

	assert.Equal(t, phase, tmpl.PhaseByID(phase.ID))
	assert.Nil(t, tmpl.PhaseByID(primitive.NewObjectID()))

	slot := tmpl.SlotByNumber(2)
	require.NotNil(t, slot)
	assert.Equal(t, "Accessory pull", slot.Label)
	assert.Nil(t, tmpl.SlotByNumber(9))

	required := tmpl.RequiredSlots()
	require.Len(t, required, 1)
	assert.Equal(t, 1, required[0].SlotNumber)
}
