package types

import "time"

type OnboardingStep string

const (
	OnboardingStepStart        OnboardingStep = "start"
	OnboardingStepNeighborhood OnboardingStep = "neighborhood"
	OnboardingStepMode         OnboardingStep = "mode"
	OnboardingStepAddress      OnboardingStep = "address"
	OnboardingStepFirstAction  OnboardingStep = "first_action"
	OnboardingStepDone         OnboardingStep = "done"
)

type CollectionMode string

const (
	CollectionModeDoorstep  CollectionMode = "doorstep"
	CollectionModeDropPoint CollectionMode = "drop_point"
)

type OnboardingState struct {
	UserID            string          `db:"user_id"`
	Step              OnboardingStep  `db:"step"`
	ChosenMode        *CollectionMode `db:"chosen_mode"`
	ChosenDropPointID *string         `db:"chosen_drop_point_id"`
	CompletedAt       *time.Time      `db:"completed_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// OnboardingUpdate is what one wizard step writes. Nil fields are left untouched.
type OnboardingUpdate struct {
	Step              OnboardingStep
	ChosenMode        *CollectionMode
	ChosenDropPointID *string
	CompletedAt       *time.Time
}

// Values returns the columns this update sets.
func (u OnboardingUpdate) Values() map[string]any {
	values := map[string]any{"step": u.Step}
	if u.ChosenMode != nil {
		values["chosen_mode"] = *u.ChosenMode
	}
	if u.ChosenDropPointID != nil {
		values["chosen_drop_point_id"] = *u.ChosenDropPointID
	}
	if u.CompletedAt != nil {
		values["completed_at"] = *u.CompletedAt
	}
	return values
}
