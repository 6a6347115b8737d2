package onboarding

import (
	"fmt"
	"strings"
	"time"

	"eco/pkg/types"
)

const (
	RouteStart        = "/começar"
	RouteNeighborhood = "/começar/bairro"
	RouteMode         = "/começar/modo"
	RouteAddress      = "/começar/endereco"
	RouteFirstAction  = "/começar/acao"

	RoutePickup     = "/pedir-coleta"
	RouteRecurrence = "/recorrencia"
)

type FirstAction string

const (
	FirstActionPickup     FirstAction = "pickup"
	FirstActionRecurrence FirstAction = "recurrence"
)

// The functions below are the wizard's transitions. Each returns what must be persisted
// and where the user goes next; none of them touch storage.

func Start() (types.OnboardingUpdate, string) {
	return types.OnboardingUpdate{Step: types.OnboardingStepNeighborhood}, RouteNeighborhood
}

func ChooseNeighborhood(neighborhoodID string) (types.OnboardingUpdate, string, error) {
	if strings.TrimSpace(neighborhoodID) == "" {
		return types.OnboardingUpdate{}, "", fmt.Errorf("neighborhood: %w", types.ErrValidation)
	}
	return types.OnboardingUpdate{Step: types.OnboardingStepMode}, RouteMode, nil
}

// ChooseMode skips the address step for drop point users.
func ChooseMode(mode types.CollectionMode, dropPointID string) (types.OnboardingUpdate, string, error) {
	switch mode {
	case types.CollectionModeDropPoint:
		if strings.TrimSpace(dropPointID) == "" {
			return types.OnboardingUpdate{}, "", fmt.Errorf("drop point: %w", types.ErrValidation)
		}
		return types.OnboardingUpdate{
			Step:              types.OnboardingStepFirstAction,
			ChosenMode:        &mode,
			ChosenDropPointID: &dropPointID,
		}, RouteFirstAction, nil
	case types.CollectionModeDoorstep:
		return types.OnboardingUpdate{
			Step:       types.OnboardingStepAddress,
			ChosenMode: &mode,
		}, RouteAddress, nil
	}

	return types.OnboardingUpdate{}, "", fmt.Errorf("mode %q: %w", mode, types.ErrValidation)
}

func SaveAddress(state *types.OnboardingState, address types.ProfileAddress) (types.OnboardingUpdate, string, error) {
	if !AddressReachable(state) {
		return types.OnboardingUpdate{}, RouteMode, fmt.Errorf("address step requires doorstep mode: %w", types.ErrValidation)
	}
	if strings.TrimSpace(address.AddressLine) == "" {
		return types.OnboardingUpdate{}, "", fmt.Errorf("address line: %w", types.ErrValidation)
	}
	return types.OnboardingUpdate{Step: types.OnboardingStepFirstAction}, RouteFirstAction, nil
}

func Complete(action FirstAction, now time.Time) (types.OnboardingUpdate, string, error) {
	var route string
	switch action {
	case FirstActionPickup:
		route = RoutePickup
	case FirstActionRecurrence:
		route = RouteRecurrence
	default:
		return types.OnboardingUpdate{}, "", fmt.Errorf("first action %q: %w", action, types.ErrValidation)
	}

	return types.OnboardingUpdate{Step: types.OnboardingStepDone, CompletedAt: &now}, route, nil
}

func AddressReachable(state *types.OnboardingState) bool {
	return state != nil && state.ChosenMode != nil && *state.ChosenMode == types.CollectionModeDoorstep
}

// ResumeRoute is where a returning user continues. Finished users land on the pickup form.
func ResumeRoute(state *types.OnboardingState) string {
	if state == nil {
		return RouteStart
	}

	switch state.Step {
	case types.OnboardingStepNeighborhood:
		return RouteNeighborhood
	case types.OnboardingStepMode:
		return RouteMode
	case types.OnboardingStepAddress:
		if AddressReachable(state) {
			return RouteAddress
		}
		return RouteMode
	case types.OnboardingStepFirstAction:
		return RouteFirstAction
	case types.OnboardingStepDone:
		return RoutePickup
	}

	return RouteStart
}
