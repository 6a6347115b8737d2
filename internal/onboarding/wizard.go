package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eco/pkg/types"

	"github.com/sirupsen/logrus"
)

type States interface {
	State(ctx context.Context, userID string) (*types.OnboardingState, error)
	Save(ctx context.Context, userID string, update types.OnboardingUpdate) error
}

type Profiles interface {
	SetNeighborhood(ctx context.Context, userID, neighborhoodID string) error
	SetAddress(ctx context.Context, userID string, address types.ProfileAddress) error
}

type DropPoints interface {
	DropPoint(ctx context.Context, id string) (*types.DropPoint, error)
}

const completeTimeout = 10 * time.Second

// Wizard persists each transition before handing back the next route.
type Wizard struct {
	logger     *logrus.Logger
	states     States
	profiles   Profiles
	dropPoints DropPoints
	now        func() time.Time

	// completed is called after the background completion write finishes.
	completed func(err error)
}

func NewWizard(logger *logrus.Logger, states States, profiles Profiles, dropPoints DropPoints) *Wizard {
	return &Wizard{
		logger:     logger,
		states:     states,
		profiles:   profiles,
		dropPoints: dropPoints,
		now:        time.Now,
	}
}

// State returns nil for users who never started.
func (w *Wizard) State(ctx context.Context, userID string) (*types.OnboardingState, error) {
	state, err := w.states.State(ctx, userID)
	if errors.Is(err, types.ErrOnboardingNotFound) {
		return nil, nil
	}
	return state, err
}

func (w *Wizard) Begin(ctx context.Context, userID string) (string, error) {
	update, route := Start()
	return route, w.save(ctx, userID, update)
}

func (w *Wizard) SetNeighborhood(ctx context.Context, userID, neighborhoodID string) (string, error) {
	update, route, err := ChooseNeighborhood(neighborhoodID)
	if err != nil {
		return "", err
	}

	if err := w.profiles.SetNeighborhood(ctx, userID, neighborhoodID); err != nil {
		return "", fmt.Errorf("failed to set profile neighborhood: %w", err)
	}

	return route, w.save(ctx, userID, update)
}

func (w *Wizard) SetMode(ctx context.Context, userID string, mode types.CollectionMode, dropPointID string) (string, error) {
	update, route, err := ChooseMode(mode, dropPointID)
	if err != nil {
		return "", err
	}

	if mode == types.CollectionModeDropPoint {
		dp, err := w.dropPoints.DropPoint(ctx, dropPointID)
		if err != nil {
			return "", fmt.Errorf("failed to load drop point: %w", err)
		}
		if !dp.IsActive {
			return "", fmt.Errorf("drop point inactive: %w", types.ErrValidation)
		}
	}

	return route, w.save(ctx, userID, update)
}

func (w *Wizard) SetAddress(ctx context.Context, userID string, address types.ProfileAddress) (string, error) {
	state, err := w.State(ctx, userID)
	if err != nil {
		return "", err
	}

	update, route, err := SaveAddress(state, address)
	if err != nil {
		return route, err
	}

	if err := w.profiles.SetAddress(ctx, userID, address); err != nil {
		return "", fmt.Errorf("failed to save profile address: %w", err)
	}

	return route, w.save(ctx, userID, update)
}

// Finish returns the route of the chosen first action right away. The completion write
// runs in the background; its failure is logged and never blocks the user.
func (w *Wizard) Finish(ctx context.Context, userID string, action FirstAction) (string, error) {
	update, route, err := Complete(action, w.now())
	if err != nil {
		return "", err
	}

	go func() {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
		defer cancel()

		err := w.save(bctx, userID, update)
		if err != nil {
			w.logger.WithError(err).WithField("user_id", userID).Warn("failed to mark onboarding complete")
		}
		if w.completed != nil {
			w.completed(err)
		}
	}()

	return route, nil
}

func (w *Wizard) save(ctx context.Context, userID string, update types.OnboardingUpdate) error {
	if err := w.states.Save(ctx, userID, update); err != nil {
		return fmt.Errorf("failed to save onboarding %s: %w", update.Step, err)
	}
	return nil
}
