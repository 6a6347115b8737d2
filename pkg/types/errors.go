package types

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("upstream failure")
)

// Entity specific not-found errors still match ErrNotFound with errors.Is.
var (
	ErrProfileNotFound    = fmt.Errorf("profile %w", ErrNotFound)
	ErrOnboardingNotFound = fmt.Errorf("onboarding state %w", ErrNotFound)
	ErrPeriodNotFound     = fmt.Errorf("payout period %w", ErrNotFound)
	ErrMediaNotFound      = fmt.Errorf("media object %w", ErrNotFound)
	ErrPickupNotFound     = fmt.Errorf("pickup request %w", ErrNotFound)
	ErrReceiptNotFound    = fmt.Errorf("receipt %w", ErrNotFound)
)
