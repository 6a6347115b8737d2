package server

import (
	"eco/internal/query"
	"eco/pkg/types"
)

type DeniedPageData struct {
	types.BasePageData
	Message     string
	ActionLabel string
	ActionHref  string
}

type StagingPageData struct {
	types.BasePageData
	Action string
	Failed bool
}

type FeaturePageData struct {
	types.BasePageData
	Key string
}

type HomePageData struct {
	types.BasePageData
	Summary *types.TransparencyReport
}

type LoginPageData struct {
	types.BasePageData
	Email string
}

type ProfilePageData struct {
	types.BasePageData
	Profile      *types.Profile
	Neighborhood *types.Neighborhood
	Onboarding   *types.OnboardingState
	ResumeHref   string
}

type MuralPageData struct {
	types.BasePageData
	Posts     []*PostView
	Kinds     []types.PostKind
	CanPost   bool
	LoadError string
}

type PostView struct {
	*types.Post
	AuthorName string
	PhotoURL   string
}

type TransparencyPageData struct {
	types.BasePageData
	Result query.Result[*types.TransparencyReport]
}

type ReceiptPageData struct {
	types.BasePageData
	Receipt *types.Receipt
	Photos  []*types.SignedURL
}

type DropPointsPageData struct {
	types.BasePageData
	Neighborhoods []*types.Neighborhood
	Selected      string
	DropPoints    []*types.DropPoint
}

type OnboardingPageData struct {
	types.BasePageData
	State         *types.OnboardingState
	Neighborhoods []*types.Neighborhood
	DropPoints    []*types.DropPoint
	Address       types.ProfileAddress
	BackHref      string
}

type PickupFormPageData struct {
	types.BasePageData
	Materials []string
	Form      types.PickupForm
}

type PickupsPageData struct {
	types.BasePageData
	Pickups []*types.PickupRequest
}

type RecurrencePageData struct {
	types.BasePageData
	Subscription *types.RecurrenceSubscription
	Weekdays     []string
}

type NotificationsPageData struct {
	types.BasePageData
	Items  []*types.Notification
	Unread int
}

type CooperadoPageData struct {
	types.BasePageData
	Pickups []*types.PickupRequest
}

type OperatorPageData struct {
	types.BasePageData
	Periods []*types.PayoutPeriod
}
