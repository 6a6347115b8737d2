package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"eco/internal/onboarding"
	"eco/internal/query"
	"eco/internal/utils"
	"eco/pkg/types"
)

type onboardingModeForm struct {
	Mode        types.CollectionMode `form:"mode"`
	DropPointID string               `form:"drop_point_id"`
}

type onboardingActionForm struct {
	Action onboarding.FirstAction `form:"action"`
}

// onboardingSession sends anonymous visitors to the login page. The wizard itself is
// public so that the "complete profile" call to action always lands somewhere.
func (s *Service) onboardingSession(w http.ResponseWriter, r *http.Request) *types.Session {
	session := sessionFromContext(r.Context())
	if session == nil && sessionError(r.Context()) != nil {
		s.renderSessionUnavailable(w, r)
		return nil
	}
	if session == nil {
		s.setRedirectCookie(w, r.URL.RequestURI(), time.Minute*5)
		http.Redirect(w, r, "/entrar", http.StatusSeeOther)
	}
	return session
}

func (s *Service) redirectTo(w http.ResponseWriter, r *http.Request, route string) {
	http.Redirect(w, r, escapePath(route), http.StatusSeeOther)
}

func (s *Service) onboardingPage(r *http.Request, title string, state *types.OnboardingState, back string) *OnboardingPageData {
	return &OnboardingPageData{
		BasePageData: types.BasePageData{Title: title, Error: r.URL.Query().Get("error")},
		State:        state,
		BackHref:     back,
	}
}

func (s *Service) handleGetOnboardingStart(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	state, err := s.deps.Wizard.State(r.Context(), session.UserID())
	if err != nil {
		s.logger.WithError(err).Error("failed to load onboarding state")
	}

	// returning users continue where they stopped
	if resume := onboarding.ResumeRoute(state); resume != onboarding.RouteStart && r.URL.Query().Get("reiniciar") == "" {
		s.redirectTo(w, r, resume)
		return
	}

	s.render(w, r, "page.onboarding.start", s.onboardingPage(r, "Boas-vindas", state, ""))
}

func (s *Service) handlePostOnboardingStart(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	route, err := s.deps.Wizard.Begin(r.Context(), session.UserID())
	s.afterOnboardingStep(w, r, route, err, onboarding.RouteStart)
}

func (s *Service) handleGetOnboardingNeighborhood(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	data := s.onboardingPage(r, "Seu bairro", nil, onboarding.RouteStart)
	res := query.Do(r.Context(), s.deps.Neighborhoods.Neighborhoods)
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load neighborhoods")
		data.Error = res.Message()
	}
	data.Neighborhoods = res.Data

	s.render(w, r, "page.onboarding.neighborhood", data)
}

func (s *Service) handlePostOnboardingNeighborhood(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	route, err := s.deps.Wizard.SetNeighborhood(r.Context(), session.UserID(), r.FormValue("neighborhood_id"))
	s.afterOnboardingStep(w, r, route, err, onboarding.RouteNeighborhood)
}

func (s *Service) handleGetOnboardingMode(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	data := s.onboardingPage(r, "Como entregar", nil, onboarding.RouteNeighborhood)
	if session.Profile.HasNeighborhood() {
		neighborhoodID := *session.Profile.NeighborhoodID
		res := query.Do(r.Context(), func(ctx context.Context) ([]*types.DropPoint, error) {
			return s.deps.Neighborhoods.DropPoints(ctx, neighborhoodID)
		})
		if res.Status == query.StatusError {
			s.logger.WithError(res.Err).Error("failed to load drop points")
			data.Error = res.Message()
		}
		data.DropPoints = res.Data
	}

	s.render(w, r, "page.onboarding.mode", data)
}

func (s *Service) handlePostOnboardingMode(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteMode)
		return
	}

	var modeForm onboardingModeForm
	if err := decoder.Decode(&modeForm, r.Form); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteMode)
		return
	}

	route, err := s.deps.Wizard.SetMode(r.Context(), session.UserID(), modeForm.Mode, modeForm.DropPointID)
	s.afterOnboardingStep(w, r, route, err, onboarding.RouteMode)
}

func (s *Service) handleGetOnboardingAddress(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	state, err := s.deps.Wizard.State(r.Context(), session.UserID())
	if err != nil {
		s.logger.WithError(err).Error("failed to load onboarding state")
	}
	if !onboarding.AddressReachable(state) {
		s.redirectTo(w, r, onboarding.RouteMode)
		return
	}

	data := s.onboardingPage(r, "Seu endereço", state, onboarding.RouteMode)
	if p := session.Profile; p != nil {
		data.Address = types.ProfileAddress{
			AddressLine: utils.PtrString(p.AddressLine),
			AddressExt:  utils.PtrString(p.AddressExt),
		}
	}

	s.render(w, r, "page.onboarding.address", data)
}

func (s *Service) handlePostOnboardingAddress(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteAddress)
		return
	}

	var address types.ProfileAddress
	if err := decoder.Decode(&address, r.Form); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteAddress)
		return
	}

	route, err := s.deps.Wizard.SetAddress(r.Context(), session.UserID(), address)
	s.afterOnboardingStep(w, r, route, err, onboarding.RouteAddress)
}

func (s *Service) handleGetOnboardingFirstAction(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	state, err := s.deps.Wizard.State(r.Context(), session.UserID())
	if err != nil {
		s.logger.WithError(err).Error("failed to load onboarding state")
	}

	back := onboarding.RouteMode
	if onboarding.AddressReachable(state) {
		back = onboarding.RouteAddress
	}

	s.render(w, r, "page.onboarding.action", s.onboardingPage(r, "Primeiro passo", state, back))
}

func (s *Service) handlePostOnboardingFirstAction(w http.ResponseWriter, r *http.Request) {
	session := s.onboardingSession(w, r)
	if session == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteFirstAction)
		return
	}

	var actionForm onboardingActionForm
	if err := decoder.Decode(&actionForm, r.Form); err != nil {
		s.afterOnboardingStep(w, r, "", types.ErrValidation, onboarding.RouteFirstAction)
		return
	}

	route, err := s.deps.Wizard.Finish(r.Context(), session.UserID(), actionForm.Action)
	s.afterOnboardingStep(w, r, route, err, onboarding.RouteFirstAction)
}

// handleLegacyOnboarding serves the ASCII spelling of the wizard routes.
func (s *Service) handleLegacyOnboarding(w http.ResponseWriter, r *http.Request) {
	target := onboarding.RouteStart + r.URL.Path[len("/comecar"):]
	http.Redirect(w, r, escapePath(target), http.StatusMovedPermanently)
}

// afterOnboardingStep redirects forward on success and back to the current step with a
// message otherwise.
func (s *Service) afterOnboardingStep(w http.ResponseWriter, r *http.Request, route string, err error, current string) {
	if err == nil {
		s.redirectTo(w, r, route)
		return
	}

	msg := "Não foi possível salvar. Tente novamente."
	if errors.Is(err, types.ErrValidation) {
		msg = "Confira a opção escolhida."
	} else {
		s.logger.WithError(err).WithField("step", current).Error("failed to save onboarding step")
	}

	if route == "" {
		route = current
	}
	http.Redirect(w, r, escapePath(route)+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
