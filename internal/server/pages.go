package server

import (
	"context"
	"net/http"
	"time"

	"eco/internal/media"
	"eco/internal/onboarding"
	"eco/internal/query"
	"eco/pkg/types"

	"github.com/alexedwards/flow"
)

const muralLimit = 30

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	snap := s.transparency.Snapshot()

	s.render(w, r, "page.home", &HomePageData{
		BasePageData: types.BasePageData{
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		Summary: snap.Data,
	})
}

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFromContext(ctx)
	if session == nil && sessionError(ctx) != nil {
		s.renderSessionUnavailable(w, r)
		return
	}
	if session == nil {
		http.Redirect(w, r, "/entrar", http.StatusSeeOther)
		return
	}

	data := &ProfilePageData{
		BasePageData: types.BasePageData{
			Title:  "Meu perfil",
			Notice: r.URL.Query().Get("notice"),
		},
		Profile: session.Profile,
	}

	state, err := s.deps.Wizard.State(ctx, session.UserID())
	if err != nil {
		s.logger.WithError(err).Error("failed to load onboarding state")
	}
	data.Onboarding = state
	if state == nil || state.Step != types.OnboardingStepDone {
		data.ResumeHref = onboarding.ResumeRoute(state)
	}

	if session.Profile.HasNeighborhood() {
		res := query.Do(ctx, s.deps.Neighborhoods.Neighborhoods)
		for _, n := range res.Data {
			if n.ID == *session.Profile.NeighborhoodID {
				data.Neighborhood = n
			}
		}
	}

	s.render(w, r, "page.profile", data)
}

func (s *Service) handleGetMural(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFromContext(ctx)

	neighborhoodID := r.URL.Query().Get("bairro")
	if neighborhoodID == "" && session != nil && session.Profile.HasNeighborhood() {
		neighborhoodID = *session.Profile.NeighborhoodID
	}

	data := &MuralPageData{
		BasePageData: types.BasePageData{
			Title:  "Mural",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		Kinds:   postKindsFor(session),
		CanPost: session != nil,
	}

	res := query.Do(ctx, func(ctx context.Context) ([]*types.Post, error) {
		return s.deps.Posts.RecentPosts(ctx, neighborhoodID, muralLimit)
	})
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load mural")
		data.LoadError = res.Message()
		s.render(w, r, "page.mural", data)
		return
	}

	data.Posts = s.postViews(ctx, session, res.Data)
	s.render(w, r, "page.mural", data)
}

func (s *Service) postViews(ctx context.Context, session *types.Session, posts []*types.Post) []*PostView {
	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
	}

	names, err := s.deps.Profiles.DisplayNames(ctx, authorIDs)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load author names")
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		view := &PostView{Post: p, AuthorName: names[p.AuthorID]}
		if view.AuthorName == "" {
			view.AuthorName = "Vizinho"
		}

		// private media is only signed for signed in viewers
		if p.MediaID != nil && session != nil {
			signed, err := s.deps.MediaURLs.URLForMedia(ctx, session.Token, *p.MediaID, media.Options{})
			if err != nil {
				s.logger.WithError(err).WithField("media_id", *p.MediaID).Debug("failed to sign post photo")
			} else {
				view.PhotoURL = signed.URL
			}
		}

		views = append(views, view)
	}

	return views
}

func (s *Service) handleTransparency(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "page.transparency", &TransparencyPageData{
		BasePageData: types.BasePageData{Title: "Transparência"},
		Result:       s.transparency.Snapshot(),
	})
}

// refreshTransparency keeps the transparency summary warm until ctx is done.
func (s *Service) refreshTransparency(ctx context.Context) {
	interval := s.config.TransparencyRefresh
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	<-s.transparency.Run(ctx)
	s.logTransparency()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			<-s.transparency.Refetch(ctx)
			s.logTransparency()
		}
	}
}

func (s *Service) logTransparency() {
	snap := s.transparency.Snapshot()
	if snap.Status == query.StatusError {
		s.logger.WithError(snap.Err).Warn("failed to refresh transparency summary")
	}
}

func (s *Service) handleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receiptID := flow.Param(ctx, "id")

	res := query.Do(ctx, func(ctx context.Context) (*types.Receipt, error) {
		return s.deps.Pickups.Receipt(ctx, receiptID)
	})
	switch {
	case res.Status == query.StatusError && isNotFound(res.Err):
		s.renderStatus(w, r, http.StatusNotFound, "page.notfound", &types.BasePageData{Title: "Recibo não encontrado"})
		return
	case res.Status == query.StatusError:
		s.logger.WithError(res.Err).Error("failed to load receipt")
		s.internalServerError(w)
		return
	}

	data := &ReceiptPageData{
		BasePageData: types.BasePageData{Title: "Recibo de coleta"},
		Receipt:      res.Data,
	}

	if session := sessionFromContext(ctx); session != nil {
		photos, err := s.deps.MediaURLs.URLsForEntity(ctx, session.Token, "receipt", receiptID, media.Options{})
		if err != nil {
			s.logger.WithError(err).Debug("failed to sign receipt photos")
		}
		data.Photos = photos
	}

	s.render(w, r, "page.receipt", data)
}

func (s *Service) handleDropPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := &DropPointsPageData{
		BasePageData: types.BasePageData{Title: "Pontos de entrega"},
		Selected:     r.URL.Query().Get("bairro"),
	}

	neighborhoods := query.Do(ctx, s.deps.Neighborhoods.Neighborhoods)
	if neighborhoods.Status == query.StatusError {
		s.logger.WithError(neighborhoods.Err).Error("failed to load neighborhoods")
		data.Error = neighborhoods.Message()
		s.render(w, r, "page.droppoints", data)
		return
	}
	data.Neighborhoods = neighborhoods.Data

	if data.Selected == "" {
		if session := sessionFromContext(ctx); session != nil && session.Profile.HasNeighborhood() {
			data.Selected = *session.Profile.NeighborhoodID
		}
	}

	if data.Selected != "" {
		points := query.Do(ctx, func(ctx context.Context) ([]*types.DropPoint, error) {
			return s.deps.Neighborhoods.DropPoints(ctx, data.Selected)
		})
		if points.Status == query.StatusError {
			data.Error = points.Message()
		}
		data.DropPoints = points.Data
	}

	s.render(w, r, "page.droppoints", data)
}
