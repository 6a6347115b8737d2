package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"eco/internal/utils"
	"eco/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	maxPostBody  = 2000
	maxPhotoSize = 8 << 20
)

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type muralPostForm struct {
	Kind types.PostKind `form:"kind"`
	Body string         `form:"body"`
}

// postKindsFor lists the kinds a viewer may publish. Receipts are posted by the database
// when a collection closes.
func postKindsFor(session *types.Session) []types.PostKind {
	if session == nil {
		return nil
	}
	kinds := []types.PostKind{types.PostKindDica, types.PostKindMutirao, types.PostKindAviso}
	if session.Profile != nil && session.Profile.Role == types.RoleOperator {
		kinds = append(kinds, types.PostKindTransparencia)
	}
	return kinds
}

func (s *Service) handlePostMural(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFromContext(ctx)
	if session == nil && sessionError(ctx) != nil {
		s.renderSessionUnavailable(w, r)
		return
	}
	if session == nil {
		s.setRedirectCookie(w, "/mural", time.Minute*5)
		http.Redirect(w, r, "/entrar", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+(1<<20))
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.redirectMuralWithError(w, r, "Não foi possível ler o envio.")
		return
	}

	var postForm muralPostForm
	if err := decoder.Decode(&postForm, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode mural form")
		s.redirectMuralWithError(w, r, "Não foi possível ler o envio.")
		return
	}

	postForm.Body = strings.TrimSpace(postForm.Body)
	if postForm.Body == "" || len(postForm.Body) > maxPostBody {
		s.redirectMuralWithError(w, r, "Escreva uma mensagem de até 2000 caracteres.")
		return
	}
	if !kindAllowed(postForm.Kind, postKindsFor(session)) {
		s.redirectMuralWithError(w, r, "Tipo de publicação inválido.")
		return
	}

	post := &types.Post{
		ID:             utils.NanoID(),
		AuthorID:       session.UserID(),
		NeighborhoodID: session.Profile.NeighborhoodID,
		Kind:           postForm.Kind,
		Body:           postForm.Body,
	}

	var photo *types.MediaObject
	if r.MultipartForm != nil && len(r.MultipartForm.File["photo"]) > 0 {
		obj, err := s.storePostPhoto(r, post)
		if err != nil {
			s.logger.WithError(err).Error("failed to store post photo")
			s.redirectMuralWithError(w, r, "Não foi possível enviar a foto.")
			return
		}
		photo = obj
		post.MediaID = &obj.ID
	}

	if err := s.deps.Posts.CreatePost(ctx, post); err != nil {
		s.logger.WithError(err).Error("failed to create post")
		if photo != nil {
			s.discardPhoto(ctx, photo)
		}
		s.redirectMuralWithError(w, r, "Não foi possível publicar agora.")
		return
	}

	s.redirectWithNotice(w, r, "/mural", "Publicado no mural.")
}

func (s *Service) storePostPhoto(r *http.Request, post *types.Post) (*types.MediaObject, error) {
	header := r.MultipartForm.File["photo"][0]
	if header.Size > maxPhotoSize {
		return nil, fmt.Errorf("photo too large: %d bytes", header.Size)
	}

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedPhotoTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported photo type %q", contentType)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer file.Close()

	obj := &types.MediaObject{
		ID:         utils.NanoID(),
		Bucket:     s.config.StorageBucket,
		EntityType: "post",
		EntityID:   post.ID,
		OwnerID:    post.AuthorID,
		MimeType:   &contentType,
	}
	obj.Path = path.Join("posts", post.ID, obj.ID+ext)

	if _, err := s.deps.Uploader.UploadFile(r.Context(), obj.Bucket, obj.Path, file, contentType); err != nil {
		return nil, err
	}

	if err := s.deps.MediaObjects.CreateMedia(r.Context(), obj); err != nil {
		if derr := s.deps.Uploader.DeleteFile(r.Context(), obj.Bucket, obj.Path); derr != nil {
			s.logger.WithError(derr).WithField("path", obj.Path).Warn("failed to remove orphaned upload")
		}
		return nil, err
	}

	return obj, nil
}

// discardPhoto removes the stored object and its media row when the post that owns them
// was never written.
func (s *Service) discardPhoto(ctx context.Context, obj *types.MediaObject) {
	entry := s.logger.WithFields(logrus.Fields{"media_id": obj.ID, "path": obj.Path})

	if err := s.deps.MediaObjects.DeleteMedia(ctx, obj.ID); err != nil {
		entry.WithError(err).Warn("failed to remove orphaned media row")
	}
	if err := s.deps.Uploader.DeleteFile(ctx, obj.Bucket, obj.Path); err != nil {
		entry.WithError(err).Warn("failed to remove orphaned upload")
	}
}

func kindAllowed(kind types.PostKind, allowed []types.PostKind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

func (s *Service) redirectMuralWithError(w http.ResponseWriter, r *http.Request, msg string) {
	s.redirectWithError(w, r, "/mural", msg)
}
