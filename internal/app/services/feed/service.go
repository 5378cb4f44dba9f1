package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/feed"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/services/notifications"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/platform/blob"
	"github.com/pawmate/pawmate/pkg/logger"
)

const (
	MaxMediaBytes    = 20 << 20
	MaxMediaPerPost  = 10
	maxContentLength = 5000
	maxCommentLength = 1000
	defaultLimit     = 20
	maxLimit         = 100
)

// Service manages the social feed.
type Service struct {
	posts    storage.FeedStore
	pets     storage.PetStore
	blobs    blob.Store
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a feed service.
func New(posts storage.FeedStore, pets storage.PetStore, blobs blob.Store, notifier notifications.Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("feed")
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Service{
		posts:    posts,
		pets:     pets,
		blobs:    blobs,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost publishes a post. Vacancy posts must carry a vacancy for one of
// the author's pets; other posts must not.
func (s *Service) CreatePost(ctx context.Context, actor user.User, kind feed.Kind, content string, vacancy *feed.Vacancy) (feed.Post, error) {
	if kind == "" {
		kind = feed.KindPost
	}
	content = strings.TrimSpace(content)
	if err := checkText("content", content, maxContentLength); err != nil {
		return feed.Post{}, err
	}
	switch kind {
	case feed.KindPost:
		if vacancy != nil {
			return feed.Post{}, apperrors.InvalidInput("vacancy is only allowed on vacancy posts")
		}
	case feed.KindVacancy:
		if err := s.checkVacancy(ctx, actor, vacancy); err != nil {
			return feed.Post{}, err
		}
	default:
		return feed.Post{}, apperrors.InvalidInput("kind must be post or vacancy")
	}

	created, err := s.posts.CreatePost(ctx, feed.Post{
		AuthorID: actor.ID,
		Kind:     kind,
		Content:  content,
		Vacancy:  vacancy,
	})
	if err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", "")
	}
	s.log.WithContext(ctx).WithField("post_id", created.ID).WithField("kind", kind).Info("post created")
	return created, nil
}

func (s *Service) checkVacancy(ctx context.Context, actor user.User, v *feed.Vacancy) error {
	if v == nil {
		return apperrors.InvalidInput("vacancy posts require a vacancy")
	}
	v.City = strings.TrimSpace(v.City)
	switch {
	case v.StartDate.IsZero() || v.EndDate.IsZero():
		return apperrors.InvalidInput("vacancy start_date and end_date are required")
	case v.EndDate.Before(v.StartDate):
		return apperrors.InvalidInput("vacancy end_date must not be before start_date")
	case v.StartDate.Before(date.In(s.now(), time.UTC)):
		return apperrors.InvalidInput("vacancy cannot start in the past")
	case v.City == "":
		return apperrors.InvalidInput("vacancy city is required")
	case v.BudgetCents < 0:
		return apperrors.InvalidInput("vacancy budget_cents cannot be negative")
	}
	p, err := s.pets.GetPet(ctx, v.PetID)
	if err != nil {
		return storage.AsServiceError(err, "pet", v.PetID)
	}
	if p.OwnerID != actor.ID {
		return apperrors.NotFound("pet", v.PetID)
	}
	return nil
}

// GetPost returns a post with the caller's like flag.
func (s *Service) GetPost(ctx context.Context, actor user.User, id string) (feed.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", id)
	}
	out, err := s.markLiked(ctx, actor, []feed.Post{p})
	if err != nil {
		return feed.Post{}, err
	}
	return out[0], nil
}

// ListPosts returns the feed newest first.
func (s *Service) ListPosts(ctx context.Context, actor user.User, filter feed.Filter) ([]feed.Post, error) {
	switch filter.Kind {
	case "", feed.KindPost, feed.KindVacancy:
	default:
		return nil, apperrors.InvalidInput("kind must be post or vacancy")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, err := s.posts.ListPosts(ctx, filter)
	if err != nil {
		return nil, storage.AsServiceError(err, "post", "")
	}
	return s.markLiked(ctx, actor, items)
}

// UpdatePost replaces a post's content. Only the author may edit.
func (s *Service) UpdatePost(ctx context.Context, actor user.User, id, content string) (feed.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", id)
	}
	if p.AuthorID != actor.ID {
		return feed.Post{}, apperrors.Forbidden("only the author can edit a post")
	}
	content = strings.TrimSpace(content)
	if err := checkText("content", content, maxContentLength); err != nil {
		return feed.Post{}, err
	}
	p.Content = content
	if _, err := s.posts.UpdatePost(ctx, p); err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", id)
	}
	return s.GetPost(ctx, actor, id)
}

// DeletePost removes a post and its media. The author or an admin may delete.
func (s *Service) DeletePost(ctx context.Context, actor user.User, id string) error {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return storage.AsServiceError(err, "post", id)
	}
	if p.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperrors.Forbidden("only the author or an admin can delete a post")
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return storage.AsServiceError(err, "post", id)
	}
	for _, m := range p.Media {
		if err := s.blobs.Delete(ctx, m.BlobKey); err != nil {
			s.log.WithContext(ctx).WithError(err).WithField("blob_key", m.BlobKey).Warn("delete media blob")
		}
	}
	s.log.WithContext(ctx).WithField("post_id", id).WithField("by", actor.ID).Info("post deleted")
	return nil
}

// AttachMedia uploads an image or mp4 video to a post the caller authored.
func (s *Service) AttachMedia(ctx context.Context, actor user.User, postID string, r io.Reader) (feed.Media, error) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return feed.Media{}, storage.AsServiceError(err, "post", postID)
	}
	if p.AuthorID != actor.ID {
		return feed.Media{}, apperrors.Forbidden("only the author can attach media")
	}
	if len(p.Media) >= MaxMediaPerPost {
		return feed.Media{}, apperrors.Conflict("a post can have at most %d attachments", MaxMediaPerPost)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxMediaBytes+1))
	if err != nil {
		return feed.Media{}, apperrors.InvalidInput("read upload: %v", err)
	}
	if len(data) == 0 {
		return feed.Media{}, apperrors.InvalidInput("upload is empty")
	}
	if len(data) > MaxMediaBytes {
		return feed.Media{}, apperrors.InvalidInput("upload exceeds %d MiB", MaxMediaBytes>>20)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") && contentType != "video/mp4" {
		return feed.Media{}, apperrors.InvalidInput("unsupported media type %s", contentType)
	}

	obj, err := s.blobs.Put(ctx, blob.NewKey("posts", contentType), contentType, bytes.NewReader(data))
	if err != nil {
		return feed.Media{}, apperrors.Upstream("store media", err)
	}
	m, err := s.posts.AddMedia(ctx, feed.Media{
		PostID:      postID,
		URL:         obj.URL,
		BlobKey:     obj.Key,
		ContentType: contentType,
		SizeBytes:   obj.Size,
	})
	if err != nil {
		_ = s.blobs.Delete(ctx, obj.Key)
		return feed.Media{}, storage.AsServiceError(err, "media", "")
	}
	return m, nil
}

// AddComment replies to a post and notifies its author.
func (s *Service) AddComment(ctx context.Context, actor user.User, postID, content string) (feed.Comment, error) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return feed.Comment{}, storage.AsServiceError(err, "post", postID)
	}
	content = strings.TrimSpace(content)
	if err := checkText("content", content, maxCommentLength); err != nil {
		return feed.Comment{}, err
	}
	c, err := s.posts.CreateComment(ctx, feed.Comment{PostID: postID, AuthorID: actor.ID, Content: content})
	if err != nil {
		return feed.Comment{}, storage.AsServiceError(err, "comment", "")
	}
	if p.AuthorID != actor.ID {
		s.notifier.Notify(ctx, notification.Notification{
			UserID: p.AuthorID,
			Kind:   notification.KindComment,
			Title:  "New comment on your post",
			Body:   excerpt(content, 140),
			RefID:  postID,
		})
	}
	return c, nil
}

// Comments lists a post's comments, oldest first.
func (s *Service) Comments(ctx context.Context, postID string) ([]feed.Comment, error) {
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, storage.AsServiceError(err, "post", postID)
	}
	items, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, storage.AsServiceError(err, "comment", "")
	}
	return items, nil
}

// DeleteComment removes a comment. Its author, the post author or an admin may.
func (s *Service) DeleteComment(ctx context.Context, actor user.User, postID, commentID string) error {
	c, err := s.posts.GetComment(ctx, commentID)
	if err != nil {
		return storage.AsServiceError(err, "comment", commentID)
	}
	if c.PostID != postID {
		return apperrors.NotFound("comment", commentID)
	}
	if c.AuthorID != actor.ID && !actor.IsAdmin() {
		p, err := s.posts.GetPost(ctx, postID)
		if err != nil {
			return storage.AsServiceError(err, "post", postID)
		}
		if p.AuthorID != actor.ID {
			return apperrors.Forbidden("not allowed to delete this comment")
		}
	}
	return storage.AsServiceError(s.posts.DeleteComment(ctx, commentID), "comment", commentID)
}

// Like records the caller's like. Repeated likes are ignored.
func (s *Service) Like(ctx context.Context, actor user.User, postID string) (feed.Post, error) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", postID)
	}
	added, err := s.posts.Like(ctx, postID, actor.ID)
	if err != nil {
		return feed.Post{}, storage.AsServiceError(err, "like", postID)
	}
	if added && p.AuthorID != actor.ID {
		s.notifier.Notify(ctx, notification.Notification{
			UserID: p.AuthorID,
			Kind:   notification.KindLike,
			Title:  "Someone liked your post",
			RefID:  postID,
		})
	}
	return s.GetPost(ctx, actor, postID)
}

// Unlike removes the caller's like if present.
func (s *Service) Unlike(ctx context.Context, actor user.User, postID string) (feed.Post, error) {
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return feed.Post{}, storage.AsServiceError(err, "post", postID)
	}
	if err := s.posts.Unlike(ctx, postID, actor.ID); err != nil {
		return feed.Post{}, storage.AsServiceError(err, "like", postID)
	}
	return s.GetPost(ctx, actor, postID)
}

func (s *Service) markLiked(ctx context.Context, actor user.User, posts []feed.Post) ([]feed.Post, error) {
	if len(posts) == 0 || actor.ID == "" {
		return posts, nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := s.posts.LikedPostIDs(ctx, actor.ID, ids)
	if err != nil {
		return nil, storage.AsServiceError(err, "like", "")
	}
	for i := range posts {
		posts[i].LikedByMe = liked[posts[i].ID]
	}
	return posts, nil
}

func checkText(field, value string, max int) error {
	if value == "" {
		return apperrors.InvalidInput("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return apperrors.InvalidInput("%s must be at most %d characters", field, max)
	}
	return nil
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return fmt.Sprintf("%s…", string([]rune(s)[:n]))
}
