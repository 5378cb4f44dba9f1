package memory

import (
	"context"

	"github.com/pawmate/pawmate/internal/app/domain/feed"
	"github.com/pawmate/pawmate/internal/app/storage"
)

// hydrateLocked fills the derived fields of a stored post.
func (s *Store) hydrateLocked(p feed.Post) feed.Post {
	if p.Vacancy != nil {
		v := *p.Vacancy
		p.Vacancy = &v
	}
	p.Media = append([]feed.Media{}, s.media[p.ID]...)
	p.LikeCount = len(s.likes[p.ID])
	p.CommentCount = 0
	for _, c := range s.comments {
		if c.PostID == p.ID {
			p.CommentCount++
		}
	}
	p.LikedByMe = false
	return p
}

func (s *Store) CreatePost(_ context.Context, p feed.Post) (feed.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = newID(p.ID)
	now := s.nowLocked()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Media = nil
	s.posts[p.ID] = p
	return s.hydrateLocked(p), nil
}

func (s *Store) UpdatePost(_ context.Context, p feed.Post) (feed.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.posts[p.ID]
	if !ok {
		return feed.Post{}, storage.ErrNotFound
	}
	original.Content = p.Content
	original.Vacancy = p.Vacancy
	original.UpdatedAt = s.nowLocked()
	s.posts[p.ID] = original
	return s.hydrateLocked(original), nil
}

func (s *Store) GetPost(_ context.Context, id string) (feed.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return feed.Post{}, storage.ErrNotFound
	}
	return s.hydrateLocked(p), nil
}

func (s *Store) ListPosts(_ context.Context, filter feed.Filter) ([]feed.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := collect(s.posts,
		func(p feed.Post) bool {
			if filter.Kind != "" && p.Kind != filter.Kind {
				return false
			}
			return filter.AuthorID == "" || p.AuthorID == filter.AuthorID
		},
		func(a, b feed.Post) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	out := page(matches, filter.Limit, filter.Offset)
	for i := range out {
		out[i] = s.hydrateLocked(out[i])
	}
	return out, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	delete(s.media, id)
	delete(s.likes, id)
	for commentID, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, commentID)
		}
	}
	return nil
}

func (s *Store) AddMedia(_ context.Context, m feed.Media) (feed.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[m.PostID]; !ok {
		return feed.Media{}, storage.ErrNotFound
	}
	m.ID = newID(m.ID)
	m.CreatedAt = s.nowLocked()
	s.media[m.PostID] = append(s.media[m.PostID], m)
	return m, nil
}

func (s *Store) CreateComment(_ context.Context, c feed.Comment) (feed.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return feed.Comment{}, storage.ErrNotFound
	}
	c.ID = newID(c.ID)
	c.CreatedAt = s.nowLocked()
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) GetComment(_ context.Context, id string) (feed.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return feed.Comment{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListComments(_ context.Context, postID string) ([]feed.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.comments,
		func(c feed.Comment) bool { return c.PostID == postID },
		func(a, b feed.Comment) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) Like(_ context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, storage.ErrNotFound
	}
	likers, ok := s.likes[postID]
	if !ok {
		likers = make(map[string]bool)
		s.likes[postID] = likers
	}
	if likers[userID] {
		return false, nil
	}
	likers[userID] = true
	return true, nil
}

func (s *Store) Unlike(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.likes[postID], userID)
	return nil
}

func (s *Store) LikedPostIDs(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	liked := make(map[string]bool)
	for _, id := range postIDs {
		if s.likes[id][userID] {
			liked[id] = true
		}
	}
	return liked, nil
}
