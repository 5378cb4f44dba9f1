package feed

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/feed"
	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/platform/blob"
	"github.com/pawmate/pawmate/pkg/logger"
	"github.com/pawmate/pawmate/pkg/testutil"
)

var (
	alice = user.User{ID: "alice", Role: user.RoleOwner}
	bob   = user.User{ID: "bob", Role: user.RoleSitter}
	admin = user.User{ID: "admin", Role: user.RoleAdmin}
)

func newService(t *testing.T) (*Service, *memory.Store, *testutil.Notifier) {
	t.Helper()
	store := memory.New()
	blobs, err := blob.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	rec := &testutil.Notifier{}
	svc := New(store, store, blobs, rec, logger.NewNop())
	svc.now = func() time.Time { return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC) }
	return svc, store, rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestVacancyPosts(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	rex, err := store.CreatePet(ctx, pet.Pet{OwnerID: alice.ID, Name: "Rex", Species: "dog"})
	require.NoError(t, err)

	vacancy := &feed.Vacancy{
		PetID: rex.ID, City: "Austin", BudgetCents: 20000,
		StartDate: date.New(2026, time.April, 1), EndDate: date.New(2026, time.April, 3),
	}

	_, err = svc.CreatePost(ctx, alice, feed.KindPost, "hello", vacancy)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = svc.CreatePost(ctx, alice, feed.KindVacancy, "need a sitter", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = svc.CreatePost(ctx, bob, feed.KindVacancy, "need a sitter", vacancy)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "pet of someone else")

	post, err := svc.CreatePost(ctx, alice, feed.KindVacancy, "need a sitter", vacancy)
	require.NoError(t, err)
	require.NotNil(t, post.Vacancy)
	assert.Equal(t, "Austin", post.Vacancy.City)

	_, err = svc.CreatePost(ctx, alice, "", "just a walk", nil)
	require.NoError(t, err)

	vacancies, err := svc.ListPosts(ctx, bob, feed.Filter{Kind: feed.KindVacancy})
	require.NoError(t, err)
	require.Len(t, vacancies, 1)
	assert.Equal(t, post.ID, vacancies[0].ID)

	all, err := svc.ListPosts(ctx, bob, feed.Filter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "just a walk", all[0].Content, "newest first")
}

func TestCommentsAndLikes(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newService(t)

	post, err := svc.CreatePost(ctx, alice, feed.KindPost, "Rex at the park", nil)
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, bob, post.ID, "cute!")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, alice, post.ID, "thanks")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, bob, post.ID, strings.Repeat("x", maxCommentLength+1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	liked, err := svc.Like(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, liked.LikedByMe)
	assert.Equal(t, 1, liked.LikeCount)
	again, err := svc.Like(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.LikeCount)

	require.Len(t, rec.Sent(), 2, "one comment and one like from bob")
	assert.Equal(t, notification.KindComment, rec.Sent()[0].Kind)
	assert.Equal(t, notification.KindLike, rec.Sent()[1].Kind)

	seenByAlice, err := svc.GetPost(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.False(t, seenByAlice.LikedByMe)
	assert.Equal(t, 2, seenByAlice.CommentCount)

	unliked, err := svc.Unlike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikeCount)

	stranger := user.User{ID: "carol", Role: user.RoleOwner}
	err = svc.DeleteComment(ctx, stranger, post.ID, c.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	require.NoError(t, svc.DeleteComment(ctx, alice, post.ID, c.ID), "post author may delete")

	comments, err := svc.Comments(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestMediaAndDeletion(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	post, err := svc.CreatePost(ctx, alice, feed.KindPost, "photo dump", nil)
	require.NoError(t, err)

	_, err = svc.AttachMedia(ctx, bob, post.ID, bytes.NewReader(pngBytes(t)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = svc.AttachMedia(ctx, alice, post.ID, strings.NewReader("plain text is not media"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	_, err = svc.AttachMedia(ctx, alice, post.ID, bytes.NewReader(make([]byte, MaxMediaBytes+1)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	m, err := svc.AttachMedia(ctx, alice, post.ID, bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", m.ContentType)
	assert.True(t, strings.HasPrefix(m.URL, "/media/posts/"))

	mp4 := append([]byte("\x00\x00\x00\x18ftypmp42"), make([]byte, 64)...)
	video, err := svc.AttachMedia(ctx, alice, post.ID, bytes.NewReader(mp4))
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", video.ContentType)

	got, err := svc.GetPost(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Media, 2)

	err = svc.DeletePost(ctx, bob, post.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	require.NoError(t, svc.DeletePost(ctx, admin, post.ID))
	_, err = svc.GetPost(ctx, alice, post.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
