package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
	"opino-backend/infrastructure/cache"
	"opino-backend/infrastructure/persistence/memory"
	apperrors "opino-backend/pkg/errors"
	"opino-backend/pkg/validation"
)

type stubCaptcha struct{ valid bool }

func (s stubCaptcha) Verify(ctx context.Context, token string) bool { return s.valid }

type recordingPublisher struct{ events []ports.Event }

func (p *recordingPublisher) Publish(ctx context.Context, event ports.Event) error {
	p.events = append(p.events, event)
	return nil
}

type widgetFixture struct {
	service  *WidgetService
	sites    *memory.SiteStore
	comments *memory.CommentStore
	events   *recordingPublisher
}

func newWidgetFixture(t *testing.T, opts WidgetOptions) *widgetFixture {
	t.Helper()
	if opts.ThreadCacheTTL == 0 {
		opts.ThreadCacheTTL = time.Minute
	}
	if opts.SiteCacheTTL == 0 {
		opts.SiteCacheTTL = time.Minute
	}

	f := &widgetFixture{
		sites:    memory.NewSiteStore(),
		comments: memory.NewCommentStore(),
		events:   &recordingPublisher{},
	}
	f.service = NewWidgetService(
		f.sites,
		f.comments,
		cache.New(cache.NewMemoryStore(), zap.NewNop()),
		stubCaptcha{valid: true},
		f.events,
		nil,
		opts,
		zap.NewNop(),
	)
	return f
}

func (f *widgetFixture) registerSite(t *testing.T, id, domain, ownerID string) {
	t.Helper()
	require.NoError(t, f.sites.Create(context.Background(), &model.Site{
		ID:        id,
		Domain:    domain,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}))
}

func TestAddCommentThenGetThread(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	created, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog",
		PathName: "post-1",
		Message:  "hello",
		Author:   "Bob",
	}, "https://example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "owner-1", created.OwnerID)

	thread, err := f.service.GetThread(ctx, "blog", "post-1", "https://example.com")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "hello", thread[0].Message)
	assert.Equal(t, "Bob", thread[0].Author)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventCommentCreated, f.events.events[0].Type)
}

func TestAddCommentRejectsForeignOrigin(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	_, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog",
		PathName: "post-1",
		Message:  "spam",
	}, "https://evil.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "invalid origin", apperrors.GetAppError(err).Message)

	// Nothing may persist from a rejected write.
	count, err := f.comments.CountBySite(ctx, "blog")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.events.events)
}

func TestAddCommentAcceptsSubdomainOrigin(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	_, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog",
		PathName: "post-1",
		Message:  "from the docs site",
	}, "https://docs.example.com")
	require.NoError(t, err)
}

func TestAddCommentUnknownSite(t *testing.T) {
	f := newWidgetFixture(t, WidgetOptions{})

	_, err := f.service.AddComment(context.Background(), validation.CommentRequest{
		SiteName: "ghost",
		PathName: "p",
		Message:  "m",
	}, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "invalid site", apperrors.GetAppError(err).Message)
}

func TestAddCommentMissingOrigin(t *testing.T) {
	ctx := context.Background()
	req := validation.CommentRequest{SiteName: "blog", PathName: "p", Message: "m"}

	strict := newWidgetFixture(t, WidgetOptions{RequireOriginForWrites: true})
	strict.registerSite(t, "blog", "example.com", "owner-1")
	_, err := strict.service.AddComment(ctx, req, "")
	require.Error(t, err)
	assert.Equal(t, "missing origin header", apperrors.GetAppError(err).Message)

	lax := newWidgetFixture(t, WidgetOptions{})
	lax.registerSite(t, "blog", "example.com", "owner-1")
	_, err = lax.service.AddComment(ctx, req, "")
	assert.NoError(t, err, "development accepts originless writes")
}

func TestAddCommentCaptcha(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")
	f.service.captcha = stubCaptcha{valid: false}

	req := validation.CommentRequest{SiteName: "blog", PathName: "p", Message: "m"}

	// A supplied token must pass verification.
	bad := req
	bad.CaptchaToken = "token"
	_, err := f.service.AddComment(ctx, bad, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "captcha verification failed", apperrors.GetAppError(err).Message)

	// No token means no check.
	_, err = f.service.AddComment(ctx, req, "https://example.com")
	assert.NoError(t, err)
}

func TestAddCommentDefaultsAuthor(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "", "owner-1")

	created, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog",
		PathName: "p",
		Message:  "  anonymous thoughts  ",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, validation.DefaultAuthor, created.Author)
	assert.Equal(t, "anonymous thoughts", created.Message)
}

func TestAddCommentValidatesParent(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	root, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog", PathName: "post-1", Message: "root",
	}, "https://example.com")
	require.NoError(t, err)

	// Reply to an existing comment on the same thread.
	reply, err := f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog", PathName: "post-1", Message: "reply", Parent: root.ID,
	}, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, root.ID, reply.ParentID)

	// A parent on another thread is rejected.
	_, err = f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog", PathName: "post-2", Message: "stray", Parent: root.ID,
	}, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "invalid parent", apperrors.GetAppError(err).Message)

	// So is a parent that does not exist.
	_, err = f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog", PathName: "post-1", Message: "orphan", Parent: "ghost",
	}, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "invalid parent", apperrors.GetAppError(err).Message)
}

func TestGetThreadAllowsReadWithoutOrigin(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{RequireOriginForWrites: true})
	f.registerSite(t, "blog", "example.com", "owner-1")

	thread, err := f.service.GetThread(ctx, "blog", "post-1", "")
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestGetThreadRejectsForeignOrigin(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	_, err := f.service.GetThread(ctx, "blog", "post-1", "https://evil.com")
	require.Error(t, err)
	assert.Equal(t, "invalid origin", apperrors.GetAppError(err).Message)
}

func TestAddCommentInvalidatesCachedThread(t *testing.T) {
	ctx := context.Background()
	f := newWidgetFixture(t, WidgetOptions{})
	f.registerSite(t, "blog", "example.com", "owner-1")

	// Prime the thread cache with an empty thread.
	thread, err := f.service.GetThread(ctx, "blog", "post-1", "")
	require.NoError(t, err)
	require.Empty(t, thread)

	_, err = f.service.AddComment(ctx, validation.CommentRequest{
		SiteName: "blog",
		PathName: "post-1",
		Message:  "fresh",
	}, "https://example.com")
	require.NoError(t, err)

	thread, err = f.service.GetThread(ctx, "blog", "post-1", "")
	require.NoError(t, err)
	assert.Len(t, thread, 1, "a write must invalidate the cached thread")
}
