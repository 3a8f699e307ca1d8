package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
	"opino-backend/infrastructure/cache"
	"opino-backend/infrastructure/persistence/memory"
	"opino-backend/pkg/common"
	apperrors "opino-backend/pkg/errors"
	"opino-backend/pkg/validation"
)

type dashboardFixture struct {
	service  *DashboardService
	sites    *memory.SiteStore
	comments *memory.CommentStore
	events   *recordingPublisher
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{
		sites:    memory.NewSiteStore(),
		comments: memory.NewCommentStore(),
		events:   &recordingPublisher{},
	}
	f.service = NewDashboardService(
		f.sites,
		f.comments,
		cache.New(cache.NewMemoryStore(), zap.NewNop()),
		f.events,
		DashboardOptions{CacheTTL: time.Minute},
		zap.NewNop(),
	)
	return f
}

func (f *dashboardFixture) seedSite(t *testing.T, id, domain, ownerID string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.sites.Create(context.Background(), &model.Site{
		ID:        id,
		Domain:    domain,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
	}))
}

func (f *dashboardFixture) seedComment(t *testing.T, id, siteID, ownerID string, ts time.Time) {
	t.Helper()
	require.NoError(t, f.comments.Insert(context.Background(), &model.Comment{
		ID:        id,
		SiteID:    siteID,
		PathID:    "page",
		Message:   "msg " + id,
		Author:    "A",
		OwnerID:   ownerID,
		Timestamp: ts,
	}))
}

func TestListCommentsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		f.seedComment(t, fmt.Sprintf("c%d", i), "s1", "owner", base.Add(time.Duration(i)*time.Second))
	}
	f.seedComment(t, "other-site", "s2", "owner", base.Add(time.Hour))
	f.seedComment(t, "other-owner", "s1", "someone-else", base.Add(time.Hour))

	page, meta, err := f.service.ListComments(ctx, "owner", "", common.PaginationParams{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.Equal(t, 6, meta.Total)
	assert.True(t, meta.HasNext)
	assert.Equal(t, "other-site", page[0].ID, "listing is newest first")

	filtered, meta, err := f.service.ListComments(ctx, "owner", "s1", common.PaginationParams{Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, filtered, 5)
	assert.Equal(t, 5, meta.Total)

	// A page past the end is empty, not an error.
	empty, _, err := f.service.ListComments(ctx, "owner", "", common.PaginationParams{Page: 9, PageSize: 50})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteCommentEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	f.seedComment(t, "c1", "s1", "owner", time.Now())

	err := f.service.DeleteComment(ctx, "intruder", "c1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err), "ownership failures read as not-found")
	assert.Equal(t, "Comment not found or permission denied", apperrors.GetAppError(err).Message)

	// Missing comments get the same answer.
	err = f.service.DeleteComment(ctx, "owner", "nope")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, f.service.DeleteComment(ctx, "owner", "c1"))
	_, err = f.comments.GetByID(ctx, "c1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventCommentDeleted, f.events.events[0].Type)
}

func TestListSitesIncludesCounts(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	now := time.Now()
	f.seedSite(t, "s1", "one.com", "owner", now.Add(-time.Hour))
	f.seedSite(t, "s2", "two.com", "owner", now)
	f.seedComment(t, "c1", "s1", "owner", now)
	f.seedComment(t, "c2", "s1", "owner", now)

	sites, err := f.service.ListSites(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "s2", sites[0].ID, "newest site first")
	assert.Equal(t, 0, sites[0].CommentCount)
	assert.Equal(t, "s1", sites[1].ID)
	assert.Equal(t, 2, sites[1].CommentCount)
}

func TestCreateSiteValidatesDomain(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)

	site, err := f.service.CreateSite(ctx, "owner", validation.SiteRequest{Domain: "  Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "example.com", site.Domain)
	assert.Equal(t, "owner", site.OwnerID)
	assert.NotEmpty(t, site.ID)

	_, err = f.service.CreateSite(ctx, "owner", validation.SiteRequest{Domain: "not a domain"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateSiteRefreshesWidgetAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	f.seedSite(t, "s1", "old.com", "owner", time.Now())

	_, err := f.service.UpdateSite(ctx, "intruder", "s1", validation.SiteRequest{Domain: "new.com"})
	assert.True(t, apperrors.IsNotFound(err))

	updated, err := f.service.UpdateSite(ctx, "owner", "s1", validation.SiteRequest{Domain: "new.com"})
	require.NoError(t, err)
	assert.Equal(t, "new.com", updated.Domain)

	stored, err := f.sites.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "new.com", stored.Domain)
}

func TestDeleteSiteRemovesComments(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	now := time.Now()
	f.seedSite(t, "s1", "one.com", "owner", now)
	f.seedComment(t, "c1", "s1", "owner", now)
	f.seedComment(t, "c2", "s1", "owner", now)
	f.seedComment(t, "keep", "s2", "owner", now)

	_, err := f.service.DeleteSite(ctx, "intruder", "s1")
	assert.True(t, apperrors.IsNotFound(err))

	deleted, err := f.service.DeleteSite(ctx, "owner", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = f.sites.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	_, err = f.comments.GetByID(ctx, "keep")
	assert.NoError(t, err, "other sites' comments survive")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, ports.EventSiteDeleted, f.events.events[0].Type)
}

func TestStatsAggregatesAndCaches(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)
	now := time.Now()
	for i := 0; i < 7; i++ {
		f.seedSite(t, fmt.Sprintf("s%d", i), fmt.Sprintf("site%d.com", i), "owner", now.Add(time.Duration(i)*time.Minute))
	}
	f.seedComment(t, "c1", "s0", "owner", now)
	f.seedComment(t, "c2", "s1", "owner", now)

	stats, err := f.service.Stats(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Stats.Sites)
	assert.Equal(t, 2, stats.Stats.Comments)
	require.Len(t, stats.RecentSites, 5)
	assert.Equal(t, "s6", stats.RecentSites[0].ID, "recent sites are newest first")

	// Cached until a mutation invalidates it.
	f.seedComment(t, "c3", "s0", "owner", now)
	stats, err = f.service.Stats(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stats.Comments)

	require.NoError(t, f.service.DeleteComment(ctx, "owner", "c1"))
	stats, err = f.service.Stats(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stats.Comments, "c3 seeded behind the cache becomes visible, c1 deleted")
}
