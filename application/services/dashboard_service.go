package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
	"opino-backend/infrastructure/cache"
	"opino-backend/pkg/common"
	apperrors "opino-backend/pkg/errors"
	"opino-backend/pkg/validation"
)

// recentSitesShown caps the recent-sites list on the dashboard stats card.
const recentSitesShown = 5

// DashboardOptions tunes the authenticated dashboard path.
type DashboardOptions struct {
	CacheTTL time.Duration
}

// StatsResponse is the dashboard stats payload.
type StatsResponse struct {
	Stats       model.SiteStats `json:"stats"`
	RecentSites []model.Site    `json:"recentSites"`
}

// DashboardService serves the authenticated owner dashboard: listing and
// deleting comments, managing sites, and aggregate stats. Every operation is
// scoped to the calling owner; ownership failures surface as not-found so a
// probe cannot map other owners' IDs.
type DashboardService struct {
	sites    ports.SiteStore
	comments ports.CommentStore
	cache    *cache.Cache
	events   ports.EventPublisher
	opts     DashboardOptions
	logger   *zap.Logger
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(
	sites ports.SiteStore,
	comments ports.CommentStore,
	cache *cache.Cache,
	events ports.EventPublisher,
	opts DashboardOptions,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		sites:    sites,
		comments: comments,
		cache:    cache,
		events:   events,
		opts:     opts,
		logger:   logger,
	}
}

// ListComments returns one page of an owner's comments, newest first,
// optionally filtered to a single site.
func (s *DashboardService) ListComments(ctx context.Context, ownerID, siteID string, p common.PaginationParams) ([]model.Comment, *common.PaginationInfo, error) {
	var all []model.Comment
	err := s.cache.GetOrCompute(ctx, cache.CommentListKey(ownerID, siteID), s.opts.CacheTTL, &all,
		func(ctx context.Context) (interface{}, error) {
			comments, err := s.comments.ListByOwner(ctx, ownerID, siteID)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching comments").WithCause(err)
			}
			if comments == nil {
				comments = []model.Comment{}
			}
			return comments, nil
		})
	if err != nil {
		return nil, nil, err
	}

	total := len(all)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return all[start:end], common.BuildPaginationMeta(p, total), nil
}

// DeleteComment removes one of the owner's comments.
func (s *DashboardService) DeleteComment(ctx context.Context, ownerID, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperrors.NewNotFoundError("Comment not found or permission denied")
		}
		return apperrors.NewInternalError("Error deleting comment").WithCause(err)
	}
	if comment.OwnerID != ownerID {
		return apperrors.NewNotFoundError("Comment not found or permission denied")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return apperrors.NewInternalError("Error deleting comment").WithCause(err)
	}

	s.cache.Invalidate(ctx,
		cache.ThreadKey(comment.SiteID, comment.PathID),
		cache.StatsKey(ownerID),
		cache.SiteListKey(ownerID),
	)
	s.cache.InvalidatePattern(ctx, cache.CommentListPattern(ownerID))

	s.publish(ctx, ports.Event{
		Type:      ports.EventCommentDeleted,
		SiteID:    comment.SiteID,
		CommentID: commentID,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// ListSites returns an owner's sites, newest first, each with its comment
// count.
func (s *DashboardService) ListSites(ctx context.Context, ownerID string) ([]model.SiteWithCount, error) {
	var out []model.SiteWithCount
	err := s.cache.GetOrCompute(ctx, cache.SiteListKey(ownerID), s.opts.CacheTTL, &out,
		func(ctx context.Context) (interface{}, error) {
			sites, err := s.sites.ListByOwner(ctx, ownerID)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching sites").WithCause(err)
			}

			listed := make([]model.SiteWithCount, 0, len(sites))
			for _, site := range sites {
				count, err := s.comments.CountBySite(ctx, site.ID)
				if err != nil {
					return nil, apperrors.NewInternalError("Error fetching sites").WithCause(err)
				}
				listed = append(listed, model.SiteWithCount{Site: site, CommentCount: count})
			}
			return listed, nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSite registers a new site for the owner.
func (s *DashboardService) CreateSite(ctx context.Context, ownerID string, raw validation.SiteRequest) (*model.Site, error) {
	input, err := validation.ValidateSite(raw)
	if err != nil {
		return nil, err
	}

	site := &model.Site{
		ID:        uuid.New().String(),
		Domain:    input.Domain,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sites.Create(ctx, site); err != nil {
		return nil, apperrors.NewInternalError("Error creating site").WithCause(err)
	}

	s.cache.Invalidate(ctx, cache.SiteListKey(ownerID), cache.StatsKey(ownerID))
	return site, nil
}

// UpdateSite changes a site's registered domain.
func (s *DashboardService) UpdateSite(ctx context.Context, ownerID, siteID string, raw validation.SiteRequest) (*model.Site, error) {
	input, err := validation.ValidateSite(raw)
	if err != nil {
		return nil, err
	}

	site, err := s.ownedSite(ctx, ownerID, siteID)
	if err != nil {
		return nil, err
	}

	if err := s.sites.UpdateDomain(ctx, siteID, input.Domain); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Site not found or permission denied")
		}
		return nil, apperrors.NewInternalError("Error updating site").WithCause(err)
	}
	site.Domain = input.Domain

	// The widget resolves sites through the cache, so a stale entry here
	// would keep authorizing the old domain until it expired.
	s.cache.Invalidate(ctx, cache.SiteKey(siteID), cache.SiteListKey(ownerID))
	return site, nil
}

// DeleteSite removes a site and every comment on it, reporting how many
// comments went with it.
func (s *DashboardService) DeleteSite(ctx context.Context, ownerID, siteID string) (int, error) {
	if _, err := s.ownedSite(ctx, ownerID, siteID); err != nil {
		return 0, err
	}

	deleted, err := s.comments.DeleteBySite(ctx, siteID)
	if err != nil {
		return 0, apperrors.NewInternalError("Error deleting site").WithCause(err)
	}
	if err := s.sites.Delete(ctx, siteID); err != nil {
		return deleted, apperrors.NewInternalError("Error deleting site").WithCause(err)
	}

	s.cache.Invalidate(ctx,
		cache.SiteKey(siteID),
		cache.SiteListKey(ownerID),
		cache.StatsKey(ownerID),
	)
	s.cache.InvalidatePattern(ctx, cache.ThreadPattern(siteID))
	s.cache.InvalidatePattern(ctx, cache.CommentListPattern(ownerID))

	s.publish(ctx, ports.Event{
		Type:      ports.EventSiteDeleted,
		SiteID:    siteID,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	})
	return deleted, nil
}

// Stats returns the owner's aggregate counts and most recent sites.
func (s *DashboardService) Stats(ctx context.Context, ownerID string) (*StatsResponse, error) {
	var stats StatsResponse
	err := s.cache.GetOrCompute(ctx, cache.StatsKey(ownerID), s.opts.CacheTTL, &stats,
		func(ctx context.Context) (interface{}, error) {
			siteCount, err := s.sites.CountByOwner(ctx, ownerID)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching stats").WithCause(err)
			}
			commentCount, err := s.comments.CountByOwner(ctx, ownerID)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching stats").WithCause(err)
			}
			sites, err := s.sites.ListByOwner(ctx, ownerID)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching stats").WithCause(err)
			}
			if len(sites) > recentSitesShown {
				sites = sites[:recentSitesShown]
			}
			if sites == nil {
				sites = []model.Site{}
			}
			return StatsResponse{
				Stats:       model.SiteStats{Sites: siteCount, Comments: commentCount},
				RecentSites: sites,
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ownedSite loads a site and checks it belongs to the owner, collapsing both
// failure modes into one not-found answer.
func (s *DashboardService) ownedSite(ctx context.Context, ownerID, siteID string) (*model.Site, error) {
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Site not found or permission denied")
		}
		return nil, apperrors.NewInternalError("Error fetching site").WithCause(err)
	}
	if site.OwnerID != ownerID {
		return nil, apperrors.NewNotFoundError("Site not found or permission denied")
	}
	return site, nil
}

func (s *DashboardService) publish(ctx context.Context, event ports.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
	}
}
