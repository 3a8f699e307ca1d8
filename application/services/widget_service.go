// Package services implements the application operations behind the public
// widget endpoints and the authenticated dashboard.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
	"opino-backend/domain/origin"
	"opino-backend/infrastructure/cache"
	apperrors "opino-backend/pkg/errors"
	"opino-backend/pkg/observability"
	"opino-backend/pkg/validation"
)

// WidgetOptions tunes the public admission path.
type WidgetOptions struct {
	ThreadCacheTTL time.Duration
	SiteCacheTTL   time.Duration
	// RequireOriginForWrites rejects writes that arrive without an Origin
	// header. Production turns this on; local development and curl-style
	// testing leave it off.
	RequireOriginForWrites bool
}

// WidgetService serves the embeddable widget: reading a comment thread and
// accepting a new comment.
type WidgetService struct {
	sites    ports.SiteStore
	comments ports.CommentStore
	cache    *cache.Cache
	captcha  ports.CaptchaVerifier
	events   ports.EventPublisher
	metrics  *observability.Metrics
	opts     WidgetOptions
	logger   *zap.Logger
}

// NewWidgetService creates the widget service.
func NewWidgetService(
	sites ports.SiteStore,
	comments ports.CommentStore,
	cache *cache.Cache,
	captcha ports.CaptchaVerifier,
	events ports.EventPublisher,
	metrics *observability.Metrics,
	opts WidgetOptions,
	logger *zap.Logger,
) *WidgetService {
	return &WidgetService{
		sites:    sites,
		comments: comments,
		cache:    cache,
		captcha:  captcha,
		events:   events,
		metrics:  metrics,
		opts:     opts,
		logger:   logger,
	}
}

// GetThread returns every comment of one page's thread, oldest first.
// The caller passes the request's Origin header; reads without an Origin are
// allowed so direct links and previews keep working.
func (s *WidgetService) GetThread(ctx context.Context, siteName, pathName, requestOrigin string) ([]model.Comment, error) {
	site, err := s.lookupSite(ctx, siteName)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrigin(site, requestOrigin, false); err != nil {
		return nil, err
	}

	var comments []model.Comment
	err = s.cache.GetOrCompute(ctx, cache.ThreadKey(site.ID, pathName), s.opts.ThreadCacheTTL, &comments,
		func(ctx context.Context) (interface{}, error) {
			thread, err := s.comments.ListThread(ctx, site.ID, pathName)
			if err != nil {
				return nil, apperrors.NewInternalError("Error fetching comments").WithCause(err)
			}
			// An empty thread still encodes as [] rather than null so the
			// widget can iterate it.
			if thread == nil {
				thread = []model.Comment{}
			}
			return thread, nil
		})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment runs the write half of the admission pipeline: validate,
// captcha, site lookup, origin authorization, insert, invalidation.
func (s *WidgetService) AddComment(ctx context.Context, raw validation.CommentRequest, requestOrigin string) (*model.Comment, error) {
	input, err := validation.ValidateComment(raw)
	if err != nil {
		s.metrics.Increment(ctx, observability.MetricCommentsRejected, "Reason", "validation")
		return nil, err
	}

	// The captcha check runs before any store access so a bot burst cannot
	// load the database. A token is only demanded when one is supplied;
	// whether tokens are required at all is the verifier's concern.
	if raw.CaptchaToken != "" && s.captcha != nil && !s.captcha.Verify(ctx, raw.CaptchaToken) {
		s.metrics.Increment(ctx, observability.MetricCaptchaFailed)
		return nil, apperrors.NewValidationError("captcha verification failed")
	}

	site, err := s.lookupSite(ctx, input.SiteName)
	if err != nil {
		s.metrics.Increment(ctx, observability.MetricCommentsRejected, "Reason", "site")
		return nil, err
	}
	if err := s.authorizeOrigin(site, requestOrigin, true); err != nil {
		s.metrics.Increment(ctx, observability.MetricCommentsRejected, "Reason", "origin")
		return nil, err
	}

	if input.Parent != "" {
		parent, err := s.comments.GetByID(ctx, input.Parent)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, apperrors.NewValidationError("invalid parent")
			}
			return nil, apperrors.NewInternalError("Error adding comment").WithCause(err)
		}
		// Replies stay on their own thread.
		if parent.SiteID != site.ID || parent.PathID != input.PathName {
			return nil, apperrors.NewValidationError("invalid parent")
		}
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		SiteID:    site.ID,
		PathID:    input.PathName,
		Message:   input.Message,
		Author:    input.Author,
		ParentID:  input.Parent,
		Timestamp: time.Now().UTC(),
		OwnerID:   site.OwnerID,
	}

	if err := s.comments.Insert(ctx, comment); err != nil {
		s.logger.Error("comment insert failed",
			zap.String("siteId", site.ID),
			zap.String("pathId", input.PathName),
			zap.Error(err),
		)
		return nil, apperrors.NewInternalError("Error adding comment").WithCause(err)
	}

	// The site list embeds per-site comment counts, so it goes stale too.
	s.cache.Invalidate(ctx,
		cache.ThreadKey(site.ID, input.PathName),
		cache.StatsKey(site.OwnerID),
		cache.SiteListKey(site.OwnerID),
	)
	s.cache.InvalidatePattern(ctx, cache.CommentListPattern(site.OwnerID))

	s.publish(ctx, ports.Event{
		Type:      ports.EventCommentCreated,
		SiteID:    site.ID,
		CommentID: comment.ID,
		OwnerID:   site.OwnerID,
		Timestamp: comment.Timestamp,
	})
	s.metrics.Increment(ctx, observability.MetricCommentsAccepted)

	return comment, nil
}

// lookupSite resolves a site by ID through the cache. An unknown or unusable
// site is a client error, worded so the widget can show it.
func (s *WidgetService) lookupSite(ctx context.Context, siteID string) (*model.Site, error) {
	var site model.Site
	err := s.cache.GetOrCompute(ctx, cache.SiteKey(siteID), s.opts.SiteCacheTTL, &site,
		func(ctx context.Context) (interface{}, error) {
			found, err := s.sites.GetByID(ctx, siteID)
			if err != nil {
				if errors.Is(err, ports.ErrNotFound) {
					return nil, apperrors.NewValidationError("invalid site")
				}
				return nil, apperrors.NewInternalError("Error fetching site").WithCause(err)
			}
			return found, nil
		})
	if err != nil {
		return nil, err
	}
	if !site.Usable() {
		return nil, apperrors.NewValidationError("invalid site")
	}
	return &site, nil
}

// authorizeOrigin is the semantic origin check, run after the site record is
// known. A site with no registered domain authorizes by owner alone.
func (s *WidgetService) authorizeOrigin(site *model.Site, requestOrigin string, write bool) error {
	if requestOrigin == "" {
		if write && s.opts.RequireOriginForWrites {
			return apperrors.NewValidationError("missing origin header")
		}
		return nil
	}
	if site.Domain == "" {
		return nil
	}
	if !origin.Matches(requestOrigin, site.Domain) {
		return apperrors.NewValidationError("invalid origin")
	}
	return nil
}

// publish sends a lifecycle event best-effort.
func (s *WidgetService) publish(ctx context.Context, event ports.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
	}
}
