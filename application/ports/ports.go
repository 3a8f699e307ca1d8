// Package ports defines the interfaces the application services depend on.
// Concrete implementations live under infrastructure; tests substitute
// in-memory fakes.
package ports

import (
	"context"
	"errors"
	"time"

	"opino-backend/domain/model"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SiteStore persists registered sites.
type SiteStore interface {
	// GetByID returns a site, or ErrNotFound.
	GetByID(ctx context.Context, siteID string) (*model.Site, error)
	// ListByOwner returns an owner's sites, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Site, error)
	// CountByOwner returns how many sites an owner has.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Create(ctx context.Context, site *model.Site) error
	// UpdateDomain changes a site's registered domain.
	UpdateDomain(ctx context.Context, siteID, domain string) error
	Delete(ctx context.Context, siteID string) error
}

// CommentStore persists comments.
type CommentStore interface {
	// GetByID returns a comment, or ErrNotFound.
	GetByID(ctx context.Context, commentID string) (*model.Comment, error)
	// ListThread returns every comment of one (site, path) thread.
	ListThread(ctx context.Context, siteID, pathID string) ([]model.Comment, error)
	// ListByOwner returns an owner's comments, newest first, optionally
	// filtered to one site. An empty siteID means all sites.
	ListByOwner(ctx context.Context, ownerID, siteID string) ([]model.Comment, error)
	// CountBySite returns how many comments a site has.
	CountBySite(ctx context.Context, siteID string) (int, error)
	// CountByOwner returns how many comments an owner has across all sites.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Insert(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, commentID string) error
	// DeleteBySite removes every comment of a site and reports how many
	// were removed.
	DeleteBySite(ctx context.Context, siteID string) (int, error)
}

// CaptchaVerifier checks a captcha token against the captcha oracle.
type CaptchaVerifier interface {
	// Verify reports whether a token is valid. Implementations fail
	// closed: any oracle failure counts as invalid.
	Verify(ctx context.Context, token string) bool
}

// Event is a lifecycle notification published after a mutation commits.
type Event struct {
	Type      string    `json:"type"`
	SiteID    string    `json:"siteId,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types emitted by the services.
const (
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
	EventSiteDeleted    = "site.deleted"
)

// EventPublisher publishes events best-effort; a publish failure never
// fails the request that produced it.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
