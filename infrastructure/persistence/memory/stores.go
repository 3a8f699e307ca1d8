// Package memory holds in-process store implementations used by tests and
// local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
)

// SiteStore is an in-memory ports.SiteStore.
type SiteStore struct {
	mu    sync.RWMutex
	sites map[string]model.Site
}

// NewSiteStore creates an empty in-memory site store.
func NewSiteStore() *SiteStore {
	return &SiteStore{sites: make(map[string]model.Site)}
}

func (s *SiteStore) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site, ok := s.sites[siteID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &site, nil
}

func (s *SiteStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sites []model.Site
	for _, site := range s.sites {
		if site.OwnerID == ownerID {
			sites = append(sites, site)
		}
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].CreatedAt.After(sites[j].CreatedAt)
	})
	return sites, nil
}

func (s *SiteStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	sites, _ := s.ListByOwner(ctx, ownerID)
	return len(sites), nil
}

func (s *SiteStore) Create(ctx context.Context, site *model.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = *site
	return nil
}

func (s *SiteStore) UpdateDomain(ctx context.Context, siteID, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.sites[siteID]
	if !ok {
		return ports.ErrNotFound
	}
	site.Domain = domain
	s.sites[siteID] = site
	return nil
}

func (s *SiteStore) Delete(ctx context.Context, siteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sites, siteID)
	return nil
}

// CommentStore is an in-memory ports.CommentStore.
type CommentStore struct {
	mu       sync.RWMutex
	comments map[string]model.Comment
}

// NewCommentStore creates an empty in-memory comment store.
func NewCommentStore() *CommentStore {
	return &CommentStore{comments: make(map[string]model.Comment)}
}

func (s *CommentStore) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[commentID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &comment, nil
}

func (s *CommentStore) ListThread(ctx context.Context, siteID, pathID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]model.Comment, 0)
	for _, c := range s.comments {
		if c.SiteID == siteID && c.PathID == pathID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].Timestamp.Before(comments[j].Timestamp)
	})
	return comments, nil
}

func (s *CommentStore) ListByOwner(ctx context.Context, ownerID, siteID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]model.Comment, 0)
	for _, c := range s.comments {
		if c.OwnerID != ownerID {
			continue
		}
		if siteID != "" && c.SiteID != siteID {
			continue
		}
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].Timestamp.After(comments[j].Timestamp)
	})
	return comments, nil
}

func (s *CommentStore) CountBySite(ctx context.Context, siteID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.comments {
		if c.SiteID == siteID {
			count++
		}
	}
	return count, nil
}

func (s *CommentStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.comments {
		if c.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *CommentStore) Insert(ctx context.Context, comment *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = *comment
	return nil
}

func (s *CommentStore) Delete(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.comments, commentID)
	return nil
}

func (s *CommentStore) DeleteBySite(ctx context.Context, siteID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, c := range s.comments {
		if c.SiteID == siteID {
			delete(s.comments, id)
			deleted++
		}
	}
	return deleted, nil
}
