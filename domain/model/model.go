// Package model holds the core records the widget API reads and writes.
// Sites and comments are owned by the backing store; these structs carry
// only the fields the admission path needs for authorization and caching.
package model

import (
	"time"
)

// Site is a registered website allowed to embed the comment widget.
// A site is usable for authorization only if at least one of Domain or
// OwnerID is set.
type Site struct {
	ID        string    `json:"id" dynamodbav:"SiteID"`
	Domain    string    `json:"domain,omitempty" dynamodbav:"Domain"`
	OwnerID   string    `json:"uid" dynamodbav:"OwnerID"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

// Usable reports whether the site can authorize widget traffic at all.
func (s *Site) Usable() bool {
	return s != nil && (s.Domain != "" || s.OwnerID != "")
}

// Comment is a single widget comment. Comments are immutable once created;
// the only mutation is deletion by the owning user.
type Comment struct {
	ID        string    `json:"id" dynamodbav:"CommentID"`
	SiteID    string    `json:"siteName" dynamodbav:"SiteID"`
	PathID    string    `json:"pathName" dynamodbav:"PathID"`
	Message   string    `json:"message" dynamodbav:"Message"`
	Author    string    `json:"author" dynamodbav:"Author"`
	ParentID  string    `json:"parent,omitempty" dynamodbav:"ParentID,omitempty"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"Timestamp"`
	OwnerID   string    `json:"-" dynamodbav:"OwnerID"`
}

// SiteStats is the owner-scoped aggregate shown on the dashboard.
type SiteStats struct {
	Sites    int `json:"sites"`
	Comments int `json:"comments"`
}

// SiteWithCount is a site decorated with its comment count for site listings.
type SiteWithCount struct {
	Site
	CommentCount int `json:"commentCount"`
}
