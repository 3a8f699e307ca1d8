package cache

// Cache keys are built in one place so key shapes cannot drift between the
// read path and the invalidation cascades.

// ThreadKey caches the comment thread for one page of one site.
func ThreadKey(siteID, pathID string) string {
	return "thread:" + siteID + ":" + pathID
}

// ThreadPattern matches every cached thread of a site.
func ThreadPattern(siteID string) string {
	return "thread:" + siteID + ":*"
}

// SiteKey caches a single site lookup.
func SiteKey(siteID string) string {
	return "site:" + siteID
}

// CommentListKey caches an owner's dashboard comment list for one site
// filter. An empty filter means all sites.
func CommentListKey(ownerID, siteFilter string) string {
	if siteFilter == "" {
		siteFilter = "all"
	}
	return "comments:list:" + ownerID + ":" + siteFilter
}

// CommentListPattern matches every cached comment list of an owner.
func CommentListPattern(ownerID string) string {
	return "comments:list:" + ownerID + ":*"
}

// StatsKey caches an owner's aggregate dashboard stats.
func StatsKey(ownerID string) string {
	return "stats:" + ownerID
}

// SiteListKey caches an owner's site list with comment counts.
func SiteListKey(ownerID string) string {
	return "sites:" + ownerID
}
