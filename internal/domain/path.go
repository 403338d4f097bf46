package domain

// PathSeparator joins ancestor titles into a logical path. The same join is
// used during dedup collection and comparison; any mismatch between the two
// would silently defeat dedup, so every caller goes through JoinPath.
const PathSeparator = "/"

// JoinPath appends a title to a parent path. No normalization is applied:
// dedup keys are exact strings.
func JoinPath(parent, title string) string {
	return parent + PathSeparator + title
}

// reservedContainers are the host's anonymous top-level containers. Their
// titles are excluded from path tracking during batch flattening.
var reservedContainers = map[string]struct{}{
	"":                 {},
	"Bookmarks Bar":    {},
	"Bookmarks bar":    {},
	"Other Bookmarks":  {},
	"Mobile Bookmarks": {},
	"Bookmarks Menu":   {},
}

// IsReservedContainer reports whether a node counts as an anonymous
// top-level container: it has no parent path yet and its title is empty or
// one of the host's reserved names.
func IsReservedContainer(title, parentPath string) bool {
	if parentPath != "" {
		return false
	}
	_, ok := reservedContainers[title]
	return ok
}
