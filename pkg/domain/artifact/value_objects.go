package artifact

import (
	"fmt"
	"strings"

	"github.com/gitsight/go-vcsurl"
)

// NormalizeRepoURL canonicalizes a source repo URL so that the same repo
// reported over SSH, scp syntax or HTTPS resolves to one record:
//
//	git@github.com:org/repo.git  -> https://github.com/org/repo
//	ssh://git@host/org/repo      -> https://host/org/repo
//	github.com/org/repo/         -> https://github.com/org/repo
func NormalizeRepoURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if info, err := vcsurl.Parse(u); err == nil && info.Host != "" && info.FullName != "" {
		return fmt.Sprintf("https://%s/%s", info.Host, strings.TrimSuffix(info.FullName, ".git"))
	}

	// Fallback for hosts vcsurl does not recognize.
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")

	switch {
	case strings.HasPrefix(u, "git@"):
		// scp syntax: git@host:path
		rest := strings.TrimPrefix(u, "git@")
		if host, path, ok := strings.Cut(rest, ":"); ok {
			return "https://" + host + "/" + strings.TrimPrefix(path, "/")
		}
		return "https://" + rest
	case strings.HasPrefix(u, "ssh://"):
		rest := strings.TrimPrefix(u, "ssh://")
		rest = strings.TrimPrefix(rest, "git@")
		return "https://" + rest
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	default:
		return "https://" + u
	}
}
