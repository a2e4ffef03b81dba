package ingest

import (
	"regexp"
	"strings"
)

// trailingVersion matches a version-looking suffix after ':' or '@'.
var trailingVersion = regexp.MustCompile(`[:@](\d+\.\d+[\.\d]*[-\w]*)$`)

// comparisonPrefix strips operators from fixed-version strings like
// "≥ 2:1.6.4-3+deb9u1".
var comparisonPrefix = regexp.MustCompile(`^[≥≤<>=]+\s*`)

// ParseComponentCoordinates splits a package-manager component URI into
// package name and version:
//
//	gav://org.apache.sshd:sshd-core:1.0.0   -> "org.apache.sshd:sshd-core", "1.0.0"
//	deb://debian:stretch:libx11:2:1.6.4-3   -> "debian:stretch:libx11", "2:1.6.4-3"
//	npm://lodash@4.17.20                    -> "lodash", "4.17.20"
//
// Unknown schemes fall back to a trailing-version heuristic, then to the
// plain component name with an empty version.
func ParseComponentCoordinates(sourceCompID, component string) (name, version string) {
	if sourceCompID == "" {
		return component, ""
	}

	scheme, path, ok := strings.Cut(sourceCompID, "://")
	if !ok {
		return component, ""
	}

	switch scheme {
	case "gav":
		parts := strings.Split(path, ":")
		switch {
		case len(parts) >= 3:
			return strings.Join(parts[:len(parts)-1], ":"), parts[len(parts)-1]
		case len(parts) == 2:
			return parts[0], parts[1]
		default:
			return path, ""
		}
	case "deb":
		parts := strings.Split(path, ":")
		if len(parts) >= 3 {
			// debian:suite:package, the rest (epoch:version) is the version
			return strings.Join(parts[:3], ":"), strings.Join(parts[3:], ":")
		}
		return path, ""
	case "npm":
		if idx := strings.LastIndex(path, "@"); idx > 0 {
			return path[:idx], path[idx+1:]
		}
		return path, ""
	}

	if m := trailingVersion.FindStringSubmatchIndex(path); m != nil {
		return path[:m[0]], path[m[2]:m[3]]
	}

	if component != "" {
		return component, ""
	}
	return path, ""
}

// FirstFixedVersion picks the first fixed version from an Xray
// fixed_versions array, stripping comparison operators.
func FirstFixedVersion(fixedVersions []string) string {
	if len(fixedVersions) == 0 {
		return ""
	}
	return comparisonPrefix.ReplaceAllString(strings.TrimSpace(fixedVersions[0]), "")
}
