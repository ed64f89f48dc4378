package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseNumber extracts an issue or PR number from "123", "#123", or a web
// or API URL such as https://github.com/owner/repo/issues/123 or
// https://api.github.com/repos/owner/repo/pulls/123. For URLs the
// repository is returned as well.
func ParseNumber(ref string) (repository string, number int, err error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		if n <= 0 {
			return "", 0, fmt.Errorf("invalid number %q", ref)
		}
		return "", n, nil
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", 0, fmt.Errorf("invalid issue or pull request reference: %s", ref)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] == "repos" {
		parts = parts[1:]
	}
	if len(parts) != 4 {
		return "", 0, fmt.Errorf("invalid issue or pull request URL: %s", ref)
	}
	switch parts[2] {
	case "issues", "pull", "pulls":
	default:
		return "", 0, fmt.Errorf("invalid issue or pull request URL: %s", ref)
	}

	n, err := strconv.Atoi(parts[3])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("failed to parse number from URL %s", ref)
	}
	return parts[0] + "/" + parts[1], n, nil
}
