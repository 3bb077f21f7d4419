package s3

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// <bucket>.s3[.<region>].amazonaws.com
	virtualHostedRe = regexp.MustCompile(`^([a-z0-9][a-z0-9.\-]*?)\.s3(?:[.\-][a-z0-9\-]+)?\.amazonaws\.com$`)
	// s3[.<region>].amazonaws.com
	pathStyleRe = regexp.MustCompile(`^s3(?:[.\-][a-z0-9\-]+)?\.amazonaws\.com$`)
)

// ParseURL extracts the bucket and key from an S3 location. Recognized shapes:
//
//	s3://<bucket>/<key>
//	http(s)://<bucket>.s3[.<region>].amazonaws.com/<key>
//	http(s)://s3[.<region>].amazonaws.com/<bucket>/<key>
//
// An s3:// URL whose host is itself a virtual-hosted endpoint yields the bucket
// embedded in the host. The key has no leading or trailing slash.
func ParseURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	path := strings.Trim(u.Path, "/")

	switch {
	case scheme != "s3" && scheme != "http" && scheme != "https":
		return "", "", fmt.Errorf("invalid S3 URL %q: unsupported scheme %q", raw, u.Scheme)
	case host == "":
		return "", "", fmt.Errorf("invalid S3 URL %q: missing host", raw)
	}

	if m := virtualHostedRe.FindStringSubmatch(host); m != nil {
		return m[1], path, nil
	}
	if pathStyleRe.MatchString(host) {
		bucket, key, _ := strings.Cut(path, "/")
		if bucket == "" {
			return "", "", fmt.Errorf("invalid S3 URL %q: missing bucket", raw)
		}
		return bucket, key, nil
	}
	if scheme == "s3" {
		return host, path, nil
	}
	return "", "", fmt.Errorf("invalid S3 URL %q: not an S3 endpoint", raw)
}
