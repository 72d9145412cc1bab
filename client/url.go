package client

import (
	"fmt"
	"net/url"
)

// StreamPath is the endpoint path on the page host
const StreamPath = "/stream"

// StreamURL derives the stream socket URL from the URL of the hosting page.
// A secure page maps to wss, anything else to ws; the host keeps its port.
func StreamURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid page URL %q: missing host", pageURL)
	}

	scheme := "ws:"
	if u.Scheme == "https" {
		scheme = "wss:"
	}
	return scheme + "//" + u.Host + StreamPath, nil
}
