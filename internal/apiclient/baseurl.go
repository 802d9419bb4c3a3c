package apiclient

import (
	"net"
	"net/url"
)

// AdjustBaseURL rewrites a loopback backend URL so it points at the host
// the console itself was reached on. A console opened from another
// machine as http://10.0.0.5:3000 must call http://10.0.0.5:4000/api, not
// its own localhost. Non-loopback URLs and loopback visitors are left as-is.
func AdjustBaseURL(baseURL, servedHost string) string {
	if servedHost == "" {
		return baseURL
	}
	if h, _, err := net.SplitHostPort(servedHost); err == nil {
		servedHost = h
	}
	if isLoopback(servedHost) {
		return baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil || !isLoopback(u.Hostname()) {
		return baseURL
	}

	host := servedHost
	if ip := net.ParseIP(servedHost); ip != nil && ip.To4() == nil {
		host = "[" + servedHost + "]"
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(servedHost, port)
	} else {
		u.Host = host
	}
	return u.String()
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
