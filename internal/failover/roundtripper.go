package failover

import "net/http"

// RoundTripper installs an Executor as an http.RoundTripper, so every request
// sent through a client passes through interface failover.
type RoundTripper struct {
	executor *Executor
}

func NewRoundTripper(executor *Executor) *RoundTripper {
	return &RoundTripper{executor: executor}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.executor.Execute(req)
}

// NewClient returns a copy of base whose transport is rt. A nil base starts
// from a zero client.
func NewClient(base *http.Client, rt http.RoundTripper) *http.Client {
	var c http.Client
	if base != nil {
		c = *base
	}
	c.Transport = rt
	return &c
}
