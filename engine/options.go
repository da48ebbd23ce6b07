// Copyright (c) 2025 BVK Chaitanya

package engine

import (
	"fmt"
	"net/url"
	"time"
)

var (
	// RestURL points at a locally deployed engine by default.
	RestURL = url.URL{
		Scheme: "http",
		Host:   "localhost:50053",
		Path:   "/api/exchange",
	}

	WebsocketURL = url.URL{
		Scheme: "ws",
		Host:   "localhost:50053",
		Path:   "/ws",
	}
)

type Options struct {
	// RestURL and WebsocketURL override the default engine endpoints.
	RestURL      *url.URL
	WebsocketURL *url.URL

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// WebsocketPingInterval holds the ping-pong interval for the stream.
	WebsocketPingInterval time.Duration

	// WebsocketRetryInterval holds the reconnect backoff for the stream.
	WebsocketRetryInterval time.Duration

	// RateLimit holds the max request rate towards the engine.
	RateLimit float64

	// MaxDepthLimit caps the number of levels requested per side.
	MaxDepthLimit int
}

func (v *Options) setDefaults() {
	if v.RestURL == nil {
		v.RestURL = &RestURL
	}
	if v.WebsocketURL == nil {
		v.WebsocketURL = &WebsocketURL
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 5 * time.Second
	}
	if v.WebsocketPingInterval == 0 {
		v.WebsocketPingInterval = 30 * time.Second
	}
	if v.WebsocketRetryInterval == 0 {
		v.WebsocketRetryInterval = time.Second
	}
	if v.RateLimit == 0 {
		v.RateLimit = 25
	}
	if v.MaxDepthLimit == 0 {
		v.MaxDepthLimit = 100
	}
}

func (v *Options) Check() error {
	if v.HttpClientTimeout < 0 || v.RateLimit < 0 {
		return fmt.Errorf("timeouts and rate limits cannot be negative")
	}
	if v.MaxDepthLimit < 1 {
		return fmt.Errorf("max depth limit must be positive")
	}
	return nil
}
