package api

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithSubmitRateLimit limits score submissions per client to rps with the
// given burst. rps <= 0 disables limiting.
func WithSubmitRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newClientLimiter(rps, burst)
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithRequestTimeout bounds each API request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTrustedProxy takes the client address from X-Forwarded-For and
// X-Real-IP. Enable it only behind a proxy that overwrites those headers;
// otherwise clients pick their own rate limit bucket.
func WithTrustedProxy(on bool) Option {
	return func(s *Server) {
		s.proxied = on
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
