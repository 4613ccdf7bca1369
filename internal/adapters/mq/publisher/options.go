package publisher

import "github.com/okian/podium/pkg/logger"

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithSubjectPrefix sets the subject prefix, e.g. "podium" yields
// "podium.score.submitted".
func WithSubjectPrefix(prefix string) Option {
	return func(p *NATSPublisher) {
		p.prefix = prefix
	}
}

// WithLogger sets the logger used for connection state changes.
func WithLogger(l logger.Logger) Option {
	return func(p *NATSPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}
