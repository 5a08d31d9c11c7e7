package framesystem

// An Option configures a Provider at construction.
type Option func(*Provider)

// WithChangeDetector sets the strategy used to pick the subscriptions renotified after a graph
// update. The default is ExactDetector.
func WithChangeDetector(detector ChangeDetector) Option {
	return func(p *Provider) {
		if detector != nil {
			p.detector = detector
		}
	}
}
