package platform

import "errors"

// Provider bundles the backend capabilities for one accessibility source.
type Provider struct {
	// Observers creates native observers per process.
	Observers ObserverProvider
	// Applications lists the application elements of the source.
	Applications func() ([]Element, error)
	// Lookup resolves an element by ID.
	Lookup func(id ElementID) (Element, bool)
}

// ErrNoObserverProvider is returned by Validate for incomplete providers.
var ErrNoObserverProvider = errors.New("provider has no observer provider")

// Validate reports whether the provider can drive the narrator.
func (p *Provider) Validate() error {
	if p == nil || p.Observers == nil {
		return ErrNoObserverProvider
	}
	return nil
}

// ApplicationFor returns the application element with the given pid.
func (p *Provider) ApplicationFor(pid int) (Element, error) {
	if p.Applications == nil {
		return nil, ErrNoValue
	}
	apps, err := p.Applications()
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if app.ProcessIdentifier() == pid {
			return app, nil
		}
	}
	return nil, ErrNoValue
}
