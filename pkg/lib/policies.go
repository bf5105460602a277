package lib

import (
	"context"

	apppolicies "github.com/slok/sprites/internal/app/policies"
)

// Policies are the network policy operations.
type Policies struct {
	svc *apppolicies.Service
}

// Get returns the network policy of a sprite.
func (p *Policies) Get(ctx context.Context, sprite string) (*Policy, error) {
	pol, err := p.svc.Get(ctx, sprite)
	if err != nil {
		return nil, mapError(err)
	}
	return pol, nil
}

// Update replaces the network policy of a sprite.
func (p *Policies) Update(ctx context.Context, sprite string, policy Policy) (*Policy, error) {
	pol, err := p.svc.Update(ctx, sprite, policy)
	if err != nil {
		return nil, mapError(err)
	}
	return pol, nil
}

// Check tells if egress traffic to the domain would be allowed by the
// sprite policy. The rules are evaluated locally.
func (p *Policies) Check(ctx context.Context, sprite, domain string) (*PolicyCheck, error) {
	res, err := p.svc.Check(ctx, sprite, domain)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// ParsePolicy parses a JSON policy, comments and trailing commas are allowed.
func ParsePolicy(data []byte) (Policy, error) {
	pol, err := apppolicies.Parse(data)
	if err != nil {
		return Policy{}, mapError(err)
	}
	return pol, nil
}
