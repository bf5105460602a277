// Package policies has the sprite network policy operations.
package policies

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/tidwall/jsonc"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
)

// APIClient is the API client used by the service.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// ServiceConfig is the configuration for the policies service.
type ServiceConfig struct {
	Client APIClient
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("api client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.policies"})

	return nil
}

// Service manages sprite network policies.
type Service struct {
	client APIClient
	logger log.Logger
}

// NewService creates a new policies service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Get returns the network policy of a sprite.
func (s *Service) Get(ctx context.Context, sprite string) (*model.Policy, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}

	var resp policyJSON
	if err := s.client.Get(ctx, policiesPath(sprite), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not get policy of %q: %w", sprite, err)
	}

	p := resp.toModel()
	return &p, nil
}

// Update replaces the network policy of a sprite.
func (s *Service) Update(ctx context.Context, sprite string, p model.Policy) (*model.Policy, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}
	if err := p.Egress.Validate(); err != nil {
		return nil, fmt.Errorf("invalid egress policy: %w", err)
	}

	var resp policyJSON
	if err := s.client.Post(ctx, policiesPath(sprite), newPolicyJSON(p), &resp); err != nil {
		return nil, fmt.Errorf("could not update policy of %q: %w", sprite, err)
	}
	s.logger.Infof("policy of %q updated", sprite)

	updated := resp.toModel()
	return &updated, nil
}

// Check fetches the sprite policy and tells if egress to the domain would be allowed.
func (s *Service) Check(ctx context.Context, sprite, domain string) (*model.PolicyCheck, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain is required: %w", model.ErrNotValid)
	}

	p, err := s.Get(ctx, sprite)
	if err != nil {
		return nil, err
	}

	return &model.PolicyCheck{
		Domain:  domain,
		Allowed: p.Egress.AllowDomain(domain),
		Policy:  *p,
	}, nil
}

// LoadFile loads a policy from a JSON file, comments and trailing commas are allowed.
func LoadFile(fsys fs.FS, path string) (model.Policy, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return model.Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	return Parse(data)
}

// Parse parses a policy in JSON, comments and trailing commas are allowed.
func Parse(data []byte) (model.Policy, error) {
	var p policyJSON
	if err := json.Unmarshal(jsonc.ToJSON(data), &p); err != nil {
		return model.Policy{}, fmt.Errorf("parsing policy JSON: %w: %w", err, model.ErrNotValid)
	}

	policy := p.toModel()
	if err := policy.Egress.Validate(); err != nil {
		return model.Policy{}, fmt.Errorf("invalid egress policy: %w", err)
	}

	return policy, nil
}

func policiesPath(sprite string) string {
	return "/v1/sprites/" + url.PathEscape(sprite) + "/policies"
}

type policyJSON struct {
	Egress egressJSON `json:"egress"`
}

type egressJSON struct {
	Policy string     `json:"policy,omitempty"`
	Rules  []ruleJSON `json:"rules,omitempty"`
}

type ruleJSON struct {
	Domain string `json:"domain"`
	Action string `json:"action"`
}

func (p policyJSON) toModel() model.Policy {
	var rules []model.EgressRule
	for _, r := range p.Egress.Rules {
		rules = append(rules, model.EgressRule{Domain: r.Domain, Action: model.EgressAction(r.Action)})
	}

	return model.Policy{
		Egress: model.EgressPolicy{
			Policy: model.EgressMode(p.Egress.Policy),
			Rules:  rules,
		},
	}
}

func newPolicyJSON(p model.Policy) policyJSON {
	var rules []ruleJSON
	for _, r := range p.Egress.Rules {
		rules = append(rules, ruleJSON{Domain: r.Domain, Action: string(r.Action)})
	}

	return policyJSON{Egress: egressJSON{Policy: string(p.Egress.Policy), Rules: rules}}
}
