package access

import (
	"context"
	"errors"
)

// ErrGuardDiscarded is returned when the caller's context ended while a
// check was in flight. The late result is dropped and no terminal state is
// reported.
var ErrGuardDiscarded = errors.New("access: guard result discarded")

type GuardState string

const (
	StateLoadingAuth    GuardState = "loading_auth"
	StateLoadingTier    GuardState = "loading_tier"
	StateLoadingFeature GuardState = "loading_feature"
	StateRendered       GuardState = "rendered"
	StateRedirected     GuardState = "redirected"
)

func (s GuardState) Terminal() bool {
	return s == StateRendered || s == StateRedirected
}

const (
	DefaultSignInPath  = "/signin"
	DefaultUpgradePath = "/upgrade"
)

// GuardRoute describes the checks a navigable route opts into. Resource is
// the legacy spelling of FeatureKey; both name the same ResourceKey.
type GuardRoute struct {
	Path               string      `json:"path"`
	FeatureKey         ResourceKey `json:"featureKey,omitempty"`
	Resource           ResourceKey `json:"resource,omitempty"`
	RequireProductTier bool        `json:"requireProductTier,omitempty"`
}

// RequiredKey collapses FeatureKey and the legacy Resource alias.
func (r GuardRoute) RequiredKey() ResourceKey {
	if r.FeatureKey != "" {
		return r.FeatureKey
	}
	return r.Resource
}

// RedirectState travels with the navigation so the target page can explain
// why the user landed there.
type RedirectState struct {
	From            string      `json:"from"`
	RequiredFeature ResourceKey `json:"requiredFeature,omitempty"`
	FeatureName     string      `json:"featureName,omitempty"`
	Reason          Reason      `json:"reason,omitempty"`
}

type Redirect struct {
	To    string        `json:"to"`
	State RedirectState `json:"state"`
}

type GuardResult struct {
	State     GuardState `json:"state"`
	Redirect  *Redirect  `json:"redirect,omitempty"`
	Principal *Principal `json:"-"`
	// Err records a loader or checker failure that was resolved as a denial.
	Err error `json:"-"`
}

// PrincipalLoader resolves the session principal; nil means unauthenticated.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context) (*Principal, error)
}

type PrincipalLoaderFunc func(ctx context.Context) (*Principal, error)

func (f PrincipalLoaderFunc) LoadPrincipal(ctx context.Context) (*Principal, error) {
	return f(ctx)
}

// FeatureChecker is the authoritative (usually server side) feature check.
type FeatureChecker interface {
	CheckFeature(ctx context.Context, p *Principal, key ResourceKey) (Decision, error)
}

type FeatureCheckerFunc func(ctx context.Context, p *Principal, key ResourceKey) (Decision, error)

func (f FeatureCheckerFunc) CheckFeature(ctx context.Context, p *Principal, key ResourceKey) (Decision, error) {
	return f(ctx, p, key)
}

// Guard runs the authentication, tier and feature checks of a route in that
// order. Each Run is independent; there is no retry.
type Guard struct {
	Principals  PrincipalLoader
	Features    FeatureChecker
	Catalog     *Catalog
	// Engine decides who skips the tier check. Without one only super_admin does.
	Engine      *Engine
	SignInPath  string
	UpgradePath string

	// Observer receives every state transition, loading states included.
	Observer func(GuardState)
}

func (g *Guard) Run(ctx context.Context, route GuardRoute) (GuardResult, error) {
	g.emit(StateLoadingAuth)
	var principal *Principal
	var loadErr error
	if g.Principals != nil {
		principal, loadErr = g.Principals.LoadPrincipal(ctx)
	}
	if ctx.Err() != nil {
		return GuardResult{State: StateLoadingAuth}, ErrGuardDiscarded
	}
	if principal == nil {
		return g.redirect(g.signInPath(), RedirectState{From: route.Path, Reason: ReasonAuthRequired}, nil, loadErr), nil
	}

	if route.RequireProductTier {
		g.emit(StateLoadingTier)
		if !principal.HasTier() && !g.Engine.Unrestricted(principal) {
			return g.redirect(g.upgradePath(), RedirectState{From: route.Path, Reason: ReasonNoProductTier}, principal, nil), nil
		}
	}

	if key := route.RequiredKey(); key != "" {
		g.emit(StateLoadingFeature)
		decision := deny(ReasonFeatureDenied)
		var checkErr error
		if g.Features != nil {
			decision, checkErr = g.Features.CheckFeature(ctx, principal, key)
		}
		if ctx.Err() != nil {
			return GuardResult{State: StateLoadingFeature, Principal: principal}, ErrGuardDiscarded
		}
		if checkErr != nil {
			decision = deny(ReasonFeatureDenied)
		}
		if !decision.Allowed {
			state := RedirectState{
				From:            route.Path,
				RequiredFeature: key,
				FeatureName:     g.Catalog.DisplayName(key),
				Reason:          decision.Reason,
			}
			if decision.Reason == ReasonAuthRequired {
				return g.redirect(g.signInPath(), state, principal, checkErr), nil
			}
			return g.redirect(g.upgradePath(), state, principal, checkErr), nil
		}
	}

	g.emit(StateRendered)
	return GuardResult{State: StateRendered, Principal: principal}, nil
}

func (g *Guard) redirect(to string, state RedirectState, p *Principal, err error) GuardResult {
	g.emit(StateRedirected)
	return GuardResult{
		State:     StateRedirected,
		Redirect:  &Redirect{To: to, State: state},
		Principal: p,
		Err:       err,
	}
}

func (g *Guard) emit(s GuardState) {
	if g.Observer != nil {
		g.Observer(s)
	}
}

func (g *Guard) signInPath() string {
	if g.SignInPath != "" {
		return g.SignInPath
	}
	return DefaultSignInPath
}

func (g *Guard) upgradePath() string {
	if g.UpgradePath != "" {
		return g.UpgradePath
	}
	return DefaultUpgradePath
}
