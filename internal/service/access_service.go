package service

import (
	"context"
	"time"

	"crm-access-be/internal/cache"
	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/mapper"
	"crm-access-be/internal/metrics"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin/feature"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type IAccessService interface {
	// ResolvePrincipal loads the profile behind an authenticated subject.
	// Unknown and non-active profiles resolve to nil.
	ResolvePrincipal(ctx context.Context, userId uuid.UUID, email string) (*access.Principal, error)

	// CheckFeature is the authoritative decision for one resource key.
	CheckFeature(ctx context.Context, p *access.Principal, key access.ResourceKey) (access.Decision, error)

	GetUserRole(p *access.Principal) *dto.UserRoleResponse
	EffectiveFeatures(ctx context.Context, p *access.Principal) ([]*dto.EffectiveFeatureResponse, error)
	EffectiveFeature(ctx context.Context, p *access.Principal, key access.ResourceKey) (*dto.EffectiveFeatureResponse, error)
	// EffectiveFeatureOf resolves key for another profile. It returns nil when
	// the profile is unknown or not active.
	EffectiveFeatureOf(ctx context.Context, profileId uuid.UUID, key access.ResourceKey) (*dto.EffectiveFeatureResponse, error)
	EvaluateGate(ctx context.Context, p *access.Principal, q dto.GateQuery) (access.GateResult, error)
	EvaluateRoute(ctx context.Context, p *access.Principal, req dto.GuardRequest) (*dto.GuardResponse, error)
	Catalog(p *access.Principal) *dto.CatalogResponse

	// Invalidate drops cached decisions for one profile, or for everyone when
	// profileId is nil.
	Invalidate(ctx context.Context, profileId *uuid.UUID)
}

type AccessServiceConfig struct {
	IsProduction bool
	SignInPath   string
	UpgradePath  string
	Now          func() time.Time
}

type accessService struct {
	uowFactory  unitofwork.RepositoryFactory
	engine      *access.Engine
	decisions   *cache.DecisionCache
	effective   *cache.EffectiveCache
	metrics     *metrics.AccessMetrics
	logger      logger.ILogger
	decisionLog logger.ILogger
	tracer      trace.Tracer
	profiles    *mapper.ProfileMapper
	cfg         AccessServiceConfig
}

func NewAccessService(
	uowFactory unitofwork.RepositoryFactory,
	engine *access.Engine,
	decisions *cache.DecisionCache,
	effective *cache.EffectiveCache,
	accessMetrics *metrics.AccessMetrics,
	logger logger.ILogger,
	decisionLog logger.ILogger,
	cfg AccessServiceConfig,
) IAccessService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if decisionLog == nil {
		decisionLog = logger
	}
	return &accessService{
		uowFactory:  uowFactory,
		engine:      engine,
		decisions:   decisions,
		effective:   effective,
		metrics:     accessMetrics,
		logger:      logger,
		decisionLog: decisionLog,
		tracer:      otel.Tracer("crm-access-be/access"),
		profiles:    mapper.NewProfileMapper(),
		cfg:         cfg,
	}
}

func (s *accessService) ResolvePrincipal(ctx context.Context, userId uuid.UUID, email string) (*access.Principal, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		s.logger.Error("ACCESS", "Failed to load profile", map[string]interface{}{"user_id": userId.String(), "error": err.Error()})
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	if profile.Status != access.StatusActive {
		s.logger.Debug("ACCESS", "Ignoring non-active principal", map[string]interface{}{
			"user_id": userId.String(),
			"status":  string(profile.Status),
		})
		return nil, nil
	}

	p := s.profiles.ToPrincipal(profile)
	if p.Email == "" {
		p.Email = email
	}
	if s.cfg.IsProduction && p.HasTier() && p.Tier() == access.TierDevAllAccess {
		s.logger.Warn("ACCESS", "dev_all_access stripped in production", map[string]interface{}{"user_id": userId.String()})
		p.ProductTier = nil
	}
	return p, nil
}

func (s *accessService) CheckFeature(ctx context.Context, p *access.Principal, key access.ResourceKey) (access.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "access.CheckFeature", trace.WithAttributes(attribute.String("access.key", key.String())))
	defer span.End()

	start := s.cfg.Now()
	key = access.NormalizeKey(key.String())

	if p != nil {
		if cached, ok := s.decisions.Get(p.Id, key, start); ok {
			s.metrics.CacheLookup("decision", true)
			s.metrics.ObserveDecision(cached, true, time.Since(start))
			span.SetAttributes(attribute.Bool("access.allowed", cached.Allowed), attribute.Bool("access.cached", true))
			return cached, nil
		}
		s.metrics.CacheLookup("decision", false)
	}

	decision, until, err := s.decide(ctx, p, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return access.Decision{}, err
	}

	if p != nil {
		s.decisions.Set(p.Id, key, decision, until)
	}
	s.record(p, key, decision)
	s.metrics.ObserveDecision(decision, false, time.Since(start))
	span.SetAttributes(
		attribute.Bool("access.allowed", decision.Allowed),
		attribute.String("access.reason", string(decision.Reason)),
	)
	return decision, nil
}

// decide composes the engine with the feature catalog and overrides. Terminal
// engine reasons are final; otherwise a known catalog feature may be disabled,
// overridden, or fall back to its stored tier row. The static tier table only
// decides keys that have no feature row. The returned time, when set, is the
// expiry of the override the decision rests on.
func (s *accessService) decide(ctx context.Context, p *access.Principal, key access.ResourceKey) (access.Decision, *time.Time, error) {
	decision := s.engine.CanAccess(p, key)
	if decision.Reason.Terminal() {
		return decision, nil, nil
	}

	state, err := s.loadFeatureState(ctx, p, key)
	if err != nil {
		return access.Decision{}, nil, err
	}
	if !state.Known {
		return decision, nil, nil
	}

	resolved := access.ResolveEffective(state)
	switch {
	case resolved.Reason == access.ReasonFeatureDisabled:
		return access.Decision{Reason: access.ReasonFeatureDisabled}, nil, nil
	case resolved.Source == access.SourceOverride:
		return access.Decision{Allowed: resolved.Enabled, Reason: access.ReasonOverride}, resolved.ExpiresAt, nil
	case s.engine.HasTierEntry(key):
		if resolved.Enabled {
			return access.Decision{Allowed: true, Reason: access.ReasonTierAllowed}, nil, nil
		}
		return access.Decision{Reason: access.ReasonFeatureDenied}, nil, nil
	default:
		return access.Decision{Allowed: resolved.Enabled, Reason: access.ReasonTierDefault}, nil, nil
	}
}

func (s *accessService) loadFeatureState(ctx context.Context, p *access.Principal, key access.ResourceKey) (access.EffectiveInput, error) {
	in := access.EffectiveInput{FeatureKey: key, Now: s.cfg.Now()}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	features, err := uow.FeatureRepository().FindAll(ctx)
	if err != nil {
		return in, err
	}
	tree := feature.BuildTree(features)
	node, ok := tree.Lookup(key)
	if !ok {
		return in, nil
	}
	in.Known = true
	in.Available = tree.Available(key)

	if p == nil {
		return in, nil
	}
	if p.HasTier() {
		if p.Tier() == access.TierDevAllAccess {
			in.TierDefault = true
		} else {
			row, err := uow.TierFeatureRepository().FindOne(ctx, p.Tier(), node.Id)
			if err != nil {
				return in, err
			}
			in.TierDefault = row != nil && row.IncludedByDefault
		}
	}

	o, err := uow.OverrideRepository().FindOne(ctx,
		specification.ByProfileID{ProfileID: p.Id},
		specification.ByFeatureID{FeatureID: node.Id},
	)
	if err != nil {
		return in, err
	}
	if o != nil {
		in.Override = &access.Override{Enabled: o.Enabled, ExpiresAt: o.ExpiresAt}
	}
	return in, nil
}

func (s *accessService) record(p *access.Principal, key access.ResourceKey, d access.Decision) {
	details := map[string]interface{}{
		"resource": key.String(),
		"allowed":  d.Allowed,
		"reason":   string(d.Reason),
	}
	if p != nil {
		details["user_id"] = p.Id.String()
		details["role"] = string(p.Role)
		details["tier"] = string(p.Tier())
	}

	switch {
	case d.Reason == access.ReasonUnknownResource:
		s.logger.Warn("ACCESS", "Access check for unconfigured resource", details)
		s.decisionLog.Warn("ACCESS", "Denied", details)
	case d.Reason == access.ReasonBreakGlass:
		s.logger.Warn("ACCESS", "Break-glass account used", details)
		s.decisionLog.Warn("ACCESS", "Allowed", details)
	case !d.Allowed:
		s.decisionLog.Info("ACCESS", "Denied", details)
	default:
		s.decisionLog.Debug("ACCESS", "Allowed", details)
	}
}

func (s *accessService) GetUserRole(p *access.Principal) *dto.UserRoleResponse {
	if p == nil {
		return nil
	}
	var tier *string
	if p.HasTier() {
		t := string(p.Tier())
		tier = &t
	}
	permissions := p.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return &dto.UserRoleResponse{
		Id:          p.Id,
		Email:       p.Email,
		Role:        string(p.Role),
		ProductTier: tier,
		Permissions: permissions,
		Status:      string(p.Status),
	}
}

func (s *accessService) EffectiveFeatures(ctx context.Context, p *access.Principal) ([]*dto.EffectiveFeatureResponse, error) {
	if p == nil {
		return []*dto.EffectiveFeatureResponse{}, nil
	}
	ctx, span := s.tracer.Start(ctx, "access.EffectiveFeatures")
	defer span.End()

	resolved, names, err := s.effectiveSet(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res := make([]*dto.EffectiveFeatureResponse, 0, len(resolved))
	for _, ef := range resolved {
		res = append(res, toEffectiveResponse(ef, names[ef.FeatureKey]))
	}
	return res, nil
}

func (s *accessService) EffectiveFeature(ctx context.Context, p *access.Principal, key access.ResourceKey) (*dto.EffectiveFeatureResponse, error) {
	key = access.NormalizeKey(key.String())
	if p == nil {
		return toEffectiveResponse(access.EffectiveFeature{FeatureKey: key, Source: access.SourceTier, Reason: access.ReasonAuthRequired}, ""), nil
	}
	resolved, names, err := s.effectiveSet(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, ef := range resolved {
		if ef.FeatureKey == key {
			return toEffectiveResponse(ef, names[key]), nil
		}
	}
	return toEffectiveResponse(access.ResolveEffective(access.EffectiveInput{FeatureKey: key}), ""), nil
}

func (s *accessService) EffectiveFeatureOf(ctx context.Context, profileId uuid.UUID, key access.ResourceKey) (*dto.EffectiveFeatureResponse, error) {
	p, err := s.ResolvePrincipal(ctx, profileId, "")
	if err != nil || p == nil {
		return nil, err
	}
	return s.EffectiveFeature(ctx, p, key)
}

// effectiveSet resolves every catalog feature for p, using the effective cache.
func (s *accessService) effectiveSet(ctx context.Context, p *access.Principal) ([]access.EffectiveFeature, map[access.ResourceKey]string, error) {
	names := make(map[access.ResourceKey]string)
	catalog := s.engine.Catalog()
	for _, key := range catalog.Keys() {
		names[key] = catalog.DisplayName(key)
	}

	now := s.cfg.Now()
	if cached, ok := s.effective.Get(ctx, p.Id, now); ok {
		s.metrics.CacheLookup("effective", true)
		return cached, names, nil
	}
	s.metrics.CacheLookup("effective", false)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	features, err := uow.FeatureRepository().FindAll(ctx, specification.OrderBy{Field: "sort_order"})
	if err != nil {
		return nil, nil, err
	}
	tree := feature.BuildTree(features)

	defaults := make(map[uuid.UUID]bool)
	if p.HasTier() && p.Tier() != access.TierDevAllAccess {
		rows, err := uow.TierFeatureRepository().FindAll(ctx, specification.ByTier{Tier: string(p.Tier())})
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			defaults[row.FeatureId] = row.IncludedByDefault
		}
	}

	overrides, err := uow.OverrideRepository().FindAll(ctx, specification.ByProfileID{ProfileID: p.Id})
	if err != nil {
		return nil, nil, err
	}
	byFeature := make(map[uuid.UUID]*entity.UserFeatureOverride, len(overrides))
	for _, o := range overrides {
		byFeature[o.FeatureId] = o
	}

	resolved := make([]access.EffectiveFeature, 0, len(features))
	for _, f := range features {
		key := access.NormalizeKey(f.Key)
		in := access.EffectiveInput{
			FeatureKey:  key,
			Known:       true,
			Available:   tree.Available(key),
			TierDefault: defaults[f.Id] || (p.HasTier() && p.Tier() == access.TierDevAllAccess),
			Now:         now,
		}
		if o, ok := byFeature[f.Id]; ok {
			in.Override = &access.Override{Enabled: o.Enabled, ExpiresAt: o.ExpiresAt}
		}
		resolved = append(resolved, access.ResolveEffective(in))
		if f.Name != "" {
			names[key] = f.Name
		}
	}

	s.effective.Set(ctx, p.Id, resolved)
	return resolved, names, nil
}

func toEffectiveResponse(ef access.EffectiveFeature, name string) *dto.EffectiveFeatureResponse {
	return &dto.EffectiveFeatureResponse{
		FeatureKey: ef.FeatureKey.String(),
		Name:       name,
		Enabled:    ef.Enabled,
		Source:     ef.Source,
		Reason:     ef.Reason,
		ExpiresAt:  ef.ExpiresAt,
	}
}

func (s *accessService) EvaluateGate(ctx context.Context, p *access.Principal, q dto.GateQuery) (access.GateResult, error) {
	var checkErr error
	result := access.EvaluateGate(access.GateInput{
		FeatureKey:  access.NormalizeKey(q.Key),
		Mode:        access.ParseGateMode(q.Mode),
		HasFallback: q.Fallback,
		Catalog:     s.engine.Catalog(),
		Check: func(key access.ResourceKey) bool {
			d, err := s.CheckFeature(ctx, p, key)
			if err != nil {
				checkErr = err
				return false
			}
			return d.Allowed
		},
	})
	return result, checkErr
}

func (s *accessService) EvaluateRoute(ctx context.Context, p *access.Principal, req dto.GuardRequest) (*dto.GuardResponse, error) {
	guard := &access.Guard{
		Principals: access.PrincipalLoaderFunc(func(context.Context) (*access.Principal, error) {
			return p, nil
		}),
		Features:    s,
		Catalog:     s.engine.Catalog(),
		Engine:      s.engine,
		SignInPath:  s.cfg.SignInPath,
		UpgradePath: s.cfg.UpgradePath,
	}

	res, err := guard.Run(ctx, access.GuardRoute{
		Path:               req.Path,
		FeatureKey:         access.NormalizeKey(req.FeatureKey),
		Resource:           access.NormalizeKey(req.Resource),
		RequireProductTier: req.RequireProductTier,
	})
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		s.logger.Error("ACCESS", "Route guard check failed, denying", map[string]interface{}{
			"path":  req.Path,
			"error": res.Err.Error(),
		})
	}
	s.metrics.GuardResult(res.State)
	return &dto.GuardResponse{State: res.State, Redirect: res.Redirect}, nil
}

func (s *accessService) Catalog(p *access.Principal) *dto.CatalogResponse {
	catalog := s.engine.Catalog()
	var tier *access.ProductTier
	if p != nil {
		tier = p.ProductTier
	}

	res := &dto.CatalogResponse{Version: access.CatalogVersion, Features: []dto.CatalogFeatureResponse{}}
	for _, key := range catalog.Keys() {
		tiers := catalog.AllowedTiers(key)
		names := make([]string, 0, len(tiers))
		for _, t := range tiers {
			names = append(names, string(t))
		}
		res.Features = append(res.Features, dto.CatalogFeatureResponse{
			Key:          key.String(),
			Name:         catalog.DisplayName(key),
			Tiers:        names,
			MinimumTier:  string(catalog.MinimumTier(key)),
			IncludedHere: catalog.HasFeatureAccess(tier, key),
		})
	}
	return res
}

func (s *accessService) Invalidate(ctx context.Context, profileId *uuid.UUID) {
	if profileId == nil {
		s.decisions.Flush()
		if err := s.effective.EvictAll(ctx); err != nil {
			s.logger.Warn("ACCESS", "Failed to evict shared effective cache", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	s.decisions.EvictProfile(*profileId)
	if err := s.effective.Evict(ctx, *profileId); err != nil {
		s.logger.Warn("ACCESS", "Failed to evict shared effective cache", map[string]interface{}{
			"profile_id": profileId.String(),
			"error":      err.Error(),
		})
	}
}
