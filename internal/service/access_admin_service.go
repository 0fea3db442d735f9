package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/mapper"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/pkg/mailer"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"
	adminEvents "crm-access-be/pkg/admin/events"
	"crm-access-be/pkg/admin/feature"
	adminMapper "crm-access-be/pkg/admin/mapper"
	"crm-access-be/pkg/admin/override"
	"crm-access-be/pkg/admin/principal"
	"crm-access-be/pkg/admin/tier"

	"github.com/google/uuid"
)

// logTimeLayout matches zapcore.ISO8601TimeEncoder.
const logTimeLayout = "2006-01-02T15:04:05.000Z0700"

// AdminResource is the resource every admin path checks before acting.
const AdminResource access.ResourceKey = "admin_features"

type IAccessAdminService interface {
	// Feature catalog
	GetAllFeatures(ctx context.Context, actor *access.Principal) ([]*dto.FeatureResponse, error)
	GetFeatureTree(ctx context.Context, actor *access.Principal) ([]*dto.FeatureNode, error)
	GetFeature(ctx context.Context, actor *access.Principal, id uuid.UUID) (*dto.FeatureResponse, error)
	CreateFeature(ctx context.Context, actor *access.Principal, req dto.CreateFeatureRequest) (*dto.FeatureResponse, error)
	UpdateFeature(ctx context.Context, actor *access.Principal, id uuid.UUID, req dto.UpdateFeatureRequest) (*dto.FeatureResponse, error)
	DeleteFeature(ctx context.Context, actor *access.Principal, id uuid.UUID) error

	// Tier catalog
	GetTierFeatures(ctx context.Context, actor *access.Principal, tierName string) ([]*dto.TierFeatureResponse, error)
	AddTierFeature(ctx context.Context, actor *access.Principal, tierName string, req dto.TierFeatureRequest) (*dto.TierFeatureResponse, error)
	RemoveTierFeature(ctx context.Context, actor *access.Principal, tierName string, featureId uuid.UUID) error
	Drift(ctx context.Context, actor *access.Principal) (*dto.DriftResponse, error)

	// Principals and overrides
	GetProfiles(ctx context.Context, actor *access.Principal, q dto.ProfileListQuery) ([]*dto.ProfileResponse, int64, error)
	GetProfile(ctx context.Context, actor *access.Principal, id uuid.UUID) (*dto.ProfileResponse, error)
	UpdateAccess(ctx context.Context, actor *access.Principal, id uuid.UUID, req dto.UpdateAccessRequest) (*dto.ProfileResponse, error)
	GetOverrides(ctx context.Context, actor *access.Principal, profileId uuid.UUID) ([]*dto.OverrideResponse, error)
	GrantOverride(ctx context.Context, actor *access.Principal, profileId uuid.UUID, req dto.GrantOverrideRequest) (*dto.OverrideResponse, error)
	RevokeOverride(ctx context.Context, actor *access.Principal, profileId uuid.UUID, featureKey string) error

	// Decision log
	GetAccessLog(ctx context.Context, actor *access.Principal, q dto.AccessLogQuery) ([]*dto.AccessLogEntry, error)
}

type accessAdminService struct {
	uowFactory  unitofwork.RepositoryFactory
	engine      *access.Engine
	logger      logger.ILogger
	decisionLog logger.ILogger
	invalidator Invalidator
	publisher   adminEvents.Publisher
	mailer      mailer.IEmailService
	now         func() time.Time

	featureManager   *feature.Manager
	tierManager      *tier.Manager
	overrideManager  *override.Manager
	principalManager *principal.Manager
	tierRows         *mapper.TierFeatureMapper
}

func NewAccessAdminService(
	uowFactory unitofwork.RepositoryFactory,
	engine *access.Engine,
	logger logger.ILogger,
	decisionLog logger.ILogger,
	invalidator Invalidator,
	publisher adminEvents.Publisher,
	emailService mailer.IEmailService,
	featureManager *feature.Manager,
	tierManager *tier.Manager,
	overrideManager *override.Manager,
	principalManager *principal.Manager,
	now func() time.Time,
) IAccessAdminService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = adminEvents.NopPublisher{}
	}
	if emailService == nil {
		emailService = mailer.NopEmailService{}
	}
	return &accessAdminService{
		uowFactory:       uowFactory,
		engine:           engine,
		logger:           logger,
		decisionLog:      decisionLog,
		invalidator:      invalidator,
		publisher:        publisher,
		mailer:           emailService,
		now:              now,
		featureManager:   featureManager,
		tierManager:      tierManager,
		overrideManager:  overrideManager,
		principalManager: principalManager,
		tierRows:         mapper.NewTierFeatureMapper(),
	}
}

// authorize re-checks the admin resource on every call, independent of the
// route middleware.
func (s *accessAdminService) authorize(actor *access.Principal) error {
	decision := s.engine.CanAccess(actor, AdminResource)
	if decision.Allowed {
		return nil
	}
	details := map[string]interface{}{"reason": string(decision.Reason)}
	if actor != nil {
		details["user_id"] = actor.Id.String()
	}
	s.decisionLog.Warn("ADMIN", "Admin operation denied", details)
	return fmt.Errorf("%w: %s", admin.ErrForbidden, decision.Reason)
}

func actorId(actor *access.Principal) uuid.UUID {
	if actor == nil {
		return uuid.Nil
	}
	return actor.Id
}

func (s *accessAdminService) invalidate(ctx context.Context, profileId *uuid.UUID, cause string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, profileId, cause); err != nil {
		s.logger.Error("ADMIN", "Failed to publish invalidation", map[string]interface{}{"cause": cause, "error": err.Error()})
	}
}

// inTx runs fn inside one transaction on a fresh unit of work.
func (s *accessAdminService) inTx(ctx context.Context, fn func(uow unitofwork.UnitOfWork) error) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

// ============================================================================
// Feature Catalog
// ============================================================================

func (s *accessAdminService) GetAllFeatures(ctx context.Context, actor *access.Principal) ([]*dto.FeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	features, err := s.featureManager.GetAll(ctx, uow)
	if err != nil {
		return nil, err
	}
	return adminMapper.FeaturesToResponse(features), nil
}

func (s *accessAdminService) GetFeatureTree(ctx context.Context, actor *access.Principal) ([]*dto.FeatureNode, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tree, features, err := s.featureManager.Tree(ctx, uow)
	if err != nil {
		return nil, err
	}
	return adminMapper.FeaturesToTree(features, tree), nil
}

func (s *accessAdminService) GetFeature(ctx context.Context, actor *access.Principal, id uuid.UUID) (*dto.FeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	f, err := s.featureManager.Get(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	return adminMapper.FeatureToResponse(f), nil
}

func (s *accessAdminService) CreateFeature(ctx context.Context, actor *access.Principal, req dto.CreateFeatureRequest) (*dto.FeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	f, err := s.featureManager.Create(ctx, uow, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "Feature created", map[string]interface{}{"feature_key": f.Key, "actor_id": actorId(actor).String()})
	s.invalidate(ctx, nil, "feature_created")
	s.publisher.PublishFeatureChanged(ctx, f.Id, f.Key, "created", actorId(actor))
	return adminMapper.FeatureToResponse(f), nil
}

func (s *accessAdminService) UpdateFeature(ctx context.Context, actor *access.Principal, id uuid.UUID, req dto.UpdateFeatureRequest) (*dto.FeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	f, err := s.featureManager.Update(ctx, uow, id, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "Feature updated", map[string]interface{}{
		"feature_key": f.Key,
		"is_enabled":  f.IsEnabled,
		"actor_id":    actorId(actor).String(),
	})
	s.invalidate(ctx, nil, "feature_updated")
	s.publisher.PublishFeatureChanged(ctx, f.Id, f.Key, "updated", actorId(actor))
	return adminMapper.FeatureToResponse(f), nil
}

func (s *accessAdminService) DeleteFeature(ctx context.Context, actor *access.Principal, id uuid.UUID) error {
	if err := s.authorize(actor); err != nil {
		return err
	}

	var key string
	err := s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		f, err := s.featureManager.Delete(ctx, uow, id)
		if err != nil {
			return err
		}
		key = f.Key
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("ADMIN", "Feature deleted", map[string]interface{}{"feature_key": key, "actor_id": actorId(actor).String()})
	s.invalidate(ctx, nil, "feature_deleted")
	s.publisher.PublishFeatureChanged(ctx, id, key, "deleted", actorId(actor))
	return nil
}

// ============================================================================
// Tier Catalog
// ============================================================================

func (s *accessAdminService) GetTierFeatures(ctx context.Context, actor *access.Principal, tierName string) ([]*dto.TierFeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	t, err := tier.ParseTier(tierName)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := s.tierManager.ListFeatures(ctx, uow, t)
	if err != nil {
		return nil, err
	}
	return adminMapper.TierFeaturesToResponse(rows), nil
}

func (s *accessAdminService) AddTierFeature(ctx context.Context, actor *access.Principal, tierName string, req dto.TierFeatureRequest) (*dto.TierFeatureResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	t, err := tier.ParseTier(tierName)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := s.tierManager.AddFeature(ctx, uow, t, req)
	if err != nil {
		return nil, err
	}

	key := ""
	if row.Feature != nil {
		key = row.Feature.Key
	}
	s.logger.Info("ADMIN", "Tier feature set", map[string]interface{}{
		"tier":                string(t),
		"feature_key":         key,
		"included_by_default": row.IncludedByDefault,
		"actor_id":            actorId(actor).String(),
	})
	s.invalidate(ctx, nil, "tier_features_changed")
	s.publisher.PublishTierFeaturesChanged(ctx, string(t), key, "upserted", actorId(actor))
	return adminMapper.TierFeatureToResponse(row), nil
}

func (s *accessAdminService) RemoveTierFeature(ctx context.Context, actor *access.Principal, tierName string, featureId uuid.UUID) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	t, err := tier.ParseTier(tierName)
	if err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := s.tierManager.RemoveFeature(ctx, uow, t, featureId)
	if err != nil {
		return err
	}

	key := featureId.String()
	if row.Feature != nil {
		key = row.Feature.Key
	}
	s.logger.Info("ADMIN", "Tier feature removed", map[string]interface{}{"tier": string(t), "feature_key": key, "actor_id": actorId(actor).String()})
	s.invalidate(ctx, nil, "tier_features_changed")
	s.publisher.PublishTierFeaturesChanged(ctx, string(t), key, "removed", actorId(actor))
	return nil
}

// Drift compares the static catalog mirror with the authoritative tier rows.
func (s *accessAdminService) Drift(ctx context.Context, actor *access.Principal) (*dto.DriftResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := s.tierManager.AllRows(ctx, uow)
	if err != nil {
		return nil, err
	}
	drift := s.engine.Catalog().Diff(s.tierRows.ToCatalogRows(rows))
	return adminMapper.DriftToResponse(access.CatalogVersion, drift), nil
}

// ============================================================================
// Principals & Overrides
// ============================================================================

func (s *accessAdminService) GetProfiles(ctx context.Context, actor *access.Principal, q dto.ProfileListQuery) ([]*dto.ProfileResponse, int64, error) {
	if err := s.authorize(actor); err != nil {
		return nil, 0, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profiles, total, err := s.principalManager.List(ctx, uow, q)
	if err != nil {
		return nil, 0, err
	}
	return adminMapper.ProfilesToResponse(profiles), total, nil
}

func (s *accessAdminService) GetProfile(ctx context.Context, actor *access.Principal, id uuid.UUID) (*dto.ProfileResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	p, err := s.principalManager.Get(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	return adminMapper.ProfileToResponse(p), nil
}

func (s *accessAdminService) UpdateAccess(ctx context.Context, actor *access.Principal, id uuid.UUID, req dto.UpdateAccessRequest) (*dto.ProfileResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	change, err := s.principalManager.UpdateAccess(ctx, uow, id, req)
	if err != nil {
		return nil, err
	}
	if !change.Changed {
		return adminMapper.ProfileToResponse(change.After), nil
	}

	s.invalidate(ctx, &id, "principal_access_changed")
	s.publisher.PublishPrincipalAccessChanged(ctx, id, accessSnapshot(change.Before.Role, change.Before.ProductTier, change.Before.Status),
		accessSnapshot(change.After.Role, change.After.ProductTier, change.After.Status), actorId(actor))

	tierName := ""
	if change.After.ProductTier != nil {
		tierName = string(*change.After.ProductTier)
	}
	if err := s.mailer.SendAccessChanged(change.After.Email, string(change.After.Role), tierName); err != nil {
		s.logger.Warn("ADMIN", "Access change mail failed", map[string]interface{}{"profile_id": id.String(), "error": err.Error()})
	}
	return adminMapper.ProfileToResponse(change.After), nil
}

func accessSnapshot(role access.Role, t *access.ProductTier, status access.Status) map[string]interface{} {
	snapshot := map[string]interface{}{"role": string(role), "status": string(status), "product_tier": nil}
	if t != nil {
		snapshot["product_tier"] = string(*t)
	}
	return snapshot
}

func (s *accessAdminService) GetOverrides(ctx context.Context, actor *access.Principal, profileId uuid.UUID) ([]*dto.OverrideResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	overrides, err := s.overrideManager.List(ctx, uow, profileId)
	if err != nil {
		return nil, err
	}
	return adminMapper.OverridesToResponse(overrides, s.now()), nil
}

func (s *accessAdminService) GrantOverride(ctx context.Context, actor *access.Principal, profileId uuid.UUID, req dto.GrantOverrideRequest) (*dto.OverrideResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	grantedBy := actorId(actor)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	o, err := s.overrideManager.Grant(ctx, uow, profileId, &grantedBy, req)
	if err != nil {
		return nil, err
	}

	key := access.NormalizeKey(req.FeatureKey).String()
	s.logger.Info("ADMIN", "Feature override granted", map[string]interface{}{
		"profile_id":  profileId.String(),
		"feature_key": key,
		"enabled":     o.Enabled,
		"actor_id":    grantedBy.String(),
	})
	s.invalidate(ctx, &profileId, "override_granted")
	s.publisher.PublishOverrideChanged(ctx, profileId, key, "granted", grantedBy)
	s.notifyOverride(ctx, profileId, o.Feature.Name, o.Enabled, o.ExpiresAt)
	return adminMapper.OverrideToResponse(o, s.now()), nil
}

func (s *accessAdminService) notifyOverride(ctx context.Context, profileId uuid.UUID, featureName string, enabled bool, expiresAt *time.Time) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	p, err := s.principalManager.Get(ctx, uow, profileId)
	if err != nil {
		return
	}
	if err := s.mailer.SendOverrideNotice(p.Email, featureName, enabled, expiresAt); err != nil {
		s.logger.Warn("ADMIN", "Override mail failed", map[string]interface{}{"profile_id": profileId.String(), "error": err.Error()})
	}
}

func (s *accessAdminService) RevokeOverride(ctx context.Context, actor *access.Principal, profileId uuid.UUID, featureKey string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.overrideManager.Revoke(ctx, uow, profileId, featureKey); err != nil {
		return err
	}

	key := access.NormalizeKey(featureKey).String()
	s.logger.Info("ADMIN", "Feature override revoked", map[string]interface{}{
		"profile_id":  profileId.String(),
		"feature_key": key,
		"actor_id":    actorId(actor).String(),
	})
	s.invalidate(ctx, &profileId, "override_revoked")
	s.publisher.PublishOverrideChanged(ctx, profileId, key, "revoked", actorId(actor))
	return nil
}

// ============================================================================
// Decision Log
// ============================================================================

func (s *accessAdminService) GetAccessLog(ctx context.Context, actor *access.Principal, q dto.AccessLogQuery) ([]*dto.AccessLogEntry, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	entries, err := s.decisionLog.GetLogs(strings.ToUpper(q.Level), limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.AccessLogEntry, 0, len(entries))
	for _, e := range entries {
		ts, _ := time.Parse(logTimeLayout, e.Timestamp)
		res = append(res, &dto.AccessLogEntry{
			Id:        e.Id,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Details:   e.Details,
			CreatedAt: ts,
		})
	}
	return res, nil
}
