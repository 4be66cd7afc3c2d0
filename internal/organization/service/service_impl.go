package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bell24h/bell24h/internal/cache"
	"github.com/bell24h/bell24h/internal/clock"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	"github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bell24h/bell24h/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Cache   *cache.PermissionCache `optional:"true"`
	Metrics *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	cache   *cache.PermissionCache
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("organization.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		cache:   p.Cache,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateOrganization(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	org := domain.Organization{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: normalizeOptional(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		orgSlug, err := s.uniqueSlug(ctx, repo, name)
		if err != nil {
			return err
		}
		org.Slug = orgSlug

		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, domain.OrganizationMember{
			ID:             s.genID.Generate(),
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           domain.RoleOwner,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.membershipChanged(ctx, "organization_member", "create")
	s.log.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug),
	)
	return &org, nil
}

func (s *Service) uniqueSlug(ctx context.Context, repo domain.Repository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return base + "-" + s.genID.Generate().String(), nil
}

func (s *Service) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *Service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (*domain.OrganizationMember, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	role, ok := domain.NormalizeOrganizationRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	member := domain.OrganizationMember{
		ID:             s.genID.Generate(),
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, err
	}

	s.membershipChanged(ctx, "organization_member", "create")
	return &member, nil
}

func (s *Service) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if err := s.repo.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}
	s.membershipChanged(ctx, "organization_member", "delete")
	return nil
}

func (s *Service) CreateTeam(ctx context.Context, req domain.CreateTeamRequest) (*domain.Team, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if _, err := s.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	team := domain.Team{
		ID:             s.genID.Generate(),
		Name:           name,
		OrganizationID: req.OrganizationID,
		Description:    normalizeOptional(req.Description),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *Service) GetTeam(ctx context.Context, id snowflake.ID) (*domain.Team, error) {
	if id == 0 {
		return nil, domain.ErrInvalidTeam
	}
	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, domain.ErrTeamNotFound
	}
	return team, nil
}

func (s *Service) ListTeams(ctx context.Context, orgID snowflake.ID) ([]domain.Team, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.ListTeams(ctx, orgID)
}

func (s *Service) AddTeamMember(ctx context.Context, req domain.AddTeamMemberRequest) (*domain.TeamMember, error) {
	if req.TeamID == 0 {
		return nil, domain.ErrInvalidTeam
	}
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	role, ok := domain.NormalizeTeamRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.GetTeam(ctx, req.TeamID); err != nil {
		return nil, err
	}

	member := domain.TeamMember{
		ID:        s.genID.Generate(),
		TeamID:    req.TeamID,
		UserID:    req.UserID,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.AddTeamMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, err
	}

	s.membershipChanged(ctx, "team_member", "create")
	return &member, nil
}

func (s *Service) RemoveTeamMember(ctx context.Context, teamID, userID snowflake.ID) error {
	if teamID == 0 {
		return domain.ErrInvalidTeam
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if err := s.repo.RemoveTeamMember(ctx, teamID, userID); err != nil {
		return err
	}
	s.membershipChanged(ctx, "team_member", "delete")
	return nil
}

// membershipChanged runs after every write that can change which ACLs a user reaches.
func (s *Service) membershipChanged(ctx context.Context, entity, operation string) {
	s.cache.Invalidate(ctx)
	s.metrics.RecordMutation(ctx, entity, operation)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
