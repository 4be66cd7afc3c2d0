package repository

import (
	"context"
	"errors"

	"github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) ListAcls(ctx context.Context, filter domain.AclFilter) ([]domain.AccessControlList, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.AccessControlList{})
	if filter.OrganizationID != nil {
		if filter.IncludeGlobal {
			stmt = stmt.Where("organization_id = ? OR organization_id IS NULL", *filter.OrganizationID)
		} else {
			stmt = stmt.Where("organization_id = ?", *filter.OrganizationID)
		}
	}

	var acls []domain.AccessControlList
	if err := stmt.Order("id ASC").Find(&acls).Error; err != nil {
		return nil, err
	}
	return acls, nil
}

func (r *repository) GetAcl(ctx context.Context, id snowflake.ID) (*domain.AccessControlList, error) {
	var acl domain.AccessControlList
	if err := r.take(ctx, &acl, id); err != nil || acl.ID == 0 {
		return nil, err
	}
	return &acl, nil
}

func (r *repository) InsertAcl(ctx context.Context, acl domain.AccessControlList) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO access_control_lists (id, name, description, organization_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		acl.ID,
		acl.Name,
		acl.Description,
		acl.OrganizationID,
		acl.CreatedAt,
		acl.UpdatedAt,
	).Error
}

func (r *repository) UpdateAcl(ctx context.Context, acl domain.AccessControlList) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE access_control_lists SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		acl.Name,
		acl.Description,
		acl.UpdatedAt,
		acl.ID,
	).Error
}

func (r *repository) DeleteAcl(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM access_control_lists WHERE id = ?`, id).Error
}

func (r *repository) ListRules(ctx context.Context, aclID snowflake.ID) ([]domain.AclRule, error) {
	var rules []domain.AclRule
	err := r.db.WithContext(ctx).
		Where("acl_id = ?", aclID).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) GetRule(ctx context.Context, id snowflake.ID) (*domain.AclRule, error) {
	var rule domain.AclRule
	if err := r.take(ctx, &rule, id); err != nil || rule.ID == 0 {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) InsertRule(ctx context.Context, rule domain.AclRule) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO acl_rules (id, acl_id, resource_type, resource_id, permission, conditions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.AclID,
		rule.ResourceType,
		rule.ResourceID,
		rule.Permission,
		conditionsValue(rule),
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repository) UpdateRule(ctx context.Context, rule domain.AclRule) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE acl_rules
		 SET resource_type = ?, resource_id = ?, permission = ?, conditions = ?, updated_at = ?
		 WHERE id = ?`,
		rule.ResourceType,
		rule.ResourceID,
		rule.Permission,
		conditionsValue(rule),
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repository) DeleteRule(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM acl_rules WHERE id = ?`, id).Error
}

func (r *repository) DeleteRulesByAcl(ctx context.Context, aclID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM acl_rules WHERE acl_id = ?`, aclID).Error
}

func (r *repository) ListAssignments(ctx context.Context, aclID snowflake.ID) ([]domain.AclAssignment, error) {
	var assignments []domain.AclAssignment
	err := r.db.WithContext(ctx).
		Where("acl_id = ?", aclID).
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) GetAssignment(ctx context.Context, id snowflake.ID) (*domain.AclAssignment, error) {
	var assignment domain.AclAssignment
	if err := r.take(ctx, &assignment, id); err != nil || assignment.ID == 0 {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) InsertAssignment(ctx context.Context, a domain.AclAssignment) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO acl_assignments (id, acl_id, user_id, team_id, organization_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.AclID,
		a.UserID,
		a.TeamID,
		a.OrganizationID,
		a.CreatedAt,
	).Error
}

func (r *repository) DeleteAssignment(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM acl_assignments WHERE id = ?`, id).Error
}

func (r *repository) DeleteAssignmentsByAcl(ctx context.Context, aclID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM acl_assignments WHERE acl_id = ?`, aclID).Error
}

func (r *repository) ListMemberships(ctx context.Context, userID snowflake.ID) ([]snowflake.ID, []snowflake.ID, error) {
	var orgIDs []snowflake.ID
	err := r.db.WithContext(ctx).
		Table("organization_members").
		Where("user_id = ?", userID).
		Distinct().
		Pluck("organization_id", &orgIDs).Error
	if err != nil {
		return nil, nil, err
	}

	var teamIDs []snowflake.ID
	err = r.db.WithContext(ctx).
		Table("team_members").
		Where("user_id = ?", userID).
		Distinct().
		Pluck("team_id", &teamIDs).Error
	if err != nil {
		return nil, nil, err
	}
	return orgIDs, teamIDs, nil
}

func (r *repository) ListReachableAclIDs(ctx context.Context, userID snowflake.ID, orgIDs, teamIDs []snowflake.ID) ([]snowflake.ID, error) {
	principals := r.db.Where("user_id = ?", userID)
	if len(orgIDs) > 0 {
		principals = principals.Or("organization_id IN ?", orgIDs)
	}
	if len(teamIDs) > 0 {
		principals = principals.Or("team_id IN ?", teamIDs)
	}

	var aclIDs []snowflake.ID
	err := r.db.WithContext(ctx).
		Table("acl_assignments").
		Where(principals).
		Distinct().
		Order("acl_id ASC").
		Pluck("acl_id", &aclIDs).Error
	if err != nil {
		return nil, err
	}
	return aclIDs, nil
}

func (r *repository) ListMatchingPermissions(ctx context.Context, match domain.RuleMatch) ([]domain.Permission, error) {
	if len(match.AclIDs) == 0 {
		return nil, nil
	}

	stmt := r.db.WithContext(ctx).
		Table("acl_rules").
		Where("acl_id IN ?", match.AclIDs).
		Where("resource_type = ?", match.ResourceType)
	if match.ResourceID != nil {
		stmt = stmt.Where("resource_id IS NULL OR resource_id = ?", *match.ResourceID)
	} else {
		stmt = stmt.Where("resource_id IS NULL")
	}

	var permissions []domain.Permission
	if err := stmt.Pluck("permission", &permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repository) take(ctx context.Context, dest any, id snowflake.ID) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func conditionsValue(rule domain.AclRule) any {
	if len(rule.Conditions) == 0 {
		return nil
	}
	return rule.Conditions
}
