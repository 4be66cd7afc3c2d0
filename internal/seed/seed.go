package seed

import (
	"context"
	"errors"
	"time"

	organizationdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	platformOrgName = "Platform"
	platformOrgSlug = "platform"
)

// EnsurePlatformOrg creates the organization whose managers administer
// global ACLs. When ownerUserID is set that user is made its owner.
func EnsurePlatformOrg(db *gorm.DB, node *snowflake.Node, orgID, ownerUserID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}
	if orgID == 0 {
		return errors.New("platform organization id is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureOrgTx(ctx, tx, orgID); err != nil {
			return err
		}
		if ownerUserID == 0 {
			return nil
		}
		return ensureOwnerTx(ctx, tx, node, orgID, ownerUserID)
	})
}

func ensureOrgTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        orgID,
		Name:      platformOrgName,
		Slug:      platformOrgSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&org).Error
}

func ensureOwnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID) error {
	var member organizationdomain.OrganizationMember
	err := tx.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := time.Now().UTC()
	member = organizationdomain.OrganizationMember{
		ID:             node.Generate(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           organizationdomain.RoleOwner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return tx.WithContext(ctx).Create(&member).Error
}
