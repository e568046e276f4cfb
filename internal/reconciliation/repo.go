package reconciliation

import (
	"context"

	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for reconciliation links. The link set
// is derived state, so writes replace it wholesale instead of patching
// individual rows.
type Repository interface {
	ReplaceAll(ctx context.Context, links []models.Link) error
	List(ctx context.Context) ([]models.Link, error)
	ListByPaymentID(ctx context.Context, paymentID string) ([]models.Link, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a link repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ReplaceAll(ctx context.Context, links []models.Link) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Link{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		return tx.CreateInBatches(links, 200).Error
	})
}

func (r *repository) List(ctx context.Context) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).
		Order("transaction_id ASC, payment_id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) ListByPaymentID(ctx context.Context, paymentID string) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("transaction_id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
