package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingEntity "backoffice.GO/model/entity/billing"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ReservationFilter narrows List. Zero values are ignored.
type ReservationFilter struct {
	Status     billingEntity.ReservationStatus
	ClientName string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

func (r *ReservationRepository) FindByID(ctx context.Context, id uint) (*billingEntity.Reservation, error) {
	var res billingEntity.Reservation
	if err := r.db.WithContext(ctx).Preload("Items").First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// LockByID loads a reservation FOR UPDATE inside tx, then its items.
func LockByID(tx *gorm.DB, id uint) (*billingEntity.Reservation, error) {
	var res billingEntity.Reservation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&res, id).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("reservation_id = ?", id).Order("id").Find(&res.Items).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter) ([]billingEntity.Reservation, error) {
	q := r.db.WithContext(ctx).Model(&billingEntity.Reservation{}).Preload("Items")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientName != "" {
		q = q.Where("client_name LIKE ?", "%"+f.ClientName+"%")
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []billingEntity.Reservation
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// OverdueIDs returns active reservations whose due date passed before now.
func (r *ReservationRepository) OverdueIDs(ctx context.Context, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&billingEntity.Reservation{}).
		Where("status = ? AND due_date < ?", billingEntity.ReservationActive, now).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// Expire moves the given reservations from active to expired and returns
// the ids that actually transitioned.
func (r *ReservationRepository) Expire(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var moved []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&billingEntity.Reservation{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND status = ?", ids, billingEntity.ReservationActive).
			Pluck("id", &moved).Error; err != nil {
			return err
		}
		if len(moved) == 0 {
			return nil
		}
		return tx.Model(&billingEntity.Reservation{}).
			Where("id IN ?", moved).
			Update("status", billingEntity.ReservationExpired).Error
	})
	return moved, err
}
