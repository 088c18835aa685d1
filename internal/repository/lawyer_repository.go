package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"casecounsel/internal/model"
)

type LawyerRepository struct {
	db *gorm.DB
}

func NewLawyerRepository(db *gorm.DB) *LawyerRepository {
	return &LawyerRepository{db: db}
}

func (r *LawyerRepository) Create(lawyer *model.Lawyer) error {
	if err := r.db.Create(lawyer).Error; err != nil {
		return fmt.Errorf("create lawyer failed: %w", err)
	}
	return nil
}

func (r *LawyerRepository) Update(lawyer *model.Lawyer) error {
	if err := r.db.Save(lawyer).Error; err != nil {
		return fmt.Errorf("update lawyer failed: %w", err)
	}
	return nil
}

func (r *LawyerRepository) GetByID(id uint) (*model.Lawyer, error) {
	var lawyer model.Lawyer
	if err := r.db.First(&lawyer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query lawyer by id failed: %w", err)
	}
	return &lawyer, nil
}

func (r *LawyerRepository) GetByUserID(userID uint) (*model.Lawyer, error) {
	var lawyer model.Lawyer
	if err := r.db.Where("user_id = ?", userID).First(&lawyer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query lawyer by user id failed: %w", err)
	}
	return &lawyer, nil
}

// Search matches q against name and specialty, optionally narrowed by city.
func (r *LawyerRepository) Search(q, city string, limit int) ([]model.Lawyer, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Model(&model.Lawyer{})
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("name LIKE ? OR specialty LIKE ?", like, like)
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}

	var lawyers []model.Lawyer
	if err := query.Limit(limit).Order("years_experience DESC, id ASC").Find(&lawyers).Error; err != nil {
		return nil, fmt.Errorf("search lawyers failed: %w", err)
	}
	return lawyers, nil
}

// ListInBoundingBox returns candidates for a nearby search; the service
// refines the coarse box with exact distances.
func (r *LawyerRepository) ListInBoundingBox(minLat, maxLat, minLng, maxLng float64) ([]model.Lawyer, error) {
	var lawyers []model.Lawyer
	err := r.db.
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Find(&lawyers).Error
	if err != nil {
		return nil, fmt.Errorf("list lawyers in bounding box failed: %w", err)
	}
	return lawyers, nil
}
