package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"casecounsel/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetOrCreate(clientID, lawyerID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("client_id = ? AND lawyer_id = ?", clientID, lawyerID).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query conversation failed: %w", err)
	}

	conv = model.Conversation{ClientID: clientID, LawyerID: lawyerID}
	if err := r.db.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation failed: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) GetByID(id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query conversation by id failed: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) ListByUserID(userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.
		Where("client_id = ? OR lawyer_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return convs, nil
}
