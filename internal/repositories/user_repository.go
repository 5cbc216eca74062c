package repositories

import (
	"time"

	"gorm.io/gorm"

	"loopchat_backend/internal/models"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ids []string) ([]models.User, error) {
	var users []models.User
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(user *models.User) error {
	return r.DB.Save(user).Error
}

// SetOnline flips the online flag; lastSeen is stamped on disconnect only.
func (r *UserRepository) SetOnline(id string, online bool, lastSeen *time.Time) error {
	updates := map[string]interface{}{"is_online": online}
	if lastSeen != nil {
		updates["last_seen_at"] = *lastSeen
	}
	return r.DB.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}
