package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(255);index;not null"`
	Image     string    `gorm:"type:varchar(1024);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Image:     m.Image,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
