package domain

import (
	"time"

	"github.com/divverma2003/convo-app/pkg/database"
)

// ChannelModel is the GORM model for channels table.
type ChannelModel struct {
	ID           string               `gorm:"type:varchar(64);primaryKey"`
	Type         string               `gorm:"type:varchar(20);not null;default:'messaging'"`
	Name         string               `gorm:"type:varchar(64)"`
	Description  string               `gorm:"type:text"`
	CreatedByID  string               `gorm:"type:varchar(64);index;not null"`
	Members      database.StringArray `gorm:"type:text"`
	Private      bool                 `gorm:"not null;default:false"`
	Discoverable bool                 `gorm:"index;not null;default:false"`
	Visibility   string               `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ChannelModel.
func (ChannelModel) TableName() string {
	return "channels"
}

// ToDomain converts ChannelModel to domain Channel.
func (m *ChannelModel) ToDomain() *Channel {
	members := []string(m.Members)
	if members == nil {
		members = []string{}
	}
	return &Channel{
		ID:           m.ID,
		Type:         m.Type,
		Name:         m.Name,
		Description:  m.Description,
		CreatedByID:  m.CreatedByID,
		Members:      members,
		Private:      m.Private,
		Discoverable: m.Discoverable,
		Visibility:   Visibility(m.Visibility),
		CreatedAt:    m.CreatedAt,
	}
}

// ChannelToModel converts domain Channel to ChannelModel.
func ChannelToModel(c *Channel) *ChannelModel {
	return &ChannelModel{
		ID:           c.ID,
		Type:         c.Type,
		Name:         c.Name,
		Description:  c.Description,
		CreatedByID:  c.CreatedByID,
		Members:      database.StringArray(c.Members),
		Private:      c.Private,
		Discoverable: c.Discoverable,
		Visibility:   string(c.Visibility),
		CreatedAt:    c.CreatedAt,
	}
}
