package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/pkg/database"
	"github.com/divverma2003/convo-app/pkg/log"
)

const maxUpdateAttempts = 5

// GormChannelRepository implements ChannelRepository using GORM.
type GormChannelRepository struct {
	db *gorm.DB
}

// NewGormChannelRepository creates a new GORM-based channel repository.
func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// Create creates a new channel.
func (r *GormChannelRepository) Create(ctx context.Context, ch *domain.Channel) error {
	l := log.Ctx(ctx)

	model := domain.ChannelToModel(ch)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrChannelExists
		}
		l.Error().Err(result.Error).Str(log.FieldChannelID, ch.ID).Msg("failed to create channel in db")
		return result.Error
	}

	ch.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldChannelID, ch.ID).Msg("channel created in db")
	return nil
}

// GetByID retrieves a channel by ID.
func (r *GormChannelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	var model domain.ChannelModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateMembers rewrites the member list with optimistic concurrency: the
// update only lands if the column still holds the list fn was given.
func (r *GormChannelRepository) UpdateMembers(ctx context.Context, id string, fn MembersFunc) (*domain.Channel, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var model domain.ChannelModel
		if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrChannelNotFound
			}
			return nil, err
		}

		before, err := model.Members.Value()
		if err != nil {
			return nil, err
		}
		next := database.StringArray(fn(append([]string(nil), model.Members...)))

		result := r.db.WithContext(ctx).Model(&domain.ChannelModel{}).
			Where("id = ? AND members = ?", id, before).
			Update("members", next)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			model.Members = next
			return model.ToDomain(), nil
		}
	}
	return nil, ErrConflict
}

// ListDiscoverable returns every public channel.
func (r *GormChannelRepository) ListDiscoverable(ctx context.Context) ([]domain.Channel, error) {
	var models []domain.ChannelModel
	if err := r.db.WithContext(ctx).Where("discoverable = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomain(models), nil
}

// ListByMember returns the channels userID belongs to.
func (r *GormChannelRepository) ListByMember(ctx context.Context, userID string) ([]domain.Channel, error) {
	quoted, err := json.Marshal(userID)
	if err != nil {
		return nil, err
	}
	pattern := "%" + likeEscaper.Replace(string(quoted)) + "%"

	var models []domain.ChannelModel
	if err := r.db.WithContext(ctx).
		Where("members LIKE ? ESCAPE '!'", pattern).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, err
	}

	// LIKE is only a prefilter; confirm membership on the decoded list.
	out := make([]domain.Channel, 0, len(models))
	for _, ch := range toDomain(models) {
		if ch.HasMember(userID) {
			out = append(out, ch)
		}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func toDomain(models []domain.ChannelModel) []domain.Channel {
	out := make([]domain.Channel, 0, len(models))
	for i := range models {
		out = append(out, *models[i].ToDomain())
	}
	return out
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry")
}
