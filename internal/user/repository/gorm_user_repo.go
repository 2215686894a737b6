package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Upsert inserts the user or refreshes its profile fields.
func (r *GormUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	now := time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "image", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return r.handleError(result.Error)
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Delete removes a user. Identity ids are never reused, so the row is
// deleted outright.
func (r *GormUserRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Query translates a directory query into SQL.
func (r *GormUserRepository) Query(ctx context.Context, q domain.DirectoryQuery) ([]domain.User, error) {
	q.Normalize()

	tx := r.db.WithContext(ctx).Model(&domain.UserModel{})
	if q.Filter != nil {
		where, args, err := sqlWhere(q.Filter)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(where, args...)
	}

	sortedByID := false
	for _, s := range q.Sort {
		col, err := sqlColumn(s.Field)
		if err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: s.Direction == directory.Descending})
		sortedByID = sortedByID || s.Field == directory.FieldID
	}
	// Ties on name would otherwise page non-deterministically.
	if !sortedByID {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}

	var models []domain.UserModel
	if err := tx.Limit(q.Limit).Offset(q.Offset).Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].ToDomain())
	}
	return users, nil
}

func sqlColumn(f directory.Field) (string, error) {
	switch f {
	case directory.FieldID:
		return "id", nil
	case directory.FieldName:
		return "name", nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, f)
	}
}

// likeEscaper escapes LIKE wildcards with '!', which every supported
// dialect accepts as an ESCAPE character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func sqlWhere(expr directory.FilterExpr) (string, []interface{}, error) {
	switch f := expr.(type) {
	case directory.Equals:
		col, err := sqlColumn(f.Field)
		return col + " = ?", []interface{}{f.Value}, err
	case directory.NotEquals:
		col, err := sqlColumn(f.Field)
		return col + " <> ?", []interface{}{f.Value}, err
	case directory.NotIn:
		col, err := sqlColumn(f.Field)
		if len(f.Values) == 0 {
			return "1 = 1", nil, err
		}
		return col + " NOT IN ?", []interface{}{f.Values}, err
	case directory.Autocomplete:
		col, err := sqlColumn(f.Field)
		prefix := likeEscaper.Replace(strings.ToLower(strings.TrimSpace(f.Prefix)))
		where := fmt.Sprintf("(LOWER(%[1]s) LIKE ? ESCAPE '!' OR LOWER(%[1]s) LIKE ? ESCAPE '!')", col)
		return where, []interface{}{prefix + "%", "% " + prefix + "%"}, err
	case directory.Or:
		return sqlJoin(f, " OR ")
	case directory.And:
		return sqlJoin(f, " AND ")
	default:
		return "", nil, fmt.Errorf("%w: unsupported filter %T", ErrInvalidQuery, expr)
	}
}

func sqlJoin(list []directory.FilterExpr, op string) (string, []interface{}, error) {
	if len(list) == 0 {
		return "", nil, fmt.Errorf("%w: empty clause list", ErrInvalidQuery)
	}
	parts := make([]string, 0, len(list))
	var args []interface{}
	for _, item := range list {
		where, a, err := sqlWhere(item)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, where)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, op) + ")", args, nil
}

// handleError converts database-specific errors to domain errors.
func (r *GormUserRepository) handleError(err error) error {
	errStr := err.Error()

	// PostgreSQL / SQLite / MySQL unique constraint violations
	if strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
	}

	return err
}
