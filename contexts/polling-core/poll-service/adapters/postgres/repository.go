package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"choices/contexts/polling-core/poll-service/domain/entities"
	domainerrors "choices/contexts/polling-core/poll-service/domain/errors"
	"choices/contexts/polling-core/poll-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) SavePoll(ctx context.Context, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return r.logError("poll_repo_save_marshal_failed", err, "poll_id", strings.TrimSpace(poll.PollID))
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":          row.Title,
			"description":    row.Description,
			"options":        row.Options,
			"method":         row.Method,
			"config":         row.Config,
			"privacy":        row.Privacy,
			"status":         row.Status,
			"epsilon_budget": row.EpsilonBudget,
			"k_threshold":    row.KThreshold,
			"activated_at":   row.ActivatedAt,
			"closed_at":      row.ClosedAt,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("poll_repo_save_failed", create.Error,
			"poll_id", strings.TrimSpace(poll.PollID),
			"status", string(poll.Status),
		)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("poll_repo_get_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return row.toEntity()
}

func (r *Repository) ListPolls(ctx context.Context, status entities.PollStatus) ([]entities.Poll, error) {
	tx := r.db.WithContext(ctx).Model(&pollModel{})
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	var rows []pollModel
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_failed", err, "status", string(status))
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		poll, err := row.toEntity()
		if err != nil {
			return nil, r.logError("poll_repo_list_decode_failed", err, "poll_id", row.ID)
		}
		items = append(items, poll)
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("poll_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("poll_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		PollID:      row.PollID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		PollID:      strings.TrimSpace(record.PollID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("poll_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("poll_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.PollID != row.PollID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling-core/poll-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

type pollModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Title         string     `gorm:"column:title"`
	Description   string     `gorm:"column:description"`
	Options       []byte     `gorm:"column:options;type:jsonb"`
	Method        string     `gorm:"column:method"`
	Config        []byte     `gorm:"column:config;type:jsonb"`
	Privacy       string     `gorm:"column:privacy"`
	Status        string     `gorm:"column:status"`
	EpsilonBudget float64    `gorm:"column:epsilon_budget"`
	KThreshold    int        `gorm:"column:k_threshold"`
	CreatorID     string     `gorm:"column:creator_id"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
	ClosedAt      *time.Time `gorm:"column:closed_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func pollModelFromEntity(poll entities.Poll) (pollModel, error) {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return pollModel{}, err
	}
	config, err := json.Marshal(poll.Config)
	if err != nil {
		return pollModel{}, err
	}
	row := pollModel{
		ID:            strings.TrimSpace(poll.PollID),
		Title:         strings.TrimSpace(poll.Title),
		Description:   strings.TrimSpace(poll.Description),
		Options:       options,
		Method:        string(poll.Method),
		Config:        config,
		Privacy:       string(poll.Privacy),
		Status:        string(poll.Status),
		EpsilonBudget: poll.EpsilonBudget,
		KThreshold:    poll.KThreshold,
		CreatorID:     strings.TrimSpace(poll.CreatorID),
		CreatedAt:     poll.CreatedAt.UTC(),
		ActivatedAt:   normalizeOptionalTime(poll.ActivatedAt),
		ClosedAt:      normalizeOptionalTime(poll.ClosedAt),
		UpdatedAt:     poll.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m pollModel) toEntity() (entities.Poll, error) {
	var options []entities.Option
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &options); err != nil {
			return entities.Poll{}, err
		}
	}
	var config entities.MethodConfig
	if len(m.Config) > 0 {
		if err := json.Unmarshal(m.Config, &config); err != nil {
			return entities.Poll{}, err
		}
	}
	return entities.Poll{
		PollID:        m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Options:       options,
		Method:        entities.VotingMethod(m.Method),
		Config:        config,
		Privacy:       entities.PrivacyLevel(m.Privacy),
		Status:        entities.PollStatus(m.Status),
		EpsilonBudget: m.EpsilonBudget,
		KThreshold:    m.KThreshold,
		CreatorID:     m.CreatorID,
		CreatedAt:     m.CreatedAt.UTC(),
		ActivatedAt:   normalizeOptionalTime(m.ActivatedAt),
		ClosedAt:      normalizeOptionalTime(m.ClosedAt),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}, nil
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	PollID      string    `gorm:"column:poll_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "poll_service_idempotency"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
