package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	domainerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
	"choices/contexts/polling-core/tabulation-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads ballots and polls as projections owned by the sibling
// polling-core services, plus its own event dedup table.
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

func (r *Repository) ListBallotsByPoll(ctx context.Context, pollID string) ([]entities.Ballot, error) {
	var rows []ballotProjectionModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("cast_at ASC, sequence ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_ballots_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, r.logError("tally_repo_ballot_decode_failed", err, "ballot_id", row.ID)
		}
		items = append(items, ballot)
	}
	return items, nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (ports.PollProjection, error) {
	var row pollProjectionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PollProjection{}, domainerrors.ErrPollNotFound
		}
		return ports.PollProjection{}, r.logError("tally_repo_get_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return row.toProjection()
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("tally_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("tally_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling-core/tabulation-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tabulation repository operation failed", fields...)
	return err
}

type ballotProjectionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	PollID    string    `gorm:"column:poll_id"`
	VoterID   string    `gorm:"column:voter_id"`
	Method    string    `gorm:"column:method"`
	Selection []byte    `gorm:"column:selection;type:jsonb"`
	Sequence  int64     `gorm:"column:sequence"`
	CastAt    time.Time `gorm:"column:cast_at"`
}

func (ballotProjectionModel) TableName() string {
	return "ballots"
}

func (m ballotProjectionModel) toEntity() (entities.Ballot, error) {
	var selection entities.Selection
	if len(m.Selection) > 0 {
		if err := json.Unmarshal(m.Selection, &selection); err != nil {
			return entities.Ballot{}, err
		}
	}
	return entities.Ballot{
		BallotID:  m.ID,
		PollID:    m.PollID,
		VoterID:   m.VoterID,
		Method:    m.Method,
		Selection: selection,
		Sequence:  m.Sequence,
		CastAt:    m.CastAt.UTC(),
	}, nil
}

type pollProjectionModel struct {
	ID      string `gorm:"column:id;primaryKey"`
	Status  string `gorm:"column:status"`
	Method  string `gorm:"column:method"`
	Options []byte `gorm:"column:options;type:jsonb"`
	Config  []byte `gorm:"column:config;type:jsonb"`
}

func (pollProjectionModel) TableName() string {
	return "polls"
}

func (m pollProjectionModel) toProjection() (ports.PollProjection, error) {
	var options []struct {
		OptionID string `json:"option_id"`
	}
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &options); err != nil {
			return ports.PollProjection{}, err
		}
	}
	var config struct {
		MinScore float64 `json:"min_score"`
		MaxScore float64 `json:"max_score"`
	}
	if len(m.Config) > 0 {
		if err := json.Unmarshal(m.Config, &config); err != nil {
			return ports.PollProjection{}, err
		}
	}
	optionIDs := make([]string, 0, len(options))
	for _, option := range options {
		optionIDs = append(optionIDs, option.OptionID)
	}
	return ports.PollProjection{
		PollID:    m.ID,
		Status:    m.Status,
		Method:    m.Method,
		OptionIDs: optionIDs,
		MinScore:  config.MinScore,
		MaxScore:  config.MaxScore,
	}, nil
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "tally_event_dedup"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.BallotReader = (*Repository)(nil)
var _ ports.PollReader = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
