package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	domainerrors "choices/contexts/privacy-analytics/privacy-service/domain/errors"
	"choices/contexts/privacy-analytics/privacy-service/ports"

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

// Spend runs the whole charge in one transaction: lazily seed the ledger row,
// reserve the query key, then conditionally increment consumed. The guarded
// UPDATE is the atomic check-and-spend; losing it rolls the entry back so a
// rejected request charges nothing.
func (r *Repository) Spend(ctx context.Context, req ports.SpendRequest) (ports.SpendResult, error) {
	pollID := strings.TrimSpace(req.PollID)
	entry := req.Entry
	var result ports.SpendResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := ledgerModel{
			PollID:    pollID,
			Allocated: req.Allocated,
			UpdatedAt: entry.RequestedAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		entryRow := ledgerEntryModel{
			ID:          strings.TrimSpace(entry.EntryID),
			PollID:      pollID,
			QueryKey:    strings.TrimSpace(entry.QueryKey),
			Context:     string(entry.Context),
			Epsilon:     entry.Epsilon,
			RequestedAt: entry.RequestedAt.UTC(),
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "query_key"}},
			DoNothing: true,
		}).Create(&entryRow)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected == 0 {
			var existing ledgerEntryModel
			if err := tx.Where("query_key = ?", entryRow.QueryKey).First(&existing).Error; err != nil {
				return err
			}
			if existing.PollID != pollID || existing.Epsilon != entryRow.Epsilon {
				return domainerrors.ErrConflict
			}
			var ledger ledgerModel
			if err := tx.Where("poll_id = ?", pollID).First(&ledger).Error; err != nil {
				return err
			}
			result = ports.SpendResult{Ledger: ledger.toEntity(), Replayed: true}
			return nil
		}

		update := tx.Model(&ledgerModel{}).
			Where("poll_id = ? AND consumed + ? <= allocated", pollID, entry.Epsilon).
			Updates(map[string]any{
				"consumed":   gorm.Expr("consumed + ?", entry.Epsilon),
				"updated_at": entry.RequestedAt.UTC(),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return domainerrors.ErrBudgetExceeded
		}

		var ledger ledgerModel
		if err := tx.Where("poll_id = ?", pollID).First(&ledger).Error; err != nil {
			return err
		}
		result = ports.SpendResult{Ledger: ledger.toEntity()}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrBudgetExceeded) || errors.Is(err, domainerrors.ErrConflict) {
			return ports.SpendResult{}, err
		}
		return ports.SpendResult{}, r.logError("privacy_repo_spend_failed", err,
			"poll_id", pollID,
			"query_key", strings.TrimSpace(entry.QueryKey),
		)
	}
	return result, nil
}

func (r *Repository) GetLedger(ctx context.Context, pollID string) (entities.BudgetLedger, []entities.LedgerEntry, error) {
	var ledger ledgerModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&ledger).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.BudgetLedger{}, nil, nil
		}
		return entities.BudgetLedger{}, nil, r.logError("privacy_repo_get_ledger_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}

	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("requested_at ASC").
		Find(&rows).Error; err != nil {
		return entities.BudgetLedger{}, nil, r.logError("privacy_repo_list_entries_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	entries := make([]entities.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return ledger.toEntity(), entries, nil
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
		return ports.PollProjection{}, r.logError("privacy_repo_get_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return ports.PollProjection{
		PollID:        row.ID,
		Status:        row.Status,
		Privacy:       row.Privacy,
		EpsilonBudget: row.EpsilonBudget,
		KThreshold:    row.KThreshold,
	}, nil
}

// CountByAttribute counts effective ballots per attribute value. Latest-per-
// voter selection happens here rather than in SQL so the dedupe rule stays in
// one shape across adapters.
func (r *Repository) CountByAttribute(ctx context.Context, pollID string, attribute string) (map[string]int, error) {
	var rows []ballotAttributeModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Find(&rows).Error; err != nil {
		return nil, r.logError("privacy_repo_count_attribute_failed", err,
			"poll_id", strings.TrimSpace(pollID),
			"attribute", strings.TrimSpace(attribute),
		)
	}

	latest := make(map[string]ballotAttributeModel, len(rows))
	for _, row := range rows {
		current, ok := latest[row.VoterID]
		if !ok || row.Sequence > current.Sequence {
			latest[row.VoterID] = row
		}
	}

	attribute = strings.TrimSpace(strings.ToLower(attribute))
	counts := make(map[string]int)
	for _, row := range latest {
		if len(row.Attributes) == 0 {
			continue
		}
		var attributes map[string]string
		if err := json.Unmarshal(row.Attributes, &attributes); err != nil {
			return nil, r.logError("privacy_repo_attribute_decode_failed", err, "ballot_id", row.ID)
		}
		value := strings.TrimSpace(attributes[attribute])
		if value == "" {
			continue
		}
		counts[value]++
	}
	return counts, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "privacy-analytics/privacy-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("privacy repository operation failed", fields...)
	return err
}

type ledgerModel struct {
	PollID    string    `gorm:"column:poll_id;primaryKey"`
	Allocated float64   `gorm:"column:allocated"`
	Consumed  float64   `gorm:"column:consumed"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ledgerModel) TableName() string {
	return "privacy_budget_ledgers"
}

func (m ledgerModel) toEntity() entities.BudgetLedger {
	return entities.BudgetLedger{
		PollID:    m.PollID,
		Allocated: m.Allocated,
		Consumed:  m.Consumed,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type ledgerEntryModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	PollID      string    `gorm:"column:poll_id"`
	QueryKey    string    `gorm:"column:query_key"`
	Context     string    `gorm:"column:context"`
	Epsilon     float64   `gorm:"column:epsilon"`
	RequestedAt time.Time `gorm:"column:requested_at"`
}

func (ledgerEntryModel) TableName() string {
	return "privacy_ledger_entries"
}

func (m ledgerEntryModel) toEntity() entities.LedgerEntry {
	return entities.LedgerEntry{
		EntryID:     m.ID,
		PollID:      m.PollID,
		QueryKey:    m.QueryKey,
		Context:     entities.DisclosureContext(m.Context),
		Epsilon:     m.Epsilon,
		RequestedAt: m.RequestedAt.UTC(),
	}
}

type pollProjectionModel struct {
	ID            string  `gorm:"column:id;primaryKey"`
	Status        string  `gorm:"column:status"`
	Privacy       string  `gorm:"column:privacy"`
	EpsilonBudget float64 `gorm:"column:epsilon_budget"`
	KThreshold    int     `gorm:"column:k_threshold"`
}

func (pollProjectionModel) TableName() string {
	return "polls"
}

type ballotAttributeModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	PollID     string `gorm:"column:poll_id"`
	VoterID    string `gorm:"column:voter_id"`
	Sequence   int64  `gorm:"column:sequence"`
	Attributes []byte `gorm:"column:attributes"`
}

func (ballotAttributeModel) TableName() string {
	return "ballots"
}

var _ ports.LedgerStore = (*Repository)(nil)
var _ ports.PollReader = (*Repository)(nil)
var _ ports.AttributeReader = (*Repository)(nil)
