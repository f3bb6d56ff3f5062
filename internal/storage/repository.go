package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finanzamt/internal/logger"
	"finanzamt/pkg/models"
)

// Repository is the persistence gateway for receipts and counterparties.
// It holds an explicit database handle passed in by the caller; there is no
// package-level connection.
type Repository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewRepository creates a repository on an open database handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:  db,
		log: logger.WithComponent("storage"),
	}
}

// Exists reports whether a receipt with the given content hash is stored.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	const op = "Repository.Exists"

	var count int64
	if err := r.db.WithContext(ctx).Model(&receiptRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, wrapStorageError(op, err, id)
	}
	return count > 0, nil
}

// Save stores a receipt with its line items, VAT splits and raw content in
// one transaction. The duplicate check is repeated inside the transaction so
// two concurrent saves of the same document cannot both commit; the loser
// gets ErrDuplicateReceipt.
func (r *Repository) Save(ctx context.Context, receipt *models.Receipt) error {
	const op = "Repository.Save"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&receiptRow{}).Where("id = ?", receipt.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateReceipt
		}

		if receipt.CreatedAt.IsZero() {
			receipt.CreatedAt = time.Now().UTC()
		}

		row := &receiptRow{
			ID:            receipt.ID,
			Direction:     receipt.Direction.String(),
			Number:        receipt.Number,
			Date:          receipt.Date,
			TotalAmount:   receipt.TotalAmount,
			VATAmount:     receipt.VATAmount,
			NetAmount:     receipt.NetAmount,
			VATPercentage: receipt.VATPercentage,
			Category:      string(receipt.Category),
			CreatedAt:     receipt.CreatedAt,
		}
		if receipt.CounterpartyID != "" {
			row.CounterpartyID = &receipt.CounterpartyID
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		if err := insertChildren(tx, receipt); err != nil {
			return err
		}

		return tx.Create(&contentRow{ReceiptID: receipt.ID, RawText: receipt.RawText}).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateReceipt) {
			return ErrDuplicateReceipt
		}
		return wrapStorageError(op, err, receipt.ID)
	}

	r.log.Info().
		Str("receipt_id", receipt.ID).
		Str("direction", receipt.Direction.String()).
		Int("items", len(receipt.Items)).
		Msg("Receipt stored")
	return nil
}

// Update replaces a stored receipt's fields, line items and VAT splits.
// Raw content and the content-hash identity are immutable.
func (r *Repository) Update(ctx context.Context, receipt *models.Receipt) error {
	const op = "Repository.Update"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row receiptRow
		if err := tx.First(&row, "id = ?", receipt.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReceiptNotFound
			}
			return err
		}

		updates := map[string]any{
			"direction":      receipt.Direction.String(),
			"number":         receipt.Number,
			"date":           receipt.Date,
			"total_amount":   receipt.TotalAmount,
			"vat_amount":     receipt.VATAmount,
			"net_amount":     receipt.NetAmount,
			"vat_percentage": receipt.VATPercentage,
			"category":       string(receipt.Category),
		}
		if receipt.CounterpartyID != "" {
			updates["counterparty_id"] = receipt.CounterpartyID
		}
		if err := tx.Model(&receiptRow{}).Where("id = ?", receipt.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("receipt_id = ?", receipt.ID).Delete(&itemRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("receipt_id = ?", receipt.ID).Delete(&splitRow{}).Error; err != nil {
			return err
		}
		return insertChildren(tx, receipt)
	})
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return ErrReceiptNotFound
		}
		return wrapStorageError(op, err, receipt.ID)
	}
	return nil
}

// Delete removes a receipt and all dependent rows.
func (r *Repository) Delete(ctx context.Context, id string) error {
	const op = "Repository.Delete"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&receiptRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReceiptNotFound
		}
		if err := tx.Where("receipt_id = ?", id).Delete(&itemRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("receipt_id = ?", id).Delete(&splitRow{}).Error; err != nil {
			return err
		}
		return tx.Where("receipt_id = ?", id).Delete(&contentRow{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return ErrReceiptNotFound
		}
		return wrapStorageError(op, err, id)
	}
	return nil
}

// Get loads a receipt with its line items, VAT splits, raw content and
// counterparty.
func (r *Repository) Get(ctx context.Context, id string) (*models.Receipt, error) {
	const op = "Repository.Get"

	var row receiptRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, wrapStorageError(op, err, id)
	}

	receipt := row.toModel()

	var items []itemRow
	if err := r.db.WithContext(ctx).Where("receipt_id = ?", id).Order("position").Find(&items).Error; err != nil {
		return nil, wrapStorageError(op, err, id)
	}
	for i := range items {
		receipt.Items = append(receipt.Items, items[i].toModel())
	}

	var splits []splitRow
	if err := r.db.WithContext(ctx).Where("receipt_id = ?", id).Order("position").Find(&splits).Error; err != nil {
		return nil, wrapStorageError(op, err, id)
	}
	for i := range splits {
		receipt.VATSplits = append(receipt.VATSplits, splits[i].toModel())
	}

	var content contentRow
	if err := r.db.WithContext(ctx).First(&content, "receipt_id = ?", id).Error; err == nil {
		receipt.RawText = content.RawText
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapStorageError(op, err, id)
	}

	if receipt.CounterpartyID != "" {
		cp, err := r.GetCounterparty(ctx, receipt.CounterpartyID)
		if err != nil && !errors.Is(err, ErrCounterpartyNotFound) {
			return nil, wrapStorageError(op, err, id)
		}
		receipt.Counterparty = cp
	}

	return receipt, nil
}

// ListAll returns all stored receipts, newest first, without child rows.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Receipt, error) {
	const op = "Repository.ListAll"
	return r.findReceipts(ctx, op, r.db.WithContext(ctx).Order("created_at DESC"))
}

// FindByPeriod returns receipts dated within [from, to], inclusive.
// Undated receipts never match a period.
func (r *Repository) FindByPeriod(ctx context.Context, from, to time.Time) ([]*models.Receipt, error) {
	const op = "Repository.FindByPeriod"
	q := r.db.WithContext(ctx).
		Where("date IS NOT NULL AND date >= ? AND date <= ?", from, to).
		Order("date")
	return r.findReceipts(ctx, op, q)
}

// FindByCategory returns receipts with the given expense category.
func (r *Repository) FindByCategory(ctx context.Context, category models.Category) ([]*models.Receipt, error) {
	const op = "Repository.FindByCategory"
	q := r.db.WithContext(ctx).Where("category = ?", string(category)).Order("created_at DESC")
	return r.findReceipts(ctx, op, q)
}

// FindByDirection returns receipts on one side of the ledger.
func (r *Repository) FindByDirection(ctx context.Context, direction models.Direction) ([]*models.Receipt, error) {
	const op = "Repository.FindByDirection"
	q := r.db.WithContext(ctx).Where("direction = ?", direction.String()).Order("created_at DESC")
	return r.findReceipts(ctx, op, q)
}

func (r *Repository) findReceipts(ctx context.Context, op string, q *gorm.DB) ([]*models.Receipt, error) {
	var rows []receiptRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapStorageError(op, err, "")
	}
	receipts := make([]*models.Receipt, 0, len(rows))
	for i := range rows {
		receipts = append(receipts, rows[i].toModel())
	}
	return receipts, nil
}

// VATAggregateRow is one (direction, rate) bucket of the period aggregation.
type VATAggregateRow struct {
	Direction models.Direction
	Rate      float64
	NetTotal  int64 // cents
	VATTotal  int64 // cents
	Count     int
}

// AggregateVAT sums net and VAT amounts per direction and rate over receipts
// dated within [from, to]. Receipts without a positive VAT amount cannot
// contribute to the declaration and are returned as the skipped count
// instead of being silently ignored.
func (r *Repository) AggregateVAT(ctx context.Context, from, to time.Time) ([]VATAggregateRow, int, error) {
	const op = "Repository.AggregateVAT"

	type scanRow struct {
		Direction string
		Rate      float64
		NetTotal  int64
		VATTotal  int64
		Count     int
	}

	var scanned []scanRow
	err := r.db.WithContext(ctx).Model(&receiptRow{}).
		Select("direction, COALESCE(vat_percentage, 0) AS rate, COALESCE(SUM(net_amount), 0) AS net_total, SUM(vat_amount) AS vat_total, COUNT(*) AS count").
		Where("date IS NOT NULL AND date >= ? AND date <= ? AND vat_amount > 0", from, to).
		Group("direction, COALESCE(vat_percentage, 0)").
		Order("direction, rate").
		Scan(&scanned).Error
	if err != nil {
		return nil, 0, wrapStorageError(op, err, "")
	}

	var skipped int64
	err = r.db.WithContext(ctx).Model(&receiptRow{}).
		Where("date IS NOT NULL AND date >= ? AND date <= ? AND (vat_amount IS NULL OR vat_amount <= 0)", from, to).
		Count(&skipped).Error
	if err != nil {
		return nil, 0, wrapStorageError(op, err, "")
	}

	rows := make([]VATAggregateRow, 0, len(scanned))
	for _, s := range scanned {
		rows = append(rows, VATAggregateRow{
			Direction: models.Direction(s.Direction),
			Rate:      s.Rate,
			NetTotal:  s.NetTotal,
			VATTotal:  s.VATTotal,
			Count:     s.Count,
		})
	}
	return rows, int(skipped), nil
}

// --- counterparties ---

// GetCounterparty loads a counterparty by ID.
func (r *Repository) GetCounterparty(ctx context.Context, id string) (*models.Counterparty, error) {
	const op = "Repository.GetCounterparty"

	var row counterpartyRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCounterpartyNotFound
		}
		return nil, wrapStorageError(op, err, id)
	}
	return row.toModel(), nil
}

// FindCounterpartyByVATID matches on the exact (normalized, uppercased)
// VAT identification number. Empty VAT IDs never match.
func (r *Repository) FindCounterpartyByVATID(ctx context.Context, vatID string) (*models.Counterparty, error) {
	const op = "Repository.FindCounterpartyByVATID"

	if vatID == "" {
		return nil, ErrCounterpartyNotFound
	}
	var row counterpartyRow
	if err := r.db.WithContext(ctx).First(&row, "vat_id = ?", vatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCounterpartyNotFound
		}
		return nil, wrapStorageError(op, err, vatID)
	}
	return row.toModel(), nil
}

// FindCounterpartyByNormalizedName matches on the case- and
// punctuation-insensitive name key. Empty names never match.
func (r *Repository) FindCounterpartyByNormalizedName(ctx context.Context, name string) (*models.Counterparty, error) {
	const op = "Repository.FindCounterpartyByNormalizedName"

	normalized := models.NormalizeName(name)
	if normalized == "" {
		return nil, ErrCounterpartyNotFound
	}
	var row counterpartyRow
	if err := r.db.WithContext(ctx).First(&row, "name_normalized = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCounterpartyNotFound
		}
		return nil, wrapStorageError(op, err, name)
	}
	return row.toModel(), nil
}

// InsertCounterparty stores a new counterparty. A missing ID is assigned;
// new records start unverified until a user confirms them.
func (r *Repository) InsertCounterparty(ctx context.Context, cp *models.Counterparty) error {
	const op = "Repository.InsertCounterparty"

	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(counterpartyFromModel(cp)).Error; err != nil {
		return wrapStorageError(op, err, cp.Name)
	}

	r.log.Info().
		Str("counterparty_id", cp.ID).
		Str("name", cp.Name).
		Msg("Counterparty created")
	return nil
}

// SetCounterpartyVerified marks a counterparty as user-confirmed (or
// revokes that confirmation).
func (r *Repository) SetCounterpartyVerified(ctx context.Context, id string, verified bool) error {
	const op = "Repository.SetCounterpartyVerified"

	result := r.db.WithContext(ctx).Model(&counterpartyRow{}).
		Where("id = ?", id).
		Update("verified", verified)
	if result.Error != nil {
		return wrapStorageError(op, result.Error, id)
	}
	if result.RowsAffected == 0 {
		return ErrCounterpartyNotFound
	}
	return nil
}

// ListCounterparties returns all counterparties, optionally only verified
// ones, ordered by name.
func (r *Repository) ListCounterparties(ctx context.Context, verifiedOnly bool) ([]*models.Counterparty, error) {
	const op = "Repository.ListCounterparties"

	q := r.db.WithContext(ctx).Order("name")
	if verifiedOnly {
		q = q.Where("verified = ?", true)
	}
	var rows []counterpartyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapStorageError(op, err, "")
	}
	cps := make([]*models.Counterparty, 0, len(rows))
	for i := range rows {
		cps = append(cps, rows[i].toModel())
	}
	return cps, nil
}

func insertChildren(tx *gorm.DB, receipt *models.Receipt) error {
	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.Position == 0 {
			item.Position = i + 1
		}
		row := &itemRow{
			ID:          uuid.NewString(),
			ReceiptID:   receipt.ID,
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			VATRate:     item.VATRate,
			VATAmount:   item.VATAmount,
			Category:    string(item.Category),
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
	}

	for i := range receipt.VATSplits {
		split := &receipt.VATSplits[i]
		if split.Position == 0 {
			split.Position = i + 1
		}
		row := &splitRow{
			ID:         uuid.NewString(),
			ReceiptID:  receipt.ID,
			Position:   split.Position,
			Rate:       split.Rate,
			BaseAmount: split.BaseAmount,
			VATAmount:  split.VATAmount,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}
