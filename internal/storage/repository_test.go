package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzamt/pkg/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	return NewRepository(db)
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testReceipt(rawText string) *models.Receipt {
	return &models.Receipt{
		ID:            models.ContentID(rawText),
		Direction:     models.DirectionPurchase,
		Number:        "R-2026-001",
		Date:          date(2026, time.January, 15),
		TotalAmount:   i64(11900),
		VATAmount:     i64(1900),
		NetAmount:     i64(10000),
		VATPercentage: f64(19),
		Category:      models.CategorySoftware,
		Items: []models.LineItem{
			{Position: 1, Description: "Lizenz", Quantity: f64(1), UnitPrice: i64(11900), TotalPrice: i64(11900), Category: models.CategorySoftware},
		},
		VATSplits: []models.VATSplit{
			{Position: 1, Rate: 19, BaseAmount: i64(10000), VATAmount: i64(1900)},
		},
		RawText: rawText,
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	receipt := testReceipt("some raw invoice text")
	require.NoError(t, repo.Save(ctx, receipt))

	loaded, err := repo.Get(ctx, receipt.ID)
	require.NoError(t, err)

	assert.Equal(t, receipt.ID, loaded.ID)
	assert.Equal(t, models.DirectionPurchase, loaded.Direction)
	assert.Equal(t, "R-2026-001", loaded.Number)
	assert.Equal(t, int64(11900), *loaded.TotalAmount)
	assert.Equal(t, int64(1900), *loaded.VATAmount)
	assert.Equal(t, models.CategorySoftware, loaded.Category)
	assert.Equal(t, "some raw invoice text", loaded.RawText)

	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Lizenz", loaded.Items[0].Description)
	require.Len(t, loaded.VATSplits, 1)
	assert.Equal(t, 19.0, loaded.VATSplits[0].Rate)
}

func TestSaveDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	receipt := testReceipt("duplicate me")
	require.NoError(t, repo.Save(ctx, receipt))

	again := testReceipt("duplicate me")
	err := repo.Save(ctx, again)
	assert.ErrorIs(t, err, ErrDuplicateReceipt)

	exists, err := repo.Exists(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	receipt := testReceipt("to be deleted")
	require.NoError(t, repo.Save(ctx, receipt))
	require.NoError(t, repo.Delete(ctx, receipt.ID))

	exists, err := repo.Exists(ctx, receipt.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, repo.Delete(ctx, receipt.ID), ErrReceiptNotFound)
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	receipt := testReceipt("update me")
	require.NoError(t, repo.Save(ctx, receipt))

	receipt.Category = models.CategoryTravel
	receipt.Items = []models.LineItem{
		{Position: 1, Description: "Bahnticket", TotalPrice: i64(11900), Category: models.CategoryTravel},
		{Position: 2, Description: "Taxi", TotalPrice: i64(2500), Category: models.CategoryTravel},
	}
	require.NoError(t, repo.Update(ctx, receipt))

	loaded, err := repo.Get(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTravel, loaded.Category)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "Taxi", loaded.Items[1].Description)

	missing := testReceipt("never stored")
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrReceiptNotFound)
}

func TestFindByPeriod(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	january := testReceipt("january receipt")
	require.NoError(t, repo.Save(ctx, january))

	march := testReceipt("march receipt")
	march.Date = date(2026, time.March, 10)
	require.NoError(t, repo.Save(ctx, march))

	undated := testReceipt("undated receipt")
	undated.Date = nil
	require.NoError(t, repo.Save(ctx, undated))

	found, err := repo.FindByPeriod(ctx,
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, january.ID, found[0].ID)
}

func TestFindByDirectionAndCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	purchase := testReceipt("a purchase")
	require.NoError(t, repo.Save(ctx, purchase))

	sale := testReceipt("a sale")
	sale.Direction = models.DirectionSale
	sale.Category = models.CategoryConsulting
	require.NoError(t, repo.Save(ctx, sale))

	sales, err := repo.FindByDirection(ctx, models.DirectionSale)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)

	consulting, err := repo.FindByCategory(ctx, models.CategoryConsulting)
	require.NoError(t, err)
	require.Len(t, consulting, 1)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAggregateVAT(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Two purchases at 19%, one sale at 19%, one sale at 7%.
	p1 := testReceipt("purchase one")
	require.NoError(t, repo.Save(ctx, p1))

	p2 := testReceipt("purchase two")
	p2.TotalAmount = i64(23800)
	p2.VATAmount = i64(3800)
	p2.NetAmount = i64(20000)
	require.NoError(t, repo.Save(ctx, p2))

	s1 := testReceipt("sale one")
	s1.Direction = models.DirectionSale
	s1.TotalAmount = i64(59500)
	s1.VATAmount = i64(9500)
	s1.NetAmount = i64(50000)
	require.NoError(t, repo.Save(ctx, s1))

	s2 := testReceipt("sale two")
	s2.Direction = models.DirectionSale
	s2.VATPercentage = f64(7)
	s2.TotalAmount = i64(10700)
	s2.VATAmount = i64(700)
	s2.NetAmount = i64(10000)
	require.NoError(t, repo.Save(ctx, s2))

	// No VAT: must be counted as skipped, not aggregated.
	noVAT := testReceipt("no vat")
	noVAT.VATAmount = nil
	noVAT.NetAmount = nil
	require.NoError(t, repo.Save(ctx, noVAT))

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

	rows, skipped, err := repo.AggregateVAT(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 3)

	var purchase19, sale19, sale7 *VATAggregateRow
	for i := range rows {
		row := &rows[i]
		switch {
		case row.Direction.IsPurchase() && row.Rate == 19:
			purchase19 = row
		case !row.Direction.IsPurchase() && row.Rate == 19:
			sale19 = row
		case !row.Direction.IsPurchase() && row.Rate == 7:
			sale7 = row
		}
	}

	require.NotNil(t, purchase19)
	assert.Equal(t, int64(5700), purchase19.VATTotal)
	assert.Equal(t, int64(30000), purchase19.NetTotal)
	assert.Equal(t, 2, purchase19.Count)

	require.NotNil(t, sale19)
	assert.Equal(t, int64(9500), sale19.VATTotal)

	require.NotNil(t, sale7)
	assert.Equal(t, int64(700), sale7.VATTotal)
	assert.Equal(t, 1, sale7.Count)
}

func TestCounterpartyLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cp := &models.Counterparty{
		Name:  "Acme GmbH",
		VATID: "DE123456789",
	}
	require.NoError(t, repo.InsertCounterparty(ctx, cp))
	assert.NotEmpty(t, cp.ID)

	byVAT, err := repo.FindCounterpartyByVATID(ctx, "DE123456789")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, byVAT.ID)

	// Name matching is normalization-based.
	byName, err := repo.FindCounterpartyByNormalizedName(ctx, "ACME gmbh.")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, byName.ID)

	_, err = repo.FindCounterpartyByVATID(ctx, "")
	assert.ErrorIs(t, err, ErrCounterpartyNotFound)

	_, err = repo.FindCounterpartyByNormalizedName(ctx, "Unknown Corp")
	assert.ErrorIs(t, err, ErrCounterpartyNotFound)
}

func TestSetCounterpartyVerified(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cp := &models.Counterparty{Name: "Beta AG"}
	require.NoError(t, repo.InsertCounterparty(ctx, cp))
	assert.False(t, cp.Verified)

	require.NoError(t, repo.SetCounterpartyVerified(ctx, cp.ID, true))

	loaded, err := repo.GetCounterparty(ctx, cp.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Verified)

	verified, err := repo.ListCounterparties(ctx, true)
	require.NoError(t, err)
	assert.Len(t, verified, 1)

	assert.ErrorIs(t, repo.SetCounterpartyVerified(ctx, "missing", true), ErrCounterpartyNotFound)
}

func TestResolver(t *testing.T) {
	repo := newTestRepo(t)
	resolver := NewResolver(repo)
	ctx := context.Background()

	t.Run("creates unverified on no match", func(t *testing.T) {
		cp, created, err := resolver.Resolve(ctx, &models.Counterparty{Name: "Gamma UG", VATID: "DE999999999"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, cp.ID)
		assert.False(t, cp.Verified)
	})

	t.Run("matches by VAT ID before name", func(t *testing.T) {
		// Different display name, same VAT ID: must resolve to the same record.
		cp, created, err := resolver.Resolve(ctx, &models.Counterparty{Name: "Gamma Unternehmergesellschaft", VATID: "DE999999999"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Gamma UG", cp.Name)
	})

	t.Run("falls back to normalized name", func(t *testing.T) {
		cp, created, err := resolver.Resolve(ctx, &models.Counterparty{Name: "gamma ug"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Gamma UG", cp.Name)
	})

	t.Run("nil candidate is an error", func(t *testing.T) {
		_, _, err := resolver.Resolve(ctx, nil)
		assert.Error(t, err)
	})
}
