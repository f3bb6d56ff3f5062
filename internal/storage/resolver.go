package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"finanzamt/internal/logger"
	"finanzamt/pkg/models"
)

// MatchStrategy is one way of recognizing that an extracted counterparty is
// already on file. Strategies are tried in the order the resolver holds
// them; a strategy that does not apply to the candidate returns
// ErrCounterpartyNotFound so the next one runs.
type MatchStrategy interface {
	Name() string
	Find(ctx context.Context, repo *Repository, candidate *models.Counterparty) (*models.Counterparty, error)
}

// vatIDMatch matches on the exact VAT identification number, the strongest
// available key.
type vatIDMatch struct{}

func (vatIDMatch) Name() string { return "vat_id" }

func (vatIDMatch) Find(ctx context.Context, repo *Repository, candidate *models.Counterparty) (*models.Counterparty, error) {
	return repo.FindCounterpartyByVATID(ctx, candidate.VATID)
}

// normalizedNameMatch matches on the case- and punctuation-insensitive name
// key, catching OCR variants like "ACME GmbH" vs "Acme gmbh.".
type normalizedNameMatch struct{}

func (normalizedNameMatch) Name() string { return "normalized_name" }

func (normalizedNameMatch) Find(ctx context.Context, repo *Repository, candidate *models.Counterparty) (*models.Counterparty, error) {
	return repo.FindCounterpartyByNormalizedName(ctx, candidate.Name)
}

// Resolver deduplicates counterparties against storage. New match rules
// (tax number, fuzzy name) slot in as additional strategies without touching
// the resolution flow.
type Resolver struct {
	repo       *Repository
	strategies []MatchStrategy
	log        zerolog.Logger
}

// NewResolver creates a resolver with the default strategy order:
// VAT ID first, normalized name second.
func NewResolver(repo *Repository) *Resolver {
	return &Resolver{
		repo:       repo,
		strategies: []MatchStrategy{vatIDMatch{}, normalizedNameMatch{}},
		log:        logger.WithComponent("resolver"),
	}
}

// Resolve finds the stored counterparty matching the candidate, or creates
// an unverified record when no strategy matches. The returned counterparty
// always has a storage ID. created reports whether a new record was made.
func (r *Resolver) Resolve(ctx context.Context, candidate *models.Counterparty) (cp *models.Counterparty, created bool, err error) {
	const op = "Resolver.Resolve"

	if candidate == nil {
		return nil, false, fmt.Errorf("%s: nil candidate", op)
	}

	for _, strategy := range r.strategies {
		match, err := strategy.Find(ctx, r.repo, candidate)
		if err == nil {
			r.log.Debug().
				Str("strategy", strategy.Name()).
				Str("counterparty_id", match.ID).
				Str("name", match.Name).
				Msg("Counterparty matched existing record")
			return match, false, nil
		}
		if !errors.Is(err, ErrCounterpartyNotFound) {
			return nil, false, fmt.Errorf("%s: strategy %s: %w", op, strategy.Name(), err)
		}
	}

	candidate.Verified = false
	if err := r.repo.InsertCounterparty(ctx, candidate); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return candidate, true, nil
}
