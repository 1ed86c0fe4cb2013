package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ksavin/snipurl/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrCodeTaken signals a short-code uniqueness violation on insert.
	ErrCodeTaken = errors.New("short code already taken")
)

// LinkStore defines the data access contract for short links. Create and
// IncrementClicks are the only mutating operations; both are single-record
// and atomic at the store layer.
type LinkStore interface {
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	IncrementClicks(ctx context.Context, code string) error
	SetClicks(ctx context.Context, code string, clicks int64) error
	List(ctx context.Context, limit int) ([]model.Link, error)
	Codes(ctx context.Context) ([]string, error)
}

// ScopeFactory mints LinkStore instances bound to a request principal.
// Handlers resolve the caller's owner once and pass the scoped store into
// each service call; there is no ambient globally-authorized store.
type ScopeFactory struct {
	db *gorm.DB
}

// NewScopeFactory returns a factory over the shared GORM handle.
func NewScopeFactory(db *gorm.DB) *ScopeFactory {
	return &ScopeFactory{db: db}
}

// For returns a store scoped to the given owner. A nil owner yields the
// anonymous scope: creates are unowned and List sees no records.
func (f *ScopeFactory) For(owner *string) LinkStore {
	return &linkStore{db: f.db, owner: owner}
}

type linkStore struct {
	db    *gorm.DB
	owner *string
}

func (s *linkStore) Create(ctx context.Context, link *model.Link) error {
	link.OwnerID = s.owner
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (s *linkStore) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// IncrementClicks bumps the counter server-side so concurrent increments for
// the same code never lose updates.
func (s *linkStore) IncrementClicks(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("code = ?", code).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// SetClicks overwrites the counter with an absolute value. This is the
// read-modify-write fallback for deployments without the atomic path; it is
// last-write-wins under concurrency, which the accounting pipeline accepts.
func (s *linkStore) SetClicks(ctx context.Context, code string, clicks int64) error {
	result := s.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("code = ?", code).
		UpdateColumn("clicks", clicks)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (s *linkStore) List(ctx context.Context, limit int) ([]model.Link, error) {
	if s.owner == nil {
		return []model.Link{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var result []model.Link
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", *s.owner).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// Codes returns every allocated short code. Used to warm the resolver's
// negative-lookup filter.
func (s *linkStore) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := s.db.WithContext(ctx).
		Model(&model.Link{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
