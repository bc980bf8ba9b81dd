package repository

import (
	"context"
	"errors"

	"golang-analyst-gateway/internal/entity"

	"gorm.io/gorm"
)

// ErrAlreadyRegistered is returned by Register when the ticker already exists.
var ErrAlreadyRegistered = errors.New("company already registered")

// CompanyRepository is the persistence backend for registered companies,
// their relationship graph, and user favorites.
type CompanyRepository interface {
	FindByTicker(ctx context.Context, ticker string) (*entity.Company, error)
	FindByKoreanName(ctx context.Context, name string) (*entity.Company, error)
	FindByCompanyName(ctx context.Context, name string) (*entity.Company, error)
	Register(ctx context.Context, company *entity.Company) error
	FindRelationships(ctx context.Context, ticker string) (outgoing, incoming []entity.CompanyRelationship, err error)
	AddFavorite(ctx context.Context, userID, ticker string) error
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) FindByTicker(ctx context.Context, ticker string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByKoreanName(ctx context.Context, name string) (*entity.Company, error) {
	return r.findByNameColumn(ctx, "korean_name", name)
}

func (r *companyRepository) FindByCompanyName(ctx context.Context, name string) (*entity.Company, error) {
	return r.findByNameColumn(ctx, "company_name", name)
}

func (r *companyRepository) findByNameColumn(ctx context.Context, column, name string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).
		Where(column+" ILIKE ?", "%"+name+"%").
		First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// Register inserts a company. Registering an existing ticker is a no-op that
// reports ErrAlreadyRegistered.
func (r *companyRepository) Register(ctx context.Context, company *entity.Company) error {
	existing, err := r.FindByTicker(ctx, company.Ticker)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyRegistered
	}
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *companyRepository) FindRelationships(ctx context.Context, ticker string) ([]entity.CompanyRelationship, []entity.CompanyRelationship, error) {
	var outgoing, incoming []entity.CompanyRelationship
	if err := r.db.WithContext(ctx).Where("source_ticker = ?", ticker).Find(&outgoing).Error; err != nil {
		return nil, nil, err
	}
	if err := r.db.WithContext(ctx).Where("target_ticker = ?", ticker).Find(&incoming).Error; err != nil {
		return nil, nil, err
	}
	return outgoing, incoming, nil
}

func (r *companyRepository) AddFavorite(ctx context.Context, userID, ticker string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Favorite{}).
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entity.Favorite{UserID: userID, Ticker: ticker}).Error
}
