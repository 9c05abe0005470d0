package services

import (
	"context"
	"strings"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProductInput struct {
	Tier         *string
	Description  *string
	Price        *decimal.Decimal
	DurationDays *int
	IsActive     *bool
	Features     []string
}

type PromoInput struct {
	Code            *string
	Name            *string
	Description     *string
	DiscountPercent *decimal.Decimal
	StartDate       *string
	EndDate         *string
	ProductID       *uint
	IsActive        *bool
}

// CatalogService manages membership packages and their promos
type CatalogService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewCatalogService(db *gorm.DB, cfg *config.Config) *CatalogService {
	return &CatalogService{db: db, cfg: cfg}
}

func (s *CatalogService) ListProducts(ctx context.Context, active *bool) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	var products []models.Product
	if err := q.Order("tier ASC, price ASC").Find(&products).Error; err != nil {
		return nil, utils.WrapError(err, "failed to list products")
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, lookupError(err, "Product")
	}
	return &product, nil
}

func applyProductInput(p *models.Product, in ProductInput) error {
	var errs utils.FieldValidationErrors
	if in.Tier != nil {
		tier := models.PackageTier(strings.ToUpper(strings.TrimSpace(*in.Tier)))
		if !tier.Valid() {
			errs.Add("tier", "must be one of A, B or C")
		}
		p.Tier = tier
	}
	if in.Description != nil {
		p.Description = utils.SanitizeString(*in.Description)
	}
	if in.Price != nil {
		if err := utils.ValidatePrice(*in.Price); err != nil {
			errs.Add("price", err.Error())
		}
		p.Price = in.Price.Round(2)
	}
	if in.DurationDays != nil {
		if *in.DurationDays < 0 {
			errs.Add("duration_days", "must not be negative")
		}
		p.DurationDays = *in.DurationDays
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Features != nil {
		features := make([]string, 0, len(in.Features))
		for _, f := range in.Features {
			if f = utils.SanitizeString(f); f != "" {
				features = append(features, f)
			}
		}
		p.Features = datatypes.JSONSlice[string](features)
	}
	return errs.Err()
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	var errs utils.FieldValidationErrors
	if in.Tier == nil {
		errs.Add("tier", "is required")
	}
	if in.Price == nil {
		errs.Add("price", "is required")
	}
	if in.DurationDays == nil {
		errs.Add("duration_days", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	product := models.Product{IsActive: true, Features: datatypes.JSONSlice[string]{}}
	if err := applyProductInput(&product, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, utils.WrapError(err, "failed to create product")
	}
	utils.LogInfo("Product %d (%s) created at %s", product.ID, product.Tier, product.Price)
	return &product, nil
}

// UpdateProduct edits a package. Existing transactions keep the price they were created with.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProductInput(product, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, utils.WrapError(err, "failed to update product")
	}
	utils.LogInfo("Product %d updated", product.ID)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(product).Error; err != nil {
		return utils.WrapError(err, "failed to delete product")
	}
	utils.LogInfo("Product %d deleted", id)
	return nil
}

func (s *CatalogService) ListPromos(ctx context.Context) ([]models.Promo, error) {
	var promos []models.Promo
	if err := s.db.WithContext(ctx).Preload("Product").Order("start_date DESC").Find(&promos).Error; err != nil {
		return nil, utils.WrapError(err, "failed to list promos")
	}
	return promos, nil
}

// ActivePromos returns promos that apply today in the business time zone
func (s *CatalogService) ActivePromos(ctx context.Context, now time.Time) ([]models.Promo, error) {
	var candidates []models.Promo
	err := s.db.WithContext(ctx).Preload("Product").
		Where("is_active = ?", true).
		Order("end_date ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list promos")
	}

	today := now.In(s.cfg.Location())
	active := make([]models.Promo, 0, len(candidates))
	for _, p := range candidates {
		if p.AppliesAt(today) {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *CatalogService) GetPromo(ctx context.Context, id uint) (*models.Promo, error) {
	var promo models.Promo
	if err := s.db.WithContext(ctx).Preload("Product").First(&promo, id).Error; err != nil {
		return nil, lookupError(err, "Promo")
	}
	return &promo, nil
}

func (s *CatalogService) applyPromoInput(ctx context.Context, p *models.Promo, in PromoInput) error {
	loc := s.cfg.Location()
	var errs utils.FieldValidationErrors
	if in.Code != nil {
		p.Code = strings.ToUpper(strings.TrimSpace(*in.Code))
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			errs.Add("name", "is required")
		}
		p.Name = utils.SanitizeString(*in.Name)
	}
	if in.Description != nil {
		p.Description = utils.SanitizeString(*in.Description)
	}
	if in.DiscountPercent != nil {
		if err := utils.ValidateDiscountPercent(*in.DiscountPercent); err != nil {
			errs.Add("discount_percent", err.Error())
		}
		p.DiscountPercent = in.DiscountPercent.Round(2)
	}
	if in.StartDate != nil {
		d, err := utils.ParseDate(*in.StartDate, loc)
		if err != nil {
			errs.Add("start_date", err.Error())
		}
		p.StartDate = d
	}
	if in.EndDate != nil {
		d, err := utils.ParseDate(*in.EndDate, loc)
		if err != nil {
			errs.Add("end_date", err.Error())
		}
		p.EndDate = d
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		errs.Add("end_date", "must not be before start_date")
	}
	if in.ProductID != nil {
		if _, err := s.GetProduct(ctx, *in.ProductID); err != nil {
			if utils.IsNotFoundError(err) {
				errs.Add("product_id", "product does not exist")
			} else {
				return err
			}
		}
		p.ProductID = *in.ProductID
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return errs.Err()
}

func (s *CatalogService) CreatePromo(ctx context.Context, in PromoInput) (*models.Promo, error) {
	var errs utils.FieldValidationErrors
	if in.Name == nil {
		errs.Add("name", "is required")
	}
	if in.DiscountPercent == nil {
		errs.Add("discount_percent", "is required")
	}
	if in.StartDate == nil {
		errs.Add("start_date", "is required")
	}
	if in.EndDate == nil {
		errs.Add("end_date", "is required")
	}
	if in.ProductID == nil {
		errs.Add("product_id", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	promo := models.Promo{IsActive: true}
	if err := s.applyPromoInput(ctx, &promo, in); err != nil {
		return nil, err
	}
	if promo.Code == "" {
		code, err := utils.UniqueCode(s.db.WithContext(ctx), "promos", "code", utils.PromoCodePrefix, utils.ProfileCodeLength)
		if err != nil {
			return nil, utils.WrapError(err, "failed to generate promo code")
		}
		promo.Code = code
	}

	if err := s.db.WithContext(ctx).Create(&promo).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Promo code already exists", err)
		}
		return nil, utils.WrapError(err, "failed to create promo")
	}
	utils.LogInfo("Promo %s created: %s%% off product %d", promo.Code, promo.DiscountPercent, promo.ProductID)
	return s.GetPromo(ctx, promo.ID)
}

func (s *CatalogService) UpdatePromo(ctx context.Context, id uint, in PromoInput) (*models.Promo, error) {
	promo, err := s.GetPromo(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyPromoInput(ctx, promo, in); err != nil {
		return nil, err
	}
	promo.Product = nil
	if err := s.db.WithContext(ctx).Save(promo).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Promo code already exists", err)
		}
		return nil, utils.WrapError(err, "failed to update promo")
	}
	utils.LogInfo("Promo %s updated", promo.Code)
	return s.GetPromo(ctx, id)
}

func (s *CatalogService) DeletePromo(ctx context.Context, id uint) error {
	promo, err := s.GetPromo(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Promo{}, promo.ID).Error; err != nil {
		return utils.WrapError(err, "failed to delete promo")
	}
	utils.LogInfo("Promo %s deleted", promo.Code)
	return nil
}
