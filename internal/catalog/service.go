package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/avolkov/storefront/internal/cache"
	"github.com/avolkov/storefront/internal/domain"
	"github.com/avolkov/storefront/internal/repository"
)

// Service serves read-only catalog queries through a read-through cache.
// Cache failure is never user-facing; the repository is the source of truth.
type Service struct {
	repo  repository.ProductRepository
	cache cache.ProductCache
	log   *zap.Logger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo repository.ProductRepository, cache cache.ProductCache, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	// Use singleflight to collapse concurrent cache misses into one load
	v, err, _ := s.sfg.Do("products:all", func() (interface{}, error) {
		products, err := s.cache.GetAll(ctx)
		if err == nil {
			return products, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("product cache get failed", zap.Error(err)) // log cache error but continue
		}

		products, errList := s.repo.List(ctx)
		if errList != nil {
			return nil, errList
		}

		go func() {
			if errSet := s.cache.SetAll(context.Background(), products); errSet != nil {
				s.log.Warn("product cache set failed", zap.Error(errSet))
			}
		}()

		return products, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Product), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	v, err, _ := s.sfg.Do("product:"+id, func() (interface{}, error) {
		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("product cache get failed", zap.String("product_id", id), zap.Error(err))
		}

		product, errGet := s.repo.Get(ctx, id)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), product); errSet != nil {
				s.log.Warn("product cache set failed", zap.String("product_id", id), zap.Error(errSet))
			}
		}()

		return product, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}
