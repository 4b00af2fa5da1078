package sso

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/ssogate/internal/cache"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

type exchangeService struct {
	cache cache.Cache
}

func NewExchangeService(c cache.Cache) ExchangeService {
	return &exchangeService{cache: c}
}

// Exchange consumes the one-time login code: the cached payload is deleted
// before it is returned, so a second call always fails.
func (s *exchangeService) Exchange(ctx context.Context, code string) (*LoginResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("sso.exchange"))

	if code == "" {
		return nil, ErrMissingCode
	}
	if s.cache == nil {
		return nil, ErrCodeUnknown
	}

	key := loginCodePrefix + code
	payload, ok := s.cache.Get(key)
	if !ok {
		log.Warn("login code miss")
		metrics.CodeExchange("miss")
		return nil, ErrCodeUnknown
	}
	s.cache.Delete(key)

	var resp LoginResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode login payload: %w", err)
	}
	metrics.CodeExchange("ok")
	return &resp, nil
}
