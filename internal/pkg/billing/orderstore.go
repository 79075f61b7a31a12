package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/localhub-app/LocalHub/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const orderKeyPrefix = "billing:cw_order:"

// redisOrderStore parks pending card/wallet orders in Redis so the create
// and capture phases can run on different app instances.
type redisOrderStore struct{}

// NewRedisOrderStore returns an OrderStore backed by the shared cache.
func NewRedisOrderStore() OrderStore {
	return &redisOrderStore{}
}

func (s *redisOrderStore) Put(ctx context.Context, orderID string, order CardWalletOrder, ttl time.Duration) error {
	_ = ctx
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := cache.Set(orderKeyPrefix+orderID, payload, ttl); err != nil {
		return storageErr("park pending order", err)
	}
	return nil
}

func (s *redisOrderStore) Get(ctx context.Context, orderID string) (CardWalletOrder, bool, error) {
	_ = ctx
	raw, err := cache.Get(orderKeyPrefix + orderID)
	if errors.Is(err, redis.Nil) {
		return CardWalletOrder{}, false, nil
	}
	if err != nil {
		return CardWalletOrder{}, false, storageErr("read pending order", err)
	}

	var order CardWalletOrder
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return CardWalletOrder{}, false, err
	}
	return order, true, nil
}

func (s *redisOrderStore) Delete(ctx context.Context, orderID string) error {
	_ = ctx
	if err := cache.Delete(orderKeyPrefix + orderID); err != nil {
		return storageErr("clear captured order", err)
	}
	return nil
}
