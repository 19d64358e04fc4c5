package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ interfaces.IOrderStore = (*RedisOrderStore)(nil)

var errOrderMissing = errors.New("order missing")

// -----------------------------------------------------------------------------

// RedisOrderStore keeps each order as a JSON string under {prefix}:order:{id},
// ids come from INCR on {prefix}:seq and {prefix}:index is a sorted set scored
// by id that gives the listing order.
type RedisOrderStore struct {
	Config *models.MConfig
	Client *redis.Client
	Logger *logger.Logger
	prefix string
}

// -----------------------------------------------------------------------------

func NewRedisOrderStore(cfg *models.MConfig, log *logger.Logger) *RedisOrderStore {
	return &RedisOrderStore{
		Config: cfg,
		Logger: log,
		prefix: cfg.Storage.KeyPrefix,
	}
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) Initialize(ctx context.Context) error {
	opts := &redis.Options{
		Addr:     r.Config.Storage.RedisAddr,
		Password: r.Config.Storage.RedisPassword,
		DB:       r.Config.Storage.RedisDB,
	}
	if r.Config.Storage.DBConnectionString != "" {
		parsed, err := redis.ParseURL(r.Config.Storage.DBConnectionString)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return errors.Wrap(err, "ping redis")
	}

	r.Client = client
	r.Logger.Info("Redis order store ready (%s, prefix %q)", opts.Addr, r.prefix)
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) seqKey() string   { return r.prefix + ":seq" }
func (r *RedisOrderStore) indexKey() string { return r.prefix + ":index" }
func (r *RedisOrderStore) orderKey(id int64) string {
	return fmt.Sprintf("%s:order:%d", r.prefix, id)
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) Insert(ctx context.Context, input models.MOrderInput) (*models.MOrder, error) {
	id, err := r.Client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "allocate order id")
	}

	order := &models.MOrder{ID: id, CreatedAt: time.Now().UTC()}
	order.Apply(input)

	data, err := json.Marshal(order)
	if err != nil {
		return nil, errors.Wrap(err, "encode order")
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.orderKey(id), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	return order, nil
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) GetByID(ctx context.Context, id int64) (*models.MOrder, error) {
	raw, err := r.Client.Get(ctx, r.orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return decodeOrder(raw)
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) List(ctx context.Context, skip, limit int) ([]models.MOrder, error) {
	orders := []models.MOrder{}
	if limit == 0 {
		return orders, nil
	}

	// -1 is the last member; used when skip+limit would overflow
	stop := int64(-1)
	if limit <= math.MaxInt-skip {
		stop = int64(skip + limit - 1)
	}

	ids, err := r.Client.ZRange(ctx, r.indexKey(), int64(skip), stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list order ids")
	}
	if len(ids) == 0 {
		return orders, nil
	}

	keys := make([]string, len(ids))
	for i, member := range ids {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad index member %q", member)
		}
		keys[i] = r.orderKey(id)
	}

	values, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}

	for _, val := range values {
		payload, ok := val.(string)
		if !ok {
			continue
		}
		order, err := decodeOrder([]byte(payload))
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) UpdateByID(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error) {
	key := r.orderKey(id)
	var updated *models.MOrder

	err := r.Client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errOrderMissing
		}
		if err != nil {
			return err
		}

		order, err := decodeOrder(raw)
		if err != nil {
			return err
		}
		order.Apply(input)
		now := time.Now().UTC()
		order.UpdatedAt = &now

		data, err := json.Marshal(order)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = order
		}
		return err
	}, key)

	if errors.Is(err, errOrderMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}
	return updated, nil
}

// -----------------------------------------------------------------------------

func (r *RedisOrderStore) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func decodeOrder(raw []byte) (*models.MOrder, error) {
	var order models.MOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &order, nil
}
