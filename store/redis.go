package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/install"
)

// RedisConfig configures the Redis connection used by RedisStore.
type RedisConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host" default:"localhost"`
	Port     string `mapstructure:"port" json:"port" yaml:"port" default:"6379"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db" validate:"gte=0"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeUnavailable, "redis ping failed")
	}
	logger.Info("redis connected",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
		zap.String("password", redactedPassword(cfg.Password)))
	return client, nil
}

func redactedPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return "[REDACTED]"
}

// RedisOptions tunes RedisStore.
type RedisOptions struct {
	Prefix     string        // key prefix, default "addonstate"
	TTL        time.Duration // 0 keeps records forever
	MaxRetries int           // optimistic transaction attempts, default 5
	Logger     *zap.Logger
}

// RedisStore keeps records as JSON under prefix:install:{guid}. Apply runs a
// WATCH/MULTI read-modify-write so concurrent appliers serialize per key.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	retryer *errors.Retryer
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = "addonstate"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &RedisStore{
		client:  client,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		retryer: errors.NewRetryer(opts.MaxRetries),
		logger:  opts.Logger,
		now:     time.Now,
	}
}

// Key returns the Redis key for guid.
func (s *RedisStore) Key(guid string) string {
	return s.prefix + ":install:" + guid
}

func (s *RedisStore) guidFromKey(key string) string {
	return strings.TrimPrefix(key, s.prefix+":install:")
}

func (s *RedisStore) Get(ctx context.Context, guid string) (install.Record, error) {
	data, err := s.client.Get(ctx, s.Key(guid)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return install.NewRecord(guid), nil
	}
	if err != nil {
		return install.Record{}, errors.NewStorage("redis get failed", err).WithDetail("guid", guid)
	}
	rec, err := decodeRecord(guid, data)
	if err != nil {
		return install.Record{}, errors.NewStorage("decode install record", err).WithDetail("guid", guid)
	}
	return rec, nil
}

func (s *RedisStore) Apply(ctx context.Context, guid string, ev install.Event) (install.Record, error) {
	key := s.Key(guid)
	var result install.Record

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !stderrors.Is(err, redis.Nil) {
			return errors.NewStorage("redis get failed", err)
		}
		rec, err := decodeRecord(guid, data)
		if err != nil {
			return errors.NewStorage("decode install record", err)
		}

		rec = install.Reduce(rec, ev)
		rec.UpdatedAt = s.now()
		encoded, err := encodeRecord(rec)
		if err != nil {
			return errors.NewStorage("encode install record", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = rec
		return nil
	}

	err := s.retryer.Do(ctx, func() error {
		err := s.client.Watch(ctx, txf, key)
		if stderrors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("install record changed during apply, retrying",
				zap.String("guid", guid), zap.String("event", ev.Name()))
			return errors.NewConflict("install record", guid)
		}
		return err
	})
	if err != nil {
		return install.Record{}, err
	}
	return result, nil
}

func (s *RedisStore) Clear(ctx context.Context, guid string) error {
	if err := s.client.Del(ctx, s.Key(guid)).Err(); err != nil {
		return errors.NewStorage("redis del failed", err).WithDetail("guid", guid)
	}
	return nil
}

// List scans every record under the prefix.
func (s *RedisStore) List(ctx context.Context) ([]install.Record, error) {
	var out []install.Record
	iter := s.client.Scan(ctx, 0, s.prefix+":install:*", 100).Iterator()
	for iter.Next(ctx) {
		rec, err := s.Get(ctx, s.guidFromKey(iter.Val()))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.NewStorage("redis scan failed", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out, nil
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Lister = (*RedisStore)(nil)
)
