package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hearth/internal/progression"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// Store keeps progression records in Redis.
// Layout:
// - {prefix}:progress:{guild}:{user} -> hash {xp, last_grant_at (unix ms, empty when unset)}
// - {prefix}:progress-order:{guild}  -> zset of user ids scored by first write
// - {prefix}:progress-seq            -> insertion counter
type Store struct {
	client *redis.Client
	prefix string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "hearth"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) recordKey(guildID, userID string) string {
	return s.prefix + ":progress:" + guildID + ":" + userID
}

func (s *Store) orderKey(guildID string) string {
	return s.prefix + ":progress-order:" + guildID
}

func (s *Store) seqKey() string {
	return s.prefix + ":progress-seq"
}

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (progression.Record, bool, error) {
	values, err := s.client.HGetAll(ctx, s.recordKey(guildID, userID)).Result()
	if err != nil {
		return progression.Record{}, false, err
	}
	if len(values) == 0 {
		return progression.Record{}, false, nil
	}
	record, err := decode(guildID, userID, values)
	if err != nil {
		return progression.Record{}, false, err
	}
	return record, true, nil
}

func (s *Store) SetProgress(ctx context.Context, record progression.Record) error {
	orderKey := s.orderKey(record.GuildID)
	ordered := true
	if err := s.client.ZScore(ctx, orderKey, record.UserID).Err(); err != nil {
		if !errors.Is(err, redis.Nil) {
			return err
		}
		ordered = false
	}
	var seq int64
	if !ordered {
		next, err := s.client.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return err
		}
		seq = next
	}

	lastGrant := ""
	if !record.LastGrantAt.IsZero() {
		lastGrant = strconv.FormatInt(record.LastGrantAt.UnixMilli(), 10)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(record.GuildID, record.UserID),
			"xp", record.XP,
			"last_grant_at", lastGrant,
		)
		if !ordered {
			pipe.ZAddNX(ctx, orderKey, redis.Z{Score: float64(seq), Member: record.UserID})
		}
		return nil
	})
	return err
}

func (s *Store) DeleteProgress(ctx context.Context, guildID, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(guildID, userID))
		pipe.ZRem(ctx, s.orderKey(guildID), userID)
		return nil
	})
	return err
}

func (s *Store) ListProgress(ctx context.Context, guildID string) ([]progression.Record, error) {
	users, err := s.client.ZRange(ctx, s.orderKey(guildID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(users))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, userID := range users {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(guildID, userID))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	records := make([]progression.Record, 0, len(users))
	for i, userID := range users {
		values := cmds[i].Val()
		if len(values) == 0 {
			continue
		}
		record, err := decode(guildID, userID, values)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func decode(guildID, userID string, values map[string]string) (progression.Record, error) {
	record := progression.Record{GuildID: guildID, UserID: userID}
	xp, err := strconv.ParseInt(values["xp"], 10, 64)
	if err != nil {
		return progression.Record{}, fmt.Errorf("decode xp for %s: %w", userID, err)
	}
	record.XP = xp
	if raw := values["last_grant_at"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return progression.Record{}, fmt.Errorf("decode last_grant_at for %s: %w", userID, err)
		}
		record.LastGrantAt = time.UnixMilli(ms)
	}
	return record, nil
}
