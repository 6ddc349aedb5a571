package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage"
)

// errTxContention is returned when an optimistic transaction keeps losing races
var errTxContention = errors.New("redis transaction retries exhausted")

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// watch runs fn inside WATCH on keys, retrying when another client
// modified a watched key before EXEC
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errTxContention
}

// expire refreshes the TTL on every key of a session
func (s *Storage) expire(ctx context.Context, pipe redis.Pipeliner, id model.SessionID) {
	if s.cfg.SessionTTL <= 0 {
		return
	}
	for _, key := range allSessionKeys(id) {
		pipe.Expire(ctx, key, s.cfg.SessionTTL)
	}
}

func sessionExists(ctx context.Context, tx *redis.Tx, id model.SessionID) error {
	n, err := tx.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// sessionJoinable fails unless the session exists and still accepts players
func sessionJoinable(ctx context.Context, tx *redis.Tx, id model.SessionID) error {
	state, err := tx.HGet(ctx, sessionKey(id), fieldState).Result()
	if errors.Is(err, redis.Nil) {
		return model.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if !model.SessionState(state).CanAddPlayers() {
		return model.ErrAlreadyStarted
	}
	return nil
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	key := sessionKey(session.ID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrSessionExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldState, string(session.State),
				fieldRound, session.Round,
				fieldCreatedAt, session.CreatedAt.UnixMilli(),
				fieldUpdatedAt, session.UpdatedAt.UnixMilli(),
			)
			if s.cfg.SessionTTL > 0 {
				pipe.Expire(ctx, key, s.cfg.SessionTTL)
			}
			return nil
		})
		return err
	}, key)
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrSessionNotFound
	}

	round, err := strconv.Atoi(fields[fieldRound])
	if err != nil {
		return nil, fmt.Errorf("parse round: %w", err)
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.Session{
		ID:        id,
		State:     model.SessionState(fields[fieldState]),
		Round:     round,
		CreatedAt: time.UnixMilli(created).UTC(),
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, nil
}

func (s *Storage) SetSessionState(ctx context.Context, id model.SessionID, state model.SessionState, updatedAt time.Time) error {
	key := sessionKey(id)
	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldState, string(state),
				fieldUpdatedAt, updatedAt.UnixMilli(),
			)
			s.expire(ctx, pipe, id)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) IncrementRound(ctx context.Context, id model.SessionID, updatedAt time.Time) (int, error) {
	key := sessionKey(id)
	var round *redis.IntCmd
	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			round = pipe.HIncrBy(ctx, key, fieldRound, 1)
			pipe.HSet(ctx, key, fieldUpdatedAt, updatedAt.UnixMilli())
			s.expire(ctx, pipe, id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, err
	}
	return int(round.Val()), nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	return s.client.Del(ctx, allSessionKeys(id)...).Err()
}

// Player operations

func (s *Storage) InsertPlayer(ctx context.Context, player *model.Player, maxPlayers int) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	id := player.SessionID
	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := sessionJoinable(ctx, tx, id); err != nil {
			return err
		}
		count, err := tx.LLen(ctx, joinOrderKey(id)).Result()
		if err != nil {
			return err
		}
		if count >= int64(maxPlayers) {
			return model.ErrSessionFull
		}
		taken, err := tx.HExists(ctx, nameIndexKey(id), player.NameKey).Result()
		if err != nil {
			return err
		}
		if taken {
			return model.ErrNameTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, playersKey(id), string(player.ID), data)
			pipe.RPush(ctx, joinOrderKey(id), string(player.ID))
			pipe.HSet(ctx, nameIndexKey(id), player.NameKey, string(player.ID))
			pipe.HSet(ctx, tokenIndexKey(id), player.TokenDigest, string(player.ID))
			s.expire(ctx, pipe, id)
			return nil
		})
		return err
	}, sessionKey(id), joinOrderKey(id), nameIndexKey(id))
}

func (s *Storage) ListPlayers(ctx context.Context, id model.SessionID) ([]*model.Player, error) {
	return listPlayers(ctx, s.client, id)
}

func listPlayers(ctx context.Context, c redis.Cmdable, id model.SessionID) ([]*model.Player, error) {
	ids, err := c.LRange(ctx, joinOrderKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	values, err := c.HMGet(ctx, playersKey(id), ids...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Player hash may have expired
		}
		var player model.Player
		if err := json.Unmarshal([]byte(str), &player); err != nil {
			return nil, err
		}
		players = append(players, &player)
	}
	return players, nil
}

func (s *Storage) GetPlayerByToken(ctx context.Context, id model.SessionID, tokenDigest string) (*model.Player, error) {
	return s.getIndexedPlayer(ctx, id, tokenIndexKey(id), tokenDigest)
}

func (s *Storage) GetPlayerByNameKey(ctx context.Context, id model.SessionID, nameKey string) (*model.Player, error) {
	return s.getIndexedPlayer(ctx, id, nameIndexKey(id), nameKey)
}

func (s *Storage) getIndexedPlayer(ctx context.Context, id model.SessionID, indexKey, field string) (*model.Player, error) {
	playerID, err := s.client.HGet(ctx, indexKey, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	data, err := s.client.HGet(ctx, playersKey(id), playerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) SetPlayerRoles(ctx context.Context, id model.SessionID, roles map[model.PlayerID]model.Role) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		players, err := listPlayers(ctx, tx, id)
		if err != nil {
			return err
		}

		updates := make([]any, 0, 2*len(players))
		for _, p := range players {
			role, ok := roles[p.ID]
			if !ok {
				continue
			}
			p.Role = role
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			updates = append(updates, string(p.ID), data)
		}
		if len(updates) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, playersKey(id), updates...)
			s.expire(ctx, pipe, id)
			return nil
		})
		return err
	}, playersKey(id))
}

// Event operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	id := event.SessionID
	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := sessionExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, eventsKey(id), data)
			s.expire(ctx, pipe, id)
			return nil
		})
		return err
	}, sessionKey(id))
}

func (s *Storage) RecentEvents(ctx context.Context, id model.SessionID, limit int) ([]*model.Event, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	values, err := s.client.LRange(ctx, eventsKey(id), start, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, len(values))
	for _, val := range values {
		var event model.Event
		if err := json.Unmarshal([]byte(val), &event); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, nil
}
