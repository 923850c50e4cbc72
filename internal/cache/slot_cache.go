package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "slots"

// SlotCache кэш вычисленных списков свободных слотов в Redis.
// С nil-клиентом кэш выключен: Get всегда промах, остальные методы ничего не делают
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotCache(client *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{client: client, ttl: ttl}
}

// Enabled подключён ли Redis
func (c *SlotCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key ключ списка слотов врача на дату
func Key(doctorID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, doctorID, day.Format(time.DateOnly))
}

func doctorPattern(doctorID string) string {
	return fmt.Sprintf("%s:%s:*", keyPrefix, doctorID)
}

// Get возвращает слоты из кэша. ok=false - промах
func (c *SlotCache) Get(ctx context.Context, doctorID string, day time.Time) ([]time.Time, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, Key(doctorID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slots from cache: %w", err)
	}

	slots, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	return slots, true, nil
}

// Set сохраняет слоты на ttl
func (c *SlotCache) Set(ctx context.Context, doctorID string, day time.Time, slots []time.Time) error {
	if !c.Enabled() {
		return nil
	}

	data, err := Encode(slots)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, Key(doctorID, day), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set slots in cache: %w", err)
	}
	return nil
}

// InvalidateDay удаляет список врача на одну дату
func (c *SlotCache) InvalidateDay(ctx context.Context, doctorID string, day time.Time) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, Key(doctorID, day)).Err(); err != nil {
		return fmt.Errorf("delete slots from cache: %w", err)
	}
	return nil
}

// InvalidateDoctor удаляет все закэшированные даты врача
func (c *SlotCache) InvalidateDoctor(ctx context.Context, doctorID string) error {
	if !c.Enabled() {
		return nil
	}

	iter := c.client.Scan(ctx, 0, doctorPattern(doctorID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan doctor slot keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete doctor slot keys: %w", err)
	}
	return nil
}

// Encode сериализует слоты в JSON-массив RFC 3339 строк
func Encode(slots []time.Time) ([]byte, error) {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format(time.RFC3339))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	return data, nil
}

// Decode обратное к Encode
func Decode(data []byte) ([]time.Time, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}

	slots := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("decode slot %q: %w", s, err)
		}
		slots = append(slots, t)
	}
	return slots, nil
}
