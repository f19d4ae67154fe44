package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const menuViewsKey = "menu:counters:views"

// ViewSink persists drained view increments keyed by restaurant id.
type ViewSink interface {
	AddMenuViews(ctx context.Context, increments map[string]int64) error
}

// MenuViews buffers public menu views in a Redis hash and periodically
// flushes them to the database in one batched update.
type MenuViews struct {
	client *redis.Client
	sink   ViewSink
	key    string
}

func NewMenuViews(client *redis.Client, sink ViewSink) *MenuViews {
	return &MenuViews{client: client, sink: sink, key: menuViewsKey}
}

// RecordMenuView increments the pending view counter for a restaurant.
func (m *MenuViews) RecordMenuView(ctx context.Context, restaurantID string) error {
	return m.client.HIncrBy(ctx, m.key, restaurantID, 1).Err()
}

// Flush drains the hash and hands the increments to the sink. The hash is
// renamed first so views recorded during the flush land in a fresh hash.
func (m *MenuViews) Flush(ctx context.Context) (int, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", m.key, time.Now().UnixNano())
	if err := m.client.Rename(ctx, m.key, tmpKey).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return 0, nil
		}
		return 0, err
	}
	defer m.client.Del(context.WithoutCancel(ctx), tmpKey)

	data, err := m.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return 0, err
	}
	increments := parseIncrements(data)
	if len(increments) == 0 {
		return 0, nil
	}
	if err := m.sink.AddMenuViews(ctx, increments); err != nil {
		return 0, err
	}
	return len(increments), nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (m *MenuViews) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := m.Flush(context.WithoutCancel(ctx)); err != nil {
				log.Warnf("[Counter] Final menu view flush failed: %v", err)
			}
			return
		case <-ticker.C:
			n, err := m.Flush(ctx)
			if err != nil {
				log.Warnf("[Counter] Menu view flush failed: %v", err)
				continue
			}
			if n > 0 {
				log.Debugf("[Counter] Flushed menu views for %d restaurants", n)
			}
		}
	}
}

func parseIncrements(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for id, raw := range data {
		inc, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || inc <= 0 || id == "" {
			continue
		}
		out[id] = inc
	}
	return out
}

// BatchIncrementSQL builds one UPDATE that adds each increment to column,
// matching rows by id. Ids are sorted for a stable statement and lock order.
func BatchIncrementSQL(table, column string, increments map[string]int64) (string, []interface{}) {
	ids := make([]string, 0, len(increments))
	for id := range increments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	args := make([]interface{}, 0, len(ids)*3)
	fmt.Fprintf(&b, "UPDATE %s SET %s = %s + CASE id", table, column, column)
	for _, id := range ids {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, id, increments[id])
	}
	b.WriteString(" ELSE 0 END WHERE id IN (")
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(")")
	return b.String(), args
}
