package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DataPoint is a single timestamped value of a metric.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// RedisStorage keeps a rolling history of observations in Redis sorted sets,
// one per metric, scored by timestamp. It implements Sink.
type RedisStorage struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisOptions configures RedisStorage.
type RedisOptions struct {
	URL     string
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(opts RedisOptions) (*RedisStorage, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	if opts.Prefix == "" {
		opts.Prefix = "relevance:metrics:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStorage{
		client:  client,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
	}, nil
}

// Observe implements Sink by saving the observation as a data point keyed
// by metric name and labels.
func (rs *RedisStorage) Observe(o Observation) error {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	ts := o.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return rs.SaveDataPoint(ctx, seriesKey(o.Name, o.Labels), DataPoint{Timestamp: ts, Value: o.Value})
}

// SaveDataPoint saves a single data point and trims points older than the TTL.
func (rs *RedisStorage) SaveDataPoint(ctx context.Context, metric string, dp DataPoint) error {
	return rs.SaveBatch(ctx, metric, []DataPoint{dp})
}

// SaveBatch saves several data points in one pipeline.
func (rs *RedisStorage) SaveBatch(ctx context.Context, metric string, dataPoints []DataPoint) error {
	if len(dataPoints) == 0 {
		return nil
	}

	key := rs.prefix + metric

	members := make([]redis.Z, len(dataPoints))
	for i, dp := range dataPoints {
		members[i] = redis.Z{
			Score:  float64(dp.Timestamp.UnixMilli()),
			Member: encodeMember(dp),
		}
	}

	pipe := rs.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	minScore := time.Now().Add(-rs.ttl).UnixMilli()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", minScore))
	pipe.Expire(ctx, key, rs.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving data points: %w", err)
	}
	return nil
}

// LoadHistory returns the data points recorded at or after since, oldest first.
func (rs *RedisStorage) LoadHistory(ctx context.Context, metric string, since time.Time) ([]DataPoint, error) {
	results, err := rs.client.ZRangeByScoreWithScores(ctx, rs.prefix+metric, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	points := make([]DataPoint, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		value, ok := decodeMember(member)
		if !ok {
			continue
		}
		points = append(points, DataPoint{
			Timestamp: time.UnixMilli(int64(z.Score)),
			Value:     value,
		})
	}
	return points, nil
}

// MetricNames returns the stored series names.
func (rs *RedisStorage) MetricNames(ctx context.Context) ([]string, error) {
	var names []string
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), rs.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	return names, nil
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// seriesKey is name, or name{k=v,...} when labels are present.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	return name + "{" + labelsToKey(labels) + "}"
}

// Members carry the timestamp so equal values at different times do not
// collapse into one sorted-set entry.
func encodeMember(dp DataPoint) string {
	return strconv.FormatInt(dp.Timestamp.UnixNano(), 10) + ":" + strconv.FormatFloat(dp.Value, 'g', -1, 64)
}

func decodeMember(member string) (float64, bool) {
	_, raw, ok := strings.Cut(member, ":")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
