package cellGenerator

//Sharded generation. Every shard gets its own seed drawn from a master source, which makes the
//result independent of the number of workers and of scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

//DefaultShardSize is the number of records generated per shard
const DefaultShardSize = 4096

var ErrInvalidShardSize = errors.New("shard size must be positive")

//ParallelConfig configures resource usage of GenerateParallel
type ParallelConfig struct {
	//Workers is the number of goroutines drawing shards. Values < 1 are treated as 1
	Workers int
	//ShardSize is the number of records per shard. Zero selects DefaultShardSize.
	//Changing it changes the generated records for a given seed
	ShardSize int
	//Observer receives events from all workers concurrently. May be nil
	Observer Observer
	//InfoLog receives progress messages. May be nil
	InfoLog *log.Logger
}

type shard struct {
	idx   int
	seed  int64
	start int
	end   int
}

//GenerateParallel draws n records using cfg.Workers goroutines. The result only depends on config, seed, n and the shard size
func GenerateParallel(ctx context.Context, config Config, seed int64, n int, cfg ParallelConfig) ([]CellRecord, error) {
	if n < 0 {
		return nil, fmt.Errorf("requested %v records : %w", n, ErrNegativeCount)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config : %w", err)
	}
	shardSize := cfg.ShardSize
	if shardSize == 0 {
		shardSize = DefaultShardSize
	}
	if shardSize < 0 {
		return nil, ErrInvalidShardSize
	}
	workerCount := cfg.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	infoLog := cfg.InfoLog
	if infoLog == nil {
		infoLog = log.New(io.Discard, "", 0)
	}

	//DO NOT CHANGE SIZE, workers write into disjoint sub slices
	records := make([]CellRecord, n)

	//seeds are drawn in shard order before any worker starts
	master := NewSeededRand(seed)
	shardCount := (n + shardSize - 1) / shardSize
	shards := make([]shard, 0, shardCount)
	for i := 0; i < shardCount; i++ {
		end := (i + 1) * shardSize
		if end > n {
			end = n
		}
		shards = append(shards, shard{idx: i, seed: master.Int63(), start: i * shardSize, end: end})
	}
	infoLog.Printf("generating %v records in %v shards on %v workers\n", n, shardCount, workerCount)

	workers, ctx := errgroup.WithContext(ctx)
	jobs := make(chan shard)

	for id := 0; id < workerCount; id++ {
		workerID := id
		workers.Go(func() error {
			for s := range jobs {
				startTime := time.Now()
				g, err := NewGenerator(config, NewSeededRand(s.seed), cfg.Observer)
				if err != nil {
					return fmt.Errorf("worker %v : %w", workerID, err)
				}
				g.fill(records[s.start:s.end])
				infoLog.Printf("worker %v: shard %v (%v records) took %v\n", workerID, s.idx, s.end-s.start, time.Since(startTime))
			}
			return nil
		})
	}

	//feed jobs
	fed := 0
feedLoop:
	for fed < len(shards) {
		select {
		case <-ctx.Done():
			break feedLoop
		case jobs <- shards[fed]:
			fed++
		}
	}
	close(jobs)

	if err := workers.Wait(); err != nil {
		return nil, err
	}
	if fed != len(shards) {
		return nil, fmt.Errorf("aborted after %v of %v shards : %w", fed, len(shards), ctx.Err())
	}
	return records, nil
}
