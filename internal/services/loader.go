package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vvka-141/sparketl/internal/lookup"
	"github.com/vvka-141/sparketl/internal/transform"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// FileHandler turns the records of one file into rows on tx and counts
// them into summary.
type FileHandler func(ctx context.Context, tx sparketl.FileTx, file sparketl.FileMetadata, records []sparketl.Record, summary *sparketl.PassSummary) error

// LoadService drives the catalog and event passes.
//
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
// Create separate instances for concurrent runs.
type LoadService struct {
	walker sparketl.FileWalker
	parser sparketl.RecordParser
	logger sparketl.Logger
}

// NewLoadService creates a new LoadService with all dependencies injected.
// Panics if any dependency is nil.
func NewLoadService(walker sparketl.FileWalker, parser sparketl.RecordParser, logger sparketl.Logger) *LoadService {
	if walker == nil {
		panic("walker cannot be nil")
	}
	if parser == nil {
		panic("parser cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &LoadService{
		walker: walker,
		parser: parser,
		logger: logger,
	}
}

// Run executes the configured passes against store, catalog first.
// The returned summary covers every pass that started, including a failed one.
func (s *LoadService) Run(ctx context.Context, store sparketl.Store, cfg sparketl.LoadConfig) (*sparketl.RunSummary, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required: %w", sparketl.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	summary := &sparketl.RunSummary{RunID: runID}

	resolver, cache := buildResolver(cfg)
	events := transform.NewEventTransformer(resolver)

	s.logger.Verbose("Run %s started", runID)

	for _, pass := range cfg.Passes {
		var root string
		var handler FileHandler
		switch pass {
		case sparketl.PassSongs:
			root, handler = cfg.SongDataPath, s.processSongFile
		case sparketl.PassLogs:
			root, handler = cfg.LogDataPath, s.eventFileHandler(events)
		}

		ps := sparketl.PassSummary{Pass: pass, Root: root}
		start := time.Now()
		err := s.ProcessData(ctx, store, root, handler, &ps)
		ps.Duration = time.Since(start)
		summary.Passes = append(summary.Passes, ps)

		if err != nil {
			return summary, fmt.Errorf("%s pass failed: %w", pass, err)
		}
	}

	if cache != nil {
		stats := cache.Stats()
		s.logger.Verbose("Lookup cache: %d hits, %d misses, %d evictions, %d entries", stats.Hits, stats.Misses, stats.Evictions, cache.Len())
	}

	return summary, nil
}

func buildResolver(cfg sparketl.LoadConfig) (sparketl.LookupResolver, *lookup.CachingResolver) {
	var resolver sparketl.LookupResolver = lookup.NewStoreResolver(cfg.StrictLookup)
	if cfg.LookupCacheTTL <= 0 {
		return resolver, nil
	}

	size := cfg.LookupCacheSize
	if size == 0 {
		size = sparketl.DefaultLookupCacheSize
	}
	cache := lookup.NewCachingResolver(resolver, cfg.LookupCacheTTL, size)
	return cache, cache
}

// ProcessData walks root and loads each file through handler in its own
// transaction, in traversal order. The first failure rolls back that
// file and stops the pass; earlier files stay committed.
func (s *LoadService) ProcessData(ctx context.Context, store sparketl.Store, root string, handler FileHandler, summary *sparketl.PassSummary) error {
	scan, err := s.walker.ScanDirectory(root)
	if err != nil {
		return err
	}

	total := len(scan.Files)
	summary.FilesFound = total
	s.logger.Info("%d files found in %s", total, root)

	for i, file := range scan.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processFile(ctx, store, file, handler, summary); err != nil {
			return err
		}
		summary.FilesProcessed++
		s.logger.Info("%d/%d files processed.", i+1, total)
	}

	return nil
}

func (s *LoadService) processFile(ctx context.Context, store sparketl.Store, file sparketl.FileMetadata, handler FileHandler, summary *sparketl.PassSummary) (err error) {
	records, err := s.parser.ParseFile(file.Path)
	if err != nil {
		return err
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", file.Path, err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			s.logger.Error("rollback of %s failed: %v", file.Path, rbErr)
		}
	}()

	if err := handler(ctx, tx, file, records, summary); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", file.Path, err)
	}
	return nil
}

// processSongFile loads the song and artist of a catalog file. Catalog
// files hold a single record; extra records are ignored.
func (s *LoadService) processSongFile(ctx context.Context, tx sparketl.FileTx, file sparketl.FileMetadata, records []sparketl.Record, summary *sparketl.PassSummary) error {
	if len(records) == 0 {
		return &sparketl.ParseError{Path: file.Path, Err: errors.New("catalog file has no records")}
	}
	if len(records) > 1 {
		s.logger.Verbose("%s: %d records, only the first is loaded", file.RelativePath, len(records))
	}

	song, artist, err := transform.TransformCatalog(records[0])
	if err != nil {
		return err
	}

	if err := tx.InsertSongs(ctx, song); err != nil {
		return err
	}
	if err := tx.InsertArtists(ctx, artist); err != nil {
		return err
	}

	summary.Songs++
	summary.Artists++
	return nil
}

// eventFileHandler loads time, user and songplay rows for every NextSong
// event of a log file.
func (s *LoadService) eventFileHandler(events *transform.EventTransformer) FileHandler {
	return func(ctx context.Context, tx sparketl.FileTx, file sparketl.FileMetadata, records []sparketl.Record, summary *sparketl.PassSummary) error {
		times := make([]sparketl.TimeRecord, 0, len(records))
		users := make([]sparketl.User, 0, len(records))
		plays := make([]sparketl.SongPlay, 0, len(records))

		for _, rec := range records {
			rows, err := events.Transform(ctx, tx, rec)
			if err != nil {
				return err
			}
			if rows == nil {
				summary.SkippedEvents++
				continue
			}

			times = append(times, rows.Time)
			users = append(users, rows.User)
			plays = append(plays, rows.SongPlay)
			if rows.Matched {
				summary.LookupHits++
			} else {
				summary.LookupMisses++
			}
		}

		if len(plays) == 0 {
			s.logger.Verbose("%s: no NextSong events", file.RelativePath)
			return nil
		}

		if err := tx.InsertTimes(ctx, times...); err != nil {
			return err
		}
		if err := tx.UpsertUsers(ctx, users...); err != nil {
			return err
		}
		if err := tx.InsertSongPlays(ctx, plays...); err != nil {
			return err
		}

		summary.TimeRows += len(times)
		summary.Users += len(users)
		summary.SongPlays += len(plays)
		return nil
	}
}
