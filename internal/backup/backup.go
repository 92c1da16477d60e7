// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package backup writes gzipped JSON snapshots of all blog content to
// object storage and keeps only the newest few.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"inkpress/internal/metrics"
	"inkpress/internal/models"
	"inkpress/internal/storage"
	"inkpress/internal/store"
)

const (
	// KeyPrefix starts every backup object key.
	KeyPrefix = "inkpress-"
	keySuffix = ".json.gz"
	keyLayout = "2006-01-02T15-04-05Z"

	// FormatVersion is bumped when the snapshot layout changes.
	FormatVersion = 1

	batchSize = 200
)

// Posts lists every post, drafts included. *store.PostStore satisfies it.
type Posts interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.Post, error)
}

// Categories lists every category. *store.CategoryStore satisfies it.
type Categories interface {
	List(ctx context.Context) ([]models.Category, error)
}

// Comments lists comments; an empty status selects every state.
// *store.CommentStore satisfies it.
type Comments interface {
	List(ctx context.Context, status models.CommentStatus, limit, offset int) ([]models.Comment, error)
}

// ObjectStore is the bucket the snapshots go to. *storage.Client satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// Snapshot is the complete content of the blog at one point in time.
// User accounts are not included.
type Snapshot struct {
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	Posts      []models.Post     `json:"posts"`
	Categories []models.Category `json:"categories"`
	Comments   []models.Comment  `json:"comments"`
}

// Tables is one consistent view of the content tables.
type Tables struct {
	Posts      Posts
	Categories Categories
	Comments   Comments
}

// Source hands fn a view of the tables that no concurrent write can
// change while fn runs.
type Source interface {
	View(ctx context.Context, fn func(ctx context.Context, t Tables) error) error
}

// DBSource reads the tables inside a single read-only REPEATABLE READ
// transaction.
type DBSource struct {
	DB *sql.DB
}

// View implements Source.
func (d DBSource) View(ctx context.Context, fn func(ctx context.Context, t Tables) error) error {
	return store.ReadOnly(ctx, d.DB, func(tx *sql.Tx) error {
		return fn(ctx, Tables{
			Posts:      store.NewPostStore(tx),
			Categories: store.NewCategoryStore(tx),
			Comments:   store.NewCommentStore(tx),
		})
	})
}

// Service takes and rotates backups.
type Service struct {
	source  Source
	objects ObjectStore
	keep    int
	now     func() time.Time
}

// New creates a backup Service that retains the newest keep snapshots.
func New(source Source, objects ObjectStore, keep int) *Service {
	if keep < 1 {
		keep = 1
	}
	return &Service{
		source:  source,
		objects: objects,
		keep:    keep,
		now:     time.Now,
	}
}

// Snapshot reads all posts, categories and comments from one view, so a
// comment never refers to a post the snapshot lacks. The reads share a
// transaction and run one after another.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Version: FormatVersion, CreatedAt: s.now().UTC()}

	err := s.source.View(ctx, func(ctx context.Context, t Tables) error {
		posts, err := collect(ctx, t.Posts.ListAll)
		if err != nil {
			return err
		}
		cats, err := t.Categories.List(ctx)
		if err != nil {
			return err
		}
		if cats == nil {
			cats = []models.Category{}
		}
		comments, err := collect(ctx, func(ctx context.Context, limit, offset int) ([]models.Comment, error) {
			return t.Comments.List(ctx, "", limit, offset)
		})
		if err != nil {
			return err
		}
		snap.Posts, snap.Categories, snap.Comments = posts, cats, comments
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// collect pages through a listing until a short batch comes back.
func collect[T any](ctx context.Context, list func(ctx context.Context, limit, offset int) ([]T, error)) ([]T, error) {
	all := []T{}
	for offset := 0; ; offset += batchSize {
		batch, err := list(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < batchSize {
			return all, nil
		}
	}
}

// Run takes a snapshot, uploads it and prunes old backups. It returns the
// key of the new object.
func (s *Service) Run(ctx context.Context) (key string, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.BackupRuns.WithLabelValues(result).Inc()
	}()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	body, err := encode(snap)
	if err != nil {
		return "", err
	}

	key = Key(snap.CreatedAt)
	if err := s.objects.Upload(ctx, key, "application/gzip", bytes.NewReader(body), int64(len(body))); err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	slog.Info("backup uploaded", "key", key, "bytes", len(body),
		"posts", len(snap.Posts), "categories", len(snap.Categories), "comments", len(snap.Comments))

	if err := s.Rotate(ctx); err != nil {
		return key, err
	}
	return key, nil
}

// Rotate deletes all but the newest backups. Keys embed their UTC
// timestamp, so lexical order is chronological order.
func (s *Service) Rotate(ctx context.Context) error {
	objects, err := s.objects.List(ctx, KeyPrefix)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var keys []string
	for _, o := range objects {
		if strings.HasSuffix(o.Key, keySuffix) {
			keys = append(keys, o.Key)
		}
	}
	if len(keys) <= s.keep {
		return nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, key := range keys[s.keep:] {
		if err := s.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete old backup: %w", err)
		}
		slog.Info("old backup deleted", "key", key)
	}
	return nil
}

// Key returns the object key for a snapshot taken at t.
func Key(t time.Time) string {
	return KeyPrefix + t.UTC().Format(keyLayout) + keySuffix
}

func encode(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress backup: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a snapshot written by Run.
func Decode(r io.Reader) (*Snapshot, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	defer zr.Close()

	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &snap, nil
}
