// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file provides small aggregate/statistics
// queries used by the monitoring endpoints and the end-of-run summary. Each
// function is context-aware and safe to call while a load is running.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/domain"
)

// TableCounts holds one row count per archive table.
type TableCounts struct {
	Posts    int64 `json:"posts"`
	Authors  int64 `json:"authors"`
	URLs     int64 `json:"urls"`
	PostURLs int64 `json:"post_urls"`
	Mentions int64 `json:"post_mentions"`
	Tags     int64 `json:"post_tags"`
	Media    int64 `json:"post_media"`
}

// CountRows returns the current row count of every archive table.
func CountRows(ctx context.Context, db *gorm.DB) (*TableCounts, error) {
	var tc TableCounts
	for _, tbl := range []struct {
		model any
		dst   *int64
	}{
		{&domain.Post{}, &tc.Posts},
		{&domain.Author{}, &tc.Authors},
		{&domain.URL{}, &tc.URLs},
		{&domain.PostURL{}, &tc.PostURLs},
		{&domain.Mention{}, &tc.Mentions},
		{&domain.Tag{}, &tc.Tags},
		{&domain.Media{}, &tc.Media},
	} {
		if err := db.WithContext(ctx).Model(tbl.model).Count(tbl.dst).Error; err != nil {
			return nil, err
		}
	}
	return &tc, nil
}

// NewestPost returns the greatest created_at among stored posts: the
// high-water mark of the loaded corpus.
//
// It executes two lightweight queries against the posts table, restricted to
// dated rows (created_at is nullable). When no dated post exists, the result
// is nil.
func NewestPost(ctx context.Context, db *gorm.DB) (*time.Time, error) {
	q := db.WithContext(ctx).Model(&domain.Post{}).Where("created_at IS NOT NULL")

	// Count
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err := q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row.CreatedAt, nil
}
