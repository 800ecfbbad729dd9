package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/width"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/repo"
)

const (
	titleMaxLen = 255
	nameMaxLen  = 255

	defaultPageSize = 20
	maxPageSize     = 100
)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeText folds full-width letters and digits to ASCII, trims, and
// collapses internal whitespace.
func normalizeText(s string) string {
	s = width.Fold.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// clip truncates s to max runes.
func clip(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// cleanList trims entries, drops empties and keeps the first occurrence of
// each value. The result is never nil.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// pageBounds clamps paging input and returns the offset.
func pageBounds(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// mapRepoErr translates repository sentinels into service errors.
func mapRepoErr(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrDuplicate
	}
	return err
}

// statsTag folds a row count and latest update into an ETag version.
func statsTag(count int64, maxTS *time.Time, err error) (int64, string, error) {
	if err != nil {
		return 0, "", err
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return count, fmt.Sprintf("%d:%d", count, ts), nil
}
