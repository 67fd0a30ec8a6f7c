// Package query is the filter, sort and paginate executor used by every list
// endpoint. Backends that can filter server side implement the same contract
// natively, everything else collects into memory and calls Execute.
package query

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/quka-ai/ragstore/pkg/types"
)

var ErrInvalidPage = errors.New("invalid pagination")

type PageRequest struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize fills defaults and validates bounds: page >= 1, page_size in [1,500].
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Page < 0 {
		return p, fmt.Errorf("%w: page must be >= 1", ErrInvalidPage)
	}
	if p.PageSize == 0 {
		p.PageSize = types.DEFAULT_PAGE_SIZE
	}
	if p.PageSize < 1 || p.PageSize > types.MAX_PAGE_SIZE {
		return p, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidPage, types.MAX_PAGE_SIZE)
	}
	return p, nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Page[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Items    []T `json:"items"`
}

type Sort struct {
	Field string
	Desc  bool
}

type Query[T any] struct {
	Filter func(T) bool
	Less   func(a, b T) bool
	Page   PageRequest
}

// Execute filters, stable-sorts and slices items. items is not modified.
func Execute[T any](items []T, q Query[T]) (Page[T], error) {
	pr, err := q.Page.Normalize()
	if err != nil {
		return Page[T]{}, err
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		if q.Filter == nil || q.Filter(item) {
			matched = append(matched, item)
		}
	}
	return paginate(matched, q.Less, pr), nil
}

// Collect drains a lazy sequence through the same pipeline. The first error
// from the sequence aborts the query.
func Collect[T any](seq iter.Seq2[T, error], q Query[T]) (Page[T], error) {
	pr, err := q.Page.Normalize()
	if err != nil {
		return Page[T]{}, err
	}

	var matched []T
	for item, err := range seq {
		if err != nil {
			return Page[T]{}, err
		}
		if q.Filter == nil || q.Filter(item) {
			matched = append(matched, item)
		}
	}
	return paginate(matched, q.Less, pr), nil
}

func paginate[T any](matched []T, less func(a, b T) bool, pr PageRequest) Page[T] {
	if less != nil {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j])
		})
	}

	page := Page[T]{
		Total:    len(matched),
		Page:     pr.Page,
		PageSize: pr.PageSize,
		Items:    []T{},
	}
	start := pr.Offset()
	if start >= len(matched) {
		return page
	}
	end := min(start+pr.PageSize, len(matched))
	page.Items = append(page.Items, matched[start:end]...)
	return page
}

// Map converts the items of a page, keeping the envelope.
func Map[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := Page[R]{
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Items:    make([]R, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
