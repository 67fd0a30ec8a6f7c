package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultMaxLinks = 10
	MaxMaxLinks     = 100
)

var (
	ErrInvalidOptions = errors.New("invalid crawl options")
	ErrFetch          = errors.New("failed to fetch page")
)

// Options describes one crawl submission.
type Options struct {
	URL            string `json:"url" binding:"required"`
	Title          string `json:"title"`
	CrawlLinks     bool   `json:"crawl_links"`
	MaxLinks       int    `json:"max_links"`
	SameDomainOnly bool   `json:"same_domain_only"`
	LinkPattern    string `json:"link_pattern"`
	MergePages     bool   `json:"merge_pages"`
	CategoryID     string `json:"category_id"`
}

// Normalize validates o and fills defaults. It returns the parsed seed URL.
func (o *Options) Normalize() (*url.URL, error) {
	o.URL = strings.TrimSpace(o.URL)
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidOptions)
	}
	if o.MaxLinks == 0 {
		o.MaxLinks = DefaultMaxLinks
	}
	if o.MaxLinks < 1 || o.MaxLinks > MaxMaxLinks {
		return nil, fmt.Errorf("%w: max_links must be between 1 and %d", ErrInvalidOptions, MaxMaxLinks)
	}
	u.Fragment = ""
	return u, nil
}

func (o Options) filter() FilterOptions {
	return FilterOptions{
		MaxLinks:       o.MaxLinks,
		SameDomainOnly: o.SameDomainOnly,
		LinkPattern:    o.LinkPattern,
	}
}
