package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const (
	sitemapCacheKey   = "xml"
	sitemapCourseCap  = 500
	sitemapNamespace  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	sitemapDateLayout = "2006-01-02"
)

var sitemapStaticPages = []string{"", "/login", "/explorar", "/ranking", "/perfil", "/dashboard"}

type sitemapURLSet struct {
	XMLName xml.Name          `xml:"urlset"`
	Xmlns   string            `xml:"xmlns,attr"`
	URLs    []sitemapURLEntry `xml:"url"`
}

type sitemapURLEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemapService struct {
	repo    repositories.Repository
	db      *gorm.DB
	logger  *slog.Logger
	cache   *cache.CacheHelper
	siteURL string
}

func NewSitemapService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager, siteURL string) SitemapService {
	return &sitemapService{
		repo:    repo,
		db:      db,
		logger:  logger,
		cache:   cacheManager.Sitemap,
		siteURL: siteURL,
	}
}

func (s *sitemapService) Generate(ctx context.Context) ([]byte, error) {
	var doc string
	err := s.cache.CacheOrExecute(ctx, sitemapCacheKey, &doc, cache.SitemapCacheConfig.TTL, func() (interface{}, error) {
		urls, err := s.urls(ctx)
		if err != nil {
			return nil, err
		}
		out, err := renderSitemap(urls)
		if err != nil {
			return nil, err
		}
		return string(out), nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (s *sitemapService) urls(ctx context.Context) ([]models.SitemapURL, error) {
	courses, err := s.repo.Course().ListPublishedForSitemap(ctx, nil, sitemapCourseCap)
	if err != nil {
		return nil, fmt.Errorf("failed to list sitemap courses: %w", err)
	}

	urls := make([]models.SitemapURL, 0, len(sitemapStaticPages)+len(courses))
	for _, page := range sitemapStaticPages {
		urls = append(urls, models.SitemapURL{
			Loc:        s.siteURL + page,
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}
	for _, c := range courses {
		updated := c.UpdatedAt
		urls = append(urls, models.SitemapURL{
			Loc:        fmt.Sprintf("%s/curso/%d", s.siteURL, c.ID),
			LastMod:    &updated,
			ChangeFreq: "monthly",
			Priority:   0.6,
		})
	}
	return urls, nil
}

func renderSitemap(urls []models.SitemapURL) ([]byte, error) {
	set := sitemapURLSet{Xmlns: sitemapNamespace, URLs: make([]sitemapURLEntry, len(urls))}
	for i, u := range urls {
		entry := sitemapURLEntry{
			Loc:        u.Loc,
			ChangeFreq: u.ChangeFreq,
			Priority:   strconv.FormatFloat(u.Priority, 'f', 1, 64),
		}
		if u.LastMod != nil && !u.LastMod.IsZero() {
			entry.LastMod = u.LastMod.UTC().Format(sitemapDateLayout)
		}
		set.URLs[i] = entry
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
