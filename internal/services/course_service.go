package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

const (
	defaultPageSize    = 12
	defaultLatestLimit = 6
	maxLatestLimit     = 24
)

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheHelper
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cacheManager.Catalog,
	}
}

// catalogKey renders the normalized filters in a stable order
func catalogKey(q *CourseListQuery, page, size int) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("size", strconv.Itoa(size))
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Difficulty != "" {
		values.Set("difficulty", q.Difficulty)
	}
	if q.MinPrice != nil {
		values.Set("min_price", strconv.FormatFloat(*q.MinPrice, 'f', 2, 64))
	}
	if q.MaxPrice != nil {
		values.Set("max_price", strconv.FormatFloat(*q.MaxPrice, 'f', 2, 64))
	}
	if q.Query != "" {
		values.Set("q", q.Query)
	}
	if q.SortBy != "" {
		values.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		values.Set("sort_order", q.SortOrder)
	}
	return "list:" + values.Encode()
}

func (s *courseService) List(ctx context.Context, query *CourseListQuery) (*CourseListResponse, error) {
	if query == nil {
		query = &CourseListQuery{}
	}
	if err := s.validator.Validate(query); err != nil {
		return nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.Size
	if size < 1 {
		size = defaultPageSize
	}

	published := true
	filters := repositories.CourseFilters{
		Published: &published,
		MinPrice:  query.MinPrice,
		MaxPrice:  query.MaxPrice,
		Query:     query.Query,
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.Category != "" {
		filters.Category = &query.Category
	}
	if query.Difficulty != "" {
		difficulty := models.Difficulty(query.Difficulty)
		filters.Difficulty = &difficulty
	}

	var response CourseListResponse
	err := s.cache.CacheOrExecute(ctx, catalogKey(query, page, size), &response, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		courses, total, err := s.repo.Course().List(ctx, nil, filters)
		if err != nil {
			return nil, err
		}
		if err := s.attachModuleCounts(ctx, courses); err != nil {
			return nil, err
		}
		return &CourseListResponse{Courses: courses, Total: total, Page: page, Size: size}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if response.Courses == nil {
		response.Courses = []*models.Course{}
	}
	return &response, nil
}

func (s *courseService) attachModuleCounts(ctx context.Context, courses []*models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	counts, err := s.repo.Module().CountByCourses(ctx, nil, ids)
	if err != nil {
		return err
	}
	for _, c := range courses {
		c.ModuleCount = counts[c.ID]
	}
	return nil
}

func (s *courseService) Latest(ctx context.Context, limit int) ([]*models.Course, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}

	var courses []*models.Course
	err := s.cache.CacheOrExecute(ctx, fmt.Sprintf("latest:%d", limit), &courses, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Course().ListLatest(ctx, nil, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list latest courses: %w", err)
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	return courses, nil
}

func (s *courseService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.cache.CacheOrExecute(ctx, "categories", &categories, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Course().ListCategories(ctx, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *courseService) GetByID(ctx context.Context, id uint, viewer *models.User) (*CourseDetailResponse, error) {
	course, err := s.repo.Course().GetByIDWithModules(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}
	if !course.Published && !viewer.IsAdmin() {
		return nil, ErrCourseNotFound
	}

	// outline only, lesson bodies are served by the player
	for i := range course.Modules {
		course.Modules[i].Sections = nil
	}

	response := &CourseDetailResponse{Course: course}
	if viewer != nil {
		enrolled, err := s.repo.Enrollment().Exists(ctx, nil, viewer.ID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		response.IsEnrolled = enrolled
	}
	return response, nil
}
