package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/storage"
)

// ListCache puffert öffentliche Artikellisten. Eine nil-Implementierung ist erlaubt.
type ListCache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any)
	Invalidate(ctx context.Context)
}

type noCache struct{}

func (noCache) Get(context.Context, string, any) bool { return false }
func (noCache) Set(context.Context, string, any)      {}
func (noCache) Invalidate(context.Context)            {}

// ArticleService verwaltet Artikel: Konvertierung angenommener Einreichungen,
// Redaktion und öffentliche Listen.
type ArticleService struct {
	DB     *gorm.DB
	Store  BlobStore
	Cache  ListCache
	Logger *zap.Logger

	now func() time.Time
}

// NewArticleService erstellt eine neue Instanz des ArticleService.
func NewArticleService(db *gorm.DB, store BlobStore, cache ListCache, logger *zap.Logger) *ArticleService {
	if cache == nil {
		cache = noCache{}
	}
	return &ArticleService{DB: db, Store: store, Cache: cache, Logger: logger, now: time.Now}
}

// ConvertOptions überschreibt Felder bei der Konvertierung einer Einreichung.
type ConvertOptions struct {
	Category           *string `json:"category"`
	Volume             *int    `json:"volume"`
	Issue              *int    `json:"issue"`
	ImageURL           *string `json:"image_url"`
	IsFeatured         bool    `json:"is_featured"`
	PublishImmediately bool    `json:"publish_immediately"`
}

// ArticleInput sind die editierbaren Felder eines Artikels.
type ArticleInput struct {
	Title      string `json:"title" binding:"required"`
	Abstract   string `json:"abstract"`
	Authors    string `json:"authors"`
	Category   string `json:"category"`
	Volume     *int   `json:"volume"`
	Issue      *int   `json:"issue"`
	ImageURL   string `json:"image_url"`
	IsFeatured bool   `json:"is_featured"`
	Publish    bool   `json:"publish"`
}

// ArticleFilter für die öffentlichen Listen.
type ArticleFilter struct {
	Volume   *int
	Issue    *int
	Category string
	Featured bool
	Limit    int
}

func (f ArticleFilter) cacheKey() string {
	v, i := -1, -1
	if f.Volume != nil {
		v = *f.Volume
	}
	if f.Issue != nil {
		i = *f.Issue
	}
	return fmt.Sprintf("list:v=%d:i=%d:c=%s:f=%t:l=%d", v, i, f.Category, f.Featured, f.Limit)
}

// IssueGroup ist eine Ausgabe im Archiv.
type IssueGroup struct {
	Volume   *int             `json:"volume"`
	Issue    *int             `json:"issue"`
	Articles []models.Article `json:"articles"`
}

// ConvertSubmission erzeugt aus einer angenommenen Einreichung einen Artikel. Die
// Einreichung selbst bleibt unverändert.
func (s *ArticleService) ConvertSubmission(ctx context.Context, submissionID string, opts ConvertOptions) (*models.Article, error) {
	if err := checkID(submissionID, "submission"); err != nil {
		return nil, err
	}
	var sub models.Submission
	if err := s.DB.WithContext(ctx).First(&sub, "id = ?", submissionID).Error; err != nil {
		return nil, notFound(err, "submission")
	}
	if sub.Status != models.SubmissionAccepted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotAccepted, sub.Status)
	}

	article := &models.Article{
		Title:      sub.Title,
		Abstract:   sub.Abstract,
		Authors:    sub.Authors,
		Category:   sub.Category,
		Volume:     opts.Volume,
		Issue:      opts.Issue,
		IsFeatured: opts.IsFeatured,
	}
	if opts.Category != nil {
		article.Category = *opts.Category
	}
	if opts.ImageURL != nil {
		article.ImageURL = *opts.ImageURL
	}
	if opts.PublishImmediately {
		now := s.now()
		article.PublishedAt = &now
	}

	if err := s.create(ctx, article); err != nil {
		s.Logger.Error("Failed to convert submission", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Submission converted to article",
		zap.String("submission_id", submissionID),
		zap.String("article_id", article.ID),
		zap.Bool("published", article.Published()))
	return article, nil
}

// Create legt einen Artikel direkt an (ohne Einreichung).
func (s *ArticleService) Create(ctx context.Context, in ArticleInput) (*models.Article, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalidInput("title required")
	}
	article := &models.Article{
		Title:      strings.TrimSpace(in.Title),
		Abstract:   in.Abstract,
		Authors:    in.Authors,
		Category:   in.Category,
		Volume:     in.Volume,
		Issue:      in.Issue,
		ImageURL:   in.ImageURL,
		IsFeatured: in.IsFeatured,
	}
	if in.Publish {
		now := s.now()
		article.PublishedAt = &now
	}
	if err := s.create(ctx, article); err != nil {
		s.Logger.Error("Failed to create article", zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Article created", zap.String("id", article.ID), zap.String("title", article.Title))
	return article, nil
}

func (s *ArticleService) create(ctx context.Context, article *models.Article) error {
	slug, err := s.uniqueSlug(ctx, article.Title, "")
	if err != nil {
		return err
	}
	article.Slug = slug
	if err := s.DB.WithContext(ctx).Create(article).Error; err != nil {
		return err
	}
	if article.Published() {
		metrics.ArticlesPublished.Inc()
		s.Cache.Invalidate(ctx)
	}
	return nil
}

// uniqueSlug hängt bei Kollisionen eine Zahl an.
func (s *ArticleService) uniqueSlug(ctx context.Context, title, exceptID string) (string, error) {
	base := Slugify(title)
	candidate := base
	for n := 2; ; n++ {
		query := s.DB.WithContext(ctx).Model(&models.Article{}).Where("slug = ?", candidate)
		if exceptID != "" {
			query = query.Where("id <> ?", exceptID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Update ändert die redaktionellen Felder. Der Veröffentlichungsstatus wird über
// Publish/Unpublish gesteuert.
func (s *ArticleService) Update(ctx context.Context, id string, in ArticleInput) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalidInput("title required")
	}
	updates := map[string]any{
		"title":       strings.TrimSpace(in.Title),
		"abstract":    in.Abstract,
		"authors":     in.Authors,
		"category":    in.Category,
		"volume":      in.Volume,
		"issue":       in.Issue,
		"image_url":   in.ImageURL,
		"is_featured": in.IsFeatured,
	}
	if article.Title != strings.TrimSpace(in.Title) {
		slug, err := s.uniqueSlug(ctx, in.Title, id)
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if err := s.DB.WithContext(ctx).Model(article).Updates(updates).Error; err != nil {
		s.Logger.Error("Failed to update article", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.Cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Publish setzt published_at auf jetzt, falls noch nicht veröffentlicht.
func (s *ArticleService) Publish(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Published() {
		return article, nil
	}
	now := s.now()
	if err := s.DB.WithContext(ctx).Model(article).Update("published_at", now).Error; err != nil {
		return nil, err
	}
	article.PublishedAt = &now
	metrics.ArticlesPublished.Inc()
	s.Cache.Invalidate(ctx)
	s.Logger.Info("Article published", zap.String("id", id))
	return article, nil
}

// Unpublish macht einen Artikel wieder zum Entwurf.
func (s *ArticleService) Unpublish(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(article).Update("published_at", nil).Error; err != nil {
		return nil, err
	}
	article.PublishedAt = nil
	s.Cache.Invalidate(ctx)
	s.Logger.Info("Article unpublished", zap.String("id", id))
	return article, nil
}

// SetFeatured markiert einen Artikel für die Startseite.
func (s *ArticleService) SetFeatured(ctx context.Context, id string, featured bool) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(article).Update("is_featured", featured).Error; err != nil {
		return nil, err
	}
	article.IsFeatured = featured
	s.Cache.Invalidate(ctx)
	return article, nil
}

// UploadImage lädt das Titelbild eines Artikels hoch.
func (s *ArticleService) UploadImage(ctx context.Context, id, filename, contentType string, data []byte) (*models.Article, error) {
	if len(data) == 0 {
		return nil, invalidInput("empty file")
	}
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey("articles/"+article.ID, filename)
	link, err := s.Store.Upload(ctx, key, contentType, data)
	if err != nil {
		s.Logger.Error("Article image upload failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(article).Update("image_url", link).Error; err != nil {
		return nil, err
	}
	article.ImageURL = link
	s.Cache.Invalidate(ctx)
	return article, nil
}

// Get lädt einen Artikel (auch Entwürfe).
func (s *ArticleService) Get(ctx context.Context, id string) (*models.Article, error) {
	if err := checkID(id, "article"); err != nil {
		return nil, err
	}
	var article models.Article
	if err := s.DB.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "article")
	}
	return &article, nil
}

// GetPublishedBySlug lädt einen veröffentlichten Artikel und zählt den Aufruf.
func (s *ArticleService) GetPublishedBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	err := s.DB.WithContext(ctx).
		Where("slug = ? AND published_at IS NOT NULL", slug).
		First(&article).Error
	if err != nil {
		return nil, notFound(err, "article")
	}
	if err := s.DB.WithContext(ctx).Model(&article).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		s.Logger.Warn("Failed to count article view", zap.String("id", article.ID), zap.Error(err))
	} else {
		article.ViewCount++
	}
	return &article, nil
}

// ListPublished liefert veröffentlichte Artikel, neueste zuerst.
func (s *ArticleService) ListPublished(ctx context.Context, f ArticleFilter) ([]models.Article, error) {
	key := f.cacheKey()
	var articles []models.Article
	if s.Cache.Get(ctx, key, &articles) {
		return articles, nil
	}

	query := s.DB.WithContext(ctx).Model(&models.Article{}).Where("published_at IS NOT NULL")
	if f.Volume != nil {
		query = query.Where("volume = ?", *f.Volume)
	}
	if f.Issue != nil {
		query = query.Where("issue = ?", *f.Issue)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Featured {
		query = query.Where("is_featured = ?", true)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if err := query.Order("published_at desc").Find(&articles).Error; err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, articles)
	return articles, nil
}

// ListDrafts liefert alle unveröffentlichten Artikel.
func (s *ArticleService) ListDrafts(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := s.DB.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at desc").
		Find(&articles).Error
	return articles, err
}

// Archive gruppiert alle veröffentlichten Artikel nach Jahrgang und Heft, neueste Ausgabe zuerst.
// Artikel ohne Ausgabe landen in einer eigenen Gruppe am Ende.
func (s *ArticleService) Archive(ctx context.Context) ([]IssueGroup, error) {
	var cached []IssueGroup
	if s.Cache.Get(ctx, "archive", &cached) {
		return cached, nil
	}

	var articles []models.Article
	if err := s.DB.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Order("published_at desc").
		Find(&articles).Error; err != nil {
		return nil, err
	}

	type issueKey struct{ volume, issue int }
	keyOf := func(a models.Article) issueKey {
		k := issueKey{-1, -1}
		if a.Volume != nil {
			k.volume = *a.Volume
		}
		if a.Issue != nil {
			k.issue = *a.Issue
		}
		return k
	}

	index := map[issueKey]int{}
	var groups []IssueGroup
	var keys []issueKey
	for _, a := range articles {
		k := keyOf(a)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, IssueGroup{Volume: a.Volume, Issue: a.Issue})
			keys = append(keys, k)
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka.volume != kb.volume {
			return ka.volume > kb.volume
		}
		return ka.issue > kb.issue
	})
	sorted := make([]IssueGroup, 0, len(groups))
	for _, i := range order {
		sorted = append(sorted, groups[i])
	}

	s.Cache.Set(ctx, "archive", sorted)
	return sorted, nil
}
