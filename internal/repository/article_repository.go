package repository

import (
	"context"

	"review-go/internal/models"

	"gorm.io/gorm"
)

// ArticleRepository 条文目录访问层
type ArticleRepository struct {
	db *gorm.DB
}

// NewArticleRepository 创建条文Repository
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// CreateBatch 批量创建
func (r *ArticleRepository) CreateBatch(ctx context.Context, articles []models.SourceArticle) error {
	if len(articles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&articles).Error
}

// GetByID 根据ID获取
func (r *ArticleRepository) GetByID(ctx context.Context, id uint) (*models.SourceArticle, error) {
	var article models.SourceArticle
	if err := r.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, translate(err, "条文", id)
	}
	return &article, nil
}

// FindByTitleAndNumber 按标题和条号查找
func (r *ArticleRepository) FindByTitleAndNumber(ctx context.Context, title, number string) (*models.SourceArticle, error) {
	var article models.SourceArticle
	err := r.db.WithContext(ctx).Where("title = ? AND number = ?", title, number).First(&article).Error
	if err != nil {
		return nil, translate(err, "条文", title+"#"+number)
	}
	return &article, nil
}

// List 分页获取
func (r *ArticleRepository) List(ctx context.Context, offset, limit int) ([]models.SourceArticle, int64, error) {
	var articles []models.SourceArticle
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.SourceArticle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&articles).Error
	return articles, total, err
}

// ListByIDs 按ID获取，保持数据库顺序
func (r *ArticleRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.SourceArticle, error) {
	var articles []models.SourceArticle
	if len(ids) == 0 {
		return articles, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&articles).Error
	return articles, err
}

// ListAll 获取全部条文
func (r *ArticleRepository) ListAll(ctx context.Context) ([]models.SourceArticle, error) {
	var articles []models.SourceArticle
	err := r.db.WithContext(ctx).Order("id ASC").Find(&articles).Error
	return articles, err
}

// Save 保存
func (r *ArticleRepository) Save(ctx context.Context, article *models.SourceArticle) error {
	return r.db.WithContext(ctx).Save(article).Error
}

// Delete 删除
func (r *ArticleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SourceArticle{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "条文", id)
	}
	return nil
}
