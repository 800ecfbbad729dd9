package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// CreateCollection inserts c. A duplicate name yields ErrDuplicate.
func CreateCollection(ctx context.Context, db *gorm.DB, c *domain.KnowledgeCollection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	t := utcNow()
	c.CreatedAt, c.UpdatedAt = t, t
	return mapCreateErr(db.WithContext(ctx).Create(c).Error)
}

// GetCollection fetches a collection by id, or ErrNotFound.
func GetCollection(ctx context.Context, db *gorm.DB, id string) (*domain.KnowledgeCollection, error) {
	var c domain.KnowledgeCollection
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCollections returns all collections ordered by name.
func ListCollections(ctx context.Context, db *gorm.DB) ([]domain.KnowledgeCollection, error) {
	var out []domain.KnowledgeCollection
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// CollectionsByIDs returns the collections whose id is in ids. Unknown ids
// are silently skipped.
func CollectionsByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.KnowledgeCollection, error) {
	var out []domain.KnowledgeCollection
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// DeleteCollection removes a collection together with its documents.
func DeleteCollection(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", id).Delete(&domain.KnowledgeDocument{}).Error; err != nil {
			return err
		}
		return deleteRow(ctx, tx, &domain.KnowledgeCollection{}, id)
	})
}

// CreateDocument inserts d with status ready.
func CreateDocument(ctx context.Context, db *gorm.DB, d *domain.KnowledgeDocument) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = domain.DocumentReady
	}
	t := utcNow()
	d.CreatedAt, d.UpdatedAt = t, t
	return db.WithContext(ctx).Omit("Collection").Create(d).Error
}

// GetDocument fetches a document by id, or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id string) (*domain.KnowledgeDocument, error) {
	var d domain.KnowledgeDocument
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns the documents of the given collections, oldest
// first. An empty list means every collection.
func ListDocuments(ctx context.Context, db *gorm.DB, collectionIDs ...string) ([]domain.KnowledgeDocument, error) {
	var out []domain.KnowledgeDocument
	q := db.WithContext(ctx).Order("created_at asc")
	if len(collectionIDs) > 0 {
		q = q.Where("collection_id IN ?", collectionIDs)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteDocument hard-deletes a document.
func DeleteDocument(ctx context.Context, db *gorm.DB, id string) error {
	return deleteRow(ctx, db, &domain.KnowledgeDocument{}, id)
}
