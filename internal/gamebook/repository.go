package gamebook

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for gamebook pages and links.
type Repository interface {
	ListPages(ctx context.Context) ([]Page, error)
	GetPage(ctx context.Context, id int64) (*Page, error)
	PageExists(ctx context.Context, id int64) (bool, error)
	CountPages(ctx context.Context) (int64, error)
	FirstPageID(ctx context.Context) (int64, error)
	CreatePage(ctx context.Context) (*Page, error)
	UpdatePageBody(ctx context.Context, id int64, body string) error
	UpdatePageIsEnding(ctx context.Context, id int64, isEnding bool) error
	DeletePage(ctx context.Context, id int64) error

	ListLinksFrom(ctx context.Context, fromPageID int64) ([]Link, error)
	GetLink(ctx context.Context, id int64) (*Link, error)
	CreateLink(ctx context.Context, fromPageID int64) (*Link, error)
	UpdateLinkText(ctx context.Context, id int64, text string) error
	UpdateLinkToPageID(ctx context.Context, id int64, toPageID int64) error
	DeleteLink(ctx context.Context, id int64) error
	ListDanglingLinks(ctx context.Context) ([]Link, error)
}

// GormRepository persists pages and links using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// ListPages returns every page ordered by id. Links are not populated.
func (r *GormRepository) ListPages(ctx context.Context) ([]Page, error) {
	var records []PageRecord

	if err := r.db.WithContext(ctx).Order("page_id ASC").Find(&records).Error; err != nil {
		return nil, r.storageError("list pages", nil, err)
	}

	pages := make([]Page, 0, len(records))
	for i := range records {
		pages = append(pages, *toDomainPage(&records[i]))
	}

	return pages, nil
}

// GetPage returns the page with its outbound links.
func (r *GormRepository) GetPage(ctx context.Context, id int64) (*Page, error) {
	var record PageRecord
	err := r.db.WithContext(ctx).Where("page_id = ?", id).Take(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(ErrPageNotFound, "page %d", id)
		}
		return nil, r.storageError("get page", logrus.Fields{"page_id": id}, err)
	}

	links, err := r.ListLinksFrom(ctx, id)
	if err != nil {
		return nil, err
	}

	page := toDomainPage(&record)
	page.Links = links
	return page, nil
}

// PageExists reports whether a page with the id is stored.
func (r *GormRepository) PageExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Where("page_id = ?", id).Count(&count).Error; err != nil {
		return false, r.storageError("check page", logrus.Fields{"page_id": id}, err)
	}
	return count > 0, nil
}

// CountPages returns the total number of stored pages.
func (r *GormRepository) CountPages(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		return 0, r.storageError("count pages", nil, err)
	}
	return count, nil
}

// FirstPageID returns the lowest page id, or ErrNoPages for an empty book.
func (r *GormRepository) FirstPageID(ctx context.Context) (int64, error) {
	var record PageRecord
	err := r.db.WithContext(ctx).Order("page_id ASC").Take(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return 0, eris.Wrap(ErrNoPages, "selecting first page")
		}
		return 0, r.storageError("first page", nil, err)
	}
	return record.ID, nil
}

// CreatePage inserts a blank page and returns it with its assigned id.
func (r *GormRepository) CreatePage(ctx context.Context) (*Page, error) {
	record := &PageRecord{Body: "", IsEnding: false}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, r.storageError("create page", nil, err)
	}

	page := toDomainPage(record)
	page.Links = []Link{}
	return page, nil
}

// UpdatePageBody replaces the body text of a page.
func (r *GormRepository) UpdatePageBody(ctx context.Context, id int64, body string) error {
	return r.updatePage(ctx, "update page body", id, "body", body)
}

// UpdatePageIsEnding sets whether the page ends the story.
func (r *GormRepository) UpdatePageIsEnding(ctx context.Context, id int64, isEnding bool) error {
	return r.updatePage(ctx, "update page ending", id, "is_ending", isEnding)
}

func (r *GormRepository) updatePage(ctx context.Context, op string, id int64, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&PageRecord{}).Where("page_id = ?", id).Update(column, value)
	if result.Error != nil {
		return r.storageError(op, logrus.Fields{"page_id": id}, result.Error)
	}
	if result.RowsAffected == 0 {
		exists, err := r.PageExists(ctx, id)
		if err != nil {
			return err
		}
		// Writing an unchanged value reports zero rows on some drivers.
		if !exists {
			return eris.Wrapf(ErrPageNotFound, "page %d", id)
		}
	}
	return nil
}

// DeletePage removes a page. Links from or to the page are left untouched.
func (r *GormRepository) DeletePage(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("page_id = ?", id).Delete(&PageRecord{})
	if result.Error != nil {
		return r.storageError("delete page", logrus.Fields{"page_id": id}, result.Error)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(ErrPageNotFound, "page %d", id)
	}
	return nil
}

// ListLinksFrom returns the links whose source is the page, ordered by id.
func (r *GormRepository) ListLinksFrom(ctx context.Context, fromPageID int64) ([]Link, error) {
	var records []LinkRecord

	err := r.db.WithContext(ctx).
		Where("from_page_id = ?", fromPageID).
		Order("link_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, r.storageError("list links", logrus.Fields{"from_page_id": fromPageID}, err)
	}

	links := make([]Link, 0, len(records))
	for i := range records {
		links = append(links, *toDomainLink(&records[i]))
	}

	return links, nil
}

// GetLink returns a single link.
func (r *GormRepository) GetLink(ctx context.Context, id int64) (*Link, error) {
	var record LinkRecord
	err := r.db.WithContext(ctx).Where("link_id = ?", id).Take(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(ErrLinkNotFound, "link %d", id)
		}
		return nil, r.storageError("get link", logrus.Fields{"link_id": id}, err)
	}
	return toDomainLink(&record), nil
}

// CreateLink inserts a placeholder link that points back at its own page.
func (r *GormRepository) CreateLink(ctx context.Context, fromPageID int64) (*Link, error) {
	record := &LinkRecord{FromPageID: fromPageID, ToPageID: fromPageID, Text: ""}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, r.storageError("create link", logrus.Fields{"from_page_id": fromPageID}, err)
	}
	return toDomainLink(record), nil
}

// UpdateLinkText replaces the reader-facing text of a link.
func (r *GormRepository) UpdateLinkText(ctx context.Context, id int64, text string) error {
	return r.updateLink(ctx, "update link text", id, "text", text)
}

// UpdateLinkToPageID points the link at another page. The target is not checked here.
func (r *GormRepository) UpdateLinkToPageID(ctx context.Context, id int64, toPageID int64) error {
	return r.updateLink(ctx, "update link target", id, "to_page_id", toPageID)
}

func (r *GormRepository) updateLink(ctx context.Context, op string, id int64, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&LinkRecord{}).Where("link_id = ?", id).Update(column, value)
	if result.Error != nil {
		return r.storageError(op, logrus.Fields{"link_id": id}, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetLink(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteLink removes a single link.
func (r *GormRepository) DeleteLink(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("link_id = ?", id).Delete(&LinkRecord{})
	if result.Error != nil {
		return r.storageError("delete link", logrus.Fields{"link_id": id}, result.Error)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(ErrLinkNotFound, "link %d", id)
	}
	return nil
}

// ListDanglingLinks returns links whose target page no longer exists.
func (r *GormRepository) ListDanglingLinks(ctx context.Context) ([]Link, error) {
	var records []LinkRecord

	err := r.db.WithContext(ctx).
		Where("to_page_id NOT IN (?)", r.db.Model(&PageRecord{}).Select("page_id")).
		Order("link_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, r.storageError("list dangling links", nil, err)
	}

	links := make([]Link, 0, len(records))
	for i := range records {
		links = append(links, *toDomainLink(&records[i]))
	}

	return links, nil
}

func (r *GormRepository) storageError(op string, fields logrus.Fields, err error) error {
	r.logError(fields, err, op)
	return &StorageError{Op: op, Err: err}
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error()).WithField("component", "gamebook.repository")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
