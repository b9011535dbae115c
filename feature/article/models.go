package article

// Article is the owner table. CoverID follows the single cover relation.
type Article struct {
	ID      uint   `gorm:"primaryKey"`
	Title   string `gorm:"size:255"`
	Body    string `gorm:"type:text"`
	CoverID *uint  `gorm:"index"`
}

func (Article) TableName() string { return "articles" }

// Cover is the one-to-one child of an article.
type Cover struct {
	ID  uint   `gorm:"primaryKey"`
	URL string `gorm:"column:url;size:255"`
}

func (Cover) TableName() string { return "covers" }

// Image is a one-to-many child. Only gallery images are managed through the
// images relation; other types are left alone.
type Image struct {
	ID        uint   `gorm:"primaryKey"`
	ArticleID uint   `gorm:"index"`
	Src       string `gorm:"size:255"`
	Alt       string `gorm:"size:255"`
	Type      string `gorm:"size:32;default:gallery"`
	Position  int
}

func (Image) TableName() string { return "images" }

// File is referenced through the article_files join table.
type File struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255"`
}

func (File) TableName() string { return "files" }

// Tag is referenced through the ArticleTag linking entity.
type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64"`
}

func (Tag) TableName() string { return "tags" }

// ArticleFile is a raw join row.
type ArticleFile struct {
	ArticleID uint `gorm:"primaryKey;autoIncrement:false"`
	FileID    uint `gorm:"primaryKey;autoIncrement:false"`
}

func (ArticleFile) TableName() string { return "article_files" }

// ArticleTag is a linking entity with its own key.
type ArticleTag struct {
	ID        uint `gorm:"primaryKey"`
	ArticleID uint `gorm:"index"`
	TagID     uint `gorm:"index"`
}

func (ArticleTag) TableName() string { return "article_tags" }

// Schema lists every table managed by the article feature.
func Schema() []any {
	return []any{&Article{}, &Cover{}, &Image{}, &File{}, &Tag{}, &ArticleFile{}, &ArticleTag{}}
}
