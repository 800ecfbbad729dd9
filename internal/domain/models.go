// Package domain defines the persistence models for products, style
// templates, generated scripts, knowledge collections and collected video
// materials. These types are mapped with GORM and form the core data layer
// of the livescript service.
//
// Column names follow GORM's snake_case naming; JSON tags use camelCase
// because these structs double as the API view models.
package domain

import "time"

// Product is an agricultural product that scripts are written for. It is an
// input to generation and is never modified by it.
//
// Fields:
//   - SellingPoints / Certificates / ProhibitedWords: ordered string lists,
//     stored as JSON text.
//   - IsActive: inactive products stay readable but are hidden from the
//     default list filter in the UI.
type Product struct {
	ID              string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Name            string    `json:"name"            gorm:"type:varchar(255);not null;index"`
	Category        string    `json:"category"        gorm:"type:varchar(64);index"`
	Origin          string    `json:"origin"          gorm:"type:varchar(128)"`
	Price           float64   `json:"price"           gorm:"not null;check:price >= 0"`
	Specification   string    `json:"specification"   gorm:"type:varchar(255)"`
	SellingPoints   []string  `json:"sellingPoints"   gorm:"type:text;serializer:json"`
	Certificates    []string  `json:"certificates"    gorm:"type:text;serializer:json"`
	ProhibitedWords []string  `json:"prohibitedWords" gorm:"type:text;serializer:json"`
	Description     string    `json:"description"     gorm:"type:text"`
	IsActive        bool      `json:"isActive"        gorm:"not null;index"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Style types accepted for StyleTemplate.StyleType.
const (
	StyleFriendly     = "friendly"
	StyleProfessional = "professional"
	StylePassionate   = "passionate"
	StyleStorytelling = "storytelling"
	StyleHumorous     = "humorous"
	StyleCustom       = "custom"
)

// ValidStyleType reports whether s is one of the known style tags.
func ValidStyleType(s string) bool {
	switch s {
	case StyleFriendly, StyleProfessional, StylePassionate, StyleStorytelling, StyleHumorous, StyleCustom:
		return true
	}
	return false
}

// RuleSet holds illustrative patterns and tips for one phase of a
// livestream (opening, selling, promotion or closing).
type RuleSet struct {
	Patterns []string `json:"patterns,omitempty"`
	Tips     []string `json:"tips,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

// ExampleScript is a short sample line for a given scene.
type ExampleScript struct {
	Scene  string `json:"scene"`
	Script string `json:"script"`
}

// StyleTemplate captures the tone a script should be written in.
type StyleTemplate struct {
	ID             string          `json:"id"             gorm:"type:char(36);primaryKey"`
	Name           string          `json:"name"           gorm:"type:varchar(255);not null"`
	StyleType      string          `json:"styleType"      gorm:"type:varchar(32);not null;index"`
	Description    string          `json:"description"    gorm:"type:text"`
	ToneGuidelines string          `json:"toneGuidelines" gorm:"type:text"`
	OpeningRules   *RuleSet        `json:"openingRules"   gorm:"type:text;serializer:json"`
	SellingRules   *RuleSet        `json:"sellingRules"   gorm:"type:text;serializer:json"`
	PromotionRules *RuleSet        `json:"promotionRules" gorm:"type:text;serializer:json"`
	ClosingRules   *RuleSet        `json:"closingRules"   gorm:"type:text;serializer:json"`
	ExampleScripts []ExampleScript `json:"exampleScripts" gorm:"type:text;serializer:json"`
	IsActive       bool            `json:"isActive"       gorm:"not null"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TableName returns the database table name for StyleTemplate.
func (StyleTemplate) TableName() string { return "style_templates" }

// KnowledgeCollection groups reference documents. DatasetID is the
// identifier of the matching dataset on the semantic search service and is
// what scope filters are translated to.
type KnowledgeCollection struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	DatasetID   string    `json:"datasetId"   gorm:"type:varchar(128)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the database table name for KnowledgeCollection.
func (KnowledgeCollection) TableName() string { return "knowledge_collections" }

// KnowledgeDocument is a reference text within a collection.
type KnowledgeDocument struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	CollectionID string    `json:"collectionId" gorm:"type:char(36);not null;index"`
	Title        string    `json:"title"        gorm:"type:varchar(255);not null"`
	SourceURL    string    `json:"sourceUrl"    gorm:"type:varchar(1024)"`
	Content      string    `json:"content"      gorm:"type:text;not null"`
	Status       string    `json:"status"       gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Documents go away with their collection.
	Collection KnowledgeCollection `json:"-" gorm:"foreignKey:CollectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for KnowledgeDocument.
func (KnowledgeDocument) TableName() string { return "knowledge_documents" }

// DocumentReady is the only document status today; ingestion is synchronous.
const DocumentReady = "ready"

// ReferenceFragment is a scored snippet returned by semantic search. It is
// never persisted.
type ReferenceFragment struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	DocID   string  `json:"docId"`
}

// Material statuses.
const (
	MaterialCollected   = "collected"
	MaterialTranscribed = "transcribed"
)

// Material is a reference video collected from a platform search. A video
// is stored at most once per platform.
type Material struct {
	ID              string     `json:"id"              gorm:"type:char(36);primaryKey"`
	Platform        string     `json:"platform"        gorm:"type:varchar(32);not null;uniqueIndex:ux_material_platform_video,priority:1"`
	VideoID         string     `json:"videoId"         gorm:"type:varchar(128);not null;uniqueIndex:ux_material_platform_video,priority:2"`
	Title           string     `json:"title"           gorm:"type:varchar(512);not null"`
	Author          string     `json:"author"          gorm:"type:varchar(255)"`
	URL             string     `json:"url"             gorm:"type:varchar(1024)"`
	CoverURL        string     `json:"coverUrl"        gorm:"type:varchar(1024)"`
	DurationSeconds int        `json:"durationSeconds"`
	Likes           int64      `json:"likes"`
	Comments        int64      `json:"comments"`
	Shares          int64      `json:"shares"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	Keyword         string     `json:"keyword"         gorm:"type:varchar(128);index"`
	Tags            []string   `json:"tags"            gorm:"type:text;serializer:json"`
	Transcript      string     `json:"transcript"      gorm:"type:text"`
	Status          string     `json:"status"          gorm:"type:varchar(16);not null;index"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for Material.
func (Material) TableName() string { return "materials" }
