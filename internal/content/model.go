package content

import (
	"strings"
	"time"
	"unicode"
)

// ContentType classifies an educational entry.
type ContentType string

const (
	TypeArticle ContentType = "article"
	TypeFAQ     ContentType = "faq"
	TypeGuide   ContentType = "guide"
	TypeVideo   ContentType = "video"
)

func ValidType(t ContentType) bool {
	switch t {
	case TypeArticle, TypeFAQ, TypeGuide, TypeVideo:
		return true
	}
	return false
}

// Content is one educational entry served to the public site.
type Content struct {
	ID          int64       `json:"id"`
	DiseaseID   *int64      `json:"disease_id,omitempty"`
	DiseaseName *string     `json:"disease_name,omitempty"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Body        string      `json:"content"`
	Type        ContentType `json:"type"`
	ImageURL    *string     `json:"image_url,omitempty"`
	IsPublished bool        `json:"is_published"`
	AuthorID    int64       `json:"author_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Input is the field set for creating or replacing an entry.
type Input struct {
	DiseaseID   *int64      `json:"disease_id"`
	Title       string      `json:"title"`
	Body        string      `json:"content"`
	Type        ContentType `json:"type"`
	ImageURL    *string     `json:"image_url"`
	IsPublished *bool       `json:"is_published"`
}

// Validate returns per-field violations, empty when the input is well formed.
func (in Input) Validate() map[string]string {
	violations := make(map[string]string)

	if strings.TrimSpace(in.Title) == "" {
		violations["title"] = "title is required"
	} else if len(in.Title) > 255 {
		violations["title"] = "title must be at most 255 characters"
	}
	if strings.TrimSpace(in.Body) == "" {
		violations["content"] = "content is required"
	}
	if in.Type != "" && !ValidType(in.Type) {
		violations["type"] = "type must be one of article, faq, guide, video"
	}
	if in.ImageURL != nil && len(*in.ImageURL) > 512 {
		violations["image_url"] = "image URL must be at most 512 characters"
	}

	return violations
}

// New builds a content entry from validated input. The slug derives from the
// title; uniqueness is enforced by the store, and the handler appends a
// discriminator on collision.
func New(in Input, authorID int64) *Content {
	contentType := TypeArticle
	if in.Type != "" {
		contentType = in.Type
	}
	published := false
	if in.IsPublished != nil {
		published = *in.IsPublished
	}
	now := time.Now()
	return &Content{
		DiseaseID:   in.DiseaseID,
		Title:       in.Title,
		Slug:        Slugify(in.Title),
		Body:        in.Body,
		Type:        contentType,
		ImageURL:    in.ImageURL,
		IsPublished: published,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyInput replaces the mutable fields from validated input. The slug is
// regenerated when the title changes so published URLs track their titles.
func (c *Content) ApplyInput(in Input) {
	if in.Title != c.Title {
		c.Slug = Slugify(in.Title)
	}
	c.DiseaseID = in.DiseaseID
	c.Title = in.Title
	c.Body = in.Body
	if in.Type != "" {
		c.Type = in.Type
	}
	c.ImageURL = in.ImageURL
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
	}
	c.UpdatedAt = time.Now()
}

// Slugify normalizes a title into a URL slug: lowercase ASCII letters and
// digits with single hyphens between words. Accented letters common in
// Portuguese titles are transliterated rather than dropped.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case transliterations[r] != 0:
			b.WriteRune(transliterations[r])
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

var transliterations = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ç': 'c', 'ñ': 'n',
}
