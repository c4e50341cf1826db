package content

// Content categories stored in the single content table. The type attribute
// discriminates logical collections; ids carry a matching prefix by
// convention (news_<id>, event_<id>, ...).
const (
	TypeHomepage = "homepage"
	TypeNews     = "news"
	TypeEvents   = "events"
	TypeProjects = "projects"
	TypeAboutUs  = "about_us"
	TypeContact  = "contact"
	TypeFAQs     = "faqs"
)

// ListTypes enumerates the categories that resolve to collections rather
// than a single document.
var ListTypes = []string{TypeNews, TypeEvents, TypeProjects, TypeFAQs}

// Item is the generic content tuple. Data is schemaless; the front end owns
// its shape per category.
type Item struct {
	ID        string                 `dynamodbav:"id" json:"id"`
	Type      string                 `dynamodbav:"type" json:"type"`
	Data      map[string]interface{} `dynamodbav:"data" json:"data"`
	CreatedAt string                 `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt string                 `dynamodbav:"updated_at" json:"updated_at"`
}

// Featured reports whether the item carries a truthy featured flag.
func (i Item) Featured() bool {
	if i.Data == nil {
		return false
	}
	v, ok := i.Data["featured"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// IsListType reports whether the category resolves to a collection.
func IsListType(contentType string) bool {
	for _, t := range ListTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
