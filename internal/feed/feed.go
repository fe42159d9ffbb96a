package feed

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/vkdev/tweeter-service/internal/models"
)

// Builder renders posts as an Atom feed document.
type Builder struct {
	title   string
	baseURL string
}

// NewBuilder initializes a feed builder
func NewBuilder(title, baseURL string) *Builder {
	return &Builder{title: title, baseURL: baseURL}
}

// Build serializes the posts, assumed newest first, into Atom XML.
func (b *Builder) Build(posts []*models.Post) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("feed")
	root.CreateAttr("xmlns", "http://www.w3.org/2005/Atom")
	root.CreateElement("title").SetText(b.title)
	root.CreateElement("id").SetText(b.baseURL + "/feed")

	link := root.CreateElement("link")
	link.CreateAttr("rel", "self")
	link.CreateAttr("href", b.baseURL+"/feed")

	updated := time.Now()
	if len(posts) > 0 {
		updated = posts[0].DatePosted
	}
	root.CreateElement("updated").SetText(updated.Format(time.RFC3339))

	for _, post := range posts {
		entry := root.CreateElement("entry")
		entry.CreateElement("id").SetText(fmt.Sprintf("%s/post/%d", b.baseURL, post.ID))
		entry.CreateElement("title").SetText(fmt.Sprintf("Post %d", post.ID))
		entry.CreateElement("updated").SetText(post.DatePosted.Format(time.RFC3339))

		content := entry.CreateElement("content")
		content.CreateAttr("type", "text")
		content.SetText(post.Content)
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize feed: %w", err)
	}
	return out, nil
}
