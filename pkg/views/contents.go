package views

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"filterdesk/pkg/settingsapi"
)

// ContentTypes are the top-level MIME types the add form offers.
var ContentTypes = []ContentType{
	{Value: "application", Label: "Application"},
	{Value: "audio", Label: "Audio"},
	{Value: "image", Label: "Image"},
	{Value: "multipart", Label: "Multipart"},
	{Value: "text", Label: "Text"},
	{Value: "video", Label: "Video"},
}

// ContentType is one option of the content type selector.
type ContentType struct {
	Value string
	Label string
}

// IsContentType reports whether value is one of ContentTypes.
func IsContentType(value string) bool {
	return slices.ContainsFunc(ContentTypes, func(ct ContentType) bool { return ct.Value == value })
}

// ContentAPI is the part of the settings API behind the content screen.
type ContentAPI interface {
	Contents(ctx context.Context) ([]settingsapi.Content, error)
	AddContent(ctx context.Context, domain, content string) error
	DeleteContent(ctx context.Context, domain, content string) error
	Domains(ctx context.Context) ([]string, error)
}

// ContentList is the content policy screen.
type ContentList struct {
	api ContentAPI
	log *slog.Logger

	mu       sync.Mutex
	contents []settingsapi.Content
}

// NewContentList creates an empty ContentList.
func NewContentList(api ContentAPI, log *slog.Logger) *ContentList {
	if log == nil {
		log = slog.Default()
	}
	return &ContentList{api: api, log: log}
}

// Reload refetches the content policies.
func (c *ContentList) Reload(ctx context.Context) error {
	fetched, err := c.api.Contents(ctx)
	if err != nil {
		c.log.Error("error fetching contents", "error", err)
		return fmt.Errorf("fetch contents: %w", err)
	}
	copied := make([]settingsapi.Content, len(fetched))
	for i, entry := range fetched {
		copied[i] = settingsapi.Content{DomainName: entry.DomainName, Content: slices.Clone(entry.Content)}
	}
	c.mu.Lock()
	c.contents = copied
	c.mu.Unlock()
	return nil
}

// Add allows a content type for a domain and reloads on success.
func (c *ContentList) Add(ctx context.Context, domain, content string) error {
	domain = strings.TrimSpace(domain)
	content = strings.TrimSpace(content)
	if domain == "" || content == "" {
		return fmt.Errorf("domain and content type are required")
	}
	if err := c.api.AddContent(ctx, domain, content); err != nil {
		c.log.Error("error adding content", "domain", domain, "content", content, "error", err)
		return fmt.Errorf("add content: %w", err)
	}
	return c.Reload(ctx)
}

// Delete revokes a content type for a domain and reloads on success.
func (c *ContentList) Delete(ctx context.Context, domain, content string) error {
	if err := c.api.DeleteContent(ctx, domain, content); err != nil {
		c.log.Error("error deleting content", "domain", domain, "content", content, "error", err)
		return fmt.Errorf("delete content: %w", err)
	}
	return c.Reload(ctx)
}

// Entries returns the policies with each domain's types sorted.
func (c *ContentList) Entries() []settingsapi.Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]settingsapi.Content, len(c.contents))
	for i, entry := range c.contents {
		types := slices.Clone(entry.Content)
		slices.Sort(types)
		out[i] = settingsapi.Content{DomainName: entry.DomainName, Content: types}
	}
	return out
}

// AddForm is the data behind the "allow content" form.
type AddForm struct {
	Domains  []string
	Selected string
	Types    []ContentType
	// Unavailable is set when the approved domains could not be fetched.
	Unavailable bool
}

// Empty reports whether there is no approved domain to attach a policy to.
func (f AddForm) Empty() bool {
	return len(f.Domains) == 0
}

// Form fetches the approved domains for the add form. The first domain is
// preselected.
func (c *ContentList) Form(ctx context.Context) AddForm {
	form := AddForm{Types: ContentTypes}
	approved, err := c.api.Domains(ctx)
	if err != nil {
		c.log.Error("error fetching approved domains", "error", err)
		form.Unavailable = true
		return form
	}
	form.Domains = approved
	if len(approved) > 0 {
		form.Selected = approved[0]
	}
	return form
}
