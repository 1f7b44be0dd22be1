package importer

import (
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/models"
)

// Kind identifies which variant an Item holds.
type Kind string

const (
	KindMarkdown Kind = models.SourceMarkdown
	KindDotenv   Kind = models.SourceDotenv
	KindBundle   Kind = models.SourceBundle
)

// MarkdownFinding is a probable secret spotted in a markdown document.
type MarkdownFinding struct {
	Name       string
	Value      string
	File       string
	Line       int
	Confidence float64

	// Occurrences is the number of distinct places the value was seen.
	Occurrences int
}

// DotenvEntry is a KEY=VALUE assignment from a dotenv file.
type DotenvEntry struct {
	Key   string
	Value string
	File  string
}

// BundleEntry is a secret carried in an encrypted bundle.
type BundleEntry struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Provider    string `json:"provider,omitempty"`
	ProjectPath string `json:"project_path,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Item is exactly one of the variants, selected by Kind.
type Item struct {
	Kind     Kind
	Markdown *MarkdownFinding
	Dotenv   *DotenvEntry
	Bundle   *BundleEntry
}

func FromMarkdown(f MarkdownFinding) Item { return Item{Kind: KindMarkdown, Markdown: &f} }
func FromDotenv(e DotenvEntry) Item       { return Item{Kind: KindDotenv, Dotenv: &e} }
func FromBundle(e BundleEntry) Item       { return Item{Kind: KindBundle, Bundle: &e} }

// Candidate is a normalized secret ready for records.Store.Create.
type Candidate struct {
	Name        string
	Value       []byte
	Provider    string
	ProjectPath string
	Provenance  models.Provenance
}

// Metadata returns the record metadata for c.
func (c Candidate) Metadata() models.Metadata {
	return models.Metadata{
		Name:        c.Name,
		Provider:    c.Provider,
		ProjectPath: c.ProjectPath,
		Provenance:  c.Provenance,
	}
}

// Normalize maps the item to a Candidate. projectPath is used when the
// source does not carry one.
func (it Item) Normalize(now time.Time, projectPath string) (Candidate, error) {
	c := Candidate{ProjectPath: projectPath}
	c.Provenance.ImportedAt = now.UTC()
	c.Provenance.Source = string(it.Kind)

	switch it.Kind {
	case KindMarkdown:
		if it.Markdown == nil {
			return Candidate{}, errVariant(it.Kind)
		}
		c.Name = it.Markdown.Name
		c.Value = []byte(it.Markdown.Value)
		c.Provenance.Confidence = it.Markdown.Confidence
	case KindDotenv:
		if it.Dotenv == nil {
			return Candidate{}, errVariant(it.Kind)
		}
		c.Name = it.Dotenv.Key
		c.Value = []byte(it.Dotenv.Value)
		c.Provenance.Confidence = 1
	case KindBundle:
		if it.Bundle == nil {
			return Candidate{}, errVariant(it.Kind)
		}
		c.Name = it.Bundle.Name
		c.Value = []byte(it.Bundle.Value)
		c.Provider = it.Bundle.Provider
		if it.Bundle.ProjectPath != "" {
			c.ProjectPath = it.Bundle.ProjectPath
		}
		c.Provenance.Confidence = 1
	default:
		return Candidate{}, fmt.Errorf("%w: unknown import kind %q", kerrors.ErrInvalidMetadata, it.Kind)
	}

	if c.Provider == "" {
		c.Provider = DetectProvider(c.Name, string(c.Value))
	}
	if err := c.Metadata().Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func errVariant(k Kind) error {
	return fmt.Errorf("%w: %s item has no payload", kerrors.ErrInvalidMetadata, k)
}
