// Package catalog loads the purchasable-service catalog: which vote
// services exist, what they cost, and the quantity bounds the provider
// enforces. The catalog is a YAML file validated against an embedded CUE
// schema before anything consumes it, so a malformed catalog fails at load
// time rather than at submission time.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Catalog is the validated service catalog.
type Catalog struct {
	// Currency is the ISO 4217 code all prices are denominated in
	// (integer cents).
	Currency string `yaml:"currency"`

	// VoteServices is keyed by service id, e.g. "upvotes".
	VoteServices map[string]VoteService `yaml:"vote_services"`

	CommentService CommentService `yaml:"comment_service"`
}

// VoteService describes one purchasable vote service.
type VoteService struct {
	Name         string   `yaml:"name"`
	PricePerUnit int64    `yaml:"price_per_unit"`
	MinQuantity  int64    `yaml:"min_quantity"`
	MaxQuantity  int64    `yaml:"max_quantity"`
	Speeds       []string `yaml:"speeds"`
}

// CommentService describes the flat-priced comment service.
type CommentService struct {
	Price            int64 `yaml:"price"`
	MaxContentLength int64 `yaml:"max_content_length"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse validates raw YAML against the CUE schema and decodes it.
//
// Validation runs on the raw document (decoded to plain maps), not on the
// typed struct, so unknown or mistyped fields are caught before Go's
// permissive YAML decoding can hide them.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &cat, nil
}

// validate unifies the raw document with the #Catalog schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Catalog: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode catalog document: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("invalid catalog:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}

// VoteService looks up a vote service by id.
func (c *Catalog) VoteService(id string) (VoteService, bool) {
	vs, ok := c.VoteServices[id]
	return vs, ok
}

// AllowsSpeed reports whether the service offers the given delivery speed.
func (vs VoteService) AllowsSpeed(speed string) bool {
	return slices.Contains(vs.Speeds, speed)
}

// VotePrice is the total charge in cents for quantity votes.
func (vs VoteService) VotePrice(quantity int64) int64 {
	return vs.PricePerUnit * quantity
}
