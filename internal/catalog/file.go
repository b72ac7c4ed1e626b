package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
)

type fixtureFile struct {
	Stores []fixtureStore `yaml:"stores"`
}

type fixtureStore struct {
	Slug     string           `yaml:"slug"`
	Public   *bool            `yaml:"public"`
	Profile  Profile          `yaml:"profile"`
	Policies Policies         `yaml:"policies"`
	Products []fixtureProduct `yaml:"products"`
}

type fixtureProduct struct {
	Product `yaml:",inline"`
	Public  *bool `yaml:"public"`
}

func visible(public *bool) bool { return public == nil || *public }

// FileProvider serves store contexts from a YAML fixtures document.
// Stores and products are public unless marked `public: false`.
type FileProvider struct {
	stores map[string]fixtureStore
}

// LoadFileProvider reads fixtures from path.
func LoadFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures builds a FileProvider from a YAML document.
func ParseFixtures(data []byte) (*FileProvider, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog fixtures: %w", err)
	}

	p := &FileProvider{stores: make(map[string]fixtureStore, len(f.Stores))}
	for _, s := range f.Stores {
		if s.Slug == "" {
			return nil, fmt.Errorf("parse catalog fixtures: %w: store without slug", cerrors.ErrInvalidInput)
		}
		if _, dup := p.stores[s.Slug]; dup {
			return nil, fmt.Errorf("parse catalog fixtures: %w: duplicate store slug %q", cerrors.ErrInvalidInput, s.Slug)
		}
		p.stores[s.Slug] = s
	}
	return p, nil
}

// Load returns a fresh copy of the store context for slug.
func (p *FileProvider) Load(ctx context.Context, slug string) (*StoreContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := p.stores[slug]
	if !ok || !visible(s.Public) {
		return nil, ErrStoreNotFound
	}

	products := make([]Product, 0, len(s.Products))
	for _, fp := range s.Products {
		if visible(fp.Public) {
			products = append(products, fp.Product)
		}
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })

	policies := s.Policies
	policies.PaymentMethods = append([]PaymentMethod(nil), s.Policies.PaymentMethods...)

	return &StoreContext{
		Slug:     slug,
		Profile:  s.Profile,
		Policies: policies,
		Products: products,
		FAQ:      ExtractFAQ(s.Profile.AboutUs),
	}, nil
}

// Slugs lists the public store slugs in the fixtures, sorted.
func (p *FileProvider) Slugs() []string {
	out := make([]string, 0, len(p.stores))
	for slug, s := range p.stores {
		if visible(s.Public) {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out
}

func (p *FileProvider) Ping(context.Context) error { return nil }
