// Package brands holds the known brand list and named keyword presets used to
// seed refresh and density requests.
package brands

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/site-scout/internal/model"
)

// DefaultSuggestLimit is the number of suggestions returned when no limit is given.
const DefaultSuggestLimit = 5

// Preset is a named main brand with its usual competitors.
type Preset struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	MainBrand   string   `yaml:"main_brand" json:"main_brand"`
	Competitors []string `yaml:"competitors" json:"competitors"`
}

// Keywords returns the main brand followed by the competitors, normalized.
func (p Preset) Keywords() []string {
	return model.NormalizeKeywords(append([]string{p.MainBrand}, p.Competitors...))
}

// Catalog is the brand list plus presets.
type Catalog struct {
	Brands  []string `yaml:"brands" json:"brands"`
	Presets []Preset `yaml:"presets" json:"presets"`
}

var baseBrands = []string{
	"蜜雪冰城", "华莱士", "瑞幸咖啡", "绝味鸭脖", "正新鸡排", "肯德基", "古茗",
	"书亦烧仙草", "星巴克", "麦当劳", "茶百道", "海底捞", "沪上阿姨", "必胜客",
	"德克士", "锅圈食汇", "奈雪的茶", "甜啦啦", "老乡鸡", "张亮麻辣烫", "塔斯汀",
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Brands: append([]string(nil), baseBrands...),
		Presets: []Preset{
			{
				Name:        "tea",
				Description: "现制茶饮",
				MainBrand:   "蜜雪冰城",
				Competitors: []string{"古茗", "茶百道", "沪上阿姨", "书亦烧仙草", "甜啦啦"},
			},
			{
				Name:        "coffee",
				Description: "连锁咖啡",
				MainBrand:   "瑞幸咖啡",
				Competitors: []string{"星巴克"},
			},
			{
				Name:        "fastfood",
				Description: "西式快餐",
				MainBrand:   "华莱士",
				Competitors: []string{"肯德基", "麦当劳", "德克士", "塔斯汀"},
			},
			{
				Name:        "premium-tea",
				Description: "中高端茶饮",
				MainBrand:   "奈雪的茶",
				Competitors: []string{"茶百道", "古茗"},
			},
		},
	}
}

// Load reads a catalog from a YAML file. An empty path returns Default. Sections
// missing from the file fall back to the defaults.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "brands: read presets %s", path)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, eris.Wrap(err, "brands: parse presets")
	}

	def := Default()
	if len(cat.Brands) == 0 {
		cat.Brands = def.Brands
	}
	if len(cat.Presets) == 0 {
		cat.Presets = def.Presets
	}
	for i, p := range cat.Presets {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.MainBrand) == "" {
			return nil, eris.Errorf("brands: preset %d needs a name and a main_brand", i)
		}
	}
	return &cat, nil
}

// Find looks up a preset by name, ignoring case and surrounding space.
func (c *Catalog) Find(name string) (Preset, bool) {
	key := model.NormalizeKeyword(name)
	for _, p := range c.Presets {
		if model.NormalizeKeyword(p.Name) == key {
			return p, true
		}
	}
	return Preset{}, false
}

// Suggest returns up to limit brands containing input. An empty input returns
// the first brands in catalog order.
func (c *Catalog) Suggest(input string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	term := strings.TrimSpace(input)
	out := make([]string, 0, limit)
	for _, b := range c.Brands {
		if len(out) == limit {
			break
		}
		if term == "" || strings.Contains(b, term) {
			out = append(out, b)
		}
	}
	return out
}
