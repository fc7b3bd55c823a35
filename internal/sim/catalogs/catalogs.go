package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultMaxStack = 64

type Catalogs struct {
	Items   ItemCatalog
	Recipes RecipeCatalog
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	Code string `json:"code"`
	Kind string `json:"kind"` // "ITEM","BLOCK","FLUID"

	MaxStack         int `json:"max_stack,omitempty"`
	Durability       int `json:"durability,omitempty"`
	PortionsPerLitre int `json:"portions_per_litre,omitempty"`

	Fuel     *FuelProps     `json:"fuel,omitempty"`
	Smelting *SmeltingProps `json:"smelting,omitempty"`
}

// FuelProps describes how an item burns in a fuel slot.
type FuelProps struct {
	BurnTemperature float64 `json:"burn_temperature"`
	BurnSeconds     float64 `json:"burn_seconds"`
}

// SmeltingProps is the per-item fallback used by furnaces when no dedicated
// recipe matches: Ratio input units melt into Quantity units of Output.
type SmeltingProps struct {
	MeltingPoint float64 `json:"melting_point"`
	MeltSeconds  float64 `json:"melt_seconds"`
	Output       string  `json:"output"`
	Ratio        int     `json:"ratio,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
}

type RecipeCatalog struct {
	// Files in load order; recipe registration order follows it.
	Files  []RecipeFile
	Digest string
}

type RecipeFile struct {
	Machine string      `json:"machine"`
	Recipes []RecipeDef `json:"recipes"`
}

// RecipeDef is the authoring form of a machine recipe. Ingredient and output
// codes may be wildcard patterns; they are bound by recipe.Resolve.
type RecipeDef struct {
	ID            int32           `json:"id"`
	Name          string          `json:"name"`
	Enabled       *bool           `json:"enabled,omitempty"`
	Family        string          `json:"family,omitempty"`
	PowerPerCraft int64           `json:"power_per_craft,omitempty"`
	Requires      string          `json:"requires,omitempty"`
	Attributes    json.RawMessage `json:"attributes,omitempty"`
	Ingredients   []IngredientDef `json:"ingredients"`
	Outputs       []OutputDef     `json:"outputs"`
}

type IngredientDef struct {
	Code            string   `json:"code"`
	Name            string   `json:"name,omitempty"`
	AllowedVariants []string `json:"allowed_variants,omitempty"`
	Quantity        int      `json:"quantity"`
}

type OutputDef struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
	Variable *int   `json:"variable,omitempty"`
	Fluid    bool   `json:"fluid,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes"), &c.Recipes); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	defs, err := ParseItems(raw)
	if err != nil {
		return err
	}
	*out = NewItemCatalog(defs)
	out.DefsDigest = sha256Hex(raw)
	return nil
}

// ParseItems decodes items.json content.
func ParseItems(raw []byte) ([]ItemDef, error) {
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if strings.TrimSpace(d.Code) == "" {
			return nil, fmt.Errorf("items.json: empty code")
		}
		if seen[d.Code] {
			return nil, fmt.Errorf("items.json: duplicate code %q", d.Code)
		}
		seen[d.Code] = true
		if d.Kind == "FLUID" && d.PortionsPerLitre <= 0 {
			return nil, fmt.Errorf("items.json: fluid %q: portions_per_litre must be > 0", d.Code)
		}
	}
	return defs, nil
}

// NewItemCatalog indexes defs by code. The palette is sorted so wildcard
// enumeration is deterministic.
func NewItemCatalog(defs []ItemDef) ItemCatalog {
	out := ItemCatalog{Defs: make(map[string]ItemDef, len(defs))}
	for _, d := range defs {
		out.Defs[d.Code] = d
	}
	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return out
}

func (c *ItemCatalog) Lookup(code string) (ItemDef, bool) {
	d, ok := c.Defs[code]
	return d, ok
}

// Codes returns every known code in palette order.
func (c *ItemCatalog) Codes() []string { return c.Palette }

func (c *ItemCatalog) MaxStack(code string) int {
	d, ok := c.Defs[code]
	if !ok || d.MaxStack <= 0 {
		if ok && d.Kind == "FLUID" {
			return DefaultMaxStack * d.PortionsPerLitre
		}
		return DefaultMaxStack
	}
	return d.MaxStack
}

func (c *ItemCatalog) MaxDurability(code string) int {
	return c.Defs[code].Durability
}

// PortionsPerLitre reports the fluid density of code; ok is false for non-fluids.
func (c *ItemCatalog) PortionsPerLitre(code string) (int, bool) {
	d, ok := c.Defs[code]
	if !ok || d.Kind != "FLUID" || d.PortionsPerLitre <= 0 {
		return 0, false
	}
	return d.PortionsPerLitre, true
}

func (c *ItemCatalog) Fuel(code string) (FuelProps, bool) {
	d, ok := c.Defs[code]
	if !ok || d.Fuel == nil || d.Fuel.BurnSeconds <= 0 {
		return FuelProps{}, false
	}
	return *d.Fuel, true
}

func (c *ItemCatalog) Smelting(code string) (SmeltingProps, bool) {
	d, ok := c.Defs[code]
	if !ok || d.Smelting == nil || d.Smelting.Output == "" {
		return SmeltingProps{}, false
	}
	s := *d.Smelting
	if s.Ratio <= 0 {
		s.Ratio = 1
	}
	if s.Quantity <= 0 {
		s.Quantity = 1
	}
	return s, true
}

func loadRecipes(dir string, out *RecipeCatalog) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	ids := map[int32]string{}
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var rf RecipeFile
		if err := json.Unmarshal(b, &rf); err != nil {
			return fmt.Errorf("recipes %s: %w", filepath.Base(p), err)
		}
		if strings.TrimSpace(rf.Machine) == "" {
			return fmt.Errorf("recipes %s: missing machine", filepath.Base(p))
		}
		for _, r := range rf.Recipes {
			if r.Name == "" {
				return fmt.Errorf("recipes %s: recipe %d: missing name", filepath.Base(p), r.ID)
			}
			if prev, ok := ids[r.ID]; ok {
				return fmt.Errorf("recipes %s: duplicate recipe id %d (%s, %s)", filepath.Base(p), r.ID, prev, r.Name)
			}
			ids[r.ID] = r.Name
		}
		out.Files = append(out.Files, rf)
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}
