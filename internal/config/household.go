package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"finances/internal/taxonomy"
)

// ErrUnknownSection is returned by Household.Section for unsupported keys.
var ErrUnknownSection = errors.New("unknown configuration section")

// Household is the user-maintained document describing the budget, the
// accounts and the tag hierarchy. It is loaded once and never mutated.
type Household struct {
	Budget      float64                        `json:"budget"`
	AccountList []string                       `json:"account_list"`
	PeriodItems []string                       `json:"period_items"`
	BudgetItems []string                       `json:"budget_items"`
	Tags        map[string]map[string][]string `json:"tags"`
}

// LoadHousehold reads and validates the household document at path.
func LoadHousehold(path string) (*Household, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open household file: %w", err)
	}
	defer f.Close()

	h, err := ParseHousehold(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse household file %s: %w", path, err)
	}
	return h, nil
}

// ParseHousehold decodes a household document. Tag names keep their case,
// which is why this is plain JSON rather than a viper tree.
func ParseHousehold(r io.Reader) (*Household, error) {
	var h Household
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&h); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Household) Validate() error {
	var errs []string
	if h.Budget <= 0 {
		errs = append(errs, fmt.Sprintf("invalid budget %v: must be positive", h.Budget))
	}
	if len(h.AccountList) == 0 {
		errs = append(errs, "account_list cannot be empty")
	}
	for _, a := range h.AccountList {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, "account_list cannot contain empty names")
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("household validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Taxonomy builds the tag hierarchy described by Tags.
func (h *Household) Taxonomy() *taxonomy.Taxonomy {
	return taxonomy.New(h.Tags)
}

// HasAccount reports whether name is a configured account.
func (h *Household) HasAccount(name string) bool {
	for _, a := range h.AccountList {
		if a == name {
			return true
		}
	}
	return false
}

// UnknownBudgetItems lists budget items that are not level-1 tags. Spend
// under them can never be recorded.
func (h *Household) UnknownBudgetItems() []string {
	var out []string
	for _, item := range h.BudgetItems {
		if _, ok := h.Tags[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// Section returns one part of the document keyed as the API exposes it.
// The value is wrapped in a single-key object naming the section.
func (h *Household) Section(key string) (map[string]any, error) {
	switch key {
	case "budget":
		return map[string]any{"Budget": h.Budget}, nil
	case "account_list":
		return map[string]any{"AccountList": h.AccountList}, nil
	case "period_items":
		return map[string]any{"PeriodItems": h.PeriodItems}, nil
	case "budget_items":
		return map[string]any{"BudgetItems": h.BudgetItems}, nil
	case "tags":
		return map[string]any{"Tags": h.Tags}, nil
	case "all":
		return map[string]any{"All": h}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}
