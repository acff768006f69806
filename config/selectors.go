package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Logical fields located on the search and listing pages.
const (
	FieldListingLink  = "listing_link"
	FieldTitle        = "title"
	FieldFacilities   = "facilities"
	FieldPrice        = "price"
	FieldCommentBlock = "comment_block"
	FieldCommentText  = "comment_text"
	FieldReviewerName = "reviewer_name"
	FieldReviewerCity = "reviewer_city"
)

// RequiredFields lists every field a selector set must define.
var RequiredFields = []string{
	FieldListingLink,
	FieldTitle,
	FieldFacilities,
	FieldPrice,
	FieldCommentBlock,
	FieldCommentText,
	FieldReviewerName,
	FieldReviewerCity,
}

// Selector kinds.
const (
	KindCSS   = "css"
	KindXPath = "xpath"
)

// ListingLinkClass is the generated class list of a search result anchor.
const ListingLinkClass = "l1ovpqvx atm_1he2i46_1k8pnbi_10saat9 atm_yxpdqi_1pv6nv4_10saat9 atm_1a0hdzc_w1h1e8_10saat9 atm_2bu6ew_929bqk_10saat9 atm_12oyo1u_73u7pn_10saat9 atm_fiaz40_1etamxe_10saat9 bn2bl2p atm_5j_223wjw atm_9s_1ulexfb atm_e2_1osqo2v atm_fq_idpfg4 atm_mk_stnw88 atm_tk_idpfg4 atm_vy_1osqo2v atm_26_1j28jx2 atm_3f_glywfm atm_kd_glywfm atm_3f_glywfm_jo46a5 atm_l8_idpfg4_jo46a5 atm_gi_idpfg4_jo46a5 atm_3f_glywfm_1icshfk atm_kd_glywfm_19774hq atm_uc_aaiy6o_1w3cfyq_oggzyc atm_70_1b8lkes_1w3cfyq_oggzyc atm_uc_glywfm_1w3cfyq_pynvjw atm_uc_aaiy6o_pfnrn2_ivgyl9 atm_70_1b8lkes_pfnrn2_ivgyl9 atm_uc_glywfm_pfnrn2_61fwbc dir dir-ltr"

// CommentBlockClass is the class of a review container on a listing page.
const CommentBlockClass = "_b7zir4z"

// Strategy is one way of locating a field. Strategies of a field are tried
// in order and the first one that matches anything wins.
type Strategy struct {
	Kind string `yaml:"kind"`
	Expr string `yaml:"expr"`
}

func (s Strategy) String() string {
	return s.Kind + ":" + s.Expr
}

// Selectors maps a logical field name to its strategies. Comment fields are
// evaluated relative to a comment block; the others against the page.
type Selectors map[string][]Strategy

// DefaultSelectors returns the selector set for the current site build.
func DefaultSelectors() Selectors {
	return Selectors{
		FieldListingLink: {
			{Kind: KindXPath, Expr: "//a[@class='" + ListingLinkClass + "']"},
		},
		FieldTitle: {
			{Kind: KindXPath, Expr: "//div//section//div//div//div//h1"},
		},
		FieldFacilities: {
			{Kind: KindXPath, Expr: "//div//section//div//ol"},
		},
		FieldPrice: {
			{Kind: KindXPath, Expr: "//div//span//div//span"},
			{Kind: KindCSS, Expr: "span.u1opajno, span.u174bpcy"},
		},
		FieldCommentBlock: {
			{Kind: KindXPath, Expr: "//div[@class='" + CommentBlockClass + "']"},
		},
		FieldCommentText: {
			{Kind: KindXPath, Expr: ".//div//div//div//div//span//span"},
		},
		FieldReviewerName: {
			{Kind: KindXPath, Expr: ".//div//div//div//div//div//h3"},
		},
		FieldReviewerCity: {
			{Kind: KindXPath, Expr: ".//div//div//div//div//div//div"},
		},
	}
}

// LoadSelectors returns the default set with the fields defined in the YAML
// file at path replacing their defaults. An empty path yields the defaults.
//
//	title:
//	  - kind: css
//	    expr: "h1"
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors: %w", err)
	}

	var overrides Selectors
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	for field, strategies := range overrides {
		sel[field] = strategies
	}

	if err := sel.Validate(); err != nil {
		return nil, fmt.Errorf("selectors %s: %w", path, err)
	}
	return sel, nil
}

// Validate checks that every required field has usable strategies and that
// no unknown fields are present.
func (s Selectors) Validate() error {
	known := make(map[string]struct{}, len(RequiredFields))
	for _, field := range RequiredFields {
		known[field] = struct{}{}
		strategies := s[field]
		if len(strategies) == 0 {
			return fmt.Errorf("field %q has no strategies", field)
		}
		for i, st := range strategies {
			if st.Kind != KindCSS && st.Kind != KindXPath {
				return fmt.Errorf("field %q strategy %d: kind must be css or xpath, got %q", field, i, st.Kind)
			}
			if strings.TrimSpace(st.Expr) == "" {
				return fmt.Errorf("field %q strategy %d: empty expression", field, i)
			}
		}
	}
	for field := range s {
		if _, ok := known[field]; !ok {
			return fmt.Errorf("unknown field %q", field)
		}
	}
	return nil
}
