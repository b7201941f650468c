package normalize

import "strings"

// CategoryGeneralWellness is the catch-all category when no rule matches.
const CategoryGeneralWellness = "General Wellness"

// CategoryRule maps a keyword set to a category. Rules are evaluated in
// order and the first rule with any keyword present wins.
type CategoryRule struct {
	Category string
	Keywords []string
}

// CategoryRules is a priority chain: pregnancy-related keywords are checked
// before generic hormone keywords, so ambiguous text lands in the more
// specific category. Do not reorder.
var CategoryRules = []CategoryRule{
	{"Pregnancy", []string{"pregnan", "pregnancy"}},
	{"Ovulation & Fertility", []string{"ovulat", "fertility", "lh surge", "fsh"}},
	{"STI / STD", []string{"sti", "std", "chlamydia", "gonorrhea", "hiv", "herpes", "syphilis"}},
	{"Menopause & FSH", []string{"menopause", "perimenopause"}},
	{"Thyroid", []string{"thyroid", "tsh", "t3", "t4"}},
	{"Hormone Panel", []string{"hormone", "estrogen", "progesterone", "testosterone", "cortisol"}},
	{"UTI", []string{"uti", "urinary tract"}},
	{"Vaginal Health", []string{"vaginal", "bv", "bacterial vaginosis", "yeast", "ph"}},
	{"PCOS", []string{"pcos", "polycystic"}},
	{"Breast Cancer Risk", []string{"brca", "breast cancer", "genetic"}},
}

// InferCategory classifies the lower-cased concatenation of name and
// description against the rule chain.
func InferCategory(name, description string) string {
	text := strings.ToLower(name + " " + description)
	for _, rule := range CategoryRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Category
			}
		}
	}
	return CategoryGeneralWellness
}
