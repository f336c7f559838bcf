package detail

import (
	"strconv"
	"strings"
)

// Canonical field keys. Submissions arrive with many historical spellings
// per step type; the alias table below folds them onto these keys before
// any business rule sees them.
const (
	KeyQuantity = "quantity"
	KeyWastage  = "wastage"
)

// aliasTable maps lowercased historical field spellings onto canonical keys.
// Built once; lookup is case-insensitive.
var aliasTable = map[string]string{
	"quantity":    KeyQuantity,
	"qty":         KeyQuantity,
	"okquantity":  KeyQuantity,
	"ok_quantity": KeyQuantity,
	"ok_qty":      KeyQuantity,
	"okqty":       KeyQuantity,
	"quantityok":  KeyQuantity,
	"noofsheets":  KeyQuantity,

	"wastage":     KeyWastage,
	"waste":       KeyWastage,
	"wastageqty":  KeyWastage,
	"wastage_qty": KeyWastage,
	"wastequantity": KeyWastage,
}

// excludedFromMerge are keys the aggregator never carries into the merged
// Fields map: quantity/wastage are calculated, the rest are normalized onto
// dedicated columns.
var excludedFromMerge = map[string]bool{
	KeyQuantity:   true,
	KeyWastage:    true,
	"status":      true,
	"shift":       true,
	"date":        true,
	"time":        true,
	"startedat":   true,
	"completedat": true,
	"submittedat": true,
}

// Canonical returns the canonical key for a submitted field name, or the
// lowercased name itself when no alias is registered.
func Canonical(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if c, ok := aliasTable[k]; ok {
		return c
	}
	return k
}

// MergeExcluded reports whether a canonical key is excluded from the
// machine-by-machine field merge.
func MergeExcluded(canonicalKey string) bool {
	return excludedFromMerge[canonicalKey]
}

// Quantities extracts the ok-quantity and wastage figures from a raw
// submission form, tolerating historical field-name spellings. Values that
// do not parse as integers count as zero.
func Quantities(form map[string]string) (ok, wastage int) {
	for k, v := range form {
		switch Canonical(k) {
		case KeyQuantity:
			ok += parseInt(v)
		case KeyWastage:
			wastage += parseInt(v)
		}
	}
	return ok, wastage
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
