// Package patterns finds item sets a user keeps logging together.
package patterns

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/models"
)

const fingerprintSeparator = "|"

// Item is one logged product as seen by the fingerprint engine.
type Item struct {
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	EventType string  `json:"event_type,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
	Unit      string  `json:"unit,omitempty"`
}

// Identity is the product id when known, else the normalized name.
func (i Item) Identity() string {
	if id := strings.TrimSpace(i.ProductID); id != "" {
		return id
	}
	return textkey.NormalizeKey(i.Name)
}

// GenerateMealFingerprint returns the sorted, "|"-joined identities of items.
// Items without an identity are dropped.
func GenerateMealFingerprint(items []Item) string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := item.Identity(); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, fingerprintSeparator)
}

// CalculatePatternSimilarity is the Jaccard index of the identity sets of
// two fingerprints. An empty fingerprint has similarity 0 with anything.
func CalculatePatternSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)

	shared := 0
	for id := range setA {
		if setB[id] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func toSet(fingerprint string) map[string]bool {
	set := map[string]bool{}
	for _, id := range strings.Split(fingerprint, fingerprintSeparator) {
		if id != "" {
			set[id] = true
		}
	}
	return set
}

// ItemFromEvent reads the item identity and default quantity of a logged event.
func ItemFromEvent(e models.VoiceEvent) Item {
	item := Item{EventType: e.EventType}
	if e.ProductCatalogID != nil {
		item.ProductID = *e.ProductCatalogID
	}
	if item.ProductID == "" {
		item.ProductID = stringField(e.EventData, "product_id")
	}
	item.Name = stringField(e.EventData, "name")
	if item.Name == "" {
		item.Name = stringField(e.EventData, "description")
	}
	for _, key := range []string{"quantity", "amount", "dosage"} {
		if q, ok := numberField(e.EventData, key); ok {
			item.Quantity = q
			break
		}
	}
	item.Unit = stringField(e.EventData, "unit")
	if item.Unit == "" {
		item.Unit = stringField(e.EventData, "units")
	}
	return item
}

// distinctItems keeps the first item of every identity, in order.
func distinctItems(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		id := item.Identity()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func numberField(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
