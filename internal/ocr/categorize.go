package ocr

import "strings"

// categoryKeywords maps a category to the item-name fragments that
// select it. First match wins in the order listed.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Groceries", []string{"milk", "bread", "cheese", "meat", "vegetable", "fruit", "grocery", "food"}},
	{"Car", []string{"gas", "fuel", "parking", "toll", "car wash", "oil change", "tire"}},
	{"Entertainment", []string{"movie", "game", "concert", "ticket", "bowling"}},
	{"Subscriptions", []string{"netflix", "spotify", "hulu", "disney", "amazon prime", "subscription"}},
	{"Electric", []string{"electric", "power", "utility"}},
	{"Medical", []string{"medicine", "pharmacy", "doctor", "medical", "health", "hospital"}},
	{"Household", []string{"cleaning", "paper towel", "toilet paper", "detergent", "home"}},
	{"Eating Out", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "takeout"}},
	{"Shopping", []string{"clothes", "shoes", "amazon", "target", "clothing"}},
	{"Rent", []string{"rent", "lease"}},
	{"Investment", []string{"stock", "etf", "investment", "401k"}},
}

// Categorize guesses a category from the item name, falling back to
// "Other".
func Categorize(itemName string) string {
	lower := strings.ToLower(itemName)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return "Other"
}
