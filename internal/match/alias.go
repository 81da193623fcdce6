package match

// aliasGroups is the curated table of known vendor spellings. Each group
// lists the names and abbreviations one vendor commonly appears under on
// receipts and bank feeds. Growth of this table is a data concern; the seed
// list covers vendors that dominate small-business expense reports.
var aliasGroups = [][]string{
	{"starbucks", "sbux", "starbucks coffee"},
	{"mcdonalds", "mcd", "mcdonald's"},
	{"amazon", "amzn", "amazon.com", "amzn mktp"},
	{"walmart", "wal-mart", "wmt", "wm supercenter"},
	{"target", "tgt"},
	{"costco", "costco whse"},
	{"home depot", "homedepot", "the home depot"},
	{"fedex", "federal express", "fedex office"},
	{"ups", "united parcel service", "the ups store"},
	{"usps", "us postal service", "united states postal service"},
	{"uber", "uber trip", "uber technologies"},
	{"lyft", "lyft ride"},
	{"delta", "delta air", "delta airlines"},
	{"united", "united air", "united airlines"},
	{"southwest", "southwest air", "southwest airlines"},
	{"chevron", "chevron gas"},
	{"shell", "shell oil", "shell service station"},
	{"exxon", "exxonmobil", "exxon mobil"},
	{"office depot", "officemax", "office depot officemax"},
	{"staples", "staples inc"},
	{"best buy", "bestbuy"},
	{"whole foods", "wholefds", "whole foods market"},
	{"trader joes", "trader joe's", "tj's"},
	{"chipotle", "chipotle mexican grill"},
	{"microsoft", "msft", "microsoft corporation"},
	{"google", "googl", "google llc", "google workspace"},
	{"apple", "aapl", "apple.com", "apple store"},
	{"adobe", "adobe systems", "adobe inc"},
	{"intuit", "intuit inc", "quickbooks"},
	{"verizon", "verizon wireless", "vzw"},
	{"att", "at&t", "at&t wireless"},
	{"comcast", "xfinity", "comcast cable"},
}

// aliasIndex maps each normalized alias to its group id.
var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]int {
	index := make(map[string]int)
	for group, aliases := range aliasGroups {
		for _, alias := range aliases {
			index[Normalize(alias)] = group
		}
	}
	return index
}

// SameVendor reports whether two vendor strings resolve to the same known
// vendor via the alias table. Both inputs must independently match a member
// of the same group.
func SameVendor(a, b string) bool {
	groupA, okA := aliasIndex[Normalize(a)]
	if !okA {
		return false
	}
	groupB, okB := aliasIndex[Normalize(b)]
	return okB && groupA == groupB
}
