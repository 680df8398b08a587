package snapshot

// URLSet is a de-duplicated, order-independent set of tab URLs.
type URLSet map[string]struct{}

// SavedURLs builds the URL set of saved tabs.
func SavedURLs(tabs []SavedTab) URLSet {
	set := make(URLSet, len(tabs))
	for _, t := range tabs {
		set[t.URL] = struct{}{}
	}
	return set
}

// LiveURLs builds the URL set of live tabs.
func LiveURLs(tabs []LiveTab) URLSet {
	set := make(URLSet, len(tabs))
	for _, t := range tabs {
		set[t.URL] = struct{}{}
	}
	return set
}

// Has reports whether url is in the set.
func (s URLSet) Has(url string) bool {
	_, ok := s[url]
	return ok
}

// Equal reports whether both sets hold exactly the same URLs.
func (s URLSet) Equal(other URLSet) bool {
	if len(s) != len(other) {
		return false
	}
	for url := range s {
		if !other.Has(url) {
			return false
		}
	}
	return true
}
