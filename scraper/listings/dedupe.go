package listings

// SeenSet holds the identities accepted during one crawl run.
type SeenSet map[string]struct{}

func NewSeenSet() SeenSet {
	return make(SeenSet)
}

func (s SeenSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SeenSet) Add(id string) {
	s[id] = struct{}{}
}

func (s SeenSet) Len() int {
	return len(s)
}

// IsDuplicate reports whether id was already accepted. It does not modify
// seen; callers Add the id once they keep the record.
func IsDuplicate(id string, seen SeenSet) bool {
	return seen.Contains(id)
}
