// Package webhook converts provider-specific push notification payloads
// (GitHub, GitLab, SourceForge, notify-webhook) into canonical change
// records. Payloads are handled as generic key-value documents: every
// logical field (repository name, clone URL, display URL, ...) has an
// ordered list of extraction strategies that are tried in priority order,
// and the first one that matches wins.
package webhook

// Document is a decoded JSON object from a webhook payload. Helper methods
// distinguish "key absent" from "key present but empty", which several
// extraction rules depend on.
type Document map[string]any

// Has reports whether the key is present in the document.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the value under key as a string. The boolean is false when
// the key is absent or the value is not a string.
func (d Document) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Map returns the nested object under key, or nil when the key is absent or
// the value is not an object.
func (d Document) Map(key string) Document {
	v, ok := d[key]
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case Document:
		return m
	case map[string]any:
		return Document(m)
	}
	return nil
}

// Bool returns the value under key as a boolean, treating absent or
// non-boolean values as false.
func (d Document) Bool(key string) bool {
	v, ok := d[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Strings returns the value under key as a list of strings, skipping
// non-string elements. Absent keys yield nil.
func (d Document) Strings(key string) []string {
	v, ok := d[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Docs returns the value under key as a list of documents, skipping
// non-object elements. Absent keys yield nil.
func (d Document) Docs(key string) []Document {
	v, ok := d[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Document, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Document(m))
		}
	}
	return out
}

// extractor is one strategy for pulling a logical field out of a payload.
// It reports whether it matched; an empty string with ok=true is a valid
// extraction result.
type extractor func(Document) (string, bool)

// extract tries the strategies in order and returns the first match, or ""
// when none of them apply.
func extract(d Document, strategies []extractor) string {
	for _, s := range strategies {
		if v, ok := s(d); ok {
			return v
		}
	}
	return ""
}
