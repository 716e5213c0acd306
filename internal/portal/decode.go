package portal

import (
	"fmt"
	"regexp"
	"strings"
)

// attrValuePattern matches a quoted attribute value, including the leading
// equals sign so bare quoted text is left alone.
var attrValuePattern = regexp.MustCompile(`="([^"]*)"`)

// structuralEntities are the five standard XML entities, decoded in this
// exact order. &lt; and &gt; run before &amp; so a double-encoded sequence
// like &amp;lt; reduces by exactly one level, never two.
var structuralEntities = [...][2]string{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// DecodeStructural turns an entity-encoded XML document back into markup
// while leaving entities inside attribute values exactly as received.
//
// The portal returns the gradebook as an XML document that is itself
// entity-encoded inside the outer response. After the outer parse removes one
// encoding level, the scaffolding of the inner document (&lt;Course ...&gt;)
// still needs decoding, but attribute values may legitimately contain entity
// sequences of their own (a course titled "A &amp; B" arrives as
// Title="A &amp;amp; B" at this point). Decoding everything would collapse
// those by one level too many, so the decode runs in three passes: quoted
// attribute values are lifted out and replaced with placeholder tokens, the
// five structural entities are decoded in the remaining text, and the
// original attribute spans are substituted back untouched.
func DecodeStructural(encoded string) string {
	var values []string
	protected := attrValuePattern.ReplaceAllStringFunc(encoded, func(match string) string {
		// strip `="` prefix and `"` suffix
		values = append(values, match[2:len(match)-1])
		return fmt.Sprintf(`="__ATTR_VALUE_%d__"`, len(values)-1)
	})

	for _, e := range structuralEntities {
		protected = strings.ReplaceAll(protected, e[0], e[1])
	}

	for i, v := range values {
		protected = strings.Replace(protected, fmt.Sprintf("__ATTR_VALUE_%d__", i), v, 1)
	}
	return protected
}
