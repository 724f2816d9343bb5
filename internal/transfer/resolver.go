package transfer

import (
	"iter"

	"github.com/mmcdole/switchtube/internal/domain"
)

// Resolve picks the variant to download. The server lists variants best
// quality first, so the first one wins; ok is false when there is nothing to
// download (e.g. audio-only media), which callers treat as a skip.
func Resolve(variants []domain.Variant) (v domain.Variant, ok bool) {
	if len(variants) == 0 {
		return domain.Variant{}, false
	}
	return variants[0], true
}

// ResolveFrom applies Resolve to a lazy listing. Only the first element is
// consumed, so no further pages are requested.
func ResolveFrom(seq iter.Seq2[domain.Variant, error]) (domain.Variant, bool, error) {
	var head []domain.Variant
	for v, err := range seq {
		if err != nil {
			return domain.Variant{}, false, err
		}
		head = append(head, v)
		break
	}
	v, ok := Resolve(head)
	return v, ok, nil
}
