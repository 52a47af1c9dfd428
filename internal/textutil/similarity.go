package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm. The result is
// clamped to 1 so identical inputs never exceed it through rounding.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return min(dot/(a.norm*b.norm), 1)
}

// OverlapCoefficient returns |A ∩ B| / min(|A|, |B|) over the unique tokens of
// each fingerprint. A short title fully contained in a longer one scores 1.
func OverlapCoefficient(a, b *Fingerprint) float64 {
	if a == nil || b == nil || len(a.tokens) == 0 || len(b.tokens) == 0 {
		return 0
	}
	small, large := a, b
	if len(large.tokens) < len(small.tokens) {
		small, large = large, small
	}
	shared := 0
	for token := range small.tokens {
		if _, ok := large.tokens[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small.tokens))
}
