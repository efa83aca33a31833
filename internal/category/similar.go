package category

// similarText counts the characters shared by a and b: the longest common
// substring plus, recursively, the similar characters of the segments to
// its left and to its right.
func similarText(a, b []rune) int {
	posA, posB, max := 0, 0, 0

	for i := range a {
		for j := range b {
			length := 0
			for i+length < len(a) && j+length < len(b) && a[i+length] == b[j+length] {
				length++
			}
			if length > max {
				max = length
				posA, posB = i, j
			}
		}
	}

	if max == 0 {
		return 0
	}

	sum := max
	if posA > 0 && posB > 0 {
		sum += similarText(a[:posA], b[:posB])
	}
	if posA+max < len(a) && posB+max < len(b) {
		sum += similarText(a[posA+max:], b[posB+max:])
	}

	return sum
}

// similarityPercent scores two names from 0 to 100.
func similarityPercent(a, b string) float64 {
	runesA, runesB := []rune(a), []rune(b)
	total := len(runesA) + len(runesB)
	if total == 0 {
		return 0
	}

	return float64(similarText(runesA, runesB)*200) / float64(total)
}
