package service

// SplitText splits text into fixed-size windows of runes with the
// given overlap between consecutive windows. Text that fits in a
// single window is returned unchanged. Size and overlap are counted
// in runes so multibyte text never splits mid-character.
func SplitText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
