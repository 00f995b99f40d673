package leads

import "strings"

// Notes is the ordered list of free-text annotations on a lead
type Notes []string

func (n *Notes) Add(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("note", ErrEmptyNote)
	}
	*n = append(*n, text)
	return nil
}

func (n *Notes) Edit(index int, text string) error {
	if index < 0 || index >= len(*n) {
		return invalid("note", ErrNoteIndex)
	}
	if strings.TrimSpace(text) == "" {
		return invalid("note", ErrEmptyNote)
	}
	(*n)[index] = text
	return nil
}

// Delete removes the note at index and shifts the rest down
func (n *Notes) Delete(index int) (string, error) {
	if index < 0 || index >= len(*n) {
		return "", invalid("note", ErrNoteIndex)
	}
	removed := (*n)[index]
	*n = append((*n)[:index:index], (*n)[index+1:]...)
	return removed, nil
}

// ValidateNotes checks a full replacement list, as sent on commit
func ValidateNotes(notes []string) error {
	for _, text := range notes {
		if strings.TrimSpace(text) == "" {
			return invalid("notes", ErrEmptyNote)
		}
	}
	return nil
}
