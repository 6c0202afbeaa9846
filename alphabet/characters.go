package alphabet

import (
	"fmt"
	"slices"
	"strings"
)

// Class is a bit field selecting built-in character classes.
type Class uint

// Built-in character classes. Combine them with a bitwise OR, for example
// Digits|Latin|Space selects digits, latin letters and the space character.
const (
	Digits   Class = 1 << iota // 0-9
	Latin                      // a-z, A-Z
	Cyrillic                   // russian and belarusian letters
	Special                    // punctuation and other printable specials
	Space                      // ' '
	Tab                        // '\t'
)

// AllClasses selects every built-in class.
const AllClasses = Digits | Latin | Cyrillic | Special | Space | Tab

var classes = []struct {
	class Class
	chars string
}{
	{Digits, "0123456789"},
	{Latin, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"},
	{Cyrillic, "абвгдеёжзийклмнопрстуфхцчшщьыъэюяіўАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЬЫЪЭЮЯІЎ"},
	{Special, "`~!@#№$%^&*()_-+={[}]|\\:;\"'<,>.?/"},
	{Space, " "},
	{Tab, "\t"},
}

// String lists the selected class names.
func (c Class) String() string {
	names := []string{"digits", "latin", "cyrillic", "special", "space", "tab"}
	var out []string
	for i, name := range names {
		if c&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, "|")
}

// Characters is an alphabet whose symbols are single characters, sorted by
// code point.
type Characters struct {
	symbols
	index map[rune]int
}

// NewCharacters builds an alphabet from the selected classes plus any extra
// characters. Duplicates collapse into one symbol.
//
// Returns ErrEmpty if no class is selected and extra is empty.
func NewCharacters(selected Class, extra string) (*Characters, error) {
	set := make(map[rune]struct{})
	for _, c := range classes {
		if selected&c.class == c.class {
			for _, r := range c.chars {
				set[r] = struct{}{}
			}
		}
	}
	for _, r := range extra {
		set[r] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrEmpty
	}

	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	slices.Sort(runes)

	elements := make([]string, len(runes))
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		elements[i] = string(r)
		index[r] = i
	}

	return &Characters{
		symbols: newSymbols(elements),
		index:   index,
	}, nil
}

// Parse converts a password into a candidate value, one slot per character.
func (a *Characters) Parse(s string) ([]int, error) {
	value := make([]int, 0, len(s))
	for pos, r := range s {
		i, ok := a.index[r]
		if !ok {
			return nil, fmt.Errorf("%w: character %q at byte %d", ErrUnparsable, r, pos)
		}
		value = append(value, i)
	}
	return reverse(value), nil
}
