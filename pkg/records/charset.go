package records

import "fmt"

// Text code ranges
const (
	literalLast = 0x7F
	wordFirst   = 0x80
	wordLast    = 0xEF

	CodeName       = 0xF0 // insert the hero's name
	CodeWait       = 0xF1 // wait for a button press
	CodeLineBreak  = 0xF2
	CodeTerminator = 0xFF

	MaxWords = wordLast - wordFirst + 1
)

// Markup used for control codes in editable strings
const (
	MarkupName = "{name}"
	MarkupWait = "{wait}"
)

// CharTable maps literal codes 0x00.. to runes; codes past its end are invalid
const CharTable = " 0123456789" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	".,'!?-:;\"()/&*#%+=<>@$_~"

// DefaultDictionary is the word-substitution table used when a ROM profile
// does not provide one
var DefaultDictionary = []string{
	"the ", "you ", "thou ", "and ", "to ", "of ", "is ", "in ",
	"that ", "have ", "art ", "for ", "with ", "this ", "will ", "not ",
	"King", "Princess", "dragon", "castle", "town", "sword", "armor", "shield",
	"Welcome ", "Thank you", "gold", "treasure", "door", "key", "magic", "power",
	"There ", "I am ", "Please ", "come ", "again", "here", "where ", "what ",
}

type charset struct {
	decode []rune
	encode map[rune]byte
}

var defaultCharset = newCharset(CharTable)

func newCharset(table string) *charset {
	cs := &charset{encode: make(map[rune]byte)}
	for _, r := range table {
		cs.encode[r] = byte(len(cs.decode))
		cs.decode = append(cs.decode, r)
	}
	return cs
}

// checkDictionary rejects dictionaries that cannot be encoded or decoded
// unambiguously
func checkDictionary(words []string) error {
	if len(words) > MaxWords {
		return fmt.Errorf("dictionary has %d words, at most %d fit in the word range", len(words), MaxWords)
	}
	for i, w := range words {
		if w == "" {
			return fmt.Errorf("dictionary word %d is empty", i)
		}
		for _, r := range w {
			if _, ok := defaultCharset.encode[r]; !ok {
				return fmt.Errorf("dictionary word %d (%q) contains %q outside the character table", i, w, r)
			}
		}
	}
	return nil
}
