package records

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dwforge/romfmt/pkg/format"
	"golang.org/x/text/unicode/norm"
)

// TextEntry is one string of the string table
type TextEntry struct {
	ID   int    `json:"id"`
	Text string `json:"text"` // {name}, {wait} and \n stand for control codes
}

// TextTable holds the string table in directory order
type TextTable struct {
	Reserved int         `json:"reserved"` // prefix padding, must be zero
	Strings  []TextEntry `json:"strings"`
}

func (*TextTable) AssetType() format.AssetType { return format.AssetText }

// Fold rewrites every string to NFKC so compatibility forms such as
// full-width letters and ligatures map onto the character table. Text that
// is not in NFKC form fails validation.
func (t *TextTable) Fold() {
	for i := range t.Strings {
		t.Strings[i].Text = norm.NFKC.String(t.Strings[i].Text)
	}
}

// CharError reports a rune that has no encoding
type CharError struct {
	Pos  int // byte offset in the string
	Rune rune
}

func (e *CharError) Error() string {
	return fmt.Sprintf("character %q at offset %d has no encoding", e.Rune, e.Pos)
}

// textEntry is one 8-byte string table entry
type textEntry struct {
	ID         uint16
	Length     uint16
	DataOffset uint32
}

// TextCodec handles the text section with a given word dictionary
type TextCodec struct {
	words  []string
	greedy []int // word indexes, longest first
}

// NewTextCodec builds a codec for the dictionary; nil selects DefaultDictionary
func NewTextCodec(words []string) *TextCodec {
	c, err := NewTextCodecChecked(words)
	if err != nil {
		panic(err)
	}
	return c
}

// NewTextCodecChecked is NewTextCodec returning dictionary errors
func NewTextCodecChecked(words []string) (*TextCodec, error) {
	if words == nil {
		words = DefaultDictionary
	}
	if err := checkDictionary(words); err != nil {
		return nil, err
	}

	c := &TextCodec{words: append([]string(nil), words...)}
	c.greedy = make([]int, len(words))
	for i := range c.greedy {
		c.greedy[i] = i
	}
	sort.SliceStable(c.greedy, func(a, b int) bool {
		return len(c.words[c.greedy[a]]) > len(c.words[c.greedy[b]])
	})
	return c, nil
}

// Dictionary returns a copy of the word table
func (c *TextCodec) Dictionary() []string {
	return append([]string(nil), c.words...)
}

func (*TextCodec) Type() format.AssetType { return format.AssetText }

func (*TextCodec) New() Asset { return &TextTable{} }

// EncodeString encodes one editable string, terminator included. Text is
// encoded as given; see TextTable.Fold.
func (c *TextCodec) EncodeString(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)+1)

	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, MarkupName):
			out = append(out, CodeName)
			i += len(MarkupName)
			continue
		case strings.HasPrefix(rest, MarkupWait):
			out = append(out, CodeWait)
			i += len(MarkupWait)
			continue
		case rest[0] == '\n':
			out = append(out, CodeLineBreak)
			i++
			continue
		}

		if w, ok := c.matchWord(rest); ok {
			out = append(out, byte(wordFirst+w))
			i += len(c.words[w])
			continue
		}

		r, size := utf8.DecodeRuneInString(rest)
		code, ok := defaultCharset.encode[r]
		if !ok {
			return nil, &CharError{Pos: i, Rune: r}
		}
		out = append(out, code)
		i += size
	}

	return append(out, CodeTerminator), nil
}

func (c *TextCodec) matchWord(s string) (int, bool) {
	for _, w := range c.greedy {
		if strings.HasPrefix(s, c.words[w]) {
			return w, true
		}
	}
	return 0, false
}

// DecodeString decodes up to the terminator. Bytes after the terminator are
// ignored; a missing terminator is an error.
func (c *TextCodec) DecodeString(b []byte) (string, error) {
	var sb strings.Builder
	for i, code := range b {
		switch {
		case code <= literalLast:
			if int(code) >= len(defaultCharset.decode) {
				return "", format.Formatf(format.ErrInvalidCode, "literal 0x%02X at %d outside character table", code, i)
			}
			sb.WriteRune(defaultCharset.decode[code])
		case code >= wordFirst && code <= wordLast:
			w := int(code - wordFirst)
			if w >= len(c.words) {
				return "", format.Formatf(format.ErrInvalidCode, "word 0x%02X at %d outside dictionary of %d", code, i, len(c.words))
			}
			sb.WriteString(c.words[w])
		case code == CodeName:
			sb.WriteString(MarkupName)
		case code == CodeWait:
			sb.WriteString(MarkupWait)
		case code == CodeLineBreak:
			sb.WriteByte('\n')
		case code == CodeTerminator:
			return sb.String(), nil
		default:
			return "", format.Formatf(format.ErrInvalidCode, "control 0x%02X at %d", code, i)
		}
	}
	return "", format.Formatf(format.ErrUnterminatedString, "no terminator in %d bytes", len(b))
}

// readTextDirectory is phase one of decoding: the fixed string table only
func readTextDirectory(data []byte) ([]textEntry, int, error) {
	count, reserved, err := readPrefix(data)
	if err != nil {
		return nil, 0, err
	}
	dirEnd := format.SectionPrefixSize + count*format.TextEntrySize
	if dirEnd > len(data) {
		return nil, 0, format.Formatf(format.ErrTruncatedData, "string table of %d entries needs %d bytes, got %d", count, dirEnd, len(data))
	}

	entries := make([]textEntry, count)
	for i := range entries {
		b := data[format.SectionPrefixSize+i*format.TextEntrySize:]
		entries[i] = textEntry{
			ID:         binary.LittleEndian.Uint16(b[0:2]),
			Length:     binary.LittleEndian.Uint16(b[2:4]),
			DataOffset: binary.LittleEndian.Uint32(b[4:8]),
		}
		if err := span(fmt.Sprintf("string[%d]", i), uint64(entries[i].DataOffset), uint64(entries[i].Length), dirEnd, len(data)); err != nil {
			return nil, 0, err
		}
	}
	return entries, reserved, nil
}

// MeasureText returns the section size implied by the string table
func MeasureText(data []byte) (int, error) {
	entries, _, err := readTextDirectory(data)
	if err != nil {
		return 0, err
	}
	size := format.SectionPrefixSize + len(entries)*format.TextEntrySize
	for _, e := range entries {
		if end := int(e.DataOffset) + int(e.Length); end > size {
			size = end
		}
	}
	return size, nil
}

func (c *TextCodec) Decode(data []byte) (Asset, error) {
	entries, reserved, err := readTextDirectory(data)
	if err != nil {
		return nil, err
	}

	table := &TextTable{Reserved: reserved, Strings: make([]TextEntry, len(entries))}
	for i, e := range entries {
		s, err := c.DecodeString(data[e.DataOffset : e.DataOffset+uint32(e.Length)])
		if err != nil {
			return nil, fmt.Errorf("string[%d] id %d: %w", i, e.ID, err)
		}
		table.Strings[i] = TextEntry{ID: int(e.ID), Text: s}
	}
	return table, nil
}

func (c *TextCodec) Encode(a Asset) ([]byte, error) {
	table, ok := a.(*TextTable)
	if !ok {
		return nil, wrongAsset(c, a)
	}

	encoded := make([][]byte, len(table.Strings))
	dirEnd := format.SectionPrefixSize + len(table.Strings)*format.TextEntrySize
	size := dirEnd
	for i, s := range table.Strings {
		b, err := c.EncodeString(s.Text)
		if err != nil {
			return nil, fmt.Errorf("string[%d] id %d: %w", i, s.ID, err)
		}
		if len(b) > 0xFFFF {
			return nil, fmt.Errorf("string[%d] id %d encodes to %d bytes, limit 65535", i, s.ID, len(b))
		}
		encoded[i] = b
		size += len(b)
	}

	buf := make([]byte, size)
	putPrefix(buf, len(table.Strings), table.Reserved)

	offset := dirEnd
	for i, b := range encoded {
		entry := buf[format.SectionPrefixSize+i*format.TextEntrySize:]
		binary.LittleEndian.PutUint16(entry[0:2], uint16(table.Strings[i].ID))
		binary.LittleEndian.PutUint16(entry[2:4], uint16(len(b)))
		binary.LittleEndian.PutUint32(entry[4:8], uint32(offset))
		copy(buf[offset:], b)
		offset += len(b)
	}
	return buf, nil
}
