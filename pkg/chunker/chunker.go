// Package chunker splits document content into overlapping token windows.
package chunker

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 100
	DefaultEncoding     = "cl100k_base"
)

// Piece is one chunk of a document in order.
type Piece struct {
	Order   int
	Content string
	Tokens  int
}

type Chunker interface {
	Chunk(content string) []Piece
}

type tokenizer interface {
	encode(s string) []int
	decode(tokens []int) string
}

type tiktokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenizer) encode(s string) []int {
	return t.enc.Encode(s, nil, nil)
}

func (t tiktokenizer) decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// runeTokenizer counts one token per rune. It is used when no BPE
// ranks can be loaded.
type runeTokenizer struct{}

func (runeTokenizer) encode(s string) []int {
	runes := []rune(s)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (runeTokenizer) decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

// TokenChunker cuts content into windows of Size tokens, each window
// starting Size-Overlap tokens after the previous one.
type TokenChunker struct {
	Size    int
	Overlap int
	tok     tokenizer
}

// New loads the named tiktoken encoding and falls back to rune counting when
// the ranks are unavailable.
func New(size, overlap int, encoding string) *TokenChunker {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	c := newChunker(size, overlap, runeTokenizer{})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		slog.Warn("failed to load tiktoken encoding, counting runes instead", slog.String("encoding", encoding),
			slog.String("error", err.Error()), slog.String("component", "chunker"))
		return c
	}
	c.tok = tiktokenizer{enc: enc}
	return c
}

// NewRuneChunker counts runes as tokens. It needs no external data.
func NewRuneChunker(size, overlap int) *TokenChunker {
	return newChunker(size, overlap, runeTokenizer{})
}

func newChunker(size, overlap int, tok tokenizer) *TokenChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &TokenChunker{Size: size, Overlap: overlap, tok: tok}
}

func (c *TokenChunker) Chunk(content string) []Piece {
	tokens := c.tok.encode(content)
	var pieces []Piece
	step := c.Size - c.Overlap
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.Size, len(tokens))
		text := strings.TrimSpace(c.tok.decode(tokens[start:end]))
		if text != "" {
			pieces = append(pieces, Piece{Order: len(pieces), Content: text, Tokens: end - start})
		}
		if end == len(tokens) {
			break
		}
	}
	return pieces
}
