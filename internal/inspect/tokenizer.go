// Package inspect reports tokenized sequence-length distributions of
// formatted corpora.
package inspect

import (
	"fmt"
	"strings"

	"github.com/wbrown/gpt_bpe"
	"github.com/wbrown/gpt_bpe/resources"
)

// Tokenizer turns text into token ids. Implementations never truncate.
type Tokenizer interface {
	Tokenize(text string) ([]int, error)
}

// Built-in tokenizer names.
const (
	TokenizerWhitespace = "whitespace"
	DefaultTokenizer    = "gpt2"
)

// NewTokenizer resolves a tokenizer by name. "whitespace" counts
// whitespace-delimited words; any other name is an embedded gpt_bpe
// vocabulary (gpt2, pile, llama, ...) or a path to a tokenizer directory.
func NewTokenizer(name string, addSpecialTokens bool) (Tokenizer, error) {
	name = strings.TrimSpace(name)
	switch name {
	case TokenizerWhitespace:
		return WhitespaceTokenizer{}, nil
	case "":
		name = DefaultTokenizer
	}
	return NewBPETokenizer(name, addSpecialTokens)
}

// WhitespaceTokenizer assigns one id per whitespace-delimited word.
// Ids are word positions and carry no vocabulary meaning.
type WhitespaceTokenizer struct{}

// Tokenize splits text on whitespace.
func (WhitespaceTokenizer) Tokenize(text string) ([]int, error) {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i := range ids {
		ids[i] = i
	}
	return ids, nil
}

// BPETokenizer encodes text with a gpt_bpe encoder.
type BPETokenizer struct {
	Name string
	// AddSpecialTokens makes every sequence start with the BOS token.
	// When false, BOS/EOS tokens the encoder adds on its own are removed.
	AddSpecialTokens bool

	encoder *gpt_bpe.GPTEncoder
}

// NewBPETokenizer loads an embedded vocabulary by id, falling back to
// treating id as a path or full vocabulary name.
func NewBPETokenizer(id string, addSpecialTokens bool) (*BPETokenizer, error) {
	var (
		enc *gpt_bpe.GPTEncoder
		err error
	)
	embedded := id + "-tokenizer"
	if ok, _ := resources.EmbeddedDirExists(embedded); ok {
		enc, err = gpt_bpe.NewEncoder(embedded)
	} else {
		enc, err = gpt_bpe.NewEncoder(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %q: %w", id, err)
	}
	return &BPETokenizer{Name: id, AddSpecialTokens: addSpecialTokens, encoder: enc}, nil
}

// Tokenize encodes text without truncation.
func (b *BPETokenizer) Tokenize(text string) ([]int, error) {
	if b.encoder == nil {
		return nil, fmt.Errorf("tokenizer %q not loaded", b.Name)
	}
	toks := *b.encoder.Encode(&text)
	return specialTokens(toks, b.encoder.BosToken, b.encoder.EosToken, b.AddSpecialTokens), nil
}

// specialTokens converts encoder output to ids. With add set, a single BOS
// leads the sequence; otherwise a leading BOS and trailing EOS are dropped.
func specialTokens(toks gpt_bpe.Tokens, bos, eos gpt_bpe.Token, add bool) []int {
	if add {
		if len(toks) == 0 || toks[0] != bos {
			toks = append(gpt_bpe.Tokens{bos}, toks...)
		}
	} else {
		if len(toks) > 0 && toks[0] == bos {
			toks = toks[1:]
		}
		if len(toks) > 0 && toks[len(toks)-1] == eos {
			toks = toks[:len(toks)-1]
		}
	}
	ids := make([]int, len(toks))
	for i, t := range toks {
		ids[i] = int(t)
	}
	return ids
}

var (
	_ Tokenizer = WhitespaceTokenizer{}
	_ Tokenizer = (*BPETokenizer)(nil)
)
