package models

import (
	"slices"

	"github.com/HatiCode/trafficcast/pkg/features"
)

// Category is the encoder's view of one categorical value: either a known
// category with its position in the vocabulary, or unknown.
type Category struct {
	index int
	known bool
}

// KnownCategory returns the category at vocabulary position i.
func KnownCategory(i int) Category { return Category{index: i, known: true} }

// UnknownCategory is a value absent from the training vocabulary.
var UnknownCategory = Category{}

// Index returns the vocabulary position and whether the category is known.
func (c Category) Index() (int, bool) { return c.index, c.known }

// OneHotEncoder maps categorical features to indicator blocks, one block
// per feature and one column per category observed in training. Values not
// seen in training encode to an all-zero block.
//
// An encoder is read-only once fitted and safe for concurrent use.
type OneHotEncoder struct {
	features []string
	vocab    [][]string
	index    []map[string]int
	width    int
}

// FitOneHot builds an encoder for the named features from training inputs.
// Each vocabulary is sorted so the encoding does not depend on row order.
func FitOneHot(names []string, rows []features.Input) *OneHotEncoder {
	vocab := make([][]string, len(names))
	for f, name := range names {
		seen := make(map[string]struct{})
		for _, r := range rows {
			if v, ok := r.Categorical[name]; ok {
				seen[v] = struct{}{}
			}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		slices.Sort(cats)
		vocab[f] = cats
	}
	return newOneHotEncoder(names, vocab)
}

func newOneHotEncoder(names []string, vocab [][]string) *OneHotEncoder {
	e := &OneHotEncoder{
		features: slices.Clone(names),
		vocab:    vocab,
		index:    make([]map[string]int, len(names)),
	}
	for f, cats := range vocab {
		m := make(map[string]int, len(cats))
		for i, c := range cats {
			m[c] = i
		}
		e.index[f] = m
		e.width += len(cats)
	}
	return e
}

// Width returns the total number of indicator columns.
func (e *OneHotEncoder) Width() int { return e.width }

// Categories returns a copy of the vocabulary of the named feature.
func (e *OneHotEncoder) Categories(feature string) []string {
	for f, name := range e.features {
		if name == feature {
			return slices.Clone(e.vocab[f])
		}
	}
	return nil
}

// Lookup resolves a value of the f-th encoded feature.
func (e *OneHotEncoder) Lookup(f int, value string) Category {
	if i, ok := e.index[f][value]; ok {
		return KnownCategory(i)
	}
	return UnknownCategory
}

// Encode writes the indicator blocks of in into dst, which must hold
// Width() zeroed values, and returns a warning per unseen value.
func (e *OneHotEncoder) Encode(dst []float64, in features.Input) []features.UnseenCategoryWarning {
	var unseen []features.UnseenCategoryWarning
	offset := 0
	for f, name := range e.features {
		value := in.Categorical[name]
		if i, ok := e.Lookup(f, value).Index(); ok {
			dst[offset+i] = 1
		} else {
			unseen = append(unseen, features.UnseenCategoryWarning{Feature: name, Value: value})
		}
		offset += len(e.vocab[f])
	}
	return unseen
}
