// Package catalog holds the immutable table of emotion cards.
//
// The table ships inside the binary as cards.json and is parsed once on first
// use. A Catalog is never modified after construction, so it may be shared
// between goroutines without locking.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	jsoniter "github.com/json-iterator/go"
)

//go:embed cards.json
var embeddedCards []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Animations names the animation clips of a card's companion animal.
type Animations struct {
	Idle  string `json:"idle"`
	Happy string `json:"happy"`
	Sad   string `json:"sad"`
}

// Card is one physical emotion card.
type Card struct {
	ID          string     `json:"id"`
	Emotion     string     `json:"emotion"`
	Description string     `json:"description"`
	AnimalType  string     `json:"animalType"`
	Activities  []string   `json:"activities"`
	Animations  Animations `json:"animations"`
}

// Catalog is a versioned, read-only set of cards keyed by id.
type Catalog struct {
	version int
	cards   []Card
	byID    map[string]int
}

type document struct {
	Version int    `json:"version"`
	Cards   []Card `json:"cards"`
}

var (
	defaultCatalog *Catalog
	defaultErr     error
	defaultOnce    sync.Once
)

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCards)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is like Default but panics if the embedded table is invalid.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a catalog document.
//
// Every card needs a unique, non-empty id. A missing version is treated as 1.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}

	c := &Catalog{
		version: doc.Version,
		cards:   make([]Card, 0, len(doc.Cards)),
		byID:    make(map[string]int, len(doc.Cards)),
	}
	for i, card := range doc.Cards {
		if card.ID == "" {
			return nil, fmt.Errorf("card %d has no id", i)
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", card.ID)
		}
		card.Activities = append([]string(nil), card.Activities...)
		c.byID[card.ID] = len(c.cards)
		c.cards = append(c.cards, card)
	}
	return c, nil
}

// Version returns the table version.
func (c *Catalog) Version() int { return c.version }

// Len returns the number of cards.
func (c *Catalog) Len() int { return len(c.cards) }

// Lookup returns the card with the given id.
func (c *Catalog) Lookup(id string) (Card, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Card{}, false
	}
	return c.cards[i].clone(), true
}

// Cards returns a copy of every card in table order.
func (c *Catalog) Cards() []Card {
	out := make([]Card, len(c.cards))
	for i, card := range c.cards {
		out[i] = card.clone()
	}
	return out
}

// MatchText finds the card whose emotion or id appears as a word in text.
// Matching ignores case and punctuation; the earliest matching word wins.
func (c *Catalog) MatchText(text string) (Card, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, card := range c.cards {
			if w == card.ID || w == strings.ToLower(card.Emotion) {
				return card.clone(), true
			}
		}
	}
	return Card{}, false
}

func (c Card) clone() Card {
	c.Activities = append([]string(nil), c.Activities...)
	return c
}
