package service

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// DefaultCodeLength keeps short links short while leaving ~57 bits of
	// entropy per code, plenty for the expected corpus size.
	DefaultCodeLength = 6

	// DefaultCodeAlphabet is the URL-safe alphabet codes are drawn from.
	DefaultCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeGenerator produces fixed-length short codes from a crypto-random
// source. Generation is pure; collision detection and retry belong to the
// shortener, which observes uniqueness violations from the store.
type CodeGenerator struct {
	alphabet string
	length   int
}

// NewCodeGenerator returns a generator for the given alphabet and length,
// falling back to defaults for zero values.
func NewCodeGenerator(alphabet string, length int) *CodeGenerator {
	if alphabet == "" {
		alphabet = DefaultCodeAlphabet
	}
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &CodeGenerator{alphabet: alphabet, length: length}
}

// Generate returns a fresh random code.
func (g *CodeGenerator) Generate() (string, error) {
	return gonanoid.Generate(g.alphabet, g.length)
}

// Length reports the configured code length.
func (g *CodeGenerator) Length() int {
	return g.length
}
