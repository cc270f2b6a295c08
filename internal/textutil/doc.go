// Package textutil provides text helpers shared by the classifier and CLI.
//
// Tokenization folds case with golang.org/x/text so keyword matching behaves
// the same for accented and non-Latin input, then splits on anything that is
// not a letter or digit.
package textutil
