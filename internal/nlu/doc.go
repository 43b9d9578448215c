// Package nlu turns raw utterances into an intent and a set of entities.
//
// Both operations are pure, total functions over arbitrary text: they never
// fail and fall back to documented defaults when nothing matches.
//
// # Intent classification
//
// The Classifier walks an ordered table of intent rules. Every pattern that
// matches anywhere in the lowercased input produces a candidate confidence:
//
//   - 0.85 when the pattern covers the entire input (full match)
//   - 0.70 when it only matches a substring
//
// The best candidate is kept using a strictly-greater-than comparison, so on
// ties the rule listed first wins. The starting candidate is the unknown
// intent at 0.3.
//
// # Entity extraction
//
// Extract pulls three independent entity kinds out of the input:
//
//   - numbers: every maximal digit run, left to right
//   - app: the first known application name in list order, title-cased
//   - duration: the first "<N> minutes|hours|seconds" expression
//
// # Usage
//
//	classifier := nlu.NewClassifier()
//	intent := classifier.Classify("open safari")   // system.open @ 0.85
//	entities := nlu.Extract("open safari")         // app=Safari
package nlu
