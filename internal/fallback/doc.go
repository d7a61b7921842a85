// Package fallback recovers structured facts from document text with layered
// regular expressions. It runs when Document AI is disabled, unavailable or
// returns nothing usable. Every extractor is a pure function; each stops at
// the first layer that yields a result so looser patterns cannot add noise to
// what a stricter one already found.
package fallback
